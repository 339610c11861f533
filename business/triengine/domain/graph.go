package domain

import (
	mdomain "github.com/fd1az/arbitrage-bot/business/marketdata/domain"
	"github.com/shopspring/decimal"
)

// Edge is one directed conversion step in a venue's market graph: one unit
// of From converts to Rate units of To before fees, through Pair.
type Edge struct {
	From           string
	To             string
	Rate           decimal.Decimal
	Fee            decimal.Decimal
	Pair           mdomain.Pair
	Sell           bool
	FilledNotional decimal.Decimal // depth consumed to reach the configured target notional
}

// Graph is the directed asset graph built from one venue's live books
// (spec.md §4.7 step 1): each live pair (Base, Quote) contributes a
// Base->Quote sell edge and a Quote->Base buy edge.
type Graph struct {
	edges map[string][]Edge
}

// NewGraph creates an empty Graph.
func NewGraph() *Graph {
	return &Graph{edges: make(map[string][]Edge)}
}

// AddEdge adds a directed edge to the graph.
func (g *Graph) AddEdge(e Edge) {
	g.edges[e.From] = append(g.edges[e.From], e)
}

// Neighbors returns the outgoing edges from asset.
func (g *Graph) Neighbors(asset string) []Edge {
	return g.edges[asset]
}

// Cycle is one simple 3-leg path base->X->Y->base.
type Cycle struct {
	Base string
	Legs [3]Edge
}

// Cycles3 enumerates simple 3-cycles base->X->Y->base, excluding any cycle
// whose intermediate asset is in excludeQuotes. It reports ok=false without
// enumerating if base's direct neighbor count exceeds maxNeighbors, the
// safety bound of spec.md §4.7.
func (g *Graph) Cycles3(base string, excludeQuotes map[string]bool, maxNeighbors int) (cycles []Cycle, ok bool) {
	firstLegs := g.Neighbors(base)
	if len(firstLegs) > maxNeighbors {
		return nil, false
	}

	for _, e1 := range firstLegs {
		x := e1.To
		if x == base || excludeQuotes[x] {
			continue
		}
		for _, e2 := range g.Neighbors(x) {
			y := e2.To
			if y == base || y == x || excludeQuotes[y] {
				continue
			}
			for _, e3 := range g.Neighbors(y) {
				if e3.To != base {
					continue
				}
				cycles = append(cycles, Cycle{Base: base, Legs: [3]Edge{e1, e2, e3}})
			}
		}
	}
	return cycles, true
}
