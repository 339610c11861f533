// Package di contains dependency injection tokens for the marketdata context.
package di

// DI tokens for the marketdata module.
const (
	SymbolRegistry = "marketdata.SymbolRegistry"
	FeeTable       = "marketdata.FeeTable"
	BookStore      = "marketdata.BookStore"
)
