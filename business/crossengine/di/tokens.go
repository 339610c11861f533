// Package di contains dependency injection tokens for the cross engine context.
package di

// DI tokens for the crossengine module.
const (
	Engine = "crossengine.Engine"
)
