// Package di contains dependency injection tokens for the tri engine context.
package di

// DI tokens for the triengine module.
const (
	Engine = "triengine.Engine"
)
