// Package di contains dependency injection tokens for the connectors context.
package di

// DI tokens for the connectors module.
const (
	Registry = "connectors.Registry"
)
