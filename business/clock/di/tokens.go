// Package di holds the DI container tokens for the clock context.
package di

// Service is the token under which *clock/app.Service is registered.
const Service = "clock.Service"
