// Package di holds the DI container tokens for the emitter context.
package di

// Emitter is the token under which *emitter/app.Emitter is registered.
const Emitter = "emitter.Emitter"
