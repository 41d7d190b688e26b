// Package host implements the chat host loop: a conversation with a model
// that may request tool calls, dispatched through a static tool registry.
package host
