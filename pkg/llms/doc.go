// Package llms defines the provider-neutral conversation model: roles, messages with text,
// tool-call and tool-result parts, and the Model interface the chat hosts drive.
package llms
