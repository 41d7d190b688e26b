// Package tools defines the ITool contract for capabilities the model can call,
// and a static Registry that dispatches tool calls by name.
//
// The Registry is built once at startup. A call for a name that is not registered
// yields an explicit ResultUnknown result rather than an error, so the conversation
// can continue.
package tools
