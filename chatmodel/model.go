package chatmodel

import (
	"github.com/cockroachdb/errors"
)

var (
	// ErrFailedUnmarshalInput is returned by tools when the arguments do not match the schema.
	ErrFailedUnmarshalInput = errors.New("failed to unmarshal input: check the schema and try again")
	// ErrFailedUnmarshalOutput is returned when the model output does not match the schema.
	ErrFailedUnmarshalOutput = errors.New("failed to unmarshal output: check the schema and try again")
	// ErrInvalidChatContext is returned when the context has no chat ID.
	ErrInvalidChatContext = errors.New("invalid chat context")
)
