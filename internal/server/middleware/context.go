package middleware

import (
	"context"

	"github.com/google/uuid"
)

type contextKey string

const (
	ContextKeyOperatorID   contextKey = "operator_id"
	ContextKeyCapabilities contextKey = "capabilities"
)

func OperatorIDFromContext(ctx context.Context) (uuid.UUID, bool) {
	v, ok := ctx.Value(ContextKeyOperatorID).(uuid.UUID)
	return v, ok
}

func CapabilitiesFromContext(ctx context.Context) ([]string, bool) {
	v, ok := ctx.Value(ContextKeyCapabilities).([]string)
	return v, ok
}

// HasCapability evaluates a single membership check against the request's
// granted capability set.
func HasCapability(ctx context.Context, capability string) bool {
	caps, ok := CapabilitiesFromContext(ctx)
	if !ok {
		return false
	}
	for _, c := range caps {
		if c == capability {
			return true
		}
	}
	return false
}
