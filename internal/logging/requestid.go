// Package logging provides the service logger and delivery ID context propagation.
package logging

import (
	"context"
	"crypto/rand"
	"encoding/hex"
)

type contextKey string

const deliveryIDKey contextKey = "deliveryId"

// GenerateRequestID creates an 8-character hex request ID.
func GenerateRequestID() string {
	b := make([]byte, 4)
	rand.Read(b)
	return hex.EncodeToString(b)
}

// WithDeliveryID injects a webhook delivery ID into the context.
func WithDeliveryID(ctx context.Context, deliveryID string) context.Context {
	return context.WithValue(ctx, deliveryIDKey, deliveryID)
}

// GetDeliveryID retrieves the delivery ID from the context.
// Returns empty string if not found.
func GetDeliveryID(ctx context.Context) string {
	if id, ok := ctx.Value(deliveryIDKey).(string); ok {
		return id
	}
	return ""
}
