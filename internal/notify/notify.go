// Package notify publishes freshly written signaling messages to a pub/sub
// system so push-capable clients need not poll. Delivery is best-effort.
package notify

import (
	"context"
	"encoding/json"

	"github.com/eldtechnologies/roomrelay/internal/models"
)

// Notifier publishes a written message.
type Notifier interface {
	Name() string
	Notify(ctx context.Context, msg *models.Message) error
	Close() error
}

// Nop discards notifications.
type Nop struct{}

func (Nop) Name() string                                  { return "none" }
func (Nop) Notify(context.Context, *models.Message) error { return nil }
func (Nop) Close() error                                  { return nil }

func encode(msg *models.Message) ([]byte, error) {
	return json.Marshal(msg)
}
