package notify

import (
	"context"
	"fmt"

	"github.com/nats-io/nats.go"

	"github.com/eldtechnologies/roomrelay/internal/models"
)

// SubjectPrefix is prepended to the room ID to form the publish subject.
const SubjectPrefix = "roomrelay.rooms"

// NATSNotifier publishes messages on core NATS subjects.
type NATSNotifier struct {
	nc   *nats.Conn
	owns bool
}

// NewNATSNotifier connects to natsURL.
func NewNATSNotifier(natsURL string) (*NATSNotifier, error) {
	nc, err := nats.Connect(natsURL, nats.Name("roomrelay-notify"))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}
	return &NATSNotifier{nc: nc, owns: true}, nil
}

// NewNATSNotifierFromConn shares an existing connection; Close leaves it open.
func NewNATSNotifierFromConn(nc *nats.Conn) *NATSNotifier {
	return &NATSNotifier{nc: nc}
}

func (n *NATSNotifier) Name() string { return "nats" }

// Notify publishes msg on roomrelay.rooms.<room>.
func (n *NATSNotifier) Notify(_ context.Context, msg *models.Message) error {
	data, err := encode(msg)
	if err != nil {
		return err
	}
	return n.nc.Publish(Subject(msg.Room), data)
}

func (n *NATSNotifier) Close() error {
	if n.owns {
		n.nc.Close()
	}
	return nil
}

// Subject returns the subject messages for room are published on.
func Subject(room string) string {
	return SubjectPrefix + "." + room
}
