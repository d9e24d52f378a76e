package mailbox

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/eldtechnologies/roomrelay/internal/metrics"
	"github.com/eldtechnologies/roomrelay/internal/models"
)

// Write validates msg, runs admission for joins, stamps the arrival time
// and stores the message under a fresh key for the mailbox TTL. Any client
// supplied timestamp is overwritten. Store errors are wrapped in
// ErrStoreFailure and not retried.
func (m *Mailbox) Write(ctx context.Context, msg models.Message) (*models.Message, error) {
	if err := ValidateRoom(msg.Room); err != nil {
		return nil, err
	}

	if msg.IsJoin() {
		if err := m.Admit(ctx, msg.Room, msg.ClientID); err != nil {
			if errors.Is(err, ErrRoomFull) {
				metrics.JoinsRejected.Inc()
				m.logger.Warn().
					Str("room", msg.Room).
					Str("client_id", msg.ClientID).
					Msg("join rejected, room full")
			}
			return nil, err
		}
	}

	msg.Timestamp = m.now().UnixMilli()
	key := DeriveKey(msg.Room, msg.Timestamp)

	data, err := json.Marshal(msg)
	if err != nil {
		return nil, fmt.Errorf("%w: encode message: %w", ErrStoreFailure, err)
	}

	if err := m.kv.Put(ctx, key, data, m.ttl); err != nil {
		return nil, fmt.Errorf("%w: put: %w", ErrStoreFailure, err)
	}

	metrics.MessagesWritten.WithLabelValues(typeLabel(msg.Type)).Inc()

	// Fan-out is best-effort; the stored message is the source of truth.
	if err := m.notifier.Notify(ctx, &msg); err != nil {
		metrics.NotifyFailures.WithLabelValues(m.notifier.Name()).Inc()
		m.logger.Warn().Err(err).Str("room", msg.Room).Msg("write notification failed")
	}

	return &msg, nil
}
