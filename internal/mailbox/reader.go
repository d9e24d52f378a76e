package mailbox

import (
	"context"
	"sort"

	"github.com/eldtechnologies/roomrelay/internal/metrics"
	"github.com/eldtechnologies/roomrelay/internal/models"
)

// Read returns the live messages of room in ascending timestamp order, ties
// broken by storage key. The result is a snapshot: a message written while
// the read is in flight may or may not be included. An empty room yields an
// empty, non-nil slice.
func (m *Mailbox) Read(ctx context.Context, room string) ([]models.Message, error) {
	if err := ValidateRoom(room); err != nil {
		return nil, err
	}

	entries, err := m.fetchRoom(ctx, room)
	if err != nil {
		return nil, err
	}

	sort.Slice(entries, func(i, j int) bool {
		if entries[i].msg.Timestamp != entries[j].msg.Timestamp {
			return entries[i].msg.Timestamp < entries[j].msg.Timestamp
		}
		return entries[i].key < entries[j].key
	})

	messages := make([]models.Message, len(entries))
	for i, e := range entries {
		messages[i] = e.msg
	}

	metrics.MessagesRead.Observe(float64(len(messages)))
	return messages, nil
}
