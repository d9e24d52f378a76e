package mailbox

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/eldtechnologies/roomrelay/internal/metrics"
	"github.com/eldtechnologies/roomrelay/internal/models"
	"github.com/eldtechnologies/roomrelay/internal/store"
)

// storedMessage pairs a decoded message with the key it was read from.
type storedMessage struct {
	key string
	msg models.Message
}

// fetchRoom lists a room's keys and fetches them in parallel. Keys that
// expired between listing and fetching, and payloads that fail to decode,
// are dropped. Any other store error fails the whole fetch.
func (m *Mailbox) fetchRoom(ctx context.Context, room string) ([]storedMessage, error) {
	keys, err := m.kv.List(ctx, RoomPrefix(room))
	if err != nil {
		return nil, fmt.Errorf("%w: list: %w", ErrStoreFailure, err)
	}
	if len(keys) == 0 {
		return nil, nil
	}

	slots := make([]*storedMessage, len(keys))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(fetchConcurrency)
	for i, key := range keys {
		g.Go(func() error {
			data, err := m.kv.Get(gctx, key)
			if errors.Is(err, store.ErrNotFound) {
				metrics.ReadMisses.Inc()
				return nil
			}
			if err != nil {
				return fmt.Errorf("%w: get %s: %w", ErrStoreFailure, key, err)
			}

			var msg models.Message
			if err := json.Unmarshal(data, &msg); err != nil {
				m.logger.Debug().Err(err).Str("key", key).Msg("dropping undecodable mailbox entry")
				return nil
			}
			slots[i] = &storedMessage{key: key, msg: msg}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	out := make([]storedMessage, 0, len(slots))
	for _, s := range slots {
		if s != nil {
			out = append(out, *s)
		}
	}
	return out, nil
}
