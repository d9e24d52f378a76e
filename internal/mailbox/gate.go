package mailbox

import (
	"context"
)

// Admit decides whether clientID may join room.
//
// Membership is the set of distinct client IDs across the room's live
// messages. A join is refused when that set already holds MaxClients members
// and clientID is not one of them. The cap is soft: two joins evaluated
// concurrently can both pass before either is written, and a member whose
// messages all expired is no longer counted.
func (m *Mailbox) Admit(ctx context.Context, room, clientID string) error {
	if err := ValidateRoom(room); err != nil {
		return err
	}
	if clientID == "" {
		return ErrMissingClientID
	}

	entries, err := m.fetchRoom(ctx, room)
	if err != nil {
		return err
	}

	members := make(map[string]struct{}, len(entries))
	for _, e := range entries {
		if e.msg.ClientID != "" {
			members[e.msg.ClientID] = struct{}{}
		}
	}

	if _, ok := members[clientID]; ok {
		return nil
	}
	if len(members) >= m.maxClients {
		return ErrRoomFull
	}
	return nil
}
