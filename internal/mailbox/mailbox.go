// Package mailbox implements room-scoped signaling mailboxes on top of a
// TTL-bounded key-value store.
//
// Every message is stored under its own key, so concurrent writers to a room
// never contend on a shared value and the package needs no locks. Room
// membership is derived on demand from the live messages of a room; it is
// never stored.
package mailbox

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"github.com/eldtechnologies/roomrelay/internal/models"
	"github.com/eldtechnologies/roomrelay/internal/notify"
	"github.com/eldtechnologies/roomrelay/internal/store"
)

const (
	// MessageTTL is how long a written message stays readable.
	MessageTTL = 600 * time.Second

	// MaxClients is the admission cap: distinct client IDs per room.
	MaxClients = 10

	// fetchConcurrency bounds parallel Gets while materializing a room.
	fetchConcurrency = 16
)

var (
	ErrInvalidRoom     = errors.New("invalid room")
	ErrMissingClientID = errors.New("join requires clientId")
	ErrRoomFull        = errors.New("room is full")
	ErrStoreFailure    = errors.New("store failure")
)

// Config wires a Mailbox to its collaborators. Zero values fall back to
// production defaults.
type Config struct {
	Store    store.KV
	Notifier notify.Notifier
	Logger   zerolog.Logger

	// Now returns the arrival time stamped on writes. Defaults to time.Now.
	Now func() time.Time

	TTL        time.Duration
	MaxClients int
}

// Mailbox is the write/read surface for room mailboxes.
type Mailbox struct {
	kv         store.KV
	notifier   notify.Notifier
	logger     zerolog.Logger
	now        func() time.Time
	ttl        time.Duration
	maxClients int
}

// New creates a Mailbox from cfg.
func New(cfg Config) *Mailbox {
	m := &Mailbox{
		kv:         cfg.Store,
		notifier:   cfg.Notifier,
		logger:     cfg.Logger,
		now:        cfg.Now,
		ttl:        cfg.TTL,
		maxClients: cfg.MaxClients,
	}
	if m.notifier == nil {
		m.notifier = notify.Nop{}
	}
	if m.now == nil {
		m.now = time.Now
	}
	if m.ttl <= 0 {
		m.ttl = MessageTTL
	}
	if m.maxClients <= 0 {
		m.maxClients = MaxClients
	}
	return m
}

// Ping checks the backing store.
func (m *Mailbox) Ping(ctx context.Context) error {
	return m.kv.Ping(ctx)
}

// StoreName returns the name of the backing store.
func (m *Mailbox) StoreName() string {
	return m.kv.Name()
}

// typeLabel bounds metric cardinality to the known message types.
func typeLabel(t string) string {
	switch t {
	case models.TypeJoin, models.TypeLeave, models.TypeOffer, models.TypeAnswer, models.TypeCandidate:
		return t
	default:
		return "other"
	}
}

// TTL returns the lifetime given to written messages.
func (m *Mailbox) TTL() time.Duration {
	return m.ttl
}

// MaxClients returns the admission cap.
func (m *Mailbox) MaxClients() int {
	return m.maxClients
}
