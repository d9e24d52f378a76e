package mailbox

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/oklog/ulid/v2"
)

// Separator joins the fields of a storage key. Room IDs may not contain it.
const Separator = ":"

// Room IDs: alphanumeric, hyphens, underscores, 1-128 chars
var roomRegex = regexp.MustCompile(`^[A-Za-z0-9_-]{1,128}$`)

// ValidateRoom rejects empty room IDs and any ID that could break prefix
// isolation between rooms.
func ValidateRoom(room string) error {
	if room == "" {
		return fmt.Errorf("%w: room is required", ErrInvalidRoom)
	}
	if !roomRegex.MatchString(room) {
		return fmt.Errorf("%w: room must be 1-128 characters, alphanumeric with hyphens and underscores only", ErrInvalidRoom)
	}
	return nil
}

// RoomPrefix returns the key prefix shared by every message of room.
func RoomPrefix(room string) string {
	return room + Separator
}

// DeriveKey builds the storage key for a message arriving at arrivalMillis:
// room:timestamp:suffix. The timestamp is zero-padded to 13 digits so key
// order matches arrival order until the year 2286. The suffix is the 80-bit
// random section of a ULID, which keeps keys unique when several messages
// land in the same millisecond.
func DeriveKey(room string, arrivalMillis int64) string {
	var b strings.Builder
	b.Grow(len(room) + 32)
	b.WriteString(RoomPrefix(room))
	fmt.Fprintf(&b, "%013d", arrivalMillis)
	b.WriteString(Separator)
	b.WriteString(keySuffix())
	return b.String()
}

func keySuffix() string {
	// ulid string: 10 chars of time, 16 chars of entropy
	return ulid.Make().String()[10:]
}
