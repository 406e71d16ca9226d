package badger

import (
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/poiesic/leadhunt/core"
)

// Key prefixes for different data types
const (
	projectPrefix      = "prjrec"
	projectOwnerPrefix = "prjown"
	projectIDSeq       = "prjrecseq"
	usagePrefix        = "usgrec"
	planPrefix         = "plnrec"
)

// ownerSegment encodes an owner ID for use inside a key. Hex keeps owner IDs
// containing the separator from sharing a prefix with other owners.
func ownerSegment(ownerID string) string {
	return hex.EncodeToString([]byte(ownerID))
}

// makeProjectKey generates a key for a project by ID.
func makeProjectKey(id core.ID) []byte {
	return []byte(fmt.Sprintf("%s:%d", projectPrefix, id))
}

// makeProjectOwnerKey generates a composite key for the owner index.
// Format: prefix:owner:id
func makeProjectOwnerKey(ownerID string, id core.ID) []byte {
	prefix := makePartialProjectOwnerKey(ownerID)
	buf := make([]byte, len(prefix)+8)
	offset := copy(buf, prefix)
	// Write in BigEndian order so lexicographic sort works correctly
	binary.BigEndian.PutUint64(buf[offset:], uint64(id))
	return buf
}

// makePartialProjectOwnerKey generates the owner index prefix of one owner.
// Format: prefix:owner:
func makePartialProjectOwnerKey(ownerID string) []byte {
	return []byte(projectOwnerPrefix + ":" + ownerSegment(ownerID) + ":")
}

// makeUsageKey generates a composite key for a usage event.
// Format: prefix:owner:timestamp:eventID
func makeUsageKey(ownerID string, createdAt time.Time, eventID string) []byte {
	prefix := makePartialUsageKey(ownerID)
	buf := make([]byte, len(prefix)+8+len(eventID))
	offset := copy(buf, prefix)
	binary.BigEndian.PutUint64(buf[offset:], encodeMicros(createdAt))
	offset += 8
	copy(buf[offset:], eventID)
	return buf
}

// makePartialUsageKey generates the usage prefix of one owner.
// Format: prefix:owner:
func makePartialUsageKey(ownerID string) []byte {
	return []byte(usagePrefix + ":" + ownerSegment(ownerID) + ":")
}

// makeUsageSeekKey generates the first possible usage key at or after since.
func makeUsageSeekKey(ownerID string, since time.Time) []byte {
	prefix := makePartialUsageKey(ownerID)
	buf := make([]byte, len(prefix)+8)
	offset := copy(buf, prefix)
	binary.BigEndian.PutUint64(buf[offset:], encodeMicros(since))
	return buf
}

// encodeMicros maps t to an unsigned value whose BigEndian bytes sort in time
// order, including times before 1970 and the zero time.
func encodeMicros(t time.Time) uint64 {
	return uint64(t.UnixMicro()) ^ (1 << 63)
}

// makePlanKey generates a key for an owner's plan.
func makePlanKey(ownerID string) []byte {
	return []byte(planPrefix + ":" + ownerSegment(ownerID))
}

// decodeUint64 reads a BigEndian uint64 written by the key helpers.
func decodeUint64(b []byte) uint64 {
	if len(b) < 8 {
		return 0
	}
	return binary.BigEndian.Uint64(b[:8])
}
