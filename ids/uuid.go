// Package ids generates the opaque identifiers the engine hands out:
// a soma identity at registration time (§3 "Soma identity") and a
// driver run identity at Start time (§4.5 step 2).
//
// Soma ids are short, alphabet-restricted strings generated the way
// aistore generates its own node/xaction ids — seeded teris-io/shortid,
// tie-broken so the result never starts or ends on a separator. Run ids
// (the driver's root uuid) use google/uuid directly since they are
// process-internal correlation handles, not user-facing short ids. An
// organelle generates no id of its own at Start: it records the SelfID
// its Start impulse carries (the driver's run id for a root organelle, a
// soma id for a nested one).
package ids

import (
	"sync/atomic"

	"github.com/OneOfOne/xxhash"
	"github.com/google/uuid"
	"github.com/teris-io/shortid"
)

// alphabet for generating soma ids; chosen, as in the teacher, so that
// len(somaABC) > 0x3f and so that '-'/'_' are the only non-alphanumeric
// members (they're the characters NewSomaID's tie-break must avoid
// leaving at the ends of an id).
const somaABC = "-5nZJDft6LuzsjGNpPwY7rQa39vehq4i1cV2FROo8yHSlC0BUEdWbIxMmTgKXAk_"

const (
	// LenSomaID is the length of a freshly generated soma id, per
	// https://github.com/teris-io/shortid#id-length
	LenSomaID = 9
	maxIDLen  = 32
)

var (
	sid  atomic.Pointer[shortid.Shortid]
	rtie atomic.Uint32
)

// Seed (re)initializes the soma-id generator. Safe to call once at process
// start; tests call it with a fixed seed for reproducibility.
func Seed(seed uint64) {
	sid.Store(shortid.MustNew(4 /*worker*/, somaABC, seed))
}

func init() { Seed(1) }

// NewSomaID generates a fresh, unique soma identifier. Stable for the
// lifetime of the process (§3 "Soma identity").
func NewSomaID() string {
	id := sid.Load().MustGenerate()
	var h, t string
	if !isAlpha(id[0]) {
		tie := int(rtie.Add(1))
		h = string(rune('A' + tie%26))
	}
	if c := id[len(id)-1]; c == '-' || c == '_' {
		tie := int(rtie.Add(1))
		t = string(rune('a' + tie%26))
	}
	return h + id + t
}

// NewRunID returns a fresh driver run identifier (§4.5 step 2's
// "fresh_uuid").
func NewRunID() string { return uuid.NewString() }

// IsValidSomaID reports whether s has the shape NewSomaID produces.
func IsValidSomaID(s string) bool {
	return len(s) >= LenSomaID && isAlphaNice(s)
}

// HashKind derives a stable uint64 from a kind's string tag. The axon
// constraint tables key on the kind value itself; HashKind only feeds
// their secondary by-hash index (axon.Axon.ConstraintByHash), which skips
// kinds whose String() is empty.
func HashKind(tag string) uint64 {
	return xxhash.Checksum64S([]byte(tag), 0)
}

func isAlpha(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isAlphaNice(s string) bool {
	l := len(s)
	if l > maxIDLen {
		return false
	}
	for i := range l {
		c := s[i]
		if isAlpha(c) || (c >= '0' && c <= '9') {
			continue
		}
		if c != '-' && c != '_' {
			return false
		}
		if i == 0 || i == l-1 {
			return false
		}
	}
	return true
}
