package puzzle

import (
	"sync"

	"github.com/google/uuid"
)

// IDGenerator mints persistence-layer identifiers for users and puzzles.
// Implemented by UUIDv7Generator (production) and FixedGenerator (tests).
type IDGenerator interface {
	Generate() string
}

// UUIDv7Generator generates time-sortable UUIDv7 ids.
//
// Thread-safety: UUIDv7Generator is stateless and safe for concurrent use.
type UUIDv7Generator struct{}

// Generate creates a new UUIDv7 and returns it as a hyphenated string.
//
// Panics if UUID generation fails (should never happen in practice).
func (UUIDv7Generator) Generate() string {
	return uuid.Must(uuid.NewV7()).String()
}

// FixedGenerator returns predetermined ids for testing.
//
// Thread-safety: FixedGenerator is safe for concurrent use via internal mutex.
type FixedGenerator struct {
	mu  sync.Mutex
	ids []string
	idx int
}

// NewFixedGenerator creates a generator that returns ids in order.
func NewFixedGenerator(ids ...string) *FixedGenerator {
	return &FixedGenerator{ids: ids}
}

// Generate returns the next predetermined id.
// Panics if all ids have been consumed, to catch test misconfiguration.
func (g *FixedGenerator) Generate() string {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.idx >= len(g.ids) {
		panic("FixedGenerator: all ids exhausted")
	}
	id := g.ids[g.idx]
	g.idx++
	return id
}

// ParseID validates that id is in the persistence layer's format (a UUID in
// canonical hyphenated form) and returns it normalised to lower case.
//
// Identity-provider ids such as "user_2abc..." are not interchangeable with
// persistence ids and are rejected here.
func ParseID(id string) (string, error) {
	if len(id) != 36 {
		return "", NewValidationError(CodeInvalidID, "user_id", "id is not a persistence-layer id")
	}
	u, err := uuid.Parse(id)
	if err != nil {
		return "", NewValidationError(CodeInvalidID, "user_id", "id is not a persistence-layer id")
	}
	return u.String(), nil
}
