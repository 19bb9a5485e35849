package domain

import (
	"strconv"
	"sync"

	"github.com/jonboulle/clockwork"
)

// Identifier prefixes.
const (
	PrefixAlert    = "ALERT"
	PrefixLocation = "LOC"
	PrefixAudit    = "LOG"
)

// IDGenerator issues identifiers of the form <prefix><n>. n is the creation
// time in unix milliseconds times 1000 plus a counter tail, and is strictly
// increasing across all prefixes for the life of the generator, so ids are
// unique and sort in issue order even when the clock stalls or steps back.
type IDGenerator struct {
	clock clockwork.Clock
	mu    sync.Mutex
	last  int64
}

// NewIDGenerator creates a generator reading time from clock. A nil clock
// uses the real clock.
func NewIDGenerator(clock clockwork.Clock) *IDGenerator {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &IDGenerator{clock: clock}
}

// Next returns a new identifier with the given prefix.
func (g *IDGenerator) Next(prefix string) string {
	return prefix + strconv.FormatInt(g.next(), 10)
}

func (g *IDGenerator) next() int64 {
	candidate := g.clock.Now().UnixMilli() * 1000

	g.mu.Lock()
	defer g.mu.Unlock()
	if candidate <= g.last {
		candidate = g.last + 1
	}
	g.last = candidate
	return candidate
}
