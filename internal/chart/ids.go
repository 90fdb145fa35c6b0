package chart

import (
	"strconv"
	"sync"
	"time"
)

// TimestampLayout is the UTC layout used for CreatedAt fields.
const TimestampLayout = "2006-01-02T15:04:05.000Z"

// IDGenerator derives entity ids and creation timestamps from a clock. Ids
// are the prefix followed by unix milliseconds. Within one prefix the suffix
// strictly increases, so a tie with the previous id takes the next millisecond.
type IDGenerator struct {
	Now func() time.Time

	mu   sync.Mutex
	last map[string]int64
}

// NewIDGenerator returns a generator backed by the wall clock.
func NewIDGenerator() *IDGenerator {
	return &IDGenerator{Now: time.Now}
}

func (g *IDGenerator) now() time.Time {
	if g == nil || g.Now == nil {
		return time.Now().UTC()
	}
	return g.Now().UTC()
}

func (g *IDGenerator) PatientID() string      { return g.next("P") }
func (g *IDGenerator) RecordID() string       { return g.next("R") }
func (g *IDGenerator) PrescriptionID() string { return g.next("PRES") }

// Timestamp returns the current time formatted for CreatedAt.
func (g *IDGenerator) Timestamp() string {
	return g.now().Format(TimestampLayout)
}

func (g *IDGenerator) next(prefix string) string {
	ms := g.now().UnixMilli()
	if g == nil {
		return prefix + strconv.FormatInt(ms, 10)
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.last == nil {
		g.last = make(map[string]int64)
	}
	if prev, ok := g.last[prefix]; ok && ms <= prev {
		ms = prev + 1
	}
	g.last[prefix] = ms
	return prefix + strconv.FormatInt(ms, 10)
}
