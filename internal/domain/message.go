package domain

import (
	"context"
	"time"
)

// RawMessage is a message read from a broker topic before decoding.
// Commit acknowledges the message; it is nil when the source does not track
// offsets.
type RawMessage struct {
	Key       []byte
	Value     []byte
	Topic     string
	Partition int
	Offset    int64
	Timestamp time.Time
	Headers   map[string]string
	Commit    func(ctx context.Context) error
}
