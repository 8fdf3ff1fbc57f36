// Package frame carries raw records from a stream source through scoring to
// the sinks, together with the position needed to acknowledge them.
package frame

import "time"

// Offset locates a record within its topic partition.
type Offset struct {
	Topic     string
	Partition int32
	Offset    int64
}

// Frame is one raw record. Value holds a JSON passenger object.
type Frame struct {
	Key        []byte
	Value      []byte
	Headers    map[string][]byte
	Timestamp  time.Time
	Checkpoint Offset
}
