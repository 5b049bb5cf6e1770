// Package snowflake provides a time-ordered unique ID generator.
package snowflake

import (
	"math/rand"
	"strconv"
	"sync"
	"time"
)

// An ID is a 64 bit unique identifier. IDs generated from increasing
// timestamps sort in creation order.
type ID uint64

var (
	mu   sync.Mutex
	last ID
)

// Now returns an ID derived from the current time. IDs returned by Now are
// strictly increasing, so rows generated in the same millisecond still sort
// in creation order.
func Now() ID {
	mu.Lock()
	defer mu.Unlock()
	id := TimeToID(time.Now())
	if id <= last {
		id = last + 1
	}
	last = id
	return id
}

// TimeToID converts a time.Time to an ID.
func TimeToID(ts time.Time) ID {
	// 48 bits for time in milliseconds.
	// 16 bits for random.
	return ID(ts.UnixNano()/int64(time.Millisecond))<<16 | ID(rand.Intn(1<<16))
}

// ToTime converts an ID to the time it was generated from.
func (id ID) ToTime() time.Time {
	return time.Unix(0, int64(id>>16)*1e6)
}

func (id ID) String() string {
	return strconv.FormatUint(uint64(id), 10)
}

// Parse converts the decimal representation of an ID back to an ID.
func Parse(s string) (ID, error) {
	id, err := strconv.ParseUint(s, 10, 64)
	return ID(id), err
}
