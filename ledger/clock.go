package ledger

import (
	"encoding/binary"
	"sync"
	"time"
)

const clockStorePropertyKey = "LEDGER:CLOCK:MONOTONIC"

type Clock struct {
	sync.Mutex
	store Store
	now   time.Time
}

func NewClock(store Store) (*Clock, error) {
	bs, err := store.ReadProperty([]byte(clockStorePropertyKey))
	if err != nil {
		return nil, err
	}
	ts := time.Now()
	if len(bs) == 8 {
		if last := time.Unix(0, int64(binary.BigEndian.Uint64(bs))); last.After(ts) {
			ts = last
		}
	}
	clock := new(Clock)
	clock.store = store
	clock.now = ts
	return clock, nil
}

// Now never returns a time before or equal to a previous result, across
// restarts of the same store.
func (c *Clock) Now() time.Time {
	c.Lock()
	defer c.Unlock()

	now := time.Now()
	if !now.After(c.now) {
		now = c.now.Add(time.Nanosecond)
	}
	c.now = now

	val := binary.BigEndian.AppendUint64(nil, uint64(c.now.UnixNano()))
	for {
		err := c.store.WriteProperty([]byte(clockStorePropertyKey), val)
		if err == nil {
			break
		}
		time.Sleep(100 * time.Millisecond)
	}
	return c.now
}
