package phase

import (
	"fmt"
	"time"

	"github.com/eigerco/lottery/internal/safemath"
)

// Timestamp is a point in time in whole seconds since the Unix epoch, the
// granularity the hosting platform reports block time in.
type Timestamp uint64

// ToTime converts a Timestamp to a standard time.Time
func (ts Timestamp) ToTime() time.Time {
	return time.Unix(int64(ts), 0).UTC()
}

// Add returns ts+d, rounded toward zero to whole seconds and saturated at
// both ends of the range.
func (ts Timestamp) Add(d time.Duration) Timestamp {
	secs := int64(d / time.Second)
	if secs < 0 {
		v, ok := safemath.Sub64(uint64(ts), uint64(-secs))
		if !ok {
			return 0
		}
		return Timestamp(v)
	}
	return Timestamp(saturatingAdd(uint64(ts), uint64(secs)))
}

func (ts Timestamp) String() string {
	return fmt.Sprintf("%d (%s)", uint64(ts), ts.ToTime().Format(time.RFC3339))
}
