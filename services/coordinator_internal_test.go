package services

import (
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"
)

func TestJitter(t *testing.T) {
	Convey("Retry waits are spread over the upper half of the backoff", t, func() {
		seen := make(map[time.Duration]bool)
		for range 200 {
			d := jitter(8 * time.Millisecond)
			So(d, ShouldBeGreaterThanOrEqualTo, 4*time.Millisecond)
			So(d, ShouldBeLessThan, 8*time.Millisecond)
			seen[d] = true
		}
		So(len(seen), ShouldBeGreaterThan, 1)
	})

	Convey("Waits too short to split are kept as they are", t, func() {
		So(jitter(0), ShouldEqual, time.Duration(0))
		So(jitter(1), ShouldEqual, time.Duration(1))
	})
}
