package metrics

import (
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	. "github.com/smartystreets/goconvey/convey"
)

func TestManager(t *testing.T) {
	Convey("Given a metrics manager", t, func() {
		m := NewManager(WithNamespace("test"))

		Convey("Operations are counted per outcome", func() {
			m.ObserveOperation("submitResult", OutcomeOK, 5*time.Millisecond)
			m.ObserveOperation("submitResult", OutcomeOK, 7*time.Millisecond)
			m.ObserveOperation("submitResult", OutcomeError, time.Millisecond)

			So(testutil.ToFloat64(m.operations.WithLabelValues("submitResult", OutcomeOK)), ShouldEqual, 2)
			So(testutil.ToFloat64(m.operations.WithLabelValues("submitResult", OutcomeError)), ShouldEqual, 1)
		})

		Convey("Conflict retries and hook failures accumulate", func() {
			m.IncConflictRetry("generateBracket")
			m.IncHookFailure("generateBracket")
			m.IncHookFailure("generateBracket")

			So(testutil.ToFloat64(m.conflictRetries.WithLabelValues("generateBracket")), ShouldEqual, 1)
			So(testutil.ToFloat64(m.hookFailures.WithLabelValues("generateBracket")), ShouldEqual, 2)
		})

		Convey("The handler exposes the registry", func() {
			m.ObserveHTTP("/competitions/{id}", "GET", 200, time.Millisecond)
			rec := httptest.NewRecorder()
			m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

			So(rec.Code, ShouldEqual, 200)
			So(strings.Contains(rec.Body.String(), "test_http_requests_total"), ShouldBeTrue)
		})
	})

	Convey("A nil manager records nothing and does not panic", t, func() {
		var m *Manager
		So(func() {
			m.ObserveOperation("x", OutcomeOK, time.Second)
			m.IncConflictRetry("x")
			m.IncHookFailure("x")
			m.ObserveRatingDelta(-8)
			m.ObserveHTTP("/", "GET", 200, time.Second)
		}, ShouldNotPanic)
	})
}
