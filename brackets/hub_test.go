package brackets_test

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/Dosada05/competition-engine/brackets"
	"github.com/Dosada05/competition-engine/models"
	. "github.com/smartystreets/goconvey/convey"
)

func TestHub(t *testing.T) {
	Convey("Given a running hub with one client in a room", t, func() {
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		hub := brackets.NewHub(nil)
		go hub.Run(ctx)

		client := brackets.NewClient(hub, nil, "c1")
		hub.Register <- client
		So(eventually(func() bool { return hub.RoomSize("c1") == 1 }), ShouldBeTrue)

		Convey("Events for the room reach the client", func() {
			err := hub.Notify(ctx, models.Event{Type: models.EventMatchCompleted, CompetitionID: "c1", MatchID: "R1M1"})
			So(err, ShouldBeNil)

			var got models.Event
			So(json.Unmarshal(<-client.Send, &got), ShouldBeNil)
			So(got.Type, ShouldEqual, models.EventMatchCompleted)
			So(got.MatchID, ShouldEqual, "R1M1")
		})

		Convey("Events for other rooms do not", func() {
			So(hub.Notify(ctx, models.Event{Type: models.EventMatchCompleted, CompetitionID: "c2"}), ShouldBeNil)
			So(len(client.Send), ShouldEqual, 0)
		})

		Convey("Unregistering closes the send channel and empties the room", func() {
			hub.Unregister <- client
			So(eventually(func() bool { return hub.RoomSize("c1") == 0 }), ShouldBeTrue)
			_, open := <-client.Send
			So(open, ShouldBeFalse)
		})

		Convey("After shutdown clients leave and join without blocking", func() {
			cancel()
			<-hub.Done()
			_, open := <-client.Send
			So(open, ShouldBeFalse)

			left := make(chan struct{})
			go func() {
				hub.Leave(client)
				close(left)
			}()
			So(closedWithin(left, time.Second), ShouldBeTrue)
			So(hub.Join(brackets.NewClient(hub, nil, "c1")), ShouldBeFalse)
		})
	})
}

func eventually(cond func() bool) bool {
	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return true
		}
		time.Sleep(5 * time.Millisecond)
	}
	return false
}

func closedWithin(ch <-chan struct{}, d time.Duration) bool {
	select {
	case <-ch:
		return true
	case <-time.After(d):
		return false
	}
}
