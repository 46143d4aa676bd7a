package worker

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/atu-ZeRo1227/ohagoru-bot/pkg/events"
)

type recordingNotifier struct {
	subjects []string
	messages []string
	err      error
}

func (n *recordingNotifier) Notify(_ context.Context, subject, message string) error {
	if n.err != nil {
		return n.err
	}
	n.subjects = append(n.subjects, subject)
	n.messages = append(n.messages, message)
	return nil
}

func envelope(t *testing.T, key string, data any) []byte {
	t.Helper()
	env, err := events.Wrap(key, data, time.Unix(1735700000, 0))
	if err != nil {
		t.Fatal(err)
	}
	b, err := json.Marshal(env)
	if err != nil {
		t.Fatal(err)
	}
	return b
}

func newTestRelay(n *recordingNotifier) *Relay {
	return NewRelay(n, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestRender(t *testing.T) {
	cases := []struct {
		key  string
		data any
		want []string
	}{
		{events.RKReservationCreated, events.ReservationCreated{ReservationID: "R1", Owner: "U1", Level: "10", Date: "1/1", Time: "12:00", Nickname: "X"}, []string{"<@U1>", "R1", "Lv10", "puni X"}},
		{events.RKReservationJoined, events.ParticipantChanged{ReservationID: "R1", Owner: "U1", UserID: "U2", Participants: 1}, []string{"<@U2> joined R1", "1 participant"}},
		{events.RKReservationLeft, events.ParticipantChanged{ReservationID: "R1", Owner: "U1", UserID: "U2"}, []string{"<@U2> left R1"}},
		{events.RKReservationCancelled, events.ReservationCancelled{ReservationID: "R1", Owner: "U1"}, []string{"<@U1> cancelled R1"}},
		{events.RKReservationReset, events.ReservationsReset{Target: "U1", Removed: []string{"R1", "R3"}}, []string{"removed 2", "R1, R3"}},
		{events.RKReservationReset, events.ReservationsReset{Target: "U9"}, []string{"removed 0", "none"}},
	}
	for _, tc := range cases {
		id, subject, msg, err := render(tc.key, envelope(t, tc.key, tc.data))
		if err != nil {
			t.Fatalf("%s: %v", tc.key, err)
		}
		if id == "" || subject == "" {
			t.Errorf("%s: id=%q subject=%q", tc.key, id, subject)
		}
		for _, w := range tc.want {
			if !strings.Contains(msg, w) {
				t.Errorf("%s: message %q missing %q", tc.key, msg, w)
			}
		}
	}
}

func TestHandleOutcomes(t *testing.T) {
	ctx := context.Background()
	good := envelope(t, events.RKReservationCancelled, events.ReservationCancelled{ReservationID: "R1", Owner: "U1"})

	t.Run("delivered", func(t *testing.T) {
		n := &recordingNotifier{}
		if got := newTestRelay(n).handle(ctx, events.RKReservationCancelled, good); got != ack {
			t.Fatalf("outcome = %v, want ack", got)
		}
		if len(n.messages) != 1 {
			t.Fatalf("notified %d times", len(n.messages))
		}
	})

	t.Run("undecodable goes to dlq", func(t *testing.T) {
		n := &recordingNotifier{}
		if got := newTestRelay(n).handle(ctx, events.RKReservationCancelled, []byte("{not json")); got != reject {
			t.Fatalf("outcome = %v, want reject", got)
		}
		if len(n.messages) != 0 {
			t.Fatal("should not notify")
		}
	})

	t.Run("unknown key is acked", func(t *testing.T) {
		n := &recordingNotifier{}
		if got := newTestRelay(n).handle(ctx, "booking.created", good); got != ack {
			t.Fatalf("outcome = %v, want ack", got)
		}
		if len(n.messages) != 0 {
			t.Fatal("should not notify")
		}
	})

	t.Run("notifier failure requeues", func(t *testing.T) {
		n := &recordingNotifier{err: errors.New("down")}
		if got := newTestRelay(n).handle(ctx, events.RKReservationCancelled, good); got != requeue {
			t.Fatalf("outcome = %v, want requeue", got)
		}
	})

	t.Run("duplicates notify once", func(t *testing.T) {
		n := &recordingNotifier{}
		r := newTestRelay(n)
		r.handle(ctx, events.RKReservationCancelled, good)
		if got := r.handle(ctx, events.RKReservationCancelled, good); got != ack {
			t.Fatalf("outcome = %v, want ack", got)
		}
		if len(n.messages) != 1 {
			t.Fatalf("notified %d times, want 1", len(n.messages))
		}
	})
}

func TestDedupEvictsOldest(t *testing.T) {
	d := newDedup(2)
	d.add("a")
	d.add("b")
	d.add("c")
	if d.has("a") {
		t.Fatal("a should be evicted")
	}
	if !d.has("b") || !d.has("c") {
		t.Fatal("b and c should be remembered")
	}
	if d.has("") {
		t.Fatal("empty id is never a duplicate")
	}
}
