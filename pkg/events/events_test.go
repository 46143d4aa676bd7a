package events

import (
	"encoding/json"
	"testing"
	"time"
)

func TestWrapDecode(t *testing.T) {
	now := time.Unix(1735700000, 0)
	env, err := Wrap(RKReservationJoined, ParticipantChanged{
		ReservationID: "R1", Owner: "U1", UserID: "U2", Participants: 1,
	}, now)
	if err != nil {
		t.Fatalf("Wrap failed: %v", err)
	}
	if env.ID == "" || env.Event != RKReservationJoined || env.OccurredAt != now.Unix() {
		t.Fatalf("unexpected envelope: %+v", env)
	}

	body, err := json.Marshal(env)
	if err != nil {
		t.Fatal(err)
	}
	got, data, err := Decode[ParticipantChanged](body)
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if got.ID != env.ID {
		t.Errorf("envelope id = %q, want %q", got.ID, env.ID)
	}
	if data.UserID != "U2" || data.Participants != 1 {
		t.Errorf("unexpected payload: %+v", data)
	}
}

func TestDecodeRejectsGarbage(t *testing.T) {
	if _, _, err := Decode[ReservationCancelled]([]byte("not json")); err == nil {
		t.Fatal("expected error for garbage body")
	}
}
