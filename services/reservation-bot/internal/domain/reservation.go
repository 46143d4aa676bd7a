package domain

import (
	"slices"
	"sort"
)

const DefaultMaxReservations = 10

// Reservation is one help-session request. The ID is the store key and is not
// part of the serialized record.
type Reservation struct {
	ID           string   `json:"-"`
	Owner        string   `json:"owner"`
	Level        string   `json:"level"`
	Date         string   `json:"date"`
	Time         string   `json:"time"`
	Nickname     string   `json:"puni"`
	Code         string   `json:"code"`
	Participants []string `json:"participants"`
	MessageID    *string  `json:"messageId"` // announcement message, nil until posted
}

// Details are the free-text fields collected by the reservation form.
type Details struct {
	Level    string
	Date     string
	Time     string
	Nickname string
	Code     string
}

func New(id, owner string, d Details) *Reservation {
	return &Reservation{
		ID:           id,
		Owner:        owner,
		Level:        d.Level,
		Date:         d.Date,
		Time:         d.Time,
		Nickname:     d.Nickname,
		Code:         d.Code,
		Participants: []string{},
	}
}

func (r *Reservation) HasParticipant(userID string) bool {
	return slices.Contains(r.Participants, userID)
}

// AddParticipant appends userID unless already present.
func (r *Reservation) AddParticipant(userID string) bool {
	if r.HasParticipant(userID) {
		return false
	}
	r.Participants = append(r.Participants, userID)
	return true
}

// RemoveParticipant drops the first occurrence of userID.
func (r *Reservation) RemoveParticipant(userID string) bool {
	idx := slices.Index(r.Participants, userID)
	if idx == -1 {
		return false
	}
	r.Participants = slices.Delete(r.Participants, idx, idx+1)
	return true
}

func (r *Reservation) Announced() bool {
	return r.MessageID != nil && *r.MessageID != ""
}

// Store is the whole persisted collection, keyed by reservation ID.
type Store map[string]*Reservation

func (s Store) Len() int { return len(s) }

func (s Store) Get(id string) (*Reservation, bool) {
	r, ok := s[id]
	return r, ok
}

func (s Store) Put(r *Reservation) { s[r.ID] = r }

func (s Store) Remove(id string) (*Reservation, bool) {
	r, ok := s[id]
	if ok {
		delete(s, id)
	}
	return r, ok
}

// RemoveOwnedBy deletes every reservation owned by owner and returns them in ID order.
func (s Store) RemoveOwnedBy(owner string) []*Reservation {
	var out []*Reservation
	for id, r := range s {
		if r.Owner == owner {
			out = append(out, r)
			delete(s, id)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Sorted lists reservations by ID, which is creation order for generated IDs.
func (s Store) Sorted() []*Reservation {
	out := make([]*Reservation, 0, len(s))
	for _, r := range s {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// SyncIDs copies each map key into its record after decoding.
func (s Store) SyncIDs() {
	for id, r := range s {
		if r == nil {
			delete(s, id)
			continue
		}
		r.ID = id
	}
}
