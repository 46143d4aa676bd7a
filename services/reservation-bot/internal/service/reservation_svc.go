package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/atu-ZeRo1227/ohagoru-bot/pkg/events"
	"github.com/atu-ZeRo1227/ohagoru-bot/services/reservation-bot/internal/domain"
	"github.com/atu-ZeRo1227/ohagoru-bot/services/reservation-bot/internal/repository"
)

var ErrCapacityReached = errors.New("reservation capacity reached")

const (
	msgCreated         = "✅ お助け予約が完了しました"
	msgJoinedOwner     = "✅ 参加者が来ました\nユーザー：%s"
	msgJoinedUser      = "🟢 参加完了しました"
	msgLeftOwner       = "❌ 参加者がキャンセルしました\nユーザー：%s"
	msgLeftUser        = "🔴 キャンセル完了しました"
	msgCancelledByUser = "❌ 予約をキャンセルしました"
)

type Options struct {
	MaxReservations int
	Logger          *slog.Logger
	Publisher       EventPublisher
	// NewID and Now are replaced in tests.
	NewID func() (string, error)
	Now   func() time.Time
}

type ReservationSvc struct {
	repo     repository.Store
	dispatch Dispatcher
	pub      EventPublisher
	log      *slog.Logger
	tracer   trace.Tracer
	max      int
	newID    func() (string, error)
	now      func() time.Time

	// mu serializes load-mutate-save cycles within this process.
	mu sync.Mutex
}

func NewReservationSvc(repo repository.Store, d Dispatcher, opts Options) *ReservationSvc {
	s := &ReservationSvc{
		repo:     repo,
		dispatch: d,
		pub:      opts.Publisher,
		log:      opts.Logger,
		tracer:   otel.Tracer("reservation-bot/service"),
		max:      opts.MaxReservations,
		newID:    opts.NewID,
		now:      opts.Now,
	}
	if s.max <= 0 {
		s.max = domain.DefaultMaxReservations
	}
	if s.log == nil {
		s.log = slog.Default()
	}
	if s.newID == nil {
		s.newID = newTimeOrderedID
	}
	if s.now == nil {
		s.now = time.Now
	}
	return s
}

// newTimeOrderedID returns a UUIDv7, whose string form sorts by creation time.
func newTimeOrderedID() (string, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return "", err
	}
	return id.String(), nil
}

// mutate runs one locked load-mutate-save cycle. fn reports whether it changed
// anything; unchanged stores are not written back.
func (s *ReservationSvc) mutate(ctx context.Context, fn func(st domain.Store) (bool, error)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	st, err := s.repo.Load(ctx)
	if err != nil {
		return fmt.Errorf("load store: %w", err)
	}
	changed, err := fn(st)
	if err != nil || !changed {
		return err
	}
	if err := s.repo.Save(ctx, st); err != nil {
		return fmt.Errorf("save store: %w", err)
	}
	return nil
}

func (s *ReservationSvc) startSpan(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return s.tracer.Start(ctx, "reservation."+name, trace.WithAttributes(attrs...))
}

func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}

// CanReserve reports whether a new reservation would fit under the cap.
func (s *ReservationSvc) CanReserve(ctx context.Context) (bool, error) {
	st, err := s.repo.Load(ctx)
	if err != nil {
		return false, fmt.Errorf("load store: %w", err)
	}
	return st.Len() < s.max, nil
}

// Create stores a new reservation, announces it and sends the owner a private
// confirmation carrying the cancel control.
func (s *ReservationSvc) Create(ctx context.Context, owner Actor, d domain.Details) (_ *domain.Reservation, err error) {
	ctx, span := s.startSpan(ctx, "create", attribute.String("owner", owner.ID))
	defer func() { endSpan(span, err) }()

	id, err := s.newID()
	if err != nil {
		return nil, fmt.Errorf("generate id: %w", err)
	}
	r := domain.New(id, owner.ID, d)
	err = s.mutate(ctx, func(st domain.Store) (bool, error) {
		if st.Len() >= s.max {
			return false, ErrCapacityReached
		}
		st.Put(r)
		return true, nil
	})
	if err != nil {
		return nil, err
	}
	span.SetAttributes(attribute.String("reservation.id", id))
	s.publish(ctx, events.RKReservationCreated, events.ReservationCreated{
		ReservationID: id, Owner: owner.ID, Level: d.Level, Date: d.Date, Time: d.Time, Nickname: d.Nickname,
	})

	ref, aerr := s.dispatch.Announce(ctx, r)
	if aerr != nil {
		s.log.WarnContext(ctx, "announce failed", "reservation", id, "err", aerr)
	} else {
		var stale bool
		merr := s.mutate(ctx, func(st domain.Store) (bool, error) {
			cur, ok := st.Get(id)
			if !ok {
				stale = true
				return false, nil
			}
			cur.MessageID = &ref
			return true, nil
		})
		switch {
		case merr != nil:
			// the reservation stands; only later withdrawal of this message is lost
			s.log.ErrorContext(ctx, "store announcement reference failed", "reservation", id, "err", merr)
		case stale:
			// cancelled or reset before the reference was stored
			s.bestEffort(ctx, "withdraw orphaned announcement", func(ctx context.Context) error {
				return s.dispatch.Withdraw(ctx, ref)
			})
		default:
			r.MessageID = &ref
		}
	}

	s.bestEffort(ctx, "confirm to owner", func(ctx context.Context) error {
		return s.dispatch.DirectMessage(ctx, owner.ID, DirectMessage{Content: msgCreated, CancelFor: id})
	})
	s.log.InfoContext(ctx, "reservation created", "reservation", id, "owner", owner.ID)
	return r, nil
}

// Join adds user to the participants. Missing reservations and repeated joins
// are no-ops and return false.
func (s *ReservationSvc) Join(ctx context.Context, id string, user Actor) (_ bool, err error) {
	ctx, span := s.startSpan(ctx, "join", attribute.String("reservation.id", id), attribute.String("user", user.ID))
	defer func() { endSpan(span, err) }()

	var r *domain.Reservation
	err = s.mutate(ctx, func(st domain.Store) (bool, error) {
		cur, ok := st.Get(id)
		if !ok || !cur.AddParticipant(user.ID) {
			return false, nil
		}
		r = cur
		return true, nil
	})
	if err != nil || r == nil {
		return false, err
	}
	s.publish(ctx, events.RKReservationJoined, events.ParticipantChanged{
		ReservationID: id, Owner: r.Owner, UserID: user.ID, Participants: len(r.Participants),
	})
	s.bestEffort(ctx, "notify owner of join", func(ctx context.Context) error {
		return s.dispatch.DirectMessage(ctx, r.Owner, DirectMessage{Content: fmt.Sprintf(msgJoinedOwner, user.Tag)})
	})
	s.bestEffort(ctx, "confirm join", func(ctx context.Context) error {
		return s.dispatch.DirectMessage(ctx, user.ID, DirectMessage{Content: msgJoinedUser})
	})
	return true, nil
}

// Leave removes user from the participants. Missing reservations and
// non-members are no-ops and return false.
func (s *ReservationSvc) Leave(ctx context.Context, id string, user Actor) (_ bool, err error) {
	ctx, span := s.startSpan(ctx, "leave", attribute.String("reservation.id", id), attribute.String("user", user.ID))
	defer func() { endSpan(span, err) }()

	var r *domain.Reservation
	err = s.mutate(ctx, func(st domain.Store) (bool, error) {
		cur, ok := st.Get(id)
		if !ok || !cur.RemoveParticipant(user.ID) {
			return false, nil
		}
		r = cur
		return true, nil
	})
	if err != nil || r == nil {
		return false, err
	}
	s.publish(ctx, events.RKReservationLeft, events.ParticipantChanged{
		ReservationID: id, Owner: r.Owner, UserID: user.ID, Participants: len(r.Participants),
	})
	s.bestEffort(ctx, "notify owner of leave", func(ctx context.Context) error {
		return s.dispatch.DirectMessage(ctx, r.Owner, DirectMessage{Content: fmt.Sprintf(msgLeftOwner, user.Tag)})
	})
	s.bestEffort(ctx, "confirm leave", func(ctx context.Context) error {
		return s.dispatch.DirectMessage(ctx, user.ID, DirectMessage{Content: msgLeftUser})
	})
	return true, nil
}

// Cancel deletes a reservation on its owner's request. Anyone else, or a
// reservation that is already gone, gets a no-op.
func (s *ReservationSvc) Cancel(ctx context.Context, id string, user Actor) (_ bool, err error) {
	ctx, span := s.startSpan(ctx, "cancel", attribute.String("reservation.id", id), attribute.String("user", user.ID))
	defer func() { endSpan(span, err) }()

	var removed *domain.Reservation
	err = s.mutate(ctx, func(st domain.Store) (bool, error) {
		cur, ok := st.Get(id)
		if !ok || cur.Owner != user.ID {
			return false, nil
		}
		removed, _ = st.Remove(id)
		return true, nil
	})
	if err != nil || removed == nil {
		return false, err
	}
	s.withdraw(ctx, removed)
	s.publish(ctx, events.RKReservationCancelled, events.ReservationCancelled{ReservationID: id, Owner: removed.Owner})
	s.bestEffort(ctx, "confirm cancel", func(ctx context.Context) error {
		return s.dispatch.DirectMessage(ctx, user.ID, DirectMessage{Content: msgCancelledByUser})
	})
	s.log.InfoContext(ctx, "reservation cancelled", "reservation", id, "owner", user.ID)
	return true, nil
}

// Reset removes every reservation owned by target and returns how many went.
// Permission checks belong to the caller.
func (s *ReservationSvc) Reset(ctx context.Context, target string) (_ int, err error) {
	ctx, span := s.startSpan(ctx, "reset", attribute.String("target", target))
	defer func() { endSpan(span, err) }()

	var removed []*domain.Reservation
	err = s.mutate(ctx, func(st domain.Store) (bool, error) {
		removed = st.RemoveOwnedBy(target)
		// written back even when nothing matched
		return true, nil
	})
	if err != nil {
		return 0, err
	}
	ids := make([]string, 0, len(removed))
	for _, r := range removed {
		s.withdraw(ctx, r)
		ids = append(ids, r.ID)
	}
	span.SetAttributes(attribute.Int("removed", len(removed)))
	s.publish(ctx, events.RKReservationReset, events.ReservationsReset{Target: target, Removed: ids})
	s.log.InfoContext(ctx, "reservations reset", "target", target, "removed", len(removed))
	return len(removed), nil
}

// List returns every reservation in ID order.
func (s *ReservationSvc) List(ctx context.Context) ([]*domain.Reservation, error) {
	st, err := s.repo.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("load store: %w", err)
	}
	return st.Sorted(), nil
}

func (s *ReservationSvc) withdraw(ctx context.Context, r *domain.Reservation) {
	if !r.Announced() {
		return
	}
	s.bestEffort(ctx, "withdraw announcement", func(ctx context.Context) error {
		return s.dispatch.Withdraw(ctx, *r.MessageID)
	})
}

func (s *ReservationSvc) publish(ctx context.Context, key string, data any) {
	if s.pub == nil {
		return
	}
	s.bestEffort(ctx, "publish "+key, func(ctx context.Context) error {
		env, err := events.Wrap(key, data, s.now())
		if err != nil {
			return err
		}
		return s.pub.PublishJSON(ctx, key, env)
	})
}

// bestEffort runs a side effect whose failure must not affect the operation.
func (s *ReservationSvc) bestEffort(ctx context.Context, what string, fn func(context.Context) error) {
	if err := fn(ctx); err != nil {
		s.log.WarnContext(ctx, "best-effort call failed", "what", what, "err", err)
		trace.SpanFromContext(ctx).AddEvent("best_effort_failed", trace.WithAttributes(
			attribute.String("what", what), attribute.String("error", err.Error()),
		))
	}
}
