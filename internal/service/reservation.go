package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/iliyamo/planetarium-reservation/internal/cache"
	"github.com/iliyamo/planetarium-reservation/internal/model"
	"github.com/iliyamo/planetarium-reservation/internal/queue"
	"github.com/iliyamo/planetarium-reservation/internal/repository"
)

// TicketRequest is one seat asked for in a reservation.
type TicketRequest struct {
	Row         int    `json:"row"`
	Seat        int    `json:"seat"`
	ShowSession uint64 `json:"show_session"`
}

// SessionReader loads a show session together with its dome and sold count.
type SessionReader interface {
	GetByID(ctx context.Context, id uint64) (*model.ShowSession, error)
}

// ReservationStore persists reservations.  Create must be atomic and must
// report a seat held by another ticket as *repository.SeatConflictError.
type ReservationStore interface {
	Create(ctx context.Context, res *model.Reservation) error
	ListByUser(ctx context.Context, userID uint64) ([]model.Reservation, error)
	DeleteForUser(ctx context.Context, id, userID uint64) error
}

// Invalidator evicts cached views after a committed write.
type Invalidator interface {
	Invalidate(ctx context.Context, kinds ...cache.Kind)
}

// EventPublisher delivers reservation events to downstream consumers.
type EventPublisher interface {
	Publish(ctx context.Context, ev queue.ReservationEvent) error
}

// ReservationService books and cancels tickets.
type ReservationService struct {
	sessions   SessionReader
	store      ReservationStore
	cache      Invalidator
	events     EventPublisher
	log        *zap.Logger
	maxTickets int
	now        func() time.Time
}

// ReservationOption customises a ReservationService.
type ReservationOption func(*ReservationService)

// WithEvents publishes an event after every committed reservation write.
func WithEvents(p EventPublisher) ReservationOption {
	return func(s *ReservationService) { s.events = p }
}

// WithMaxTickets bounds the number of tickets per request.  Zero means no
// limit.
func WithMaxTickets(n int) ReservationOption {
	return func(s *ReservationService) { s.maxTickets = n }
}

// WithLogger sets the service logger.
func WithLogger(l *zap.Logger) ReservationOption {
	return func(s *ReservationService) { s.log = l }
}

func NewReservationService(sessions SessionReader, store ReservationStore, inv Invalidator, opts ...ReservationOption) *ReservationService {
	s := &ReservationService{
		sessions: sessions,
		store:    store,
		cache:    inv,
		log:      zap.NewNop(),
		now:      func() time.Time { return time.Now().UTC() },
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Create validates every requested ticket and stores them as one
// reservation.  Nothing is stored unless every ticket is valid and free.
// Failures tied to a ticket are returned as *ValidationError carrying the
// ticket's index.
func (s *ReservationService) Create(ctx context.Context, userID uint64, reqs []TicketRequest) (*model.Reservation, error) {
	if len(reqs) == 0 {
		return nil, ErrEmptyReservation
	}
	if s.maxTickets > 0 && len(reqs) > s.maxTickets {
		return nil, invalidf("at most %d tickets per reservation", s.maxTickets)
	}

	sessions := make(map[uint64]*model.ShowSession)
	seen := make(map[TicketRequest]bool, len(reqs))
	res := &model.Reservation{UserID: userID, CreatedAt: s.now(), Tickets: make([]model.Ticket, 0, len(reqs))}

	for i, r := range reqs {
		sess, ok := sessions[r.ShowSession]
		if !ok {
			var err error
			sess, err = s.sessions.GetByID(ctx, r.ShowSession)
			if errors.Is(err, repository.ErrNotFound) {
				return nil, &ValidationError{Index: i, Err: &NotFoundError{Entity: "show session", ID: r.ShowSession}}
			}
			if err != nil {
				return nil, fmt.Errorf("load show session %d: %w", r.ShowSession, err)
			}
			sessions[r.ShowSession] = sess
		}
		if err := ValidateSeat(r.Row, r.Seat, sess.Dome); err != nil {
			return nil, &ValidationError{Index: i, Err: err}
		}
		if seen[r] {
			return nil, &ValidationError{Index: i, Err: &SeatTakenError{SessionID: r.ShowSession, Row: r.Row, Seat: r.Seat}}
		}
		seen[r] = true
		res.Tickets = append(res.Tickets, model.Ticket{Row: r.Row, Seat: r.Seat, ShowSessionID: r.ShowSession})
	}

	if err := s.store.Create(ctx, res); err != nil {
		var conflict *repository.SeatConflictError
		var missing *repository.SessionMissingError
		switch {
		case errors.As(err, &conflict):
			return nil, &ValidationError{
				Index: indexOf(reqs, conflict),
				Err:   &SeatTakenError{SessionID: conflict.SessionID, Row: conflict.Row, Seat: conflict.Seat},
			}
		case errors.As(err, &missing):
			// the session was deleted between validation and insert
			return nil, &NotFoundError{Entity: "show session", ID: missing.SessionID}
		}
		return nil, fmt.Errorf("create reservation: %w", err)
	}

	s.afterWrite(ctx, queue.ReservationCreated, *res)
	return res, nil
}

// Cancel deletes the user's reservation and frees its seats.
func (s *ReservationService) Cancel(ctx context.Context, userID, id uint64) error {
	if err := s.store.DeleteForUser(ctx, id, userID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return &NotFoundError{Entity: "reservation", ID: id}
		}
		return fmt.Errorf("cancel reservation %d: %w", id, err)
	}
	s.afterWrite(ctx, queue.ReservationCancelled, model.Reservation{ID: id, UserID: userID})
	return nil
}

// List returns the user's reservations, newest first.
func (s *ReservationService) List(ctx context.Context, userID uint64) ([]model.Reservation, error) {
	list, err := s.store.ListByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list reservations: %w", err)
	}
	return list, nil
}

// Availability returns the number of unsold seats for a session.
func (s *ReservationService) Availability(ctx context.Context, sessionID uint64) (int, error) {
	sess, err := s.sessions.GetByID(ctx, sessionID)
	if errors.Is(err, repository.ErrNotFound) {
		return 0, &NotFoundError{Entity: "show session", ID: sessionID}
	}
	if err != nil {
		return 0, fmt.Errorf("load show session %d: %w", sessionID, err)
	}
	return sess.TicketsAvailable(), nil
}

// afterWrite runs the post-commit hooks.  Ticket writes change session
// availability, so session views are evicted along with reservation views.
func (s *ReservationService) afterWrite(ctx context.Context, typ string, res model.Reservation) {
	if s.cache != nil {
		s.cache.Invalidate(ctx, cache.KindReservation, cache.KindShowSession)
	}
	if s.events == nil {
		return
	}
	ev := queue.NewReservationEvent(typ, res, s.now())
	go func() {
		ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
		defer cancel()
		if err := s.events.Publish(ctx, ev); err != nil {
			s.log.Debug("reservation event dropped", zap.String("type", typ), zap.Uint64("reservation_id", res.ID))
		}
	}()
}

func indexOf(reqs []TicketRequest, c *repository.SeatConflictError) int {
	for i, r := range reqs {
		if r.ShowSession == c.SessionID && r.Row == c.Row && r.Seat == c.Seat {
			return i
		}
	}
	return 0
}
