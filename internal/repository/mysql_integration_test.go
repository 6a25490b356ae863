package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/planetarium-reservation/internal/database"
	"github.com/iliyamo/planetarium-reservation/internal/model"
)

// openTestDB connects to the database named by TEST_MYSQL_DSN and applies
// the schema.  The test is skipped when the variable is unset.
func openTestDB(t *testing.T) *sql.DB {
	t.Helper()
	dsn := os.Getenv("TEST_MYSQL_DSN")
	if dsn == "" {
		t.Skip("TEST_MYSQL_DSN not set")
	}
	cfg, err := mysql.ParseDSN(dsn)
	require.NoError(t, err)
	cfg.ParseTime = true
	cfg.Loc = time.UTC
	cfg.ClientFoundRows = true

	db, err := sql.Open("mysql", cfg.FormatDSN())
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	require.NoError(t, database.Migrate(ctx, db))
	return db
}

func seedSession(t *testing.T, db *sql.DB, rows, seats int) *model.ShowSession {
	t.Helper()
	ctx := context.Background()
	suffix := time.Now().UnixNano()

	dome := &model.PlanetariumDome{Name: fmt.Sprintf("dome-%d", suffix), Rows: rows, SeatsInRow: seats}
	require.NoError(t, NewDomeRepo(db).Create(ctx, dome))
	show := &model.AstronomyShow{Title: fmt.Sprintf("show-%d", suffix), Description: "integration"}
	require.NoError(t, NewAstronomyShowRepo(db).Create(ctx, show, nil))

	sess := &model.ShowSession{AstronomyShowID: show.ID, DomeID: dome.ID, ShowTime: time.Now().UTC().Truncate(time.Second)}
	sessions := NewShowSessionRepo(db)
	require.NoError(t, sessions.Create(ctx, sess))
	t.Cleanup(func() { _ = NewDomeRepo(db).Delete(context.Background(), dome.ID) })

	got, err := sessions.GetByID(ctx, sess.ID)
	require.NoError(t, err)
	return got
}

func TestMySQLConcurrentReservationsOneSeat(t *testing.T) {
	db := openTestDB(t)
	sess := seedSession(t, db, 10, 10)
	repo := NewReservationRepo(db)

	const n = 20
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		successes int
		conflicts int
	)
	start := make(chan struct{})
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(user uint64) {
			defer wg.Done()
			<-start
			err := repo.Create(context.Background(), &model.Reservation{
				UserID:  user,
				Tickets: []model.Ticket{{Row: 5, Seat: 5, ShowSessionID: sess.ID}},
			})
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				successes++
			case errors.Is(err, ErrSeatTaken):
				conflicts++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}(uint64(i + 1))
	}
	close(start)
	wg.Wait()

	assert.Equal(t, 1, successes)
	assert.Equal(t, n-1, conflicts)

	got, err := NewShowSessionRepo(db).GetByID(context.Background(), sess.ID)
	require.NoError(t, err)
	assert.Equal(t, 99, got.TicketsAvailable())
}

func TestMySQLReservationIsAllOrNothing(t *testing.T) {
	db := openTestDB(t)
	sess := seedSession(t, db, 3, 3)
	repo := NewReservationRepo(db)
	ctx := context.Background()

	first := &model.Reservation{UserID: 1, Tickets: []model.Ticket{{Row: 2, Seat: 2, ShowSessionID: sess.ID}}}
	require.NoError(t, repo.Create(ctx, first))

	err := repo.Create(ctx, &model.Reservation{UserID: 2, Tickets: []model.Ticket{
		{Row: 1, Seat: 1, ShowSessionID: sess.ID},
		{Row: 2, Seat: 2, ShowSessionID: sess.ID},
	}})
	var conflict *SeatConflictError
	require.ErrorAs(t, err, &conflict)
	assert.Equal(t, 2, conflict.Row)

	taken, err := NewShowSessionRepo(db).TakenPlaces(ctx, sess.ID)
	require.NoError(t, err)
	assert.Equal(t, []model.Seat{{Row: 2, Seat: 2}}, taken)

	// cancelling frees the seat
	require.NoError(t, repo.DeleteForUser(ctx, first.ID, 1))
	got, err := NewShowSessionRepo(db).GetByID(ctx, sess.ID)
	require.NoError(t, err)
	assert.Equal(t, 9, got.TicketsAvailable())
}

func TestMySQLOverlappingReservationsInOppositeOrder(t *testing.T) {
	db := openTestDB(t)
	sess := seedSession(t, db, 10, 10)
	repo := NewReservationRepo(db)

	for round := 0; round < 10; round++ {
		row := round + 1
		orders := [][]model.Ticket{
			{{Row: row, Seat: 5, ShowSessionID: sess.ID}, {Row: row, Seat: 6, ShowSessionID: sess.ID}},
			{{Row: row, Seat: 6, ShowSessionID: sess.ID}, {Row: row, Seat: 5, ShowSessionID: sess.ID}},
		}
		errs := make([]error, len(orders))
		var wg sync.WaitGroup
		start := make(chan struct{})
		for i, tickets := range orders {
			wg.Add(1)
			go func(i int, tickets []model.Ticket) {
				defer wg.Done()
				<-start
				errs[i] = repo.Create(context.Background(), &model.Reservation{UserID: uint64(i + 1), Tickets: tickets})
			}(i, tickets)
		}
		close(start)
		wg.Wait()

		successes := 0
		for _, err := range errs {
			if err == nil {
				successes++
				continue
			}
			assert.ErrorIs(t, err, ErrSeatTaken, "row %d", row)
		}
		assert.Equal(t, 1, successes, "row %d", row)
	}

	got, err := NewShowSessionRepo(db).GetByID(context.Background(), sess.ID)
	require.NoError(t, err)
	assert.Equal(t, 80, got.TicketsAvailable())
}
