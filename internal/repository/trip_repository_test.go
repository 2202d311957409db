package repository

import (
    "context"
    "testing"
    "time"

    "github.com/DATA-DOG/go-sqlmock"
    "github.com/stretchr/testify/assert"
    "github.com/stretchr/testify/require"
)

func newTripRepoMock(t *testing.T) (*TripRepo, sqlmock.Sqlmock) {
    t.Helper()
    db, mock, err := sqlmock.New()
    require.NoError(t, err)
    t.Cleanup(func() { db.Close() })
    return NewTripRepo(db), mock
}

func TestTripRepoLoad(t *testing.T) {
    repo, mock := newTripRepoMock(t)
    now := time.Date(2026, 9, 1, 10, 0, 0, 0, time.UTC)
    departure := now.Add(48 * time.Hour)

    mock.ExpectQuery("SELECT id, origin, destination, departure_at").
        WithArgs(uint64(1)).
        WillReturnRows(sqlmock.NewRows([]string{
            "id", "origin", "destination", "departure_at", "total_seats",
            "available_seats", "seat_price_cents", "status", "created_at", "updated_at",
        }).AddRow(1, "Ha Noi", "Hai Phong", departure, 40, 38, 15000, "SCHEDULED", now, now))
    mock.ExpectQuery("SELECT trip_id, seat_number, booking_code").
        WithArgs(uint64(1)).
        WillReturnRows(sqlmock.NewRows([]string{"trip_id", "seat_number", "booking_code", "created_at"}).
            AddRow(1, "A1", "bk-1", now).
            AddRow(1, "A2", "bk-2", now))

    trip, err := repo.Load(context.Background(), 1)
    require.NoError(t, err)
    assert.Equal(t, "Ha Noi", trip.Origin)
    assert.Equal(t, 38, trip.AvailableSeats)
    require.Len(t, trip.BookedSeats, 2)
    assert.True(t, trip.HasSeat("A1"))
    assert.False(t, trip.HasSeat("B1"))
    assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTripRepoLoad_NotFound(t *testing.T) {
    repo, mock := newTripRepoMock(t)

    mock.ExpectQuery("SELECT id, origin, destination, departure_at").
        WithArgs(uint64(99)).
        WillReturnRows(sqlmock.NewRows([]string{
            "id", "origin", "destination", "departure_at", "total_seats",
            "available_seats", "seat_price_cents", "status", "created_at", "updated_at",
        }))

    _, err := repo.Load(context.Background(), 99)
    assert.ErrorIs(t, err, ErrTripNotFound)
    assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCommitSeats_InsertsFreeSeatsAndRecomputes(t *testing.T) {
    repo, mock := newTripRepoMock(t)

    mock.ExpectBegin()
    mock.ExpectQuery("SELECT booking_code FROM trip_seats").
        WithArgs(uint64(1), "A1").
        WillReturnRows(sqlmock.NewRows([]string{"booking_code"}))
    mock.ExpectExec("INSERT INTO trip_seats").
        WithArgs(uint64(1), "A1", "bk-1").
        WillReturnResult(sqlmock.NewResult(1, 1))
    mock.ExpectQuery("SELECT booking_code FROM trip_seats").
        WithArgs(uint64(1), "A2").
        WillReturnRows(sqlmock.NewRows([]string{"booking_code"}))
    mock.ExpectExec("INSERT INTO trip_seats").
        WithArgs(uint64(1), "A2", "bk-1").
        WillReturnResult(sqlmock.NewResult(2, 1))
    mock.ExpectExec("UPDATE trips").
        WithArgs(uint64(1), uint64(1)).
        WillReturnResult(sqlmock.NewResult(0, 1))
    mock.ExpectCommit()

    err := repo.CommitSeats(context.Background(), 1, []string{"A1", "A2"}, "bk-1")
    require.NoError(t, err)
    assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCommitSeats_RetryForSameBookingIsNoOp(t *testing.T) {
    repo, mock := newTripRepoMock(t)

    mock.ExpectBegin()
    mock.ExpectQuery("SELECT booking_code FROM trip_seats").
        WithArgs(uint64(1), "A1").
        WillReturnRows(sqlmock.NewRows([]string{"booking_code"}).AddRow("bk-1"))
    // No INSERT for the already-owned seat; recompute still runs.
    mock.ExpectExec("UPDATE trips").
        WithArgs(uint64(1), uint64(1)).
        WillReturnResult(sqlmock.NewResult(0, 0))
    mock.ExpectCommit()

    err := repo.CommitSeats(context.Background(), 1, []string{"A1"}, "bk-1")
    require.NoError(t, err)
    assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCommitSeats_ConflictRollsBackEverything(t *testing.T) {
    repo, mock := newTripRepoMock(t)

    mock.ExpectBegin()
    mock.ExpectQuery("SELECT booking_code FROM trip_seats").
        WithArgs(uint64(1), "A1").
        WillReturnRows(sqlmock.NewRows([]string{"booking_code"}))
    mock.ExpectExec("INSERT INTO trip_seats").
        WithArgs(uint64(1), "A1", "bk-2").
        WillReturnResult(sqlmock.NewResult(1, 1))
    mock.ExpectQuery("SELECT booking_code FROM trip_seats").
        WithArgs(uint64(1), "A2").
        WillReturnRows(sqlmock.NewRows([]string{"booking_code"}).AddRow("bk-1"))
    mock.ExpectRollback()

    err := repo.CommitSeats(context.Background(), 1, []string{"A1", "A2"}, "bk-2")
    assert.ErrorIs(t, err, ErrConflict)
    assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReleaseSeats_DeletesAndRecomputes(t *testing.T) {
    repo, mock := newTripRepoMock(t)

    mock.ExpectBegin()
    mock.ExpectExec("DELETE FROM trip_seats").
        WithArgs(uint64(1), "A1", "A2").
        WillReturnResult(sqlmock.NewResult(0, 2))
    mock.ExpectExec("UPDATE trips").
        WithArgs(uint64(1), uint64(1)).
        WillReturnResult(sqlmock.NewResult(0, 1))
    mock.ExpectCommit()

    err := repo.ReleaseSeats(context.Background(), 1, []string{"A1", "A2"})
    require.NoError(t, err)
    assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReleaseSeats_MissingSeatsStillSucceed(t *testing.T) {
    repo, mock := newTripRepoMock(t)

    mock.ExpectBegin()
    mock.ExpectExec("DELETE FROM trip_seats").
        WithArgs(uint64(1), "Z9").
        WillReturnResult(sqlmock.NewResult(0, 0))
    mock.ExpectExec("UPDATE trips").
        WithArgs(uint64(1), uint64(1)).
        WillReturnResult(sqlmock.NewResult(0, 0))
    mock.ExpectCommit()

    err := repo.ReleaseSeats(context.Background(), 1, []string{"Z9"})
    require.NoError(t, err)
    assert.NoError(t, mock.ExpectationsWereMet())
}

func TestIsSeatBooked(t *testing.T) {
    repo, mock := newTripRepoMock(t)

    mock.ExpectQuery("SELECT EXISTS").
        WithArgs(uint64(1), "A1").
        WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))

    booked, err := repo.IsSeatBooked(context.Background(), 1, "A1")
    require.NoError(t, err)
    assert.True(t, booked)
    assert.NoError(t, mock.ExpectationsWereMet())
}
