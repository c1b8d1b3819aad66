package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"golang.org/x/crypto/bcrypt"

	"github.com/iliyamo/travel-booking/internal/config"
	"github.com/iliyamo/travel-booking/internal/database"
	"github.com/iliyamo/travel-booking/internal/model"
	"github.com/iliyamo/travel-booking/internal/queue"
	"github.com/iliyamo/travel-booking/internal/repository"
)

type ServiceTestSuite struct {
	suite.Suite
	ctx       context.Context
	db        *database.DB
	users     *repository.UserRepo
	resources *repository.ResourceRepo
	bookings  *repository.BookingRepo
	outbox    *repository.OutboxRepo
	creds     *Credentials
	engine    *BookingService
}

func (s *ServiceTestSuite) SetupTest() {
	s.ctx = context.Background()
	db, err := database.OpenSQLite(s.ctx, ":memory:")
	require.NoError(s.T(), err)
	require.NoError(s.T(), database.Migrate(s.ctx, db))
	s.db = db
	s.users = repository.NewUserRepo(db)
	s.resources = repository.NewResourceRepo(db)
	s.bookings = repository.NewBookingRepo(db)
	s.outbox = repository.NewOutboxRepo(db)

	s.creds, err = NewCredentials(s.users, bcrypt.MinCost)
	require.NoError(s.T(), err)
	s.engine = NewBookingService(repository.NewTxManager(db), s.users, s.resources, s.bookings, s.outbox,
		config.Booking{MaxAttempts: 3, RetryBackoff: time.Millisecond})
}

func (s *ServiceTestSuite) TearDownTest() {
	s.db.Close()
}

func (s *ServiceTestSuite) register(name string) uint64 {
	id, err := s.creds.Register(s.ctx, name, name+"@example.com", "secret")
	require.NoError(s.T(), err)
	return id
}

func (s *ServiceTestSuite) resource(kind model.ResourceKind, code string, capacity int) *model.Resource {
	res := &model.Resource{Kind: kind, Code: code, Name: code, CapacityTotal: capacity, PriceCents: 19999}
	_, err := s.resources.Create(s.ctx, res)
	require.NoError(s.T(), err)
	return res
}

func (s *ServiceTestSuite) remaining(id uint64) int {
	res, err := s.resources.GetByID(s.ctx, id)
	require.NoError(s.T(), err)
	return res.CapacityRemaining
}

func (s *ServiceTestSuite) assertConsistent(id uint64) {
	audit, err := s.resources.Audit(s.ctx, id)
	require.NoError(s.T(), err)
	assert.True(s.T(), audit.Consistent, "remaining=%d total=%d confirmed=%d",
		audit.CapacityRemaining, audit.CapacityTotal, audit.ConfirmedBookings)
}

// ----- credentials -----

func (s *ServiceTestSuite) TestRegisterAndVerify() {
	id := s.register("alice")

	got, err := s.creds.Verify(s.ctx, "ALICE@example.com ", "secret")
	require.NoError(s.T(), err)
	assert.Equal(s.T(), id, got)

	_, err = s.creds.Verify(s.ctx, "alice@example.com", "wrong")
	assert.ErrorIs(s.T(), err, ErrAuthFailure)

	_, err = s.creds.Verify(s.ctx, "nobody@example.com", "secret")
	assert.ErrorIs(s.T(), err, ErrAuthFailure)

	u, err := s.creds.Lookup(s.ctx, id)
	require.NoError(s.T(), err)
	assert.Equal(s.T(), model.RoleCustomer, u.Role)

	_, err = s.creds.Lookup(s.ctx, id+100)
	assert.ErrorIs(s.T(), err, ErrNotFound)
}

func (s *ServiceTestSuite) TestRegisterDuplicates() {
	s.register("alice")

	_, err := s.creds.Register(s.ctx, "someone", "alice@example.com", "x")
	assert.ErrorIs(s.T(), err, ErrDuplicateEmail)

	_, err = s.creds.Register(s.ctx, "alice", "alice@example.com", "x")
	assert.ErrorIs(s.T(), err, ErrDuplicateEmail, "email is checked first")

	_, err = s.creds.Register(s.ctx, "alice", "other@example.com", "x")
	assert.ErrorIs(s.T(), err, ErrDuplicateUsername)

	var n int
	require.NoError(s.T(), s.db.QueryRowContext(s.ctx, "SELECT COUNT(*) FROM users").Scan(&n))
	assert.Equal(s.T(), 1, n)
}

func (s *ServiceTestSuite) TestRegisterRejectsBlankFields() {
	_, err := s.creds.Register(s.ctx, " ", "a@b.c", "pw")
	assert.ErrorIs(s.T(), err, ErrInvalidInput)
	_, err = s.creds.Register(s.ctx, "a", "", "pw")
	assert.ErrorIs(s.T(), err, ErrInvalidInput)
	_, err = s.creds.Register(s.ctx, "a", "a@b.c", "")
	assert.ErrorIs(s.T(), err, ErrInvalidInput)
	_, err = s.creds.RegisterWithRole(s.ctx, "a", "a@b.c", "pw", "OWNER")
	assert.ErrorIs(s.T(), err, ErrInvalidInput)
}

// ----- booking engine -----

func (s *ServiceTestSuite) TestReserveAndCancelFlight() {
	uid := s.register("alice")
	res := s.resource(model.KindFlight, "AI101", 150)

	b, err := s.engine.Reserve(s.ctx, uid, res.ID, "")
	require.NoError(s.T(), err)
	assert.Equal(s.T(), model.BookingConfirmed, b.Status)
	assert.Equal(s.T(), "A149", b.Assignment)
	assert.NotEmpty(s.T(), b.Reference)
	assert.Equal(s.T(), 149, s.remaining(res.ID))
	s.assertConsistent(res.ID)

	require.NoError(s.T(), s.engine.Cancel(s.ctx, b.ID, uid))
	assert.Equal(s.T(), 150, s.remaining(res.ID))
	s.assertConsistent(res.ID)

	got, err := s.bookings.GetByID(s.ctx, b.ID)
	require.NoError(s.T(), err)
	assert.Equal(s.T(), model.BookingCancelled, got.Status)

	events, err := s.outbox.ListByAggregate(s.ctx, b.Reference)
	require.NoError(s.T(), err)
	require.Len(s.T(), events, 2)
	assert.Equal(s.T(), queue.EventBookingConfirmed, events[0].EventType)
	assert.Equal(s.T(), queue.EventBookingCancelled, events[1].EventType)
	assert.Contains(s.T(), string(events[0].Payload), `"assignment":"A149"`)
}

func (s *ServiceTestSuite) TestPlaceUsesRoomLabel() {
	uid := s.register("alice")
	res := s.resource(model.KindPlace, "GOA-01", 3)

	b, err := s.engine.Reserve(s.ctx, uid, res.ID, "")
	require.NoError(s.T(), err)
	assert.Equal(s.T(), "R2", b.Assignment)
}

func (s *ServiceTestSuite) TestReserveWithoutCapacity() {
	uid := s.register("alice")
	res := s.resource(model.KindFlight, "FULL", 1)
	_, err := s.engine.Reserve(s.ctx, uid, res.ID, "")
	require.NoError(s.T(), err)

	_, err = s.engine.Reserve(s.ctx, uid, res.ID, "")
	assert.ErrorIs(s.T(), err, ErrNoCapacity)
	assert.Equal(s.T(), 0, s.remaining(res.ID))

	n, err := s.bookings.CountConfirmed(s.ctx, res.ID)
	require.NoError(s.T(), err)
	assert.Equal(s.T(), 1, n, "the rejected request must not leave a booking row")
}

func (s *ServiceTestSuite) TestReserveZeroCapacityResource() {
	uid := s.register("alice")
	res := s.resource(model.KindFlight, "ZERO", 0)

	_, err := s.engine.Reserve(s.ctx, uid, res.ID, "")
	assert.ErrorIs(s.T(), err, ErrNoCapacity)

	list, err := s.engine.ListForUser(s.ctx, uid)
	require.NoError(s.T(), err)
	assert.Empty(s.T(), list)
}

func (s *ServiceTestSuite) TestReserveUnknownResourceOrUser() {
	uid := s.register("alice")

	_, err := s.engine.Reserve(s.ctx, uid, 9999, "")
	assert.ErrorIs(s.T(), err, ErrResourceNotFound)

	res := s.resource(model.KindFlight, "AI101", 5)
	_, err = s.engine.Reserve(s.ctx, 0, res.ID, "")
	assert.ErrorIs(s.T(), err, ErrUnauthenticated)
	_, err = s.engine.Reserve(s.ctx, uid+50, res.ID, "")
	assert.ErrorIs(s.T(), err, ErrUnauthenticated)
	assert.Equal(s.T(), 5, s.remaining(res.ID))
}

func (s *ServiceTestSuite) TestConcurrentReserveOnLastUnit() {
	a := s.register("alice")
	b := s.register("bob")
	res := s.resource(model.KindFlight, "LAST", 1)

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i, uid := range []uint64{a, b} {
		wg.Add(1)
		go func(i int, uid uint64) {
			defer wg.Done()
			_, errs[i] = s.engine.Reserve(s.ctx, uid, res.ID, "")
		}(i, uid)
	}
	wg.Wait()

	var ok, full int
	for _, err := range errs {
		switch {
		case err == nil:
			ok++
		case errors.Is(err, ErrNoCapacity):
			full++
		default:
			s.T().Fatalf("unexpected error: %v", err)
		}
	}
	assert.Equal(s.T(), 1, ok)
	assert.Equal(s.T(), 1, full)
	assert.Equal(s.T(), 0, s.remaining(res.ID))
	s.assertConsistent(res.ID)
}

func (s *ServiceTestSuite) TestManyConcurrentReservationsKeepInvariant() {
	res := s.resource(model.KindFlight, "BUSY", 5)
	users := make([]uint64, 12)
	for i := range users {
		users[i] = s.register("user" + string(rune('a'+i)))
	}

	var wg sync.WaitGroup
	for _, uid := range users {
		wg.Add(1)
		go func(uid uint64) {
			defer wg.Done()
			_, _ = s.engine.Reserve(s.ctx, uid, res.ID, "")
		}(uid)
	}
	wg.Wait()

	assert.Equal(s.T(), 0, s.remaining(res.ID))
	n, err := s.bookings.CountConfirmed(s.ctx, res.ID)
	require.NoError(s.T(), err)
	assert.Equal(s.T(), 5, n)
}

func (s *ServiceTestSuite) TestCancelThenReserveAgain() {
	uid := s.register("alice")
	res := s.resource(model.KindPlace, "ROOM", 1)

	first, err := s.engine.Reserve(s.ctx, uid, res.ID, "")
	require.NoError(s.T(), err)
	require.NoError(s.T(), s.engine.Cancel(s.ctx, first.ID, uid))

	second, err := s.engine.Reserve(s.ctx, uid, res.ID, "")
	require.NoError(s.T(), err)
	assert.NotEqual(s.T(), first.ID, second.ID)
	assert.Equal(s.T(), 0, s.remaining(res.ID))
	s.assertConsistent(res.ID)
}

func (s *ServiceTestSuite) TestIdempotencyKeyReplay() {
	uid := s.register("alice")
	res := s.resource(model.KindFlight, "AI101", 10)

	_, err := s.engine.Reserve(s.ctx, uid, res.ID, "req-1")
	require.NoError(s.T(), err)
	_, err = s.engine.Reserve(s.ctx, uid, res.ID, "req-1")
	assert.ErrorIs(s.T(), err, ErrAlreadyBooked)
	assert.Equal(s.T(), 9, s.remaining(res.ID), "capacity taken once")

	other := s.register("bob")
	_, err = s.engine.Reserve(s.ctx, other, res.ID, "req-1")
	require.NoError(s.T(), err, "keys are scoped per user")

	_, err = s.engine.Reserve(s.ctx, uid, res.ID, "")
	require.NoError(s.T(), err, "without a key a user may book the same resource again")
	s.assertConsistent(res.ID)
}

func (s *ServiceTestSuite) TestCancelRules() {
	owner := s.register("alice")
	stranger := s.register("bob")
	res := s.resource(model.KindFlight, "AI102", 2)

	b, err := s.engine.Reserve(s.ctx, owner, res.ID, "")
	require.NoError(s.T(), err)

	assert.ErrorIs(s.T(), s.engine.Cancel(s.ctx, b.ID, stranger), ErrUnauthorized)
	assert.ErrorIs(s.T(), s.engine.Cancel(s.ctx, b.ID+100, owner), ErrNotFound)
	assert.ErrorIs(s.T(), s.engine.Cancel(s.ctx, b.ID, 0), ErrUnauthenticated)
	assert.Equal(s.T(), 1, s.remaining(res.ID))

	require.NoError(s.T(), s.engine.Cancel(s.ctx, b.ID, owner))
	require.NoError(s.T(), s.engine.Cancel(s.ctx, b.ID, owner), "second cancel is a no-op")
	assert.Equal(s.T(), 2, s.remaining(res.ID), "capacity released once")
	s.assertConsistent(res.ID)
}

func (s *ServiceTestSuite) TestGetAndList() {
	owner := s.register("alice")
	stranger := s.register("bob")
	res := s.resource(model.KindFlight, "AI103", 4)

	b1, err := s.engine.Reserve(s.ctx, owner, res.ID, "")
	require.NoError(s.T(), err)
	b2, err := s.engine.Reserve(s.ctx, owner, res.ID, "")
	require.NoError(s.T(), err)

	d, err := s.engine.Get(s.ctx, b1.ID, owner)
	require.NoError(s.T(), err)
	assert.Equal(s.T(), "AI103", d.ResourceCode)

	_, err = s.engine.Get(s.ctx, b1.ID, stranger)
	assert.ErrorIs(s.T(), err, ErrUnauthorized)
	_, err = s.engine.Get(s.ctx, 4242, owner)
	assert.ErrorIs(s.T(), err, ErrNotFound)

	list, err := s.engine.ListForUser(s.ctx, owner)
	require.NoError(s.T(), err)
	require.Len(s.T(), list, 2)
	assert.ElementsMatch(s.T(), []uint64{b1.ID, b2.ID}, []uint64{list[0].ID, list[1].ID})

	list, err = s.engine.ListForUser(s.ctx, stranger)
	require.NoError(s.T(), err)
	assert.Empty(s.T(), list)
}

func TestServiceTestSuite(t *testing.T) {
	suite.Run(t, new(ServiceTestSuite))
}
