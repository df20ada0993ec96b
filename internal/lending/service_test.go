package lending

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/oklog/ulid/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"library-backend/internal/platform/apierr"
	"library-backend/internal/testutil"
)

type stepClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *stepClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(time.Second)
	return c.t
}

func newTestService(t *testing.T) (*Service, *sqlx.DB) {
	t.Helper()
	conn := testutil.OpenDB(t)
	svc := NewService(NewStore(conn))
	svc.clock = &stepClock{t: time.Date(2024, 4, 1, 9, 0, 0, 0, time.UTC)}
	return svc, conn
}

func countRecords(t *testing.T, conn *sqlx.DB) int {
	t.Helper()
	var n int
	require.NoError(t, conn.Get(&n, `SELECT COUNT(*) FROM borrowed_books`))
	return n
}

func TestBorrowReturn_Scenario(t *testing.T) {
	svc, conn := newTestService(t)
	ctx := context.Background()

	testutil.SeedBook(t, conn, 1, 2)
	for _, id := range []int64{7, 8, 9} {
		testutil.CreateUser(t, conn, id, "student")
	}

	r7, err := svc.BorrowBook(ctx, 1, 7)
	require.NoError(t, err)
	assert.False(t, r7.Returned)
	assert.Nil(t, r7.ReturnDate)
	_, err = ulid.ParseStrict(r7.BorrowULID)
	require.NoError(t, err)

	_, err = svc.BorrowBook(ctx, 1, 8)
	require.NoError(t, err)
	assert.Equal(t, 0, testutil.BookQuantity(t, conn, 1))

	_, err = svc.BorrowBook(ctx, 1, 9)
	var api *apierr.APIError
	require.ErrorAs(t, err, &api)
	assert.Equal(t, apierr.CodeUnavailable, api.Code)
	assert.Equal(t, "No copies available", api.Message)

	ret, err := svc.ReturnBook(ctx, 1, 7)
	require.NoError(t, err)
	assert.True(t, ret.Returned)
	require.NotNil(t, ret.ReturnDate)
	assert.Equal(t, r7.BorrowULID, ret.BorrowULID)

	assert.Equal(t, 1, testutil.BookQuantity(t, conn, 1))
	assert.Equal(t, 0, testutil.BorrowCount(t, conn, 7))
	assert.Equal(t, 1, testutil.BorrowCount(t, conn, 8))
	assert.Equal(t, 0, testutil.BorrowCount(t, conn, 9))

	sum, err := svc.GetBorrowSummary(ctx)
	require.NoError(t, err)
	require.Len(t, sum, 2)
	assert.Equal(t, SummaryResponse{UserID: 7, Name: "user7", Email: "user7@example.com", Role: "student", BorrowCount: 0}, sum[0])
	assert.Equal(t, int64(8), sum[1].UserID)
	assert.Equal(t, 1, sum[1].BorrowCount)
}

func TestBorrow_UnavailableLeavesStateUnchanged(t *testing.T) {
	svc, conn := newTestService(t)
	ctx := context.Background()
	testutil.SeedBook(t, conn, 1, 0)
	testutil.CreateUser(t, conn, 7, "student")

	_, err := svc.BorrowBook(ctx, 1, 7)
	assert.True(t, apierr.Is(err, apierr.CodeUnavailable))

	assert.Equal(t, 0, testutil.BookQuantity(t, conn, 1))
	assert.Equal(t, 0, countRecords(t, conn))
	assert.Equal(t, 0, testutil.BorrowCount(t, conn, 7))
}

func TestBorrow_NotFound(t *testing.T) {
	svc, conn := newTestService(t)
	ctx := context.Background()
	testutil.SeedBook(t, conn, 1, 3)
	testutil.CreateUser(t, conn, 7, "student")

	_, err := svc.BorrowBook(ctx, 2, 7)
	var api *apierr.APIError
	require.ErrorAs(t, err, &api)
	assert.Equal(t, apierr.CodeNotFound, api.Code)
	assert.Equal(t, "Book not found", api.Message)

	// 在庫は一度減らしてからユーザー確認で失敗するのでロールバックされていること
	_, err = svc.BorrowBook(ctx, 1, 99)
	require.ErrorAs(t, err, &api)
	assert.Equal(t, apierr.CodeNotFound, api.Code)
	assert.Equal(t, "User not found", api.Message)
	assert.Equal(t, 3, testutil.BookQuantity(t, conn, 1))
	assert.Equal(t, 0, countRecords(t, conn))

	_, err = svc.BorrowBook(ctx, 0, 7)
	assert.True(t, apierr.Is(err, apierr.CodeInvalidArgument))
	_, err = svc.BorrowBook(ctx, 1, -1)
	assert.True(t, apierr.Is(err, apierr.CodeInvalidArgument))
}

func TestReturn_NoActiveBorrowLeavesStateUnchanged(t *testing.T) {
	svc, conn := newTestService(t)
	ctx := context.Background()
	testutil.SeedBook(t, conn, 1, 1)
	testutil.CreateUser(t, conn, 7, "student")
	testutil.CreateUser(t, conn, 8, "student")

	_, err := svc.BorrowBook(ctx, 1, 8)
	require.NoError(t, err)

	_, err = svc.ReturnBook(ctx, 1, 7)
	var api *apierr.APIError
	require.ErrorAs(t, err, &api)
	assert.Equal(t, apierr.CodeNoActiveBorrow, api.Code)
	assert.Equal(t, "No active borrow record found", api.Message)

	assert.Equal(t, 0, testutil.BookQuantity(t, conn, 1))
	assert.Equal(t, 1, testutil.BorrowCount(t, conn, 8))
	assert.Equal(t, 1, testutil.ActiveBorrows(t, conn, 8))

	_, err = svc.ReturnBook(ctx, 2, 7)
	assert.True(t, apierr.Is(err, apierr.CodeNotFound))
}

func TestReturn_Twice(t *testing.T) {
	svc, conn := newTestService(t)
	ctx := context.Background()
	testutil.SeedBook(t, conn, 1, 1)
	testutil.CreateUser(t, conn, 7, "student")

	_, err := svc.BorrowBook(ctx, 1, 7)
	require.NoError(t, err)
	_, err = svc.ReturnBook(ctx, 1, 7)
	require.NoError(t, err)

	_, err = svc.ReturnBook(ctx, 1, 7)
	assert.True(t, apierr.Is(err, apierr.CodeNoActiveBorrow))
	assert.Equal(t, 1, testutil.BookQuantity(t, conn, 1))
	assert.Equal(t, 0, testutil.BorrowCount(t, conn, 7))
}

func TestBorrowThenReturn_RestoresState(t *testing.T) {
	svc, conn := newTestService(t)
	ctx := context.Background()
	testutil.SeedBook(t, conn, 1, 4)
	testutil.CreateUser(t, conn, 7, "student")

	_, err := svc.BorrowBook(ctx, 1, 7)
	require.NoError(t, err)
	_, err = svc.ReturnBook(ctx, 1, 7)
	require.NoError(t, err)

	assert.Equal(t, 4, testutil.BookQuantity(t, conn, 1))
	assert.Equal(t, 0, testutil.BorrowCount(t, conn, 7))
	assert.Equal(t, 0, testutil.ActiveBorrows(t, conn, 7))
}

func TestSameBookTwice_ReturnClosesOldest(t *testing.T) {
	svc, conn := newTestService(t)
	ctx := context.Background()
	testutil.SeedBook(t, conn, 1, 3)
	testutil.CreateUser(t, conn, 7, "student")

	first, err := svc.BorrowBook(ctx, 1, 7)
	require.NoError(t, err)
	second, err := svc.BorrowBook(ctx, 1, 7)
	require.NoError(t, err)
	assert.Equal(t, 2, testutil.BorrowCount(t, conn, 7))

	ret, err := svc.ReturnBook(ctx, 1, 7)
	require.NoError(t, err)
	assert.Equal(t, first.ID, ret.ID)

	still, err := svc.GetBorrowRecord(ctx, second.BorrowULID)
	require.NoError(t, err)
	assert.False(t, still.Returned)
	assert.Equal(t, 1, testutil.BorrowCount(t, conn, 7))
}

func TestCounterMatchesActiveRecords(t *testing.T) {
	svc, conn := newTestService(t)
	ctx := context.Background()
	for _, id := range []int64{1, 2, 3} {
		testutil.SeedBook(t, conn, id, 2)
	}
	testutil.CreateUser(t, conn, 7, "student")
	testutil.CreateUser(t, conn, 8, "admin")

	ops := []struct {
		borrow       bool
		book, userID int64
	}{
		{true, 1, 7}, {true, 2, 7}, {true, 3, 8}, {false, 1, 7},
		{true, 1, 8}, {false, 3, 8}, {false, 3, 8}, {true, 3, 7}, {false, 2, 7},
	}
	for _, op := range ops {
		if op.borrow {
			_, _ = svc.BorrowBook(ctx, op.book, op.userID)
		} else {
			_, _ = svc.ReturnBook(ctx, op.book, op.userID)
		}
		for _, u := range []int64{7, 8} {
			assert.Equal(t, testutil.ActiveBorrows(t, conn, u), testutil.BorrowCount(t, conn, u))
		}
	}
	for _, b := range []int64{1, 2, 3} {
		assert.GreaterOrEqual(t, testutil.BookQuantity(t, conn, b), 0)
	}
}

func TestConcurrentBorrows_ExactlyKSucceed(t *testing.T) {
	svc, conn := newTestService(t)
	ctx := context.Background()

	const copies, clients = 5, 20
	testutil.SeedBook(t, conn, 1, copies)
	for i := 1; i <= clients; i++ {
		testutil.CreateUser(t, conn, int64(i), "student")
	}

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		successes int
		failures  []error
	)
	for i := 1; i <= clients; i++ {
		wg.Add(1)
		go func(userID int64) {
			defer wg.Done()
			_, err := svc.BorrowBook(ctx, 1, userID)
			mu.Lock()
			defer mu.Unlock()
			if err == nil {
				successes++
				return
			}
			failures = append(failures, err)
		}(int64(i))
	}
	wg.Wait()

	assert.Equal(t, copies, successes)
	for _, err := range failures {
		assert.True(t, apierr.Is(err, apierr.CodeUnavailable) || apierr.Is(err, apierr.CodeContention), err.Error())
	}
	assert.Equal(t, 0, testutil.BookQuantity(t, conn, 1))
	assert.Equal(t, copies, countRecords(t, conn))

	var total int
	require.NoError(t, conn.Get(&total, `SELECT COALESCE(SUM(borrow_count), 0) FROM borrow_summary`))
	assert.Equal(t, copies, total)
}

func TestConcurrentBorrows_SameUserSummaryRow(t *testing.T) {
	svc, conn := newTestService(t)
	ctx := context.Background()
	testutil.SeedBook(t, conn, 1, 10)
	testutil.CreateUser(t, conn, 7, "student")

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.BorrowBook(ctx, 1, 7)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	assert.Equal(t, 10, testutil.BorrowCount(t, conn, 7))
	assert.Equal(t, 10, testutil.ActiveBorrows(t, conn, 7))
	assert.Equal(t, 0, testutil.BookQuantity(t, conn, 1))
}

func TestListBorrowedBooks_Filters(t *testing.T) {
	svc, conn := newTestService(t)
	ctx := context.Background()
	testutil.SeedBook(t, conn, 1, 5)
	testutil.SeedBook(t, conn, 2, 5)
	testutil.CreateUser(t, conn, 7, "student")
	testutil.CreateUser(t, conn, 8, "student")

	_, err := svc.BorrowBook(ctx, 1, 7)
	require.NoError(t, err)
	_, err = svc.BorrowBook(ctx, 2, 7)
	require.NoError(t, err)
	_, err = svc.BorrowBook(ctx, 1, 8)
	require.NoError(t, err)
	_, err = svc.ReturnBook(ctx, 1, 7)
	require.NoError(t, err)

	all, err := svc.ListBorrowedBooks(ctx, BorrowFilter{})
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Less(t, all[0].ID, all[1].ID)

	u7 := int64(7)
	mine, err := svc.ListBorrowedBooks(ctx, BorrowFilter{UserID: &u7})
	require.NoError(t, err)
	assert.Len(t, mine, 2)

	active := true
	open, err := svc.ListBorrowedBooks(ctx, BorrowFilter{UserID: &u7, Active: &active})
	require.NoError(t, err)
	require.Len(t, open, 1)
	assert.Equal(t, int64(2), open[0].BookID)

	b1 := int64(1)
	returned := false
	closed, err := svc.ListBorrowedBooks(ctx, BorrowFilter{BookID: &b1, Active: &returned})
	require.NoError(t, err)
	require.Len(t, closed, 1)
	assert.Equal(t, int64(7), closed[0].UserID)
}

func TestGetBorrowRecord(t *testing.T) {
	svc, conn := newTestService(t)
	ctx := context.Background()
	testutil.SeedBook(t, conn, 1, 1)
	testutil.CreateUser(t, conn, 7, "student")

	rec, err := svc.BorrowBook(ctx, 1, 7)
	require.NoError(t, err)

	got, err := svc.GetBorrowRecord(ctx, rec.BorrowULID)
	require.NoError(t, err)
	assert.Equal(t, rec.ID, got.ID)
	assert.True(t, rec.BorrowDate.Equal(got.BorrowDate))

	_, err = svc.GetBorrowRecord(ctx, "not-a-ulid")
	assert.True(t, apierr.Is(err, apierr.CodeInvalidArgument))

	_, err = svc.GetBorrowRecord(ctx, ulid.Make().String())
	assert.True(t, apierr.Is(err, apierr.CodeNotFound))
}
