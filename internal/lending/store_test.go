package lending

import (
	"context"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"library-backend/internal/platform/apierr"
	"library-backend/internal/platform/db"
	"library-backend/internal/testutil"
)

// 先に閉じられていた記録を閉じようとしたら NoActiveBorrow ではなく競合として返す
func TestCloseRecord_AlreadyReturnedIsContention(t *testing.T) {
	svc, conn := newTestService(t)
	ctx := context.Background()
	testutil.SeedBook(t, conn, 1, 2)
	testutil.CreateUser(t, conn, 7, "student")

	rec, err := svc.BorrowBook(ctx, 1, 7)
	require.NoError(t, err)
	_, err = svc.ReturnBook(ctx, 1, 7)
	require.NoError(t, err)

	var id int64
	require.NoError(t, conn.Get(&id, `SELECT id FROM borrowed_books WHERE borrow_ulid = ?`, rec.BorrowULID))

	err = db.RunInTx(ctx, conn, nil, func(ctx context.Context, tx db.DBTX) error {
		return closeRecord(ctx, tx, id, time.Now().UTC())
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, db.ErrContention)
	assert.True(t, db.IsContention(err))
	assert.False(t, apierr.Is(err, apierr.CodeNoActiveBorrow))
}

// ユーザー確認と INSERT の間に削除された場合も User not found になり、在庫は戻る
func TestExecBorrow_UserDeletedBeforeInsert(t *testing.T) {
	svc, conn := newTestService(t)
	ctx := context.Background()
	testutil.SeedBook(t, conn, 1, 3)
	testutil.CreateUser(t, conn, 7, "student")

	_, err := conn.Exec(`
CREATE TRIGGER drop_user_before_borrow BEFORE INSERT ON borrowed_books
BEGIN
  DELETE FROM users WHERE id = NEW.user_id;
END`)
	require.NoError(t, err)

	_, err = svc.BorrowBook(ctx, 1, 7)
	var api *apierr.APIError
	require.ErrorAs(t, err, &api)
	assert.Equal(t, apierr.CodeNotFound, api.Code)
	assert.Equal(t, "User not found", api.Message)

	assert.Equal(t, 3, testutil.BookQuantity(t, conn, 1))
	assert.Equal(t, 0, countRecords(t, conn))
	assert.Equal(t, 0, testutil.BorrowCount(t, conn, 7))
}

// 別接続が書き込みロックを持ち続けると、一度やり直した後 CONTENTION を返す
func TestBorrow_LockHeldReturnsContention(t *testing.T) {
	if testing.Short() {
		t.Skip("waits for the busy timeout twice")
	}
	svc, conn := newTestService(t)
	ctx := context.Background()
	testutil.SeedBook(t, conn, 1, 3)
	testutil.CreateUser(t, conn, 7, "student")

	// _txlock=immediate なので Begin の時点で書き込みロックを取る
	holder, err := conn.Beginx()
	require.NoError(t, err)
	defer func(tx *sqlx.Tx) { _ = tx.Rollback() }(holder)

	_, err = svc.BorrowBook(ctx, 1, 7)
	var api *apierr.APIError
	require.ErrorAs(t, err, &api)
	assert.Equal(t, apierr.CodeContention, api.Code)

	require.NoError(t, holder.Rollback())
	assert.Equal(t, 3, testutil.BookQuantity(t, conn, 1))
	assert.Equal(t, 0, countRecords(t, conn))
	assert.Equal(t, 0, testutil.BorrowCount(t, conn, 7))
}
