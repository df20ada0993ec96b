package lending

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/doug-martin/goqu/v9"
	"github.com/jmoiron/sqlx"

	"library-backend/internal/platform/apierr"
	"library-backend/internal/platform/db"
)

type Store struct {
	db *sqlx.DB
}

func NewStore(conn *sqlx.DB) *Store { return &Store{db: conn} }

const recordColumns = `id, borrow_ulid, user_id, book_id, borrow_date, return_date`

func bookExists(ctx context.Context, tx db.DBTX, bookID int64) (bool, error) {
	var n int
	if err := tx.GetContext(ctx, &n, `SELECT COUNT(*) FROM books WHERE id = ?`, bookID); err != nil {
		return false, err
	}
	return n > 0, nil
}

func userExists(ctx context.Context, tx db.DBTX, userID int64) (bool, error) {
	var n int
	if err := tx.GetContext(ctx, &n, `SELECT COUNT(*) FROM users WHERE id = ?`, userID); err != nil {
		return false, err
	}
	return n > 0, nil
}

// 在庫を 1 減らす。quantity > 0 の条件付き UPDATE なので同時に最後の 1 冊を取り合っても片方しか通らない
func takeCopy(ctx context.Context, tx db.DBTX, bookID int64) error {
	res, err := tx.ExecContext(ctx, `UPDATE books SET quantity = quantity - 1 WHERE id = ? AND quantity > 0`, bookID)
	if err != nil {
		return err
	}
	aff, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if aff == 1 {
		return nil
	}

	ok, err := bookExists(ctx, tx, bookID)
	if err != nil {
		return err
	}
	if !ok {
		return apierr.NotFound("Book not found")
	}
	return apierr.Unavailable("No copies available")
}

func incrementSummary(ctx context.Context, tx db.DBTX, userID int64) error {
	res, err := tx.ExecContext(ctx, `UPDATE borrow_summary SET borrow_count = borrow_count + 1 WHERE user_id = ?`, userID)
	if err != nil {
		return err
	}
	aff, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if aff == 1 {
		return nil
	}

	// 初回の貸出。別トランザクションが先に INSERT していたらやり直す
	if _, err := tx.ExecContext(ctx, `INSERT INTO borrow_summary (user_id, borrow_count) VALUES (?, 1)`, userID); err != nil {
		if db.IsDuplicateKey(err) {
			return fmt.Errorf("%w: insert borrow_summary: %v", db.ErrContention, err)
		}
		return err
	}
	return nil
}

// ExecBorrow handles the full transaction flow for a borrow.
// On success rec.ID is set.
func (s *Store) ExecBorrow(ctx context.Context, rec *BorrowRecord) error {
	return db.RunInTxRetry(ctx, s.db, db.WriteTxOptions(s.db), func(ctx context.Context, tx db.DBTX) error {
		if err := takeCopy(ctx, tx, rec.BookID); err != nil {
			return err
		}

		ok, err := userExists(ctx, tx, rec.UserID)
		if err != nil {
			return err
		}
		if !ok {
			return apierr.NotFound("User not found")
		}

		const q = `
INSERT INTO borrowed_books (borrow_ulid, user_id, book_id, borrow_date, return_date)
VALUES (?, ?, ?, ?, NULL)`
		res, err := tx.ExecContext(ctx, q, rec.BorrowULID, rec.UserID, rec.BookID, rec.BorrowDate)
		if err != nil {
			// 確認の直後にユーザーが削除された
			if db.IsForeignKeyViolation(err) {
				return apierr.NotFound("User not found")
			}
			return err
		}
		id, err := res.LastInsertId()
		if err != nil {
			return err
		}
		rec.ID = id

		return incrementSummary(ctx, tx, rec.UserID)
	})
}

// closeRecord は return_date を埋める。読んだ後に別の返却が先に閉じていたら
// ErrContention を返し、やり直しで次の貸出記録を拾わせる
func closeRecord(ctx context.Context, tx db.DBTX, id int64, at time.Time) error {
	res, err := tx.ExecContext(ctx, `UPDATE borrowed_books SET return_date = ? WHERE id = ? AND return_date IS NULL`, at, id)
	if err != nil {
		return err
	}
	aff, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if aff != 1 {
		return fmt.Errorf("%w: borrow record %d already returned", db.ErrContention, id)
	}
	return nil
}

// ExecReturn closes the oldest active record of the (book, user) pair and
// returns it with return_date set.
func (s *Store) ExecReturn(ctx context.Context, bookID, userID int64, at time.Time) (*BorrowRecord, error) {
	var rec BorrowRecord
	err := db.RunInTxRetry(ctx, s.db, db.WriteTxOptions(s.db), func(ctx context.Context, tx db.DBTX) error {
		ok, err := bookExists(ctx, tx, bookID)
		if err != nil {
			return err
		}
		if !ok {
			return apierr.NotFound("Book not found")
		}

		q := `SELECT ` + recordColumns + ` FROM borrowed_books
WHERE book_id = ? AND user_id = ? AND return_date IS NULL
ORDER BY id ASC LIMIT 1`
		if err := tx.GetContext(ctx, &rec, q, bookID, userID); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return apierr.NoActiveBorrow("No active borrow record found")
			}
			return err
		}

		if err := closeRecord(ctx, tx, rec.ID, at); err != nil {
			return err
		}
		rec.ReturnDate = sql.NullTime{Time: at, Valid: true}

		if _, err := tx.ExecContext(ctx, `UPDATE books SET quantity = quantity + 1 WHERE id = ?`, bookID); err != nil {
			return err
		}

		// summary が無い・0 のときは何もしない
		_, err = tx.ExecContext(ctx, `UPDATE borrow_summary SET borrow_count = borrow_count - 1 WHERE user_id = ? AND borrow_count > 0`, userID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

func (s *Store) GetRecordByULID(ctx context.Context, ulid string) (*BorrowRecord, error) {
	var rec BorrowRecord
	err := db.ReadOnly(ctx, s.db, func(ctx context.Context, tx db.DBTX) error {
		err := tx.GetContext(ctx, &rec, `SELECT `+recordColumns+` FROM borrowed_books WHERE borrow_ulid = ?`, ulid)
		if errors.Is(err, sql.ErrNoRows) {
			return apierr.NotFound("Borrow record not found")
		}
		return err
	})
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

func (s *Store) ListRecords(ctx context.Context, f BorrowFilter) ([]BorrowRecord, error) {
	ds := db.Builder(s.db).
		From("borrowed_books").
		Select("id", "borrow_ulid", "user_id", "book_id", "borrow_date", "return_date").
		Order(goqu.I("id").Asc()).
		Prepared(true)

	if f.UserID != nil {
		ds = ds.Where(goqu.Ex{"user_id": *f.UserID})
	}
	if f.BookID != nil {
		ds = ds.Where(goqu.Ex{"book_id": *f.BookID})
	}
	if f.Active != nil {
		if *f.Active {
			ds = ds.Where(goqu.C("return_date").IsNull())
		} else {
			ds = ds.Where(goqu.C("return_date").IsNotNull())
		}
	}

	q, args, err := ds.ToSQL()
	if err != nil {
		return nil, fmt.Errorf("build list borrowed_books query: %w", err)
	}
	out := []BorrowRecord{}
	err = db.ReadOnly(ctx, s.db, func(ctx context.Context, tx db.DBTX) error {
		return tx.SelectContext(ctx, &out, q, args...)
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (s *Store) ListSummary(ctx context.Context) ([]SummaryRow, error) {
	const q = `
SELECT bs.user_id, u.name, u.email, u.role, bs.borrow_count
FROM borrow_summary bs
INNER JOIN users u ON u.id = bs.user_id
ORDER BY bs.user_id ASC`
	out := []SummaryRow{}
	err := db.ReadOnly(ctx, s.db, func(ctx context.Context, tx db.DBTX) error {
		return tx.SelectContext(ctx, &out, q)
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}
