package lending

import (
	"database/sql"
	"time"
)

// 貸出記録。return_date が NULL の間は貸出中
type BorrowRecord struct {
	ID         int64        `db:"id"`
	BorrowULID string       `db:"borrow_ulid"`
	UserID     int64        `db:"user_id"`
	BookID     int64        `db:"book_id"`
	BorrowDate time.Time    `db:"borrow_date"`
	ReturnDate sql.NullTime `db:"return_date"`
}

func (r BorrowRecord) Active() bool { return !r.ReturnDate.Valid }

type BorrowFilter struct {
	UserID *int64
	BookID *int64
	Active *bool
}

// borrow_summary と users の結合結果
type SummaryRow struct {
	UserID      int64  `db:"user_id"`
	Name        string `db:"name"`
	Email       string `db:"email"`
	Role        string `db:"role"`
	BorrowCount int    `db:"borrow_count"`
}
