package lending

import "time"

// 貸出レスポンス
type BorrowRecordResponse struct {
	ID         int64      `json:"id"`
	BorrowULID string     `json:"borrow_ulid"`
	UserID     int64      `json:"user_id"`
	BookID     int64      `json:"book_id"`
	BorrowDate time.Time  `json:"borrow_date"`
	ReturnDate *time.Time `json:"return_date"`
	Returned   bool       `json:"returned"`
}

type SummaryResponse struct {
	UserID      int64  `json:"user_id"`
	Name        string `json:"name"`
	Email       string `json:"email"`
	Role        string `json:"role"`
	BorrowCount int    `json:"borrow_count"`
}

func toRecordResponse(r BorrowRecord) BorrowRecordResponse {
	res := BorrowRecordResponse{
		ID:         r.ID,
		BorrowULID: r.BorrowULID,
		UserID:     r.UserID,
		BookID:     r.BookID,
		BorrowDate: r.BorrowDate.UTC(),
		Returned:   !r.Active(),
	}
	if r.ReturnDate.Valid {
		t := r.ReturnDate.Time.UTC()
		res.ReturnDate = &t
	}
	return res
}
