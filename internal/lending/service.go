package lending

import (
	"context"
	"crypto/rand"
	"time"

	"github.com/oklog/ulid/v2"

	"library-backend/internal/platform/apierr"
	"library-backend/internal/platform/db"
)

// -------------- Clock & ID --------------

type Clock interface{ Now() time.Time }
type realClock struct{}

func (realClock) Now() time.Time { return time.Now().UTC() }

type IDGen interface{ NewULID(t time.Time) string }
type ulidGen struct{}

func (ulidGen) NewULID(t time.Time) string {
	entropy := ulid.Monotonic(rand.Reader, 0)
	return ulid.MustNew(ulid.Timestamp(t), entropy).String()
}

// -------------- Service --------------

type Service struct {
	store *Store
	clock Clock
	ids   IDGen
}

func NewService(store *Store) *Service {
	return &Service{store: store, clock: realClock{}, ids: ulidGen{}}
}

// 再試行しても競合した場合は 409 で返してクライアントに任せる
func mapStoreErr(err error) error {
	if err != nil && db.IsContention(err) {
		return apierr.Contention("the request conflicted with another update, please retry")
	}
	return err
}

func validIDs(bookID, userID int64) error {
	if bookID <= 0 {
		return apierr.Invalid("invalid book id")
	}
	if userID <= 0 {
		return apierr.Invalid("invalid user_id")
	}
	return nil
}

func (s *Service) BorrowBook(ctx context.Context, bookID, userID int64) (*BorrowRecordResponse, error) {
	if err := validIDs(bookID, userID); err != nil {
		return nil, err
	}

	now := s.clock.Now()
	rec := &BorrowRecord{
		BorrowULID: s.ids.NewULID(now),
		UserID:     userID,
		BookID:     bookID,
		BorrowDate: now,
	}
	if err := s.store.ExecBorrow(ctx, rec); err != nil {
		return nil, mapStoreErr(err)
	}
	res := toRecordResponse(*rec)
	return &res, nil
}

func (s *Service) ReturnBook(ctx context.Context, bookID, userID int64) (*BorrowRecordResponse, error) {
	if err := validIDs(bookID, userID); err != nil {
		return nil, err
	}

	rec, err := s.store.ExecReturn(ctx, bookID, userID, s.clock.Now())
	if err != nil {
		return nil, mapStoreErr(err)
	}
	res := toRecordResponse(*rec)
	return &res, nil
}

func (s *Service) ListBorrowedBooks(ctx context.Context, f BorrowFilter) ([]BorrowRecordResponse, error) {
	recs, err := s.store.ListRecords(ctx, f)
	if err != nil {
		return nil, err
	}
	out := make([]BorrowRecordResponse, 0, len(recs))
	for _, r := range recs {
		out = append(out, toRecordResponse(r))
	}
	return out, nil
}

func (s *Service) GetBorrowRecord(ctx context.Context, borrowULID string) (*BorrowRecordResponse, error) {
	if _, err := ulid.ParseStrict(borrowULID); err != nil {
		return nil, apierr.Invalid("invalid borrow_ulid")
	}
	rec, err := s.store.GetRecordByULID(ctx, borrowULID)
	if err != nil {
		return nil, err
	}
	res := toRecordResponse(*rec)
	return &res, nil
}

func (s *Service) GetBorrowSummary(ctx context.Context) ([]SummaryResponse, error) {
	rows, err := s.store.ListSummary(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]SummaryResponse, 0, len(rows))
	for _, r := range rows {
		out = append(out, SummaryResponse(r))
	}
	return out, nil
}
