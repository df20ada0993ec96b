package catalog

import (
	"context"
	"fmt"
	"strings"

	"golang.org/x/text/unicode/norm"

	"library-backend/internal/platform/apierr"
)

type Service struct {
	store *Store
}

func NewService(store *Store) *Service {
	return &Service{store: store}
}

// 全角英数・半角カナなどの表記ゆれを NFKC でそろえる
func normalizeText(s string) string {
	return strings.TrimSpace(norm.NFKC.String(s))
}

func (s *Service) toBook(req CreateBookRequest) (Book, error) {
	if req.ID <= 0 {
		return Book{}, apierr.Invalid("id must be a positive integer")
	}
	b := Book{
		ID:       req.ID,
		Title:    normalizeText(req.Title),
		Author:   normalizeText(req.Author),
		Category: normalizeText(req.Category),
		Quantity: 1,
	}
	if req.Quantity != nil {
		if *req.Quantity < 0 {
			return Book{}, apierr.Invalid("quantity must be >= 0")
		}
		b.Quantity = *req.Quantity
	}
	if b.Title == "" || b.Author == "" {
		return Book{}, apierr.Invalid("title and author are required")
	}
	return b, nil
}

func (s *Service) AddBook(ctx context.Context, req CreateBookRequest) (*BookResponse, error) {
	b, err := s.toBook(req)
	if err != nil {
		return nil, err
	}
	if err := s.store.ExecInsertBooks(ctx, []Book{b}); err != nil {
		return nil, err
	}
	res := toBookResponse(b)
	return &res, nil
}

// AddBooksBulk: 全件成功か全件失敗。バッチ内の ID 重複も登録前に弾く
func (s *Service) AddBooksBulk(ctx context.Context, reqs []CreateBookRequest) ([]BookResponse, error) {
	if len(reqs) == 0 {
		return nil, apierr.Invalid("books must not be empty")
	}

	books := make([]Book, 0, len(reqs))
	seen := make(map[int64]struct{}, len(reqs))
	for i, req := range reqs {
		b, err := s.toBook(req)
		if err != nil {
			if api, ok := err.(*apierr.APIError); ok {
				return nil, apierr.Invalid(fmt.Sprintf("books[%d]: %s", i, api.Message))
			}
			return nil, err
		}
		if _, dup := seen[b.ID]; dup {
			return nil, duplicateBook(b.ID)
		}
		seen[b.ID] = struct{}{}
		books = append(books, b)
	}

	if err := s.store.ExecInsertBooks(ctx, books); err != nil {
		return nil, err
	}

	out := make([]BookResponse, 0, len(books))
	for _, b := range books {
		out = append(out, toBookResponse(b))
	}
	return out, nil
}

func (s *Service) ListBooks(ctx context.Context, f BookFilter) ([]BookResponse, error) {
	// 登録時と同じ正規化をかけてから比較する
	if f.Category != nil {
		v := normalizeText(*f.Category)
		f.Category = &v
	}
	if f.Author != nil {
		v := normalizeText(*f.Author)
		f.Author = &v
	}
	books, err := s.store.ListBooks(ctx, f)
	if err != nil {
		return nil, err
	}
	out := make([]BookResponse, 0, len(books))
	for _, b := range books {
		out = append(out, toBookResponse(b))
	}
	return out, nil
}

func (s *Service) GetBook(ctx context.Context, id int64) (*BookResponse, error) {
	if id <= 0 {
		return nil, apierr.Invalid("invalid book id")
	}
	b, err := s.store.GetBook(ctx, id)
	if err != nil {
		return nil, err
	}
	res := toBookResponse(*b)
	return &res, nil
}
