package catalog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/doug-martin/goqu/v9"
	"github.com/jmoiron/sqlx"

	"library-backend/internal/platform/apierr"
	"library-backend/internal/platform/db"
)

type Store struct {
	db *sqlx.DB
}

func NewStore(conn *sqlx.DB) *Store { return &Store{db: conn} }

func (s *Store) insertBook(ctx context.Context, tx db.DBTX, b Book) error {
	const q = `INSERT INTO books (id, title, author, category, quantity) VALUES (?, ?, ?, ?, ?)`
	if _, err := tx.ExecContext(ctx, q, b.ID, b.Title, b.Author, b.Category, b.Quantity); err != nil {
		if db.IsDuplicateKey(err) {
			return duplicateBook(b.ID)
		}
		return err
	}
	return nil
}

func duplicateBook(id int64) *apierr.APIError {
	return apierr.Conflict(fmt.Sprintf("Book with ID %d already exists", id))
}

// ExecInsertBooks は全件を 1 トランザクションで登録する。1 件でも失敗すれば何も残らない
func (s *Store) ExecInsertBooks(ctx context.Context, books []Book) error {
	return db.RunInTx(ctx, s.db, nil, func(ctx context.Context, tx db.DBTX) error {
		for _, b := range books {
			if err := s.insertBook(ctx, tx, b); err != nil {
				return err
			}
		}
		return nil
	})
}

func (s *Store) GetBook(ctx context.Context, id int64) (*Book, error) {
	const q = `SELECT id, title, author, category, quantity FROM books WHERE id = ?`
	var b Book
	err := db.ReadOnly(ctx, s.db, func(ctx context.Context, tx db.DBTX) error {
		err := tx.GetContext(ctx, &b, q, id)
		if errors.Is(err, sql.ErrNoRows) {
			return apierr.NotFound("Book not found")
		}
		return err
	})
	if err != nil {
		return nil, err
	}
	return &b, nil
}

func (s *Store) ListBooks(ctx context.Context, f BookFilter) ([]Book, error) {
	ds := db.Builder(s.db).
		From("books").
		Select("id", "title", "author", "category", "quantity").
		Order(goqu.I("id").Asc()).
		Prepared(true)

	if f.Category != nil {
		ds = ds.Where(goqu.Ex{"category": *f.Category})
	}
	if f.Author != nil {
		ds = ds.Where(goqu.Ex{"author": *f.Author})
	}
	if f.Available != nil {
		if *f.Available {
			ds = ds.Where(goqu.C("quantity").Gt(0))
		} else {
			ds = ds.Where(goqu.C("quantity").Lte(0))
		}
	}

	q, args, err := ds.ToSQL()
	if err != nil {
		return nil, fmt.Errorf("build list books query: %w", err)
	}
	out := []Book{}
	err = db.ReadOnly(ctx, s.db, func(ctx context.Context, tx db.DBTX) error {
		return tx.SelectContext(ctx, &out, q, args...)
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}
