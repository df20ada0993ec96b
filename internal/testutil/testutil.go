// Package testutil opens throwaway SQLite databases for package tests.
package testutil

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"

	"library-backend/internal/platform/config"
	"library-backend/internal/platform/db"
)

// OpenDB はテストごとに一時ファイルの SQLite を作り、スキーマを流し込む
func OpenDB(t testing.TB) *sqlx.DB {
	t.Helper()
	conn, err := db.Connect(config.DatabaseConfig{
		Driver:       db.DriverSQLite,
		Path:         filepath.Join(t.TempDir(), "library.db"),
		MaxOpenConns: 8,
		MaxIdleConns: 8,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	require.NoError(t, db.Migrate(context.Background(), conn))
	return conn
}

// CreateUser inserts a user with an unusable password hash and returns its id.
func CreateUser(t testing.TB, conn *sqlx.DB, id int64, role string) int64 {
	t.Helper()
	_, err := conn.Exec(
		`INSERT INTO users (id, name, email, role, password_hash, created_at) VALUES (?, ?, ?, ?, ?, ?)`,
		id, fmt.Sprintf("user%d", id), fmt.Sprintf("user%d@example.com", id), role, "!", time.Now().UTC(),
	)
	require.NoError(t, err)
	return id
}

func SeedBook(t testing.TB, conn *sqlx.DB, id int64, quantity int) {
	t.Helper()
	_, err := conn.Exec(
		`INSERT INTO books (id, title, author, category, quantity) VALUES (?, ?, ?, ?, ?)`,
		id, fmt.Sprintf("Book %d", id), "Author", "general", quantity,
	)
	require.NoError(t, err)
}

func BookQuantity(t testing.TB, conn *sqlx.DB, id int64) int {
	t.Helper()
	var q int
	require.NoError(t, conn.Get(&q, `SELECT quantity FROM books WHERE id = ?`, id))
	return q
}

// BorrowCount は summary 行が無ければ 0
func BorrowCount(t testing.TB, conn *sqlx.DB, userID int64) int {
	t.Helper()
	var n int
	require.NoError(t, conn.Get(&n, `SELECT COALESCE(MAX(borrow_count), 0) FROM borrow_summary WHERE user_id = ?`, userID))
	return n
}

func ActiveBorrows(t testing.TB, conn *sqlx.DB, userID int64) int {
	t.Helper()
	var n int
	require.NoError(t, conn.Get(&n, `SELECT COUNT(*) FROM borrowed_books WHERE user_id = ? AND return_date IS NULL`, userID))
	return n
}
