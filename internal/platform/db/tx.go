package db

import (
	"context"
	"database/sql"
	"log"

	"github.com/jmoiron/sqlx"
)

// *sqlx.DB と *sqlx.Tx のどちらでも受けられるように
type DBTX interface {
	sqlx.ExtContext
	GetContext(ctx context.Context, dest any, query string, args ...any) error
	SelectContext(ctx context.Context, dest any, query string, args ...any) error
}

// Txを開始して fn を実行。fn が nil を返せば COMMIT、エラーなら ROLLBACK。
func RunInTx(ctx context.Context, db *sqlx.DB, opts *sql.TxOptions, fn func(ctx context.Context, tx DBTX) error) error {
	tx, err := db.BeginTxx(ctx, opts)
	if err != nil {
		return err
	}

	if err := fn(ctx, tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	return tx.Commit()
}

// RunInTxRetry は RunInTx と同じだが、競合（デッドロック・ロック待ちタイムアウト等）で
// 失敗した場合に限り一度だけやり直す。二度目も競合なら呼び出し側に返す。
func RunInTxRetry(ctx context.Context, db *sqlx.DB, opts *sql.TxOptions, fn func(ctx context.Context, tx DBTX) error) error {
	err := RunInTx(ctx, db, opts, fn)
	if err == nil || !IsContention(err) {
		return err
	}
	log.Printf("[WARN] transaction contention, retrying once: %v", err)
	return RunInTx(ctx, db, opts, fn)
}

// 読み取り専用Tx
func ReadOnly(ctx context.Context, db *sqlx.DB, fn func(ctx context.Context, tx DBTX) error) error {
	return RunInTx(ctx, db, &sql.TxOptions{ReadOnly: true}, fn)
}

// WriteTxOptions: 在庫を動かすトランザクション用。MySQL は READ COMMITTED、
// SQLite は書き込みが直列化されるので既定のまま。
func WriteTxOptions(db *sqlx.DB) *sql.TxOptions {
	if db.DriverName() == DriverMySQL {
		return &sql.TxOptions{Isolation: sql.LevelReadCommitted}
	}
	return nil
}
