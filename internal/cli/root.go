package cli

import (
	"context"
	"log"

	"github.com/jmoiron/sqlx"
	"github.com/spf13/cobra"

	"library-backend/internal/platform/config"
	"library-backend/internal/platform/db"
)

type rootOptions struct {
	configPath string
}

func NewRootCmd() *cobra.Command {
	opts := &rootOptions{}
	cmd := &cobra.Command{
		Use:           "library-backend",
		Short:         "Library books and auth services",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.PersistentFlags().StringVar(&opts.configPath, "config", config.DefaultPath, "path to config.yaml (empty: environment only)")

	cmd.AddCommand(
		newBooksCmd(opts),
		newAuthCmd(opts),
		newMigrateCmd(opts),
		newUserAddCmd(opts),
	)
	return cmd
}

func Execute(ctx context.Context) error {
	return NewRootCmd().ExecuteContext(ctx)
}

// 設定を読み、DB 接続に必要な値が揃っているか確認する
func (o *rootOptions) load() (*config.Config, error) {
	cfg, err := config.Load(o.configPath)
	if err != nil {
		return nil, err
	}
	if err := cfg.ValidateDB(); err != nil {
		return nil, err
	}
	log.Printf("[INFO] %s", cfg)
	return cfg, nil
}

func openDB(ctx context.Context, cfg *config.Config, migrate bool) (*sqlx.DB, error) {
	conn, err := db.Connect(cfg.DB)
	if err != nil {
		return nil, err
	}
	log.Printf("[INFO] connected to DB: %s", cfg.DB.Driver)

	if migrate {
		if err := db.Migrate(ctx, conn); err != nil {
			conn.Close()
			return nil, err
		}
		log.Printf("[INFO] schema is up to date")
	}
	return conn, nil
}
