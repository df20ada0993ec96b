package cli

import (
	"log"

	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"
	"github.com/spf13/cobra"

	"library-backend/internal/catalog"
	"library-backend/internal/lending"
	"library-backend/internal/platform/auth"
	"library-backend/internal/platform/config"
	"library-backend/internal/platform/server"
)

// BooksEngine wires the books service routes onto a new engine.
func BooksEngine(cfg *config.Config, conn *sqlx.DB) *gin.Engine {
	r := server.NewEngine(cfg.Mode, cfg.Server.AllowOrigins)

	var verifier auth.Verifier
	if cfg.Auth.Required {
		verifier = auth.NewTokenService([]byte(cfg.Auth.Secret), cfg.Auth.TokenTTL)
	}
	guards := auth.NewGuards(verifier, cfg.Auth.Required)

	catalog.RegisterRoutes(r, catalog.NewService(catalog.NewStore(conn)), guards)
	lending.RegisterRoutes(r, lending.NewService(lending.NewStore(conn)), guards)
	return r
}

// AuthEngine wires the auth service routes onto a new engine.
func AuthEngine(cfg *config.Config, conn *sqlx.DB) *gin.Engine {
	r := server.NewEngine(cfg.Mode, cfg.Server.AllowOrigins)
	tokens := auth.NewTokenService([]byte(cfg.Auth.Secret), cfg.Auth.TokenTTL)
	auth.RegisterRoutes(r, auth.NewService(auth.NewStore(conn), tokens))
	return r
}

func newBooksCmd(opts *rootOptions) *cobra.Command {
	var migrate bool
	cmd := &cobra.Command{
		Use:   "books",
		Short: "Serve the books inventory and borrow/return API",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := opts.load()
			if err != nil {
				return err
			}
			if cfg.Auth.Required {
				if err := cfg.ValidateAuth(); err != nil {
					return err
				}
			} else {
				log.Printf("[WARN] auth.required is false: inventory and borrow endpoints accept unauthenticated requests")
			}

			conn, err := openDB(cmd.Context(), cfg, migrate)
			if err != nil {
				return err
			}
			defer conn.Close()

			return server.Run(cmd.Context(), "books", cfg.Server.BooksAddr, BooksEngine(cfg, conn), cfg.Mode, cfg.Certificate)
		},
	}
	cmd.Flags().BoolVar(&migrate, "migrate", false, "create missing tables before serving")
	return cmd
}

func newAuthCmd(opts *rootOptions) *cobra.Command {
	var migrate bool
	cmd := &cobra.Command{
		Use:   "auth",
		Short: "Serve the register/login/protected API",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := opts.load()
			if err != nil {
				return err
			}
			if err := cfg.ValidateAuth(); err != nil {
				return err
			}

			conn, err := openDB(cmd.Context(), cfg, migrate)
			if err != nil {
				return err
			}
			defer conn.Close()

			return server.Run(cmd.Context(), "auth", cfg.Server.AuthAddr, AuthEngine(cfg, conn), cfg.Mode, cfg.Certificate)
		},
	}
	cmd.Flags().BoolVar(&migrate, "migrate", false, "create missing tables before serving")
	return cmd
}

func newMigrateCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create the database tables if they do not exist",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := opts.load()
			if err != nil {
				return err
			}
			conn, err := openDB(cmd.Context(), cfg, true)
			if err != nil {
				return err
			}
			return conn.Close()
		},
	}
}
