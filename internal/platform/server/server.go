package server

import (
	"context"
	"errors"
	"log"
	"net/http"
	"path/filepath"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "library-backend/docs"
	"library-backend/internal/platform/config"
)

const shutdownTimeout = 10 * time.Second

// NewEngine は両サービス共通の gin エンジンを作る（ログ・リカバリ・CORS・ヘルス）
func NewEngine(mode string, allowOrigins []string) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Logger(), gin.Recovery())
	_ = r.SetTrustedProxies(nil)

	if mode == config.ModeDev {
		// CORS（開発中のみ必要）
		if len(allowOrigins) == 0 {
			allowOrigins = []string{"http://localhost:3000"}
		}
		r.Use(cors.New(cors.Config{
			AllowOrigins:     allowOrigins,
			AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
			ExposeHeaders:    []string{"Content-Length", "Location"},
			AllowMethods:     []string{"GET", "POST", "OPTIONS"},
			AllowCredentials: true,
		}))
		r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	// ヘルス
	r.GET("/healthz", func(c *gin.Context) { c.String(http.StatusOK, "ok") })
	return r
}

// 証明書は config/tls/<mode>/ 配下に置く。絶対パスならそのまま使う
func certPath(mode, name string) string {
	if filepath.IsAbs(name) {
		return name
	}
	return filepath.Join("config", "tls", mode, name)
}

// Run serves h on addr until ctx is cancelled, then shuts down gracefully.
// TLS is used when both cert and key are configured.
func Run(ctx context.Context, name, addr string, h http.Handler, mode string, certs config.Certs) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           h,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		var err error
		if certs.Cert != "" && certs.Key != "" {
			log.Printf("[INFO] %s listening on https://%s", name, addr)
			err = srv.ListenAndServeTLS(certPath(mode, certs.Cert), certPath(mode, certs.Key))
		} else {
			log.Printf("[INFO] %s listening on http://%s", name, addr)
			err = srv.ListenAndServe()
		}
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err, ok := <-errCh:
		if ok {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	log.Printf("[INFO] %s shutting down...", name)
	sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return srv.Shutdown(sctx)
}
