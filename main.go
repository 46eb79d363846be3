package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/gogotex/pagebuilder/handlers"
	"github.com/gogotex/pagebuilder/internal/app"
	"github.com/gogotex/pagebuilder/internal/authz"
	"github.com/gogotex/pagebuilder/internal/config"
	"github.com/gogotex/pagebuilder/internal/hooks"
	"github.com/gogotex/pagebuilder/internal/oidc"
	"github.com/gogotex/pagebuilder/internal/scope"
	"github.com/gogotex/pagebuilder/internal/tokens"
	"github.com/gogotex/pagebuilder/pkg/logger"
	"github.com/gogotex/pagebuilder/pkg/metrics"
	"github.com/gogotex/pagebuilder/pkg/middleware"
)

var startTime = time.Now()

func main() {
	// LOG_LEVEL: debug|info|warn|error|fatal
	logger.Init(os.Getenv("LOG_LEVEL"))

	cfg, err := config.LoadConfig()
	if err != nil {
		logger.Fatalf("failed to load config: %v", err)
	}
	logger.Init(cfg.Log.Level)
	logger.Infof("config loaded: storage=%s keycloak=%v redis=%v minio=%v", cfg.Storage.Driver, cfg.Keycloak.URL != "", cfg.Redis.Host != "", cfg.MinIO.Enabled())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := app.New(ctx, cfg, authz.ClaimsAuthorizer{})
	if err != nil {
		logger.Fatalf("failed to initialize: %v", err)
	}
	defer a.Close(context.Background())

	if cfg.Server.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(gin.Logger(), gin.Recovery(), cors(), scope.Middleware())

	limiter := func() gin.HandlerFunc {
		if a.Redis != nil {
			return middleware.RedisRateLimitMiddleware(a.Redis, cfg.RateLimit.Limit, cfg.RateLimit.Window)
		}
		return middleware.RateLimitMiddleware(cfg.RateLimit.RPS, cfg.RateLimit.Burst)
	}
	// runs before authentication, so every route is limited per client IP
	r.Use(limiter())

	checks := map[string]handlers.Check{}
	for name, check := range a.Checks {
		checks[name] = handlers.Check(check)
	}
	handlers.RegisterHealth(r, startTime, checks)
	handlers.RegisterSwagger(r)

	metrics.RegisterCollectors(prometheus.DefaultRegisterer)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	verifier := buildVerifier(ctx, cfg, a.Revoker)
	auth := middleware.AuthMiddleware(verifier, func(ctx context.Context, claims map[string]interface{}) {
		if _, err := a.Editors.UpsertFromClaims(ctx, claims); err != nil {
			logger.Warnf("record editor: %v", err)
		}
	})
	handlers.NewAuthHandler(cfg, a.Sessions, a.Revoker).Register(r.Group("/"), auth)

	a.Header.Add(func(w io.Writer) {
		_, _ = io.WriteString(w, `<meta name="generator" content="pagebuilder">`)
	}, hooks.DefaultPriority)
	handlers.NewContentHandler(handlers.ContentDeps{
		Repo:      a.Repo,
		Documents: a.Documents,
		Actions:   a.Actions,
		Authz:     a.Authz,
		Persistor: a.Persistor,
		Stores:    a.Stores,
		Header:    a.Header,
		Footer:    a.Footer,
	}).Register(r, auth, limiter()) // editor routes are also limited per subject

	srv := &http.Server{
		Addr:         fmt.Sprintf("%s:%s", cfg.Server.Host, cfg.Server.Port),
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}
	go func() {
		logger.Infof("starting pagebuilder on %s", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatalf("server failed: %v", err)
		}
	}()

	<-ctx.Done()
	logger.Infof("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Warnf("shutdown: %v", err)
	}
}

// buildVerifier accepts pagebuilder access tokens and, when Keycloak is
// configured, Keycloak tokens.
func buildVerifier(ctx context.Context, cfg *config.Config, revoked tokens.Revocations) middleware.Verifier {
	var chain middleware.FirstOf
	if cfg.JWT.Secret != "" {
		chain = append(chain, tokens.NewVerifier(cfg, revoked))
	}
	if issuer := cfg.Keycloak.Issuer(); issuer != "" {
		ver, err := oidc.NewVerifier(ctx, issuer, cfg.Keycloak.ClientID)
		if err != nil {
			logger.Warnf("failed to initialize OIDC verifier: %v", err)
		} else {
			chain = append(chain, ver)
		}
	}
	if cfg.Keycloak.Insecure {
		logger.Warnf("enabling insecure token verifier (integration mode)")
		chain = append(chain, oidc.NewInsecureVerifier())
	}
	if len(chain) == 0 {
		logger.Warnf("no token verifier configured; authenticated routes will reject every request")
	}
	return chain
}

// cors is a permissive policy for the editor running on another origin.
func cors() gin.HandlerFunc {
	return func(c *gin.Context) {
		h := c.Writer.Header()
		h.Set("Access-Control-Allow-Origin", "*")
		h.Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		h.Set("Access-Control-Allow-Headers", "Origin, Content-Type, Accept, Authorization, X-Store-Id")
		h.Set("Access-Control-Expose-Headers", "Content-Length, Location")
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}
