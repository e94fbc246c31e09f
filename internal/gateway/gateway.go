// Package gateway exposes one agent session over HTTP.
//
// Requests are serialized onto the session; the wire protocol allows a single
// outstanding command. A fatal session error discards the session and the
// next request reopens it through the Dialer.
package gateway

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/danmuck/ascmdctl/internal/auth"
	"github.com/danmuck/ascmdctl/internal/observability"
	"github.com/danmuck/ascmdctl/internal/protocol/session"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

var (
	ErrUnavailable    = errors.New("gateway: agent unavailable")
	ErrCommandTimeout = errors.New("gateway: agent did not reply in time")
)

type Config struct {
	ID                   string
	Addr                 string
	BasePath             string
	CorsOrigins          []string
	Token                string
	MaxReconnectAttempts int
	Backoff              session.BackoffConfig
	ShutdownTimeout      time.Duration
	Logger               zerolog.Logger

	// CommandTimeout bounds one command round trip on top of the request
	// deadline. Zero leaves only the request deadline.
	CommandTimeout time.Duration
}

func DefaultConfig() Config {
	return Config{
		ID:                   "ascmd-gateway",
		Addr:                 ":9300",
		MaxReconnectAttempts: 5,
		Backoff:              session.DefaultBackoff(),
		CommandTimeout:       30 * time.Second,
		ShutdownTimeout:      5 * time.Second,
		Logger:               zerolog.Nop(),
	}
}

type Gateway struct {
	cfg      Config
	dialer   Dialer
	router   *gin.Engine
	appeared time.Time
	log      zerolog.Logger

	connected atomic.Bool

	mu     sync.Mutex
	sess   *session.Session
	closer io.Closer
	rng    *rand.Rand
}

func New(cfg Config, dialer Dialer) *Gateway {
	observability.RegisterMetrics()
	if cfg.ID == "" {
		cfg.ID = "ascmd-gateway"
	}
	if cfg.MaxReconnectAttempts < 1 {
		cfg.MaxReconnectAttempts = 1
	}
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(observability.RequestID())
	r.Use(observability.RequestLogger(cfg.Logger))
	r.Use(observability.RequestMetricsMiddleware(cfg.ID))
	r.Use(cors.New(cors.Config{
		AllowOrigins: normalizeOrigins(cfg.CorsOrigins),
		AllowMethods: []string{"GET", "POST"},
		AllowHeaders: []string{"Origin", "Content-Type", "Authorization", observability.RequestIDHeader},
		MaxAge:       12 * time.Hour,
	}))
	_ = r.SetTrustedProxies([]string{"127.0.0.1", "::1"})

	g := &Gateway{
		cfg:      cfg,
		dialer:   dialer,
		router:   r,
		appeared: time.Now(),
		log:      cfg.Logger.With().Str("gateway", cfg.ID).Logger(),
		rng:      rand.New(rand.NewSource(time.Now().UnixNano())),
	}
	g.registerRoutes()
	return g
}

func (g *Gateway) Handler() http.Handler {
	return g.router
}

// Connected reports whether a session is currently open.
func (g *Gateway) Connected() bool {
	return g.connected.Load()
}

// Connect opens the session ahead of the first request.
func (g *Gateway) Connect(ctx context.Context) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.sess != nil {
		return nil
	}
	return g.reconnect(ctx)
}

// Close terminates the session, if any, and closes its transport.
func (g *Gateway) Close() error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.sess == nil {
		return nil
	}
	err := g.sess.Terminate()
	return errors.Join(err, g.discard())
}

// Run serves HTTP on cfg.Addr until ctx is done, then shuts down and closes
// the session.
func (g *Gateway) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              g.cfg.Addr,
		Handler:           g.router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	eg, ctx := errgroup.WithContext(ctx)
	eg.Go(func() error {
		g.log.Info().Str("addr", g.cfg.Addr).Msg("gateway listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	eg.Go(func() error {
		<-ctx.Done()
		timeout := g.cfg.ShutdownTimeout
		if timeout <= 0 {
			timeout = 5 * time.Second
		}
		shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		err := srv.Shutdown(shutdownCtx)
		g.log.Info().Msg("gateway stopped")
		return errors.Join(err, g.Close())
	})
	return eg.Wait()
}

// do runs fn against the live session, opening one first when needed. When
// ctx ends or CommandTimeout passes before the agent replies, the transport
// is closed under fn and the session is discarded.
func (g *Gateway) do(ctx context.Context, verb string, fn func(*session.Session) error) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.sess == nil {
		if err := g.reconnect(ctx); err != nil {
			return err
		}
	}

	cmdCtx := ctx
	if g.cfg.CommandTimeout > 0 {
		var cancel context.CancelFunc
		cmdCtx, cancel = context.WithTimeout(ctx, g.cfg.CommandTimeout)
		defer cancel()
	}
	closer := g.closer
	stop := context.AfterFunc(cmdCtx, func() {
		if closer != nil {
			closer.Close()
		}
	})

	start := time.Now()
	err := fn(g.sess)
	cut := !stop()
	outcome := "ok"
	switch {
	case cut:
		outcome = "timeout"
		if err != nil {
			err = fmt.Errorf("%w: %s: %w", ErrCommandTimeout, verb, err)
		}
	case err != nil:
		outcome = string(session.Classify(err))
	}
	observability.RecordCommand(verb, outcome, time.Since(start))

	if cut || session.IsFatal(err) {
		g.log.Warn().Str("verb", verb).Str("kind", outcome).Err(err).Msg("session failed; discarding")
		g.discard()
	}
	return err
}

func (g *Gateway) reconnect(ctx context.Context) error {
	var lastErr error
	for attempt := 1; attempt <= g.cfg.MaxReconnectAttempts; attempt++ {
		if attempt > 1 {
			delay := session.NextBackoffDelay(g.cfg.Backoff, attempt-1, g.rng)
			timer := time.NewTimer(delay)
			select {
			case <-ctx.Done():
				timer.Stop()
				return fmt.Errorf("%w: %w", ErrUnavailable, ctx.Err())
			case <-timer.C:
			}
		}
		// The session outlives the request that opened it.
		s, closer, err := g.dialer.Dial(context.WithoutCancel(ctx))
		observability.RecordReconnect(err == nil)
		if err == nil {
			g.sess, g.closer = s, closer
			g.connected.Store(true)
			g.log.Info().Int("attempt", attempt).Uint32("version", s.Version()).Msg("session open")
			return nil
		}
		lastErr = err
		g.log.Warn().Int("attempt", attempt).Err(err).Msg("session open failed")
	}
	return fmt.Errorf("%w: %w", ErrUnavailable, lastErr)
}

func (g *Gateway) discard() error {
	var err error
	if g.closer != nil {
		err = g.closer.Close()
	}
	g.sess, g.closer = nil, nil
	g.connected.Store(false)
	return err
}

func (g *Gateway) authenticate() gin.HandlerFunc {
	validator := auth.StaticToken{Token: g.cfg.Token}
	return func(c *gin.Context) {
		token, _ := auth.BearerToken(c.GetHeader("Authorization"))
		if err := validator.Validate(token); err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
			return
		}
		c.Next()
	}
}

func normalizeOrigins(origins []string) []string {
	if len(origins) == 0 {
		return []string{"http://localhost:3000"}
	}
	return origins
}
