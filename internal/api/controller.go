// Package api serves the trigger console REST API: trigger CRUD grouped by
// host, host item lookup, the editor schema and Prometheus metrics.
package api

import (
	"context"
	"crypto/subtle"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"gorm.io/gorm"

	"github.com/netwatch-oss/triggerkit/internal/datastore/entities"
	"github.com/netwatch-oss/triggerkit/internal/datastore/repository"
	"github.com/netwatch-oss/triggerkit/internal/errors"
	"github.com/netwatch-oss/triggerkit/internal/logger"
	"github.com/netwatch-oss/triggerkit/internal/observability/metrics"
	"github.com/netwatch-oss/triggerkit/internal/publish"
)

// ChangePublisher receives every committed trigger write.
type ChangePublisher interface {
	Publish(change publish.Change)
}

// Controller owns the echo instance and the handlers.
type Controller struct {
	Echo *echo.Echo

	triggers repository.TriggerRepository
	hosts    repository.HostRepository
	changes  ChangePublisher
	metrics  *metrics.Metrics
	log      logger.Logger
	token    string
}

// Option configures a Controller.
type Option func(*Controller)

// WithLogger sets the request and handler logger.
func WithLogger(l logger.Logger) Option {
	return func(c *Controller) { c.log = l }
}

// WithMetrics records HTTP metrics and exposes GET /metrics.
func WithMetrics(m *metrics.Metrics) Option {
	return func(c *Controller) { c.metrics = m }
}

// WithToken requires "Authorization: Bearer <token>" on write endpoints.
// An empty token leaves them open.
func WithToken(token string) Option {
	return func(c *Controller) { c.token = token }
}

// WithPublisher forwards committed writes.
func WithPublisher(p ChangePublisher) Option {
	return func(c *Controller) { c.changes = p }
}

// New builds the echo instance and registers every route.
func New(db *gorm.DB, opts ...Option) *Controller {
	c := &Controller{
		Echo:     echo.New(),
		triggers: repository.NewTriggerRepository(db),
		hosts:    repository.NewHostRepository(db),
		log:      logger.NewNopLogger(),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.log = c.log.With(logger.String("component", "api"))

	c.Echo.HideBanner = true
	c.Echo.HidePort = true
	c.Echo.Use(middleware.Recover())
	c.Echo.Use(middleware.BodyLimit("1M"))
	c.Echo.Use(c.metricsMiddleware)

	c.Echo.GET("/healthz", func(ctx echo.Context) error {
		return ctx.JSON(http.StatusOK, entities.Envelope[any]{Status: entities.StatusSuccess})
	})
	if c.metrics != nil {
		c.Echo.GET("/metrics", echo.WrapHandler(c.metrics.Handler()))
	}
	c.initTriggerRoutes()
	c.initHostRoutes()
	return c
}

// Start serves on addr until ctx is cancelled, then shuts down gracefully.
func (c *Controller) Start(ctx context.Context, addr string, shutdownTimeout time.Duration) error {
	errCh := make(chan error, 1)
	go func() {
		c.log.Info("api listening", logger.String("addr", addr))
		if err := c.Echo.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err, ok := <-errCh:
		if ok {
			return errors.New(err).Component("api").Category(errors.CategoryTransport).Build()
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	c.log.Info("api shutting down")
	if err := c.Echo.Shutdown(shutdownCtx); err != nil {
		return errors.New(err).Component("api").Category(errors.CategoryTransport).Build()
	}
	return nil
}

// HandleError logs err and writes an error envelope with message.
func (c *Controller) HandleError(ctx echo.Context, err error, message string, code int) error {
	fields := []logger.Field{
		logger.String("method", ctx.Request().Method),
		logger.String("path", ctx.Path()),
		logger.Int("status", code),
	}
	if err != nil {
		fields = append(fields, logger.Error(err))
	}
	if code >= http.StatusInternalServerError {
		c.log.Error(message, fields...)
	} else {
		c.log.Debug(message, fields...)
	}
	return ctx.JSON(code, entities.Envelope[any]{Status: entities.StatusError, Message: message})
}

func (c *Controller) authMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(ctx echo.Context) error {
		if c.token == "" {
			return next(ctx)
		}
		got, ok := strings.CutPrefix(ctx.Request().Header.Get(echo.HeaderAuthorization), "Bearer ")
		if !ok || subtle.ConstantTimeCompare([]byte(got), []byte(c.token)) != 1 {
			return c.HandleError(ctx, nil, "Unauthorized", http.StatusUnauthorized)
		}
		return next(ctx)
	}
}

func (c *Controller) metricsMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(ctx echo.Context) error {
		start := time.Now()
		err := next(ctx)
		if err != nil {
			ctx.Error(err)
		}
		route := ctx.Path()
		if route == "" {
			route = "unmatched"
		}
		c.metrics.ObserveHTTP(ctx.Request().Method, route,
			strconv.Itoa(ctx.Response().Status), time.Since(start))
		return nil
	}
}

func (c *Controller) publish(change publish.Change) {
	if c.changes == nil {
		return
	}
	c.changes.Publish(change)
}

func respond[T any](ctx echo.Context, code int, data T) error {
	return ctx.JSON(code, entities.Envelope[T]{Status: entities.StatusSuccess, Data: data})
}
