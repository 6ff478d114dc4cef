package httpapi

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/shareef6907/BahrainNights-sub013/internal/auth"
	"github.com/shareef6907/BahrainNights-sub013/internal/globaltime"
)

// runGuard keeps a second trigger in this process from starting an
// overlapping run.
type runGuard struct {
	mu        sync.Mutex
	running   bool
	startedAt time.Time
}

func (g *runGuard) tryStart(now time.Time) (time.Time, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.running {
		return g.startedAt, false
	}
	g.running = true
	g.startedAt = now
	return now, true
}

func (g *runGuard) finish() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.running = false
	g.startedAt = time.Time{}
}

func (g *runGuard) status() (bool, time.Time) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.running, g.startedAt
}

func (s *Server) requireCronAuth(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		method := s.authorizer.Authorize(c.Request())
		if method == auth.MethodNone {
			s.logger.Warn().
				Str("remote_ip", c.RealIP()).
				Str("path", c.Request().URL.Path).
				Msg("rejected unauthorized cron trigger")
			return failUnauthorized(c)
		}
		c.Set("auth_method", string(method))
		return next(c)
	}
}

// handleSyncEvents runs one sync and answers with its summary. A trigger that
// arrives while this process is already running a sync gets 409 with the
// in-flight start time. The guard covers this process only; runs started by
// other instances can still overlap and rely on idempotent upserts.
func (s *Server) handleSyncEvents(c echo.Context) error {
	startedAt, ok := s.guard.tryStart(globaltime.UTC())
	if !ok {
		return fail(c, http.StatusConflict, "Sync already running", map[string]any{
			"started_at": startedAt,
		})
	}
	defer s.guard.finish()

	// The run outlives a dropped scheduler connection but not the sync budget.
	ctx, cancel := context.WithTimeout(context.WithoutCancel(c.Request().Context()), s.opts.SyncTimeout)
	defer cancel()

	authMethod, _ := c.Get("auth_method").(string)
	s.logger.Info().Str("auth_method", authMethod).Msg("sync triggered")

	summary, err := s.runner.Run(ctx)
	if err != nil {
		s.logger.Error().Err(err).Msg("sync run failed to start")
		return internalError(c, "Sync run failed")
	}
	return success(c, summary)
}
