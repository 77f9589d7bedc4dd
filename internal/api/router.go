// Package api contains the business routes of the score gateway. The
// router is the innermost handler of the gateway pipeline: by the time a
// request reaches it, body size, deadline, rate limit and, under /api/,
// the bearer credential have already been checked.
package api

import (
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/vyrodovalexey/scoregw/internal/app"
	"github.com/vyrodovalexey/scoregw/internal/health"
	"github.com/vyrodovalexey/scoregw/internal/util"
)

// Route paths.
const (
	PathHealth    = "/health"
	PathLogin     = "/login"
	PathGetScores = "get-scores"
	PathSetScore  = "set-score"
	PathFlush     = "flush"
)

// Handlers serves the business routes.
type Handlers struct {
	state   *app.State
	checker *health.Checker
	now     func() time.Time
}

// Option configures Handlers.
type Option func(*Handlers)

// WithClock sets the clock used to stamp issued credentials.
func WithClock(now func() time.Time) Option {
	return func(h *Handlers) {
		h.now = now
	}
}

// NewHandlers creates the handlers. checker reports the services for the
// health route.
func NewHandlers(state *app.State, checker *health.Checker, opts ...Option) *Handlers {
	h := &Handlers{
		state:   state,
		checker: checker,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// NewRouter returns a gin engine with every route registered. It carries
// no gin middleware of its own; recovery, logging and the rest run in the
// gateway pipeline around it.
func NewRouter(h *Handlers) *gin.Engine {
	engine := gin.New()

	engine.GET(PathHealth, h.Health)
	engine.POST(PathLogin, h.Login)

	protected := engine.Group(protectedGroup(h.state.Config.Auth.ProtectedPrefix))
	{
		protected.GET(PathGetScores, h.GetScores)
		protected.POST(PathSetScore, h.SetScore)
		protected.DELETE(PathFlush, h.Flush)
	}

	engine.NoRoute(func(c *gin.Context) {
		abort(c, util.KindNotFound, "route not found")
	})

	return engine
}

func protectedGroup(prefix string) string {
	if prefix == "" {
		prefix = "/api/"
	}
	return "/" + strings.Trim(prefix, "/")
}

// abort writes the structured error body and stops the handler chain.
func abort(c *gin.Context, kind util.Kind, message string) {
	status := kind.Status()
	c.AbortWithStatusJSON(status, util.ErrorBody{Status: status, Kind: kind, Message: message})
}
