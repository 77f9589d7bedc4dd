package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"golang.org/x/crypto/bcrypt"

	"github.com/vyrodovalexey/scoregw/internal/auth"
	"github.com/vyrodovalexey/scoregw/internal/auth/jwt"
	"github.com/vyrodovalexey/scoregw/internal/observability"
	"github.com/vyrodovalexey/scoregw/internal/store"
	"github.com/vyrodovalexey/scoregw/internal/util"
)

const msgInvalidCredentials = "invalid username or password"

// LoginRequest is the body of POST /login.
type LoginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// LoginResponse is the body returned by a successful login.
type LoginResponse struct {
	Token string `json:"token"`
}

// ScoreRequest is the body of POST /api/set-score.
type ScoreRequest struct {
	PlayerName  string `json:"player_name" binding:"required,min=3,max=20"`
	PlayerScore *int64 `json:"player_score" binding:"required,min=0,max=1000000"`
}

// StatusResponse is the body of successful mutations.
type StatusResponse struct {
	Status string `json:"status"`
}

var statusOK = StatusResponse{Status: "Ok"}

// Health reports the server and database status. It answers 200 even when
// the database is down.
func (h *Handlers) Health(c *gin.Context) {
	c.JSON(http.StatusOK, h.checker.Services(c.Request.Context()))
}

// Login verifies a username and password and returns a bearer credential
// signed with the current secret.
func (h *Handlers) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abort(c, util.KindValidation, "invalid login request: "+err.Error())
		return
	}

	ctx := c.Request.Context()
	user, err := h.state.Store.FindUser(ctx, req.Username)
	if errors.Is(err, store.ErrNotFound) {
		h.state.Logger.Warn("login rejected: unknown user", observability.String("username", req.Username))
		abort(c, util.KindUnauthorized, msgInvalidCredentials)
		return
	}
	if err != nil {
		h.storeFailure(c, "find user", err)
		return
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		h.state.Logger.Warn("login rejected: wrong password", observability.String("username", req.Username))
		abort(c, util.KindUnauthorized, msgInvalidCredentials)
		return
	}

	snap := h.state.Secrets.Snapshot()
	token, err := jwt.IssueWithTTL(user.Username, user.Role, snap.Secret, h.now(), snap.Policy.TokenTTL)
	if err != nil {
		h.state.Logger.Error("failed to issue credential", observability.Error(err))
		abort(c, util.KindInternal, "failed to issue credential")
		return
	}

	c.JSON(http.StatusOK, LoginResponse{Token: token})
}

// GetScores returns the board, highest score first.
func (h *Handlers) GetScores(c *gin.Context) {
	scores, err := h.state.Store.TopScores(c.Request.Context())
	if err != nil {
		h.storeFailure(c, "get scores", err)
		return
	}
	c.JSON(http.StatusOK, scores)
}

// SetScore submits a score. The response is the same whether or not the
// score made it onto the board.
func (h *Handlers) SetScore(c *gin.Context) {
	var req ScoreRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abort(c, util.KindValidation, "invalid score: "+err.Error())
		return
	}

	stored, err := h.state.Store.SubmitScore(c.Request.Context(), store.Score{
		PlayerName:  req.PlayerName,
		PlayerScore: *req.PlayerScore,
	})
	if err != nil {
		h.storeFailure(c, "set score", err)
		return
	}

	h.state.Logger.Debug("score submitted",
		observability.String("player", req.PlayerName),
		observability.Int64("score", *req.PlayerScore),
		observability.Bool("stored", stored),
	)
	c.JSON(http.StatusOK, statusOK)
}

// Flush removes every score. Only callers with the admin role may flush.
func (h *Handlers) Flush(c *gin.Context) {
	claims, ok := auth.ClaimsFromContext(c.Request.Context())
	if !ok || claims.Role != h.state.Config.Auth.AdminRole {
		abort(c, util.KindForbidden, "admin role required")
		return
	}

	if err := h.state.Store.Flush(c.Request.Context()); err != nil {
		h.storeFailure(c, "flush", err)
		return
	}

	h.state.Logger.Info("scores flushed", observability.String("by", claims.Subject))
	c.JSON(http.StatusOK, statusOK)
}

func (h *Handlers) storeFailure(c *gin.Context, op string, err error) {
	h.state.Logger.Error("store operation failed",
		observability.String("op", op),
		observability.Error(err),
	)
	if errors.Is(err, store.ErrUnavailable) {
		abort(c, util.KindUnavailable, "database unavailable")
		return
	}
	abort(c, util.KindDatabase, "database error")
}
