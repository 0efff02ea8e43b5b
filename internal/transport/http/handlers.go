// Package http holds the REST surface of the hub: request submission for
// callers that do not hold a socket, and read-only presence.
package http

import (
	"context"
	"encoding/json"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/dkeye/Chathub/internal/app/presence"
	"github.com/dkeye/Chathub/internal/core"
	"github.com/dkeye/Chathub/internal/domain"
)

const maxBody = 1 << 20

// Hub is the slice of the orchestrator the handlers call.
type Hub interface {
	SubmitEvent(ctx context.Context, user domain.UserID, kind string, payload json.RawMessage) (string, error)
}

type PresenceView interface {
	Snapshot() []presence.Entry
	Count() int
}

type SubmitResponse struct {
	Kind string `json:"kind"`
	ID   string `json:"id,omitempty"`
}

type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type PresenceResponse struct {
	Online int              `json:"online"`
	Users  []presence.Entry `json:"users"`
}

type Handlers struct {
	hub      Hub
	presence PresenceView
}

func NewHandlers(hub Hub, p PresenceView) *Handlers {
	return &Handlers{hub: hub, presence: p}
}

// Register mounts the handlers on r.
func (h *Handlers) Register(r gin.IRoutes) {
	r.POST("/events/:kind", h.SubmitEvent)
	r.GET("/presence", h.Presence)
}

func (h *Handlers) SubmitEvent(c *gin.Context) {
	user := domain.UserID(c.GetString(core.UserContextKey))
	if user == "" {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Code: "unauthenticated", Message: "missing user identity"})
		return
	}
	kind := c.Param("kind")
	body, err := io.ReadAll(io.LimitReader(c.Request.Body, maxBody))
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Code: "validation", Message: "cannot read body"})
		return
	}

	id, err := h.hub.SubmitEvent(c.Request.Context(), user, kind, body)
	if err != nil {
		c.JSON(StatusOf(err), ErrorResponse{Code: domain.Code(err), Message: err.Error()})
		return
	}
	log.Debug().Str("module", "transport.http").Str("user", string(user)).Str("kind", kind).Msg("event submitted")
	c.JSON(http.StatusOK, SubmitResponse{Kind: kind, ID: id})
}

func (h *Handlers) Presence(c *gin.Context) {
	users := h.presence.Snapshot()
	if users == nil {
		users = []presence.Entry{}
	}
	c.JSON(http.StatusOK, PresenceResponse{Online: h.presence.Count(), Users: users})
}

func Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// StatusOf maps a domain error kind to an HTTP status.
func StatusOf(err error) int {
	switch domain.Kind(err) {
	case domain.ErrValidation:
		return http.StatusBadRequest
	case domain.ErrNotFound:
		return http.StatusNotFound
	case domain.ErrPermission:
		return http.StatusForbidden
	case domain.ErrStaleState:
		return http.StatusConflict
	case domain.ErrPersistence:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
