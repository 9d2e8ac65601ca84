// Package api exposes the bot's operational HTTP surface: health,
// read-only group state, and on-demand sync.
package api

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"tallybot/internal/domain"
	"tallybot/internal/service/membership"
)

// Handler serves the ops API.
type Handler struct {
	members    *membership.Service
	reconciler *membership.Reconciler
}

// NewHandler creates a Handler.
func NewHandler(members *membership.Service, reconciler *membership.Reconciler) *Handler {
	return &Handler{members: members, reconciler: reconciler}
}

// Router builds the chi router for the ops API.
func (h *Handler) Router() chi.Router {
	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.Recoverer)

	r.Get("/healthz", h.health)
	r.Route("/api", func(r chi.Router) {
		r.Get("/groups", h.listGroups)
		r.Get("/groups/{ref}", h.getGroup)
		r.Post("/groups/{chatID}/sync", h.syncGroup)
	})
	return r
}

type groupResponse struct {
	ID                int64     `json:"id"`
	ChatID            int64     `json:"chat_id"`
	Title             string    `json:"title"`
	IsActive          bool      `json:"is_active"`
	UniqueMemberCount int64     `json:"unique_member_count"`
	MaxMemberCount    int64     `json:"max_member_count"`
	AddedAt           time.Time `json:"added_at"`
}

type errorResponse struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func groupToAPI(g domain.Group) groupResponse {
	return groupResponse{
		ID:                g.ID,
		ChatID:            g.ChatID,
		Title:             g.Title,
		IsActive:          g.IsActive,
		UniqueMemberCount: g.UniqueMemberCount,
		MaxMemberCount:    g.MaxMemberCount,
		AddedAt:           g.AddedAt,
	}
}

func (h *Handler) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handler) listGroups(w http.ResponseWriter, r *http.Request) {
	groups, err := h.members.GetActiveGroups(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	out := make([]groupResponse, 0, len(groups))
	for _, g := range groups {
		out = append(out, groupToAPI(g))
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *Handler) getGroup(w http.ResponseWriter, r *http.Request) {
	raw := chi.URLParam(r, "ref")

	var ref domain.GroupRef
	if chatID, err := strconv.ParseInt(raw, 10, 64); err == nil {
		ref = domain.ByChatID(chatID)
	} else {
		ref = domain.ByTitle(raw)
	}

	group, err := h.members.GetGroupByRef(r.Context(), ref)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, groupToAPI(*group))
}

func (h *Handler) syncGroup(w http.ResponseWriter, r *http.Request) {
	chatID, err := strconv.ParseInt(chi.URLParam(r, "chatID"), 10, 64)
	if err != nil {
		writeError(w, domain.ErrValidation("chat id must be numeric"))
		return
	}

	if err := h.reconciler.SyncMembers(r.Context(), chatID); err != nil {
		writeError(w, err)
		return
	}

	group, err := h.members.GetGroupByRef(r.Context(), domain.ByChatID(chatID))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, groupToAPI(*group))
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, err error) {
	status := httpStatusFromDomainError(err)
	writeJSON(w, status, errorResponse{Code: status, Message: err.Error()})
}
