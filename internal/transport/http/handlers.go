package http

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"

	"github.com/UserDirectory/internal/app"
	"github.com/UserDirectory/internal/domain"
	"github.com/gorilla/mux"
)

const (
	AvatarSizeList   = 40
	AvatarSizeDetail = 100
)

type Handler struct {
	registry      *app.SessionRegistry
	avatarBaseURL string
}

type sessionResponse struct {
	ID   string   `json:"id"`
	View app.View `json:"view"`
}

type endReachedResponse struct {
	Triggered bool     `json:"triggered"`
	View      app.View `json:"view"`
}

type searchRequest struct {
	Term string `json:"term"`
}

type userDetailResponse struct {
	User      domain.User `json:"user"`
	AvatarURL string      `json:"avatar_url"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// AvatarURL builds the display avatar for name at size pixels.
func AvatarURL(baseURL, name string, size int) string {
	return baseURL + "?name=" + url.QueryEscape(name) + "&size=" + strconv.Itoa(size) + "&background=random"
}

// Fetch failures are reported through the view's error message, so the
// handlers below ignore the errors returned by screen operations.

func (h *Handler) Mount(w http.ResponseWriter, r *http.Request) {
	screen, err := h.registry.Mount(detach(r))
	if err != nil {
		slog.Warn("Initial load failed", "session_id", screen.ID(), "error", err)
	}
	writeJSON(w, http.StatusCreated, sessionResponse{ID: screen.ID(), View: screen.View()})
}

func (h *Handler) View(w http.ResponseWriter, r *http.Request) {
	screen, ok := h.screen(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, sessionResponse{ID: screen.ID(), View: screen.View()})
}

func (h *Handler) Unmount(w http.ResponseWriter, r *http.Request) {
	if err := h.registry.Unmount(mux.Vars(r)["id"]); err != nil {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) EndReached(w http.ResponseWriter, r *http.Request) {
	screen, ok := h.screen(w, r)
	if !ok {
		return
	}
	triggered, _ := screen.OnEndReached(detach(r))
	writeJSON(w, http.StatusOK, endReachedResponse{Triggered: triggered, View: screen.View()})
}

func (h *Handler) Refresh(w http.ResponseWriter, r *http.Request) {
	screen, ok := h.screen(w, r)
	if !ok {
		return
	}
	_ = screen.Refresh(detach(r))
	writeJSON(w, http.StatusOK, sessionResponse{ID: screen.ID(), View: screen.View()})
}

func (h *Handler) Retry(w http.ResponseWriter, r *http.Request) {
	screen, ok := h.screen(w, r)
	if !ok {
		return
	}
	_ = screen.Retry(detach(r))
	writeJSON(w, http.StatusOK, sessionResponse{ID: screen.ID(), View: screen.View()})
}

func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	screen, ok := h.screen(w, r)
	if !ok {
		return
	}
	var req searchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid search body")
		return
	}
	screen.SetSearch(req.Term)
	writeJSON(w, http.StatusAccepted, sessionResponse{ID: screen.ID(), View: screen.View()})
}

func (h *Handler) UserDetail(w http.ResponseWriter, r *http.Request) {
	screen, ok := h.screen(w, r)
	if !ok {
		return
	}
	id, err := strconv.Atoi(mux.Vars(r)["userID"])
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid user id")
		return
	}
	user, found := screen.User(id)
	if !found {
		writeError(w, http.StatusNotFound, "user not found")
		return
	}
	writeJSON(w, http.StatusOK, userDetailResponse{
		User:      user,
		AvatarURL: AvatarURL(h.avatarBaseURL, user.Name, AvatarSizeDetail),
	})
}

func (h *Handler) screen(w http.ResponseWriter, r *http.Request) (*app.Screen, bool) {
	screen, err := h.registry.Get(mux.Vars(r)["id"])
	if errors.Is(err, app.ErrSessionNotFound) {
		writeError(w, http.StatusNotFound, err.Error())
		return nil, false
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return nil, false
	}
	return screen, true
}

// detach keeps request values for tracing but lets an in-flight fetch
// finish after the client goes away, so its result can still be applied
// or discarded by the controller.
func detach(r *http.Request) context.Context {
	return context.WithoutCancel(r.Context())
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		slog.Error("Failed to encode response", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorResponse{Error: message})
}
