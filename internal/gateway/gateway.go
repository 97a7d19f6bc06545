// Package gateway exposes the agent over HTTP.
package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/cojourney/cjagent/internal/agent"
	"github.com/cojourney/cjagent/internal/memory"
	"github.com/cojourney/cjagent/internal/store"
	"github.com/cojourney/cjagent/internal/worker"
)

// Agent is the part of the runtime the gateway drives.
type Agent interface {
	Receive(ctx context.Context, msg *memory.Message) (*agent.Outcome, error)
	Onboard(ctx context.Context, userID string) (*worker.Handle, error)
}

type messageRequest struct {
	memory.Message
	Token string `json:"token,omitempty"`
}

type newUserRequest struct {
	UserID string `json:"user_id"`
	RoomID string `json:"room_id"`
	Token  string `json:"token,omitempty"`
}

type handler struct {
	agent Agent
	pool  *worker.Pool
	auth  AuthConfig
}

// NewRouter builds the HTTP surface. Message handling is handed to pool and
// the request returns as soon as it is queued; with a nil pool it runs
// inline.
func NewRouter(a Agent, pool *worker.Pool, auth AuthConfig) http.Handler {
	h := &handler{agent: a, pool: pool, auth: auth}

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(cors)
	r.Post("/api/agents/message", h.message)
	r.Post("/api/agents/newuser", h.newUser)
	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "Not found", http.StatusNotFound)
	})
	return r
}

// cors allows every origin and answers preflight requests directly.
func cors(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "*")
		w.Header().Set("Access-Control-Allow-Headers", "*")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// identify resolves the caller from the Authorization header, falling back
// to a token in the body.
func (h *handler) identify(r *http.Request, bodyToken string) (Identity, error) {
	token, ok := bearerToken(r.Header.Get("Authorization"))
	if !ok {
		token = bodyToken
	}
	return h.auth.authenticate(token)
}

func (h *handler) message(w http.ResponseWriter, r *http.Request) {
	var req messageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid body", http.StatusBadRequest)
		return
	}
	id, err := h.identify(r, req.Token)
	if err != nil {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}
	msg := req.Message
	if msg.UserID == "" && !id.Service() {
		msg.UserID = id.Subject
	}
	if msg.UserID == "" || msg.RoomID == "" {
		http.Error(w, "userId and room_id required", http.StatusBadRequest)
		return
	}

	task := func(ctx context.Context) error {
		_, err := h.agent.Receive(ctx, &msg)
		return err
	}
	if h.pool == nil {
		if err := task(r.Context()); err != nil {
			slog.Error("Message handling failed", "room", msg.RoomID, "error", err)
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
	} else if _, err := h.pool.Submit("message "+msg.RoomID, task); err != nil {
		slog.Warn("Message rejected", "room", msg.RoomID, "error", err)
		http.Error(w, "busy", http.StatusServiceUnavailable)
		return
	}
	writeText(w, http.StatusOK, "ok")
}

func (h *handler) newUser(w http.ResponseWriter, r *http.Request) {
	var req newUserRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid body", http.StatusBadRequest)
		return
	}
	id, err := h.identify(r, req.Token)
	if err != nil {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}
	userID := req.UserID
	if userID == "" && !id.Service() {
		userID = id.Subject
	}
	if userID == "" {
		http.Error(w, "user_id required", http.StatusBadRequest)
		return
	}

	if _, err := h.agent.Onboard(r.Context(), userID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			http.Error(w, "Account not found", http.StatusNotFound)
			return
		}
		slog.Error("Onboarding failed", "user", userID, "error", err)
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeText(w, http.StatusOK, "ok")
}

func writeText(w http.ResponseWriter, status int, body string) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write([]byte(body))
}
