package session

import (
	"context"
	"fmt"
	"net/http"
	"os"

	"github.com/go-chi/chi/v5"
	json "github.com/goccy/go-json"

	"github.com/zhouzirui/voxlate/internal/capture"
	"github.com/zhouzirui/voxlate/internal/handler/apierror"
	"github.com/zhouzirui/voxlate/internal/model/session"
	"github.com/zhouzirui/voxlate/internal/service/recording"
	"github.com/zhouzirui/voxlate/pkg/utils"
)

// Manager is the subset of the session manager these routes drive.
type Manager interface {
	Snapshot() recording.Snapshot
	Sessions(ctx context.Context) ([]session.Session, error)
	Session(ctx context.Context, id string) (session.Session, error)
	NewSession(ctx context.Context) (session.Session, error)
	SelectSession(ctx context.Context, id string) (session.Session, error)
	DeleteSession(ctx context.Context, id string) (session.Session, error)
	SetTargetLanguage(lang session.TargetLanguage) error
}

// Handler serves session browsing and switching.
type Handler struct {
	manager Manager
}

func New(manager Manager) *Handler {
	return &Handler{manager: manager}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/state", h.handleState)
	r.Put("/target-language", h.handleSetTargetLanguage)
	r.Get("/languages", h.handleLanguages)

	r.Route("/sessions", func(sr chi.Router) {
		sr.Get("/", h.handleList)
		sr.Post("/", h.handleCreate)
		sr.Get("/{sessionID}", h.handleGet)
		sr.Delete("/{sessionID}", h.handleDelete)
		sr.Post("/{sessionID}/activate", h.handleActivate)
		sr.Get("/{sessionID}/messages/{messageID}/audio", h.handleAudio)
	})
}

func (h *Handler) handleState(w http.ResponseWriter, _ *http.Request) {
	utils.RespondJSON(w, http.StatusOK, h.manager.Snapshot())
}

func (h *Handler) handleLanguages(w http.ResponseWriter, _ *http.Request) {
	utils.RespondJSON(w, http.StatusOK, map[string]any{"languages": session.SupportedLanguages()})
}

func (h *Handler) handleSetTargetLanguage(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		TargetLanguage string `json:"targetLanguage"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		apierror.BadRequest(w, "invalid request body")
		return
	}
	if err := h.manager.SetTargetLanguage(session.TargetLanguage(payload.TargetLanguage)); err != nil {
		apierror.BadRequest(w, err.Error())
		return
	}
	utils.RespondJSON(w, http.StatusOK, h.manager.Snapshot())
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	sessions, err := h.manager.Sessions(r.Context())
	if err != nil {
		apierror.Write(w, err)
		return
	}
	utils.RespondJSON(w, http.StatusOK, map[string]any{"sessions": sessions})
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	created, err := h.manager.NewSession(r.Context())
	if err != nil {
		apierror.Write(w, err)
		return
	}
	utils.RespondJSON(w, http.StatusCreated, created)
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	item, err := h.manager.Session(r.Context(), chi.URLParam(r, "sessionID"))
	if err != nil {
		apierror.Write(w, err)
		return
	}
	utils.RespondJSON(w, http.StatusOK, item)
}

func (h *Handler) handleDelete(w http.ResponseWriter, r *http.Request) {
	active, err := h.manager.DeleteSession(r.Context(), chi.URLParam(r, "sessionID"))
	if err != nil {
		apierror.Write(w, err)
		return
	}
	utils.RespondJSON(w, http.StatusOK, map[string]any{"active": active})
}

func (h *Handler) handleActivate(w http.ResponseWriter, r *http.Request) {
	item, err := h.manager.SelectSession(r.Context(), chi.URLParam(r, "sessionID"))
	if err != nil {
		apierror.Write(w, err)
		return
	}
	utils.RespondJSON(w, http.StatusOK, item)
}

// handleAudio streams the recording behind one message for playback.
func (h *Handler) handleAudio(w http.ResponseWriter, r *http.Request) {
	item, err := h.manager.Session(r.Context(), chi.URLParam(r, "sessionID"))
	if err != nil {
		apierror.Write(w, err)
		return
	}

	idx := item.Index(chi.URLParam(r, "messageID"))
	if idx < 0 || item.Messages[idx].AudioURI == "" {
		apierror.Write(w, capture.ErrAudioUnavailable)
		return
	}

	path := capture.Handle{URI: item.Messages[idx].AudioURI}.Path()
	info, err := os.Stat(path)
	if err != nil || info.IsDir() {
		apierror.Write(w, fmt.Errorf("%w: %s", capture.ErrAudioUnavailable, path))
		return
	}
	http.ServeFile(w, r, path)
}
