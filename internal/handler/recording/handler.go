package recording

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/zhouzirui/voxlate/internal/handler/apierror"
	"github.com/zhouzirui/voxlate/internal/model/session"
	"github.com/zhouzirui/voxlate/internal/service/recording"
	"github.com/zhouzirui/voxlate/pkg/utils"
)

// Manager is the subset of the session manager these routes drive.
type Manager interface {
	Snapshot() recording.Snapshot
	StartRecording(ctx context.Context) error
	StopRecording(ctx context.Context) (session.Message, error)
	CancelProcessing() error
	RefreshHealth(ctx context.Context) bool
}

type Handler struct {
	manager Manager
}

func New(manager Manager) *Handler {
	return &Handler{manager: manager}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/recording", func(rr chi.Router) {
		rr.Post("/start", h.handleStart)
		rr.Post("/stop", h.handleStop)
		rr.Post("/cancel", h.handleCancel)
	})
	r.Post("/health/refresh", h.handleRefreshHealth)
}

func (h *Handler) handleStart(w http.ResponseWriter, r *http.Request) {
	if err := h.manager.StartRecording(r.Context()); err != nil {
		apierror.Write(w, err)
		return
	}
	utils.RespondJSON(w, http.StatusOK, h.manager.Snapshot())
}

// handleStop returns the message appended to the active session: pending while
// the upload runs, or failed when the capture could not be finalized.
func (h *Handler) handleStop(w http.ResponseWriter, r *http.Request) {
	msg, err := h.manager.StopRecording(r.Context())
	if err != nil && msg.ID == "" {
		apierror.Write(w, err)
		return
	}
	status := http.StatusAccepted
	if !msg.IsLoading {
		status = http.StatusOK
	}
	body := map[string]any{"message": msg}
	if err != nil {
		body["error"] = err.Error()
	}
	utils.RespondJSON(w, status, body)
}

func (h *Handler) handleCancel(w http.ResponseWriter, _ *http.Request) {
	if err := h.manager.CancelProcessing(); err != nil {
		apierror.Write(w, err)
		return
	}
	w.WriteHeader(http.StatusAccepted)
}

func (h *Handler) handleRefreshHealth(w http.ResponseWriter, r *http.Request) {
	online := h.manager.RefreshHealth(r.Context())
	utils.RespondJSON(w, http.StatusOK, map[string]bool{"online": online})
}
