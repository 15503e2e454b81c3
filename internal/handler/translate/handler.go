package translate

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	"github.com/zhouzirui/voxlate/internal/model/session"
	speechmodel "github.com/zhouzirui/voxlate/internal/model/speech"
	translatesvc "github.com/zhouzirui/voxlate/internal/service/translate"
	"github.com/zhouzirui/voxlate/pkg/utils"
)

const maxUploadBytes = 32 << 20

// Pipeline abstracts the ASR + translation chain for tests.
type Pipeline interface {
	Run(ctx context.Context, audio []byte, filename string, target session.TargetLanguage) (*speechmodel.TranscribeTranslateResponse, error)
}

// Handler serves the transcription backend endpoints.
type Handler struct {
	pipeline      Pipeline
	defaultTarget string
}

func New(pipeline Pipeline, defaultTarget session.TargetLanguage) *Handler {
	if defaultTarget == "" {
		defaultTarget = session.English
	}
	return &Handler{pipeline: pipeline, defaultTarget: string(defaultTarget)}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Post("/v1/transcribe_translate", h.handleTranscribeTranslate)
	r.Get("/health", h.handleHealth)
}

func (h *Handler) handleHealth(w http.ResponseWriter, _ *http.Request) {
	utils.RespondJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

func (h *Handler) handleTranscribeTranslate(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		utils.RespondDetail(w, http.StatusBadRequest, "Invalid upload: "+err.Error())
		return
	}
	defer r.MultipartForm.RemoveAll()

	rawTarget := r.FormValue("target_lang")
	if strings.TrimSpace(rawTarget) == "" {
		rawTarget = h.defaultTarget
	}
	target, err := translatesvc.ParseTarget(rawTarget)
	if err != nil {
		utils.RespondDetail(w, http.StatusBadRequest, fmt.Sprintf("Unsupported target_lang: %s", rawTarget))
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		utils.RespondDetail(w, http.StatusBadRequest, "Invalid upload: "+err.Error())
		return
	}
	defer file.Close()

	audio, err := io.ReadAll(file)
	if err != nil {
		utils.RespondDetail(w, http.StatusBadRequest, "Invalid upload: "+err.Error())
		return
	}
	if len(audio) == 0 {
		utils.RespondDetail(w, http.StatusBadRequest, "Invalid upload: empty file")
		return
	}

	resp, err := h.pipeline.Run(r.Context(), audio, header.Filename, target)
	if err != nil {
		log.Error().Str("component", "translate").Err(err).Str("filename", header.Filename).Msg("pipeline failed")
		utils.RespondDetail(w, http.StatusInternalServerError, err.Error())
		return
	}

	utils.RespondJSON(w, http.StatusOK, resp)
}
