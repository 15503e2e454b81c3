// Package apierror maps domain errors onto the app API's status codes and
// stable error codes.
package apierror

import (
	"errors"
	"net/http"

	"github.com/rs/zerolog/log"

	"github.com/zhouzirui/voxlate/internal/capture"
	"github.com/zhouzirui/voxlate/internal/service/recording"
	sessionstore "github.com/zhouzirui/voxlate/internal/service/session"
	"github.com/zhouzirui/voxlate/pkg/utils"
)

// Codes name the error taxonomy for clients.
const (
	CodeBackendOffline   = "backend_offline"
	CodeBusy             = "busy"
	CodeDeviceBusy       = "device_busy"
	CodeNoActiveCapture  = "no_active_capture"
	CodePermissionDenied = "permission_denied"
	CodeEmptyRecording   = "empty_recording"
	CodeNotProcessing    = "not_processing"
	CodeSessionNotFound  = "session_not_found"
	CodeAudioNotFound    = "audio_not_found"
	CodeStorage          = "storage_failure"
	CodeBadRequest       = "bad_request"
	CodeUnavailable      = "unavailable"
	CodeInternal         = "internal"
)

type mapping struct {
	target  error
	status  int
	code    string
	message string
}

var mappings = []mapping{
	{recording.ErrBackendOffline, http.StatusServiceUnavailable, CodeBackendOffline, "Backend Offline"},
	{recording.ErrBusy, http.StatusConflict, CodeBusy, "Please Wait"},
	{recording.ErrClosed, http.StatusServiceUnavailable, CodeUnavailable, ""},
	{recording.ErrNotProcessing, http.StatusConflict, CodeNotProcessing, ""},
	{capture.ErrDeviceBusy, http.StatusConflict, CodeDeviceBusy, ""},
	{capture.ErrNoActiveCapture, http.StatusConflict, CodeNoActiveCapture, ""},
	{capture.ErrPermissionDenied, http.StatusForbidden, CodePermissionDenied, ""},
	{capture.ErrEmptyRecording, http.StatusUnprocessableEntity, CodeEmptyRecording, ""},
	{sessionstore.ErrSessionNotFound, http.StatusNotFound, CodeSessionNotFound, ""},
	{capture.ErrAudioUnavailable, http.StatusNotFound, CodeAudioNotFound, ""},
	{sessionstore.ErrStorage, http.StatusInternalServerError, CodeStorage, ""},
}

// Classify returns status, code and the user-facing message for err.
func Classify(err error) (int, string, string) {
	for _, m := range mappings {
		if errors.Is(err, m.target) {
			msg := m.message
			if msg == "" {
				msg = err.Error()
			}
			return m.status, m.code, msg
		}
	}
	return http.StatusInternalServerError, CodeInternal, err.Error()
}

// Write responds with the mapped status and {"error","code"} body.
func Write(w http.ResponseWriter, err error) {
	status, code, msg := Classify(err)
	if status >= http.StatusInternalServerError {
		log.Error().Err(err).Str("code", code).Msg("request failed")
	}
	utils.RespondErrorCode(w, status, code, msg)
}

// BadRequest responds 400 with the bad_request code.
func BadRequest(w http.ResponseWriter, msg string) {
	utils.RespondErrorCode(w, http.StatusBadRequest, CodeBadRequest, msg)
}
