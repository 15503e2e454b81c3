package apierror

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/zhouzirui/voxlate/internal/capture"
	"github.com/zhouzirui/voxlate/internal/service/recording"
	sessionstore "github.com/zhouzirui/voxlate/internal/service/session"
)

func TestClassify(t *testing.T) {
	cases := []struct {
		err    error
		status int
		code   string
		msg    string
	}{
		{recording.ErrBackendOffline, http.StatusServiceUnavailable, CodeBackendOffline, "Backend Offline"},
		{recording.ErrBusy, http.StatusConflict, CodeBusy, "Please Wait"},
		{capture.ErrNoActiveCapture, http.StatusConflict, CodeNoActiveCapture, capture.ErrNoActiveCapture.Error()},
		{fmt.Errorf("start: %w", capture.ErrPermissionDenied), http.StatusForbidden, CodePermissionDenied, "start: " + capture.ErrPermissionDenied.Error()},
		{sessionstore.ErrSessionNotFound, http.StatusNotFound, CodeSessionNotFound, sessionstore.ErrSessionNotFound.Error()},
		{fmt.Errorf("%w: disk full", sessionstore.ErrStorage), http.StatusInternalServerError, CodeStorage, sessionstore.ErrStorage.Error() + ": disk full"},
		{capture.ErrAudioUnavailable, http.StatusNotFound, CodeAudioNotFound, capture.ErrAudioUnavailable.Error()},
		{errors.New("boom"), http.StatusInternalServerError, CodeInternal, "boom"},
	}
	for _, tc := range cases {
		status, code, msg := Classify(tc.err)
		assert.Equal(t, tc.status, status, tc.err.Error())
		assert.Equal(t, tc.code, code, tc.err.Error())
		assert.Equal(t, tc.msg, msg, tc.err.Error())
	}
}
