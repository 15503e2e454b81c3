package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/zhouzirui/voxlate/internal/handler/events"
	recordinghandler "github.com/zhouzirui/voxlate/internal/handler/recording"
	sessionhandler "github.com/zhouzirui/voxlate/internal/handler/session"
	translatehandler "github.com/zhouzirui/voxlate/internal/handler/translate"
	middlewarePkg "github.com/zhouzirui/voxlate/internal/middleware"
	"github.com/zhouzirui/voxlate/internal/model/session"
	"github.com/zhouzirui/voxlate/internal/service/recording"
)

// NewAppRouter wires the device companion API onto the session manager.
func NewAppRouter(manager *recording.Manager, broadcaster *events.Broadcaster) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middlewarePkg.CORS)

	r.Route("/api", func(api chi.Router) {
		sessionhandler.New(manager).RegisterRoutes(api)
		recordinghandler.New(manager).RegisterRoutes(api)
		events.New(broadcaster, manager).RegisterRoutes(api)
	})

	return r
}

// NewBackendRouter wires the transcription and translation service.
func NewBackendRouter(pipeline translatehandler.Pipeline, defaultTarget session.TargetLanguage) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middlewarePkg.CORS)

	translatehandler.New(pipeline, defaultTarget).RegisterRoutes(r)
	return r
}
