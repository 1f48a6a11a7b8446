package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/studybuddy/ingestion/internal/api/handlers"
	"github.com/studybuddy/ingestion/internal/api/middleware"
	"github.com/studybuddy/ingestion/internal/ingest"
	"github.com/studybuddy/ingestion/internal/store"
)

type Router struct {
	mux   *chi.Mux
	store *store.Store
	svc   *ingest.Service
}

// NewRouter accepts a nil store/service; the upload and files handlers then
// answer with the "connection not available" 500 and /health reports
// ok=false, instead of the process refusing to start.
func NewRouter(st *store.Store, svc *ingest.Service) *Router {
	return &Router{
		mux:   chi.NewRouter(),
		store: st,
		svc:   svc,
	}
}

func (rt *Router) Setup() http.Handler {
	r := rt.mux

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.Logging)
	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.CORS([]string{"*"}))

	rl := middleware.NewRateLimiter(100, 200)
	r.Use(rl.Limit)

	var probe handlers.HealthProbe
	var reader handlers.FileReader
	if rt.store != nil {
		probe = rt.store
		reader = rt.store
	}

	health := handlers.NewHealthHandler(probe)
	r.Get("/health", health.Health)

	uploadH := handlers.NewUploadHandler(rt.svc)
	r.Post("/upload", uploadH.Upload)
	r.Get("/upload/status", uploadH.Status)

	filesH := handlers.NewFilesHandler(reader)
	r.Get("/files", filesH.List)
	r.Get("/files/chunks", filesH.Chunks)

	return r
}
