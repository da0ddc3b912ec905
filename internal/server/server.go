// Package server is the HTTP surface: the rendered pages, the modal
// session API, the websocket refresh channel and health.
package server

import (
	"context"
	"embed"
	"fmt"
	"html/template"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/lite-tech/briefings/internal/config"
	"github.com/lite-tech/briefings/internal/content"
	"github.com/lite-tech/briefings/internal/events"
	"github.com/lite-tech/briefings/internal/feed"
	"github.com/lite-tech/briefings/internal/middleware"
	"github.com/lite-tech/briefings/internal/submission"
)

//go:embed templates/*.html
var templateFS embed.FS

//go:embed static
var staticFS embed.FS

type Server struct {
	cfg       *config.Config
	client    *content.Client
	assembler *feed.Assembler
	store     *submission.Store
	logger    *slog.Logger

	hub         *hub
	tmpl        *template.Template
	router      chi.Router
	http        *http.Server
	unsubscribe func()
}

func New(cfg *config.Config, client *content.Client, assembler *feed.Assembler, store *submission.Store, bus *events.Bus, logger *slog.Logger) (*Server, error) {
	funcs := template.FuncMap{
		// Inline style values; html/template would otherwise refuse
		// computed backgrounds.
		"css": func(v string) template.CSS { return template.CSS(v) },
	}
	tmpl, err := template.New("").Funcs(funcs).ParseFS(templateFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("parse templates: %w", err)
	}

	s := &Server{
		cfg:       cfg,
		client:    client,
		assembler: assembler,
		store:     store,
		logger:    logger,
		hub:       newHub(logger),
		tmpl:      tmpl,
	}

	// A finished submission drops the post cache and repaints every
	// open page.
	s.unsubscribe = bus.Subscribe(func(e events.FeedRefreshed) {
		client.Refresh()
		s.hub.broadcast(e)
	})

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Logging(logger))

	r.Get("/", s.handleHome)
	r.Handle("/static/*", http.FileServer(http.FS(staticFS)))
	r.Get("/blog/{slug}", s.handleArticle)
	r.Get("/health", s.handleHealth)
	r.Get("/ws", s.handleWS)

	r.Route("/api/submissions", func(r chi.Router) {
		r.Post("/", s.handleOpenSubmission)
		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", s.handleSubmissionState)
			r.Delete("/", s.handleCloseSubmission)
			r.Put("/title", s.handleSubmissionTitle)
			r.Post("/file", s.handleSubmissionFile)
			r.Post("/confirm", s.handleSubmissionConfirm)
			r.Post("/retry", s.handleSubmissionRetry)
			r.Post("/done", s.handleSubmissionDone)
		})
	})

	s.router = r
	return s, nil
}

// Handler exposes the routing tree, mostly for tests.
func (s *Server) Handler() http.Handler { return s.router }

func (s *Server) Start() error {
	s.http = &http.Server{
		Addr:         ":" + s.cfg.Port,
		Handler:      s.router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
	}
	s.logger.Info("server listening", "port", s.cfg.Port)
	if err := s.http.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	s.unsubscribe()
	s.hub.closeAll()
	if s.http == nil {
		return nil
	}
	return s.http.Shutdown(ctx)
}

// RefreshBroadcaster relays a finished submission's related posts to
// the in-process bus and, when configured, to RabbitMQ. The bus is the
// authoritative channel; publisher failures are logged and swallowed so
// a broker outage never breaks the modal flow.
type RefreshBroadcaster struct {
	Bus       *events.Bus
	Publisher events.Publisher
	Logger    *slog.Logger
}

func (b *RefreshBroadcaster) RelatedRefreshed(ctx context.Context, posts []content.RelatedPost) error {
	e := events.NewFeedRefreshed(posts)
	if b.Publisher != nil {
		if err := b.Publisher.PublishFeedRefreshed(ctx, e); err != nil {
			b.Logger.Error("publish refresh event", "error", err)
		}
	}
	return b.Bus.PublishFeedRefreshed(ctx, e)
}

var _ submission.Broadcaster = (*RefreshBroadcaster)(nil)
