package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"conversation-store/internal/infra/metrics"
	"conversation-store/internal/usecase"
)

// DefaultMaxUploadBytes bounds multipart bodies accepted by /api/v1/upload.
const DefaultMaxUploadBytes = 32 << 20

type Options struct {
	RequestTimeout time.Duration
	MaxUploadBytes int64
}

// Server exposes the conversation store and chat operations over HTTP.
type Server struct {
	conv   usecase.ConversationUseCase
	chat   usecase.ChatUseCase
	log    *zerolog.Logger
	opts   Options
	server *http.Server
}

func NewServer(conv usecase.ConversationUseCase, chat usecase.ChatUseCase, opts Options, logger *zerolog.Logger) *Server {
	if opts.MaxUploadBytes <= 0 {
		opts.MaxUploadBytes = DefaultMaxUploadBytes
	}
	l := logger.With().Str("component", "HTTPServer").Logger()
	return &Server{conv: conv, chat: chat, opts: opts, log: &l}
}

// Routes builds the router. Handlers only translate HTTP to use case calls.
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(TraceID(s.log), RequestLog(s.log), Recover(s.log))

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})
	r.Method(http.MethodGet, "/metrics", metrics.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(Timeout(s.opts.RequestTimeout))

		r.Route("/conversations", func(r chi.Router) {
			r.Get("/", s.listConversations)
			r.Post("/", s.createConversation)
			r.Get("/current", s.currentConversation)
			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", s.getConversation)
				r.Delete("/", s.deleteConversation)
				r.Post("/select", s.selectConversation)
				r.Post("/messages", s.appendMessage)
			})
		})
		r.Post("/chat", s.sendMessage)
		r.Post("/upload", s.uploadFile)
	})
	return r
}

// Start blocks serving on port until Shutdown is called.
func (s *Server) Start(port int) error {
	s.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           s.Routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	s.log.Info().Int("port", port).Msg("HTTP server listening")
	if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}
