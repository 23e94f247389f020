package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/rs/cors"
	"go.uber.org/zap"

	"github.com/pbaille/promptvault/internal/capture"
	"github.com/pbaille/promptvault/internal/domain"
	"github.com/pbaille/promptvault/internal/export"
	"github.com/pbaille/promptvault/internal/fetcher"
	"github.com/pbaille/promptvault/internal/router"
)

// maxRequestBody caps request bodies; captured pages can be large
const maxRequestBody = 10 * 1024 * 1024

// shutdownTimeout bounds graceful shutdown
const shutdownTimeout = 10 * time.Second

// Server handles HTTP requests for the prompt vault API
type Server struct {
	router   *router.Router
	capturer *capture.Capturer
	exporter *export.Exporter
	addr     string
	log      *zap.Logger
}

// New creates a new API server
func New(rt *router.Router, c *capture.Capturer, e *export.Exporter, addr string, log *zap.Logger) *Server {
	if log == nil {
		log = zap.NewNop()
	}
	return &Server{
		router:   rt,
		capturer: c,
		exporter: e,
		addr:     addr,
		log:      log,
	}
}

// Handler returns the full middleware-wrapped handler
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /messages", s.handleMessage)
	mux.HandleFunc("POST /capture", s.capturePage)
	mux.HandleFunc("GET /export", s.exportDocument)
	mux.HandleFunc("POST /import", s.importDocument)

	// Health check
	mux.HandleFunc("GET /health", s.health)

	c := cors.New(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Content-Type", "X-Request-ID"},
		ExposedHeaders: []string{"X-Request-ID", "Content-Disposition"},
	})
	return s.withLogging(c.Handler(mux))
}

// Serve listens on the configured address until ctx is cancelled
func (s *Server) Serve(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", s.addr, err)
	}
	return s.serve(ctx, ln)
}

func (s *Server) serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.Info("starting server", zap.String("addr", ln.Addr().String()))
		errCh <- srv.Serve(ln)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	s.log.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleMessage(w http.ResponseWriter, r *http.Request) {
	var req router.Request
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.RequestID == "" {
		req.RequestID = requestID(r)
	}

	writeJSON(w, http.StatusOK, s.router.Handle(r.Context(), req))
}

// CaptureRequest is the request body for capturing a page
type CaptureRequest struct {
	URL  string `json:"url"`
	HTML string `json:"html"`
}

func (s *Server) capturePage(w http.ResponseWriter, r *http.Request) {
	var req CaptureRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if strings.TrimSpace(req.URL) == "" {
		writeError(w, http.StatusBadRequest, "url is required")
		return
	}

	var (
		p   *domain.Prompt
		err error
	)
	if req.HTML != "" {
		p, err = s.capturer.Capture(r.Context(), req.URL, strings.NewReader(req.HTML))
	} else {
		p, err = s.capturer.CaptureURL(r.Context(), req.URL)
	}

	switch {
	case err == nil:
		writeJSON(w, http.StatusCreated, map[string]any{"success": true, "prompt": p})
	case errors.Is(err, capture.ErrUnsupportedSite),
		errors.Is(err, capture.ErrNothingCaptured),
		errors.Is(err, capture.ErrSaveFailed),
		errors.Is(err, fetcher.ErrTooLarge):
		writeError(w, http.StatusUnprocessableEntity, err.Error())
	default:
		writeError(w, http.StatusBadGateway, err.Error())
	}
}

func (s *Server) exportDocument(w http.ResponseWriter, r *http.Request) {
	doc, err := s.exporter.Export(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, export.Filename(doc.ExportDate)))
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.Encode(doc)
}

func (s *Server) importDocument(w http.ResponseWriter, r *http.Request) {
	res, err := s.exporter.Import(r.Context(), http.MaxBytesReader(w, r.Body, maxRequestBody))
	if err != nil {
		if errors.Is(err, export.ErrInvalidDocument) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"prompts": res.Prompts,
		"folders": res.Folders,
		"tags":    res.Tags,
	})
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) error {
	return json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBody)).Decode(v)
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]any{"success": false, "error": message})
}
