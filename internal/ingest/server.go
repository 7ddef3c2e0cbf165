package ingest

import (
	"bytes"
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/andrewjensen/skelly/internal/extract"
	"github.com/andrewjensen/skelly/internal/logging"
)

//go:embed assets/web_ui.html
var webUI []byte

// pageURLHeader carries the captured page's address on /render posts.
const pageURLHeader = "X-Skelly-Page-Url"

// maxRenderBody caps the size of a posted capture.
const maxRenderBody = 16 << 20

// Server accepts page captures over HTTP. A browser extension posts
// raw HTML to /render; the built-in web UI posts an address to
// /navigate and the server fetches the page itself. Extraction runs in
// the handler so malformed input is rejected before a job exists.
type Server struct {
	addr     string
	pipeline *Pipeline
}

func NewServer(addr string, pipeline *Pipeline) *Server {
	return &Server{addr: addr, pipeline: pipeline}
}

// Handler returns the route table. Captures arrive cross-origin from
// arbitrary pages, so every route answers CORS preflight.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /{$}", s.handleIndex)
	mux.HandleFunc("POST /render", s.handleRender)
	mux.HandleFunc("POST /navigate", s.handleNavigate)
	return allowCORS(mux)
}

// ListenAndServe runs the server until ctx is cancelled, then shuts
// down gracefully.
func (s *Server) ListenAndServe(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	logging.Logger().Info("capture server listening", "addr", s.addr)

	errc := make(chan error, 1)
	go func() { errc <- srv.ListenAndServe() }()

	select {
	case <-ctx.Done():
		sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(sctx)
	case err := <-errc:
		return err
	}
}

func allowCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h := w.Header()
		h.Set("Access-Control-Allow-Origin", "*")
		h.Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		h.Set("Access-Control-Allow-Headers", "Content-Type, "+pageURLHeader)
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write(webUI)
}

func (s *Server) handleRender(w http.ResponseWriter, r *http.Request) {
	pageURL := r.Header.Get(pageURLHeader)
	if pageURL == "" {
		http.Error(w, "missing "+pageURLHeader+" header", http.StatusBadRequest)
		return
	}
	base, err := url.Parse(pageURL)
	if err != nil {
		http.Error(w, "invalid page URL", http.StatusBadRequest)
		return
	}

	body := http.MaxBytesReader(w, r.Body, maxRenderBody)
	markdown, err := extract.Extract(body, r.Header.Get("Content-Type"), base)
	if err != nil {
		status := http.StatusBadRequest
		if errors.Is(err, extract.ErrUnsupportedContent) {
			status = http.StatusUnsupportedMediaType
		}
		http.Error(w, err.Error(), status)
		return
	}

	jobID := s.pipeline.Submit(markdown, pageURL)
	logging.Logger().Info("capture accepted", "job", jobID, "url", pageURL)
	writeJob(w, jobID)
}

func (s *Server) handleNavigate(w http.ResponseWriter, r *http.Request) {
	var cmd struct {
		URL string `json:"url"`
	}
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 4096)).Decode(&cmd); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	cmd.URL = strings.TrimSpace(cmd.URL)
	base, err := url.Parse(cmd.URL)
	if err != nil || base.Host == "" || (base.Scheme != "http" && base.Scheme != "https") {
		http.Error(w, "invalid URL", http.StatusBadRequest)
		return
	}

	page, contentType, err := s.pipeline.fetcher.Page(r.Context(), cmd.URL)
	if err != nil {
		logging.Logger().Warn("navigate fetch failed", "url", cmd.URL, "error", err)
		http.Error(w, err.Error(), http.StatusBadGateway)
		return
	}

	markdown, err := extract.Extract(bytes.NewReader(page), contentType, base)
	if err != nil {
		status := http.StatusBadRequest
		if errors.Is(err, extract.ErrUnsupportedContent) {
			status = http.StatusUnsupportedMediaType
		}
		http.Error(w, err.Error(), status)
		return
	}

	jobID := s.pipeline.Submit(markdown, cmd.URL)
	logging.Logger().Info("navigation accepted", "job", jobID, "url", cmd.URL)
	writeJob(w, jobID)
}

func writeJob(w http.ResponseWriter, jobID uuid.UUID) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"job": jobID.String()})
}
