package ui

import (
	"net/http"
	"os"
	"path/filepath"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/gomarkdown/markdown"
	"github.com/gomarkdown/markdown/html"
	"github.com/gomarkdown/markdown/parser"

	"cellsanity/internal"
)

// Server exposes the evidence artifacts of completed runs over HTTP. It is a
// thin read-only viewer: it serves whatever the batch run wrote to the output
// directory and renders the markdown report as HTML.
type Server struct {
	outDir string
	log    *internal.Logger
}

// NewServer creates a server over an output directory.
func NewServer(outDir string) *Server {
	return &Server{outDir: outDir, log: internal.NewLogger("ui")}
}

// Router builds the HTTP routes.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})
	r.Get("/", s.handleReport)
	r.Get("/report", s.handleReport)

	evidenceDir := http.Dir(filepath.Join(s.outDir, "evidence"))
	r.Handle("/evidence/*", http.StripPrefix("/evidence/", http.FileServer(evidenceDir)))

	figuresDir := http.Dir(filepath.Join(s.outDir, "figures"))
	r.Handle("/figures/*", http.StripPrefix("/figures/", http.FileServer(figuresDir)))

	return r
}

// Listen serves until the process exits.
func (s *Server) Listen(port string) error {
	s.log.Info("serving artifacts from %s on :%s", s.outDir, port)
	return http.ListenAndServe(":"+port, s.Router())
}

// handleReport renders evidence/report.md as HTML.
func (s *Server) handleReport(w http.ResponseWriter, _ *http.Request) {
	md, err := os.ReadFile(filepath.Join(s.outDir, "evidence", "report.md"))
	if err != nil {
		http.Error(w, "no report found - run a validation pass first", http.StatusNotFound)
		return
	}

	p := parser.NewWithExtensions(parser.CommonExtensions | parser.Tables)
	renderer := html.NewRenderer(html.RendererOptions{Flags: html.CommonFlags | html.CompletePage})
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write(markdown.ToHTML(md, p, renderer))
}
