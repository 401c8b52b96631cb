package admin

import (
	"context"
	"embed"
	"encoding/json"
	"errors"
	"html/template"
	"log/slog"
	"net"
	"net/http"
	"time"

	"l3vpn-sweep/internal/logging"
	"l3vpn-sweep/internal/results"
	"l3vpn-sweep/internal/sweep"
)

// ProgressSource reports the state of a running sweep.
type ProgressSource interface {
	Progress() sweep.Progress
}

type Server struct {
	Source ProgressSource
	tpl    *template.Template
	mux    *http.ServeMux
}

//go:embed templates/index.html
var content embed.FS

func NewServer(src ProgressSource) *Server {
	funcs := template.FuncMap{
		"pct": func(p sweep.Progress) float64 {
			if p.Total == 0 {
				return 0
			}
			return 100 * float64(p.Done) / float64(p.Total)
		},
	}
	tpl := template.Must(template.New("index.html").Funcs(funcs).ParseFS(content, "templates/index.html"))
	s := &Server{Source: src, tpl: tpl, mux: http.NewServeMux()}
	s.routes()
	return s
}

func (s *Server) routes() {
	s.mux.HandleFunc("/", s.handleIndex)
	s.mux.HandleFunc("/progress", s.handleProgress)
	s.mux.HandleFunc("/points", s.handlePoints)
}

// Handler exposes the routes for embedding and tests.
func (s *Server) Handler() http.Handler { return s.mux }

// Start serves on addr until ctx is done.
func (s *Server) Start(ctx context.Context, addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	return s.Serve(ctx, ln)
}

// Serve serves on ln until ctx is done, then shuts down gracefully.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	log := logging.FromContext(ctx)
	srv := &http.Server{Handler: s.mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Warn("admin shutdown", "err", err)
		}
	}()
	log.Info("admin UI listening", "addr", ln.Addr().String())
	if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	p := s.Source.Progress()
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := s.tpl.Execute(w, p); err != nil {
		slog.Default().Error("render index", "err", err)
	}
}

func (s *Server) handleProgress(w http.ResponseWriter, r *http.Request) {
	p := s.Source.Progress()
	p.Points = nil
	writeJSON(w, p)
}

// handlePoints lists the points so far, optionally filtered by
// ?modality=, ?protocol= and ?metric=.
func (s *Server) handlePoints(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	if m := q.Get("metric"); m != "" {
		if _, err := results.ParseMetric(m); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
	}
	points := []results.PointRow{}
	for _, p := range s.Source.Progress().Points {
		if v := q.Get("modality"); v != "" && p.Modality != v {
			continue
		}
		if v := q.Get("protocol"); v != "" && p.Protocol != v {
			continue
		}
		if v := q.Get("metric"); v != "" && string(p.Metric) != v {
			continue
		}
		points = append(points, p)
	}
	writeJSON(w, points)
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(v)
}
