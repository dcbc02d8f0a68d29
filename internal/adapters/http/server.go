// Package http exposes a component tree over HTTP: its spaces, a states
// snapshot, action dispatch, reset and stepping.
package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/san-kum/bulletx/internal/attr"
	"github.com/san-kum/bulletx/internal/engine"
	"github.com/san-kum/bulletx/internal/robot"
	"github.com/san-kum/bulletx/internal/space"
)

// Tree is the tree surface the server drives. scene.Scene implements it.
type Tree interface {
	StateSpace() (space.Dict, error)
	ActionSpace() (space.Dict, error)
	States() (attr.Map, error)
	Dispatch(actions attr.Map, mode robot.Mode) ([]string, error)
	Reset() error
	Step(ctx context.Context) error
	Time() float64
	Summary() (string, error)
}

type Server struct {
	Tree Tree
	// Mode is used when a request names none.
	Mode   robot.Mode
	Logger *slog.Logger
}

type Option func(*handlerConfig)

type handlerConfig struct {
	mode     robot.Mode
	logger   *slog.Logger
	gatherer prometheus.Gatherer
}

func WithMode(m robot.Mode) Option {
	return func(c *handlerConfig) { c.mode = m }
}

func WithLogger(l *slog.Logger) Option {
	return func(c *handlerConfig) { c.logger = l }
}

// WithMetrics serves g on /metrics.
func WithMetrics(g prometheus.Gatherer) Option {
	return func(c *handlerConfig) { c.gatherer = g }
}

// NewHandler routes:
//
//	GET  /spaces/state   state space
//	GET  /spaces/action  action space
//	GET  /states         snapshot, or one entry with ?path=a.b
//	POST /actions        dispatch a JSON request, ?mode=strict|lenient
//	POST /reset          reset the tree
//	POST /step           advance ?n= steps, default 1
//	GET  /summary        text summary
func NewHandler(tree Tree, opts ...Option) http.Handler {
	cfg := handlerConfig{logger: slog.New(slog.NewTextHandler(io.Discard, nil))}
	for _, opt := range opts {
		opt(&cfg)
	}
	s := &Server{Tree: tree, Mode: cfg.mode, Logger: cfg.logger}

	r := chi.NewRouter()
	r.Route("/spaces", func(r chi.Router) {
		r.Get("/state", s.StateSpace)
		r.Get("/action", s.ActionSpace)
	})
	r.Get("/states", s.States)
	r.Post("/actions", s.Actions)
	r.Post("/reset", s.Reset)
	r.Post("/step", s.Step)
	r.Get("/summary", s.Summary)
	if cfg.gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(cfg.gatherer, promhttp.HandlerOpts{}))
	}
	return r
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.Logger.Error("response encode failed", "error", err)
	}
}

type errorResponse struct {
	Error     string   `json:"error"`
	Unmatched []string `json:"unmatched,omitempty"`
}

func (s *Server) fail(w http.ResponseWriter, op string, err error) {
	status := http.StatusInternalServerError
	resp := errorResponse{Error: err.Error()}
	var unmatched *robot.UnmatchedError
	switch {
	case errors.As(err, &unmatched):
		status = http.StatusUnprocessableEntity
		resp.Unmatched = unmatched.Paths
	case errors.Is(err, robot.ErrNotMapping),
		errors.Is(err, robot.ErrBadAction),
		errors.Is(err, engine.ErrLengthMismatch):
		status = http.StatusBadRequest
	case errors.Is(err, context.Canceled):
		status = http.StatusServiceUnavailable
	}
	if status >= 500 {
		s.Logger.Error(op+" failed", "error", err)
	} else {
		s.Logger.Warn(op+" rejected", "error", err)
	}
	s.writeJSON(w, status, resp)
}

func (s *Server) StateSpace(w http.ResponseWriter, r *http.Request) {
	d, err := s.Tree.StateSpace()
	if err != nil {
		s.fail(w, "state space", err)
		return
	}
	s.writeJSON(w, http.StatusOK, Describe(d))
}

func (s *Server) ActionSpace(w http.ResponseWriter, r *http.Request) {
	d, err := s.Tree.ActionSpace()
	if err != nil {
		s.fail(w, "action space", err)
		return
	}
	s.writeJSON(w, http.StatusOK, Describe(d))
}

func (s *Server) States(w http.ResponseWriter, r *http.Request) {
	st, err := s.Tree.States()
	if err != nil {
		s.fail(w, "states", err)
		return
	}
	path := r.URL.Query().Get("path")
	if path == "" {
		s.writeJSON(w, http.StatusOK, st)
		return
	}
	v, ok := st.Lookup(path)
	if !ok {
		s.writeJSON(w, http.StatusNotFound, errorResponse{Error: fmt.Sprintf("no state at %q", path)})
		return
	}
	s.writeJSON(w, http.StatusOK, v)
}

type actionsResponse struct {
	Unmatched []string `json:"unmatched"`
}

func (s *Server) Actions(w http.ResponseWriter, r *http.Request) {
	mode := s.Mode
	if q := r.URL.Query().Get("mode"); q != "" {
		m, err := robot.ParseMode(q)
		if err != nil {
			s.writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
			return
		}
		mode = m
	}

	var body map[string]any
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		s.writeJSON(w, http.StatusBadRequest, errorResponse{Error: "request body must be a JSON object"})
		s.Logger.Warn("actions: invalid request body", "error", err)
		return
	}

	unmatched, err := s.Tree.Dispatch(attr.From(body), mode)
	if err != nil {
		s.fail(w, "actions", err)
		return
	}
	if unmatched == nil {
		unmatched = []string{}
	}
	s.writeJSON(w, http.StatusOK, actionsResponse{Unmatched: unmatched})
}

func (s *Server) Reset(w http.ResponseWriter, r *http.Request) {
	if err := s.Tree.Reset(); err != nil {
		s.fail(w, "reset", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type stepResponse struct {
	Steps int     `json:"steps"`
	Time  float64 `json:"time"`
}

func (s *Server) Step(w http.ResponseWriter, r *http.Request) {
	n := 1
	if q := r.URL.Query().Get("n"); q != "" {
		v, err := strconv.Atoi(q)
		if err != nil || v < 1 {
			s.writeJSON(w, http.StatusBadRequest, errorResponse{Error: fmt.Sprintf("n must be a positive integer, got %q", q)})
			return
		}
		n = v
	}
	for i := 0; i < n; i++ {
		if err := s.Tree.Step(r.Context()); err != nil {
			s.fail(w, "step", err)
			return
		}
	}
	s.writeJSON(w, http.StatusOK, stepResponse{Steps: n, Time: s.Tree.Time()})
}

func (s *Server) Summary(w http.ResponseWriter, r *http.Request) {
	text, err := s.Tree.Summary()
	if err != nil {
		s.fail(w, "summary", err)
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	fmt.Fprint(w, text)
}

// BoxJSON is the wire form of a Box. Infinite bounds are null.
type BoxJSON struct {
	Type  string     `json:"type"`
	Shape []int      `json:"shape"`
	Low   []*float64 `json:"low"`
	High  []*float64 `json:"high"`
}

// Describe converts a space into values encoding/json can write.
func Describe(s space.Space) any {
	switch t := s.(type) {
	case space.Dict:
		out := make(map[string]any, len(t))
		for k, v := range t {
			out[k] = Describe(v)
		}
		return out
	case *space.Box:
		shape := t.Shape()
		if shape == nil {
			shape = []int{}
		}
		return BoxJSON{Type: "box", Shape: shape, Low: finite(t.Low), High: finite(t.High)}
	case space.Discrete:
		return map[string]any{"type": "discrete", "n": t.N}
	case space.MultiBinary:
		return map[string]any{"type": "multi_binary", "n": t.N}
	default:
		return map[string]any{"type": s.String()}
	}
}

func finite(v []float64) []*float64 {
	out := make([]*float64, len(v))
	for i := range v {
		if !math.IsInf(v[i], 0) {
			out[i] = &v[i]
		}
	}
	return out
}
