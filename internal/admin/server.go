package admin

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"thingspeak-uploader/internal/record"
)

// Status is the body of GET /status.
type Status struct {
	Channels     []string      `json:"channels"`
	TimeLimit    float64       `json:"time_limit_s"`
	FreeAPIDelay float64       `json:"free_api_delay_s"`
	Last         []record.Send `json:"last"`
}

type Server struct {
	latest    *record.Latest
	metrics   http.Handler
	channels  []string
	timeLimit time.Duration
	mux       *http.ServeMux
}

// NewServer serves the records collected by latest. metrics may be nil.
func NewServer(latest *record.Latest, metrics http.Handler, channels []string, timeLimit time.Duration) *Server {
	s := &Server{
		latest:    latest,
		metrics:   metrics,
		channels:  channels,
		timeLimit: timeLimit,
		mux:       http.NewServeMux(),
	}
	s.routes()
	return s
}

func (s *Server) routes() {
	s.mux.HandleFunc("/status", s.handleStatus)
	s.mux.HandleFunc("/healthz", s.handleHealth)
	if s.metrics != nil {
		s.mux.Handle("/metrics", s.metrics)
	}
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

// Start listens on addr until ctx is cancelled.
func (s *Server) Start(ctx context.Context, addr string) error {
	srv := &http.Server{Addr: addr, Handler: s.mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()
	return srv.ListenAndServe()
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	st := Status{
		Channels:     s.channels,
		TimeLimit:    s.timeLimit.Seconds(),
		FreeAPIDelay: s.latest.NextDelay().Seconds(),
		Last:         s.latest.Snapshot(),
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(st)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Write([]byte("ok"))
}
