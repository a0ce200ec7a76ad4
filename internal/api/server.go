// Package api serves the monitoring HTTP API: pipeline counters, the
// running configuration, the frame publish log, and the latest composited
// canvas.
package api

import (
	"image/png"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/banshee-data/bev.report/internal/bev"
	"github.com/banshee-data/bev.report/internal/bev/bevview"
	"github.com/banshee-data/bev.report/internal/bev/network"
	"github.com/banshee-data/bev.report/internal/db"
	"github.com/banshee-data/bev.report/internal/httputil"
	"github.com/banshee-data/bev.report/internal/monitoring"
)

// ANSI escape codes for request logging
const colorCyan = "\033[36m"
const colorReset = "\033[0m"
const colorYellow = "\033[33m"
const colorBoldGreen = "\033[1;32m"
const colorBoldRed = "\033[1;31m"

type Server struct {
	pipeline  *bev.Pipeline
	ingest    *network.IngestStats
	publisher *bevview.Publisher
	store     *db.DB
	cfg       *bev.Config

	mu        sync.RWMutex
	lastFrame *bev.CompositeFrame
}

// NewServer wires the monitor API to its data sources. ingest, publisher,
// and store may be nil (offline tools); the corresponding fields are simply
// omitted from responses.
func NewServer(pipeline *bev.Pipeline, ingest *network.IngestStats, publisher *bevview.Publisher, store *db.DB, cfg *bev.Config) *Server {
	return &Server{
		pipeline:  pipeline,
		ingest:    ingest,
		publisher: publisher,
		store:     store,
		cfg:       cfg,
	}
}

// OnFrame records the most recent composite frame for /api/frame.png.
// Wire it into the pipeline's publish callback.
func (s *Server) OnFrame(frame *bev.CompositeFrame) {
	s.mu.Lock()
	s.lastFrame = frame
	s.mu.Unlock()
}

type loggingResponseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (lrw *loggingResponseWriter) WriteHeader(code int) {
	lrw.statusCode = code
	lrw.ResponseWriter.WriteHeader(code)
}

func (lrw *loggingResponseWriter) Flush() {
	if flusher, ok := lrw.ResponseWriter.(http.Flusher); ok {
		flusher.Flush()
	}
}

func statusCodeColor(statusCode int) string {
	switch {
	case statusCode >= 200 && statusCode < 300:
		return colorBoldGreen + strconv.Itoa(statusCode) + colorReset
	case statusCode >= 300 && statusCode < 400:
		return colorYellow + strconv.Itoa(statusCode) + colorReset
	case statusCode >= 400:
		return colorBoldRed + strconv.Itoa(statusCode) + colorReset
	default:
		return strconv.Itoa(statusCode)
	}
}

// LoggingMiddleware logs method, path, status, and duration.
func LoggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		lrw := &loggingResponseWriter{w, http.StatusOK}
		next.ServeHTTP(lrw, r)
		monitoring.Logf(
			"[%s] %s %s%s%s %vms",
			statusCodeColor(lrw.statusCode), r.Method,
			colorCyan, r.RequestURI, colorReset,
			float64(time.Since(start).Nanoseconds())/1e6,
		)
	})
}

func (s *Server) ServeMux() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/stats", s.showStats)
	mux.HandleFunc("/api/config", s.showConfig)
	mux.HandleFunc("/api/frames", s.listFrames)
	mux.HandleFunc("/api/cameras", s.listCameras)
	mux.HandleFunc("/api/frame.png", s.serveFramePNG)
	mux.HandleFunc("/debug/charts/frames", s.frameChart)
	return mux
}

type statsResponse struct {
	Pipeline  bev.StatsSnapshot `json:"pipeline"`
	Ingest    *ingestSnapshot   `json:"ingest,omitempty"`
	Publisher *publisherStats   `json:"publisher,omitempty"`
}

type ingestSnapshot struct {
	Packets      int64 `json:"packets"`
	Bytes        int64 `json:"bytes"`
	DecodeErrors int64 `json:"decode_errors"`
}

type publisherStats struct {
	FrameCount    uint64 `json:"frame_count"`
	ClientCount   int32  `json:"client_count"`
	DroppedFrames uint64 `json:"dropped_frames"`
	Running       bool   `json:"running"`
}

func (s *Server) showStats(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httputil.MethodNotAllowed(w)
		return
	}
	resp := statsResponse{Pipeline: s.pipeline.Stats().Snapshot()}
	if s.ingest != nil {
		packets, bytes, decodeErrors := s.ingest.Snapshot()
		resp.Ingest = &ingestSnapshot{Packets: packets, Bytes: bytes, DecodeErrors: decodeErrors}
	}
	if s.publisher != nil {
		ps := s.publisher.Stats()
		resp.Publisher = &publisherStats{
			FrameCount:    ps.FrameCount,
			ClientCount:   ps.ClientCount,
			DroppedFrames: ps.DroppedFrames,
			Running:       ps.Running,
		}
	}
	httputil.WriteJSONOK(w, resp)
}

func (s *Server) showConfig(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httputil.MethodNotAllowed(w)
		return
	}
	httputil.WriteJSONOK(w, s.cfg)
}

func (s *Server) listFrames(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httputil.MethodNotAllowed(w)
		return
	}
	if s.store == nil {
		httputil.NotFound(w, "frame log not configured")
		return
	}
	limit := 100
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 || n > 10000 {
			httputil.BadRequest(w, "limit must be a positive integer up to 10000")
			return
		}
		limit = n
	}
	records, err := s.store.RecentFrames(limit)
	if err != nil {
		httputil.InternalServerError(w, err.Error())
		return
	}
	httputil.WriteJSONOK(w, records)
}

func (s *Server) listCameras(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httputil.MethodNotAllowed(w)
		return
	}
	if s.store == nil {
		httputil.NotFound(w, "calibration store not configured")
		return
	}
	cams, err := s.store.Cameras()
	if err != nil {
		httputil.InternalServerError(w, err.Error())
		return
	}
	httputil.WriteJSONOK(w, cams)
}

func (s *Server) serveFramePNG(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httputil.MethodNotAllowed(w)
		return
	}
	s.mu.RLock()
	frame := s.lastFrame
	s.mu.RUnlock()
	if frame == nil {
		httputil.NotFound(w, "no frame published yet")
		return
	}

	w.Header().Set("Content-Type", "image/png")
	if err := png.Encode(w, frame.Canvas.ToRGBA()); err != nil {
		monitoring.Logf("failed to encode frame png: %v", err)
	}
}
