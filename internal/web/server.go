// Package web provides the HTTP status page and control API of the ledclock
// daemon.
package web

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"
	qrcode "github.com/skip2/go-qrcode"

	"github.com/sweeney/ledclock/internal/config"
	"github.com/sweeney/ledclock/internal/status"
)

// Controller applies operator requests to the running clock. Every call is
// serialized with rendering by the implementation.
type Controller interface {
	Now(ctx context.Context) (time.Time, error)
	SetTime(ctx context.Context, t time.Time) error
	Settings(ctx context.Context) (config.ClockConfig, error)

	// SetNetwork stores the WiFi, NTP and sync-schedule settings built by
	// edit from the live ones. restart is true when the station credentials
	// changed and the device will restart.
	SetNetwork(ctx context.Context, edit config.NetworkEdit) (restart bool, err error)
	SetEffect(ctx context.Context, e config.EffectSettings) error
	SetColors(ctx context.Context, edit config.ColorEdit) error
	SetNightLight(ctx context.Context, edit config.NightLightEdit) error
	TestNightLight(ctx context.Context) error
	SyncNow(ctx context.Context) error
	FactoryReset(ctx context.Context) error
}

// requestTimeout bounds how long a handler waits for the device loop.
const requestTimeout = 5 * time.Second

// maxBodyBytes caps request bodies.
const maxBodyBytes = 16 << 10

// Server serves the status page and control API over HTTP.
type Server struct {
	httpServer *http.Server
	tracker    *status.Tracker
	ctrl       Controller
	preview    *Hub
}

// New creates a Server that reads state from tracker and applies changes
// through ctrl. preview may be nil to disable /ws.
func New(addr string, tracker *status.Tracker, ctrl Controller, preview *Hub) *Server {
	s := &Server{tracker: tracker, ctrl: ctrl, preview: preview}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /{$}", s.handleIndex)
	mux.HandleFunc("GET /index.html", s.handleIndex)
	mux.HandleFunc("GET /index.json", s.handleStatus)
	mux.HandleFunc("GET /api/status", s.handleStatus)
	mux.HandleFunc("GET /api/time", s.handleGetTime)
	mux.HandleFunc("POST /api/time", s.handleSetTime)
	mux.HandleFunc("GET /api/config", s.handleGetConfig)
	mux.HandleFunc("POST /api/config/network", s.handleSetNetwork)
	mux.HandleFunc("POST /api/config/effect", s.handleSetEffect)
	mux.HandleFunc("POST /api/config/colors", s.handleSetColors)
	mux.HandleFunc("GET /api/nightlight", s.handleGetNightLight)
	mux.HandleFunc("POST /api/nightlight", s.handleSetNightLight)
	mux.HandleFunc("POST /api/nightlight/test", s.handleTestNightLight)
	mux.HandleFunc("POST /api/sync", s.handleSync)
	mux.HandleFunc("POST /api/reset", s.handleReset)
	mux.HandleFunc("GET /qr.png", s.handleQR)
	if preview != nil {
		mux.Handle("GET /ws", preview)
	}

	s.httpServer = &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	return s
}

// Handler exposes the router. Useful for tests.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// ListenAndServe starts listening. It blocks until the server is shut down.
func (s *Server) ListenAndServe() error {
	return s.httpServer.ListenAndServe()
}

// Serve accepts connections on the given listener. Useful for tests.
func (s *Server) Serve(ln net.Listener) error {
	return s.httpServer.Serve(ln)
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.preview != nil {
		s.preview.Close()
	}
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	snap := s.tracker.Snapshot()
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	renderHTML(w, snap)
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	snap := s.tracker.Snapshot()
	w.Header().Set("Content-Type", "application/json")
	w.Write(status.FormatJSON(snap))
}

func (s *Server) handleGetTime(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	now, err := s.ctrl.Now(ctx)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, newTimeResponse(now))
}

func (s *Server) handleSetTime(w http.ResponseWriter, r *http.Request) {
	var req timeRequest
	if !decode(w, r, &req) {
		return
	}
	t, err := req.parse()
	if err != nil {
		writeError(w, err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()
	if err := s.ctrl.SetTime(ctx, t); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, newTimeResponse(t))
}

func (s *Server) handleGetConfig(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	cfg, err := s.ctrl.Settings(ctx)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, cfg)
}

// The partial-update handlers merge the body over the live settings inside
// the controller call.

func (s *Server) handleSetNetwork(w http.ResponseWriter, r *http.Request) {
	body, ok := readBody(w, r)
	if !ok {
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	restart, err := s.ctrl.SetNetwork(ctx, func(cur config.ClockConfig) (config.Network, config.SyncSchedule, error) {
		req := networkRequestFrom(cur)
		if err := decodeInto(body, &req); err != nil {
			return config.Network{}, config.SyncSchedule{}, err
		}
		if err := req.validate(); err != nil {
			return config.Network{}, config.SyncSchedule{}, err
		}
		return req.network(), req.Sync, nil
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, apiResponse{OK: true, Restart: restart})
}

func (s *Server) handleSetEffect(w http.ResponseWriter, r *http.Request) {
	var req config.EffectSettings
	if !decode(w, r, &req) {
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()
	if err := s.ctrl.SetEffect(ctx, req); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, apiResponse{OK: true})
}

func (s *Server) handleSetColors(w http.ResponseWriter, r *http.Request) {
	body, ok := readBody(w, r)
	if !ok {
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	err := s.ctrl.SetColors(ctx, func(cur config.ColorSettings) (config.ColorSettings, error) {
		err := decodeInto(body, &cur)
		return cur, err
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, apiResponse{OK: true})
}

func (s *Server) handleGetNightLight(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	cfg, err := s.ctrl.Settings(ctx)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, cfg.NightLight)
}

func (s *Server) handleSetNightLight(w http.ResponseWriter, r *http.Request) {
	body, ok := readBody(w, r)
	if !ok {
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	err := s.ctrl.SetNightLight(ctx, func(cur config.NightLight) (config.NightLight, error) {
		err := decodeInto(body, &cur)
		return cur, err
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, apiResponse{OK: true})
}

func (s *Server) handleTestNightLight(w http.ResponseWriter, r *http.Request) {
	s.simple(w, r, s.ctrl.TestNightLight)
}

func (s *Server) handleSync(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout+10*time.Second)
	defer cancel()
	if err := s.ctrl.SyncNow(ctx); err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusBadGateway, apiResponse{Error: err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, apiResponse{OK: true})
}

func (s *Server) handleReset(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()
	if err := s.ctrl.FactoryReset(ctx); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, apiResponse{OK: true, Restart: true})
}

func (s *Server) simple(w http.ResponseWriter, r *http.Request, fn func(context.Context) error) {
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()
	if err := fn(ctx); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, apiResponse{OK: true})
}

// handleQR renders a QR code of the panel URL for phones.
func (s *Server) handleQR(w http.ResponseWriter, r *http.Request) {
	png, err := qrcode.Encode(panelURL(r, s.tracker.Snapshot()), qrcode.Medium, 256)
	if err != nil {
		log.Error().Err(err).Msg("QR encode failed")
		http.Error(w, "qr encode failed", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "no-cache")
	w.Write(png)
}

// panelURL prefers the station IP so the code works for clients that reached
// the panel by another name.
func panelURL(r *http.Request, snap status.Snapshot) string {
	host := r.Host
	if snap.Network != nil && snap.Network.IP != "" {
		host = snap.Network.IP
		if _, port, err := net.SplitHostPort(r.Host); err == nil && port != "80" {
			host = net.JoinHostPort(host, port)
		}
	}
	return "http://" + host + "/"
}
