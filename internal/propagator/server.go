package propagator

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/signalsfoundry/orbitview/catalog"
	"github.com/signalsfoundry/orbitview/internal/logging"
	"github.com/signalsfoundry/orbitview/internal/observability"
	"github.com/signalsfoundry/orbitview/model"
)

const requestIDHeader = "X-Request-Id"

// Server exposes the propagation backend API over JSON/HTTP: health probe,
// catalog listing, current position, ground track, orbital elements, pass
// prediction, and orbit path.
type Server struct {
	catalog *catalog.Store
	tles    *TLESource
	log     logging.Logger
	metrics *observability.BackendCollector
	now     func() time.Time
}

// ServerOption customises a Server.
type ServerOption func(*Server)

// WithBackendMetrics attaches the Prometheus collector instrumenting each
// route.
func WithBackendMetrics(m *observability.BackendCollector) ServerOption {
	return func(s *Server) { s.metrics = m }
}

// WithServerNow swaps the time source; tests pin it for deterministic
// sampling windows.
func WithServerNow(now func() time.Time) ServerOption {
	return func(s *Server) {
		if now != nil {
			s.now = now
		}
	}
}

// NewServer wires a backend server over the given catalog and TLE source.
func NewServer(store *catalog.Store, tles *TLESource, log logging.Logger, opts ...ServerOption) *Server {
	if log == nil {
		log = logging.Noop()
	}
	if tles == nil {
		tles = NewTLESource(WithTLELogger(log))
	}
	s := &Server{
		catalog: store,
		tles:    tles,
		log:     log,
		now:     time.Now,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s
}

// Handler returns the routed HTTP handler.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/ping", s.route("ping", s.handlePing))
	mux.HandleFunc("GET /api/satellites", s.route("satellites", s.handleSatellites))
	mux.HandleFunc("GET /api/satellite/{name}/now", s.route("now", s.handleNow))
	mux.HandleFunc("GET /api/satellite/{name}/track", s.route("track", s.handleTrack))
	mux.HandleFunc("GET /api/satellite/{name}/elements", s.route("elements", s.handleElements))
	mux.HandleFunc("GET /api/satellite/{name}/passes", s.route("passes", s.handlePasses))
	mux.HandleFunc("GET /api/satellite/{name}/orbit_path", s.route("orbit_path", s.handleOrbitPath))
	return mux
}

// route layers the request-id logger, a tracing span, and per-route metrics
// around a handler.
func (s *Server) route(name string, h http.HandlerFunc) http.HandlerFunc {
	wrapped := func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if incoming := r.Header.Get(requestIDHeader); incoming != "" {
			ctx = logging.ContextWithRequestID(ctx, incoming)
		}
		ctx, reqLog := logging.WithRequestLogger(ctx, s.log.With(logging.String("route", name)))
		ctx = logging.ContextWithLogger(ctx, reqLog)
		w.Header().Set(requestIDHeader, logging.RequestIDFromContext(ctx))

		ctx, span := observability.StartChildSpan(ctx, "backend."+name, "route", name)
		defer span.End()

		h(w, r.WithContext(ctx))
	}
	if s.metrics != nil {
		return s.metrics.InstrumentHandler(name, wrapped)
	}
	return wrapped
}

func (s *Server) handlePing(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

func (s *Server) handleSatellites(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"satellites": s.catalog.List()})
}

func (s *Server) handleNow(w http.ResponseWriter, r *http.Request) {
	sat, prop, ok := s.resolve(w, r)
	if !ok {
		return
	}

	t := s.now().UTC().Truncate(time.Second)
	pos, vel, err := prop.ECI(t)
	if err != nil {
		s.propagationError(w, r, sat, err)
		return
	}
	point, err := prop.Subpoint(t)
	if err != nil {
		s.propagationError(w, r, sat, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"name":         sat.ID,
		"norad_id":     sat.NoradID,
		"time_utc":     t.Format(time.RFC3339),
		"eci_km":       pos,
		"eci_vel_km_s": vel,
		"subpoint": map[string]float64{
			"lat":    point.Lat,
			"lon":    point.Lon,
			"alt_km": point.AltKm,
		},
	})
}

func (s *Server) handleTrack(w http.ResponseWriter, r *http.Request) {
	sat, prop, ok := s.resolve(w, r)
	if !ok {
		return
	}
	minutes, err := queryInt(r, "minutes", 90, 1, 1440)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	stepS, err := queryInt(r, "step_s", 30, 1, 3600)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	track, err := prop.GroundTrack(s.now().UTC().Truncate(time.Second),
		time.Duration(minutes)*time.Minute, time.Duration(stepS)*time.Second)
	if err != nil {
		s.propagationError(w, r, sat, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"satellite": sat.ID,
		"norad_id":  sat.NoradID,
		"points":    track,
	})
}

func (s *Server) handleElements(w http.ResponseWriter, r *http.Request) {
	sat, _, ok := s.resolve(w, r)
	if !ok {
		return
	}
	line1, line2, err := s.tles.Lookup(r.Context(), sat)
	if err != nil {
		writeError(w, http.StatusBadGateway, err.Error())
		return
	}
	elems, epoch, err := ElementsFromTLE(line1, line2)
	if err != nil {
		writeError(w, http.StatusBadGateway, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"satellite": sat.ID,
		"norad_id":  sat.NoradID,
		"epoch_utc": epoch.Format(time.RFC3339),
		"elements":  elems,
		"source":    "SGP4 (TLE)",
	})
}

func (s *Server) handlePasses(w http.ResponseWriter, r *http.Request) {
	sat, prop, ok := s.resolve(w, r)
	if !ok {
		return
	}
	lat, err := queryFloatRequired(r, "lat", -90, 90)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	lon, err := queryFloatRequired(r, "lon", -180, 180)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	hours, err := queryInt(r, "hours", 24, 1, 72)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	stepS, err := queryInt(r, "step_s", 10, 1, 60)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	minElev, err := queryFloat(r, "min_elev_deg", 10, 0, 90)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	passes, err := prop.Passes(s.now().UTC().Truncate(time.Second),
		Observer{LatDeg: lat, LonDeg: lon},
		PassOptions{Hours: hours, StepS: stepS, MinElevationDeg: minElev})
	if err != nil {
		s.propagationError(w, r, sat, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"satellite": sat.ID,
		"norad_id":  sat.NoradID,
		"params": map[string]any{
			"lat": lat, "lon": lon, "hours": hours,
			"step_s": stepS, "min_elev_deg": minElev,
		},
		"count":  len(passes),
		"passes": passes,
	})
}

func (s *Server) handleOrbitPath(w http.ResponseWriter, r *http.Request) {
	sat, prop, ok := s.resolve(w, r)
	if !ok {
		return
	}
	steps, err := queryInt(r, "steps", 240, 2, 2000)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	periods, err := queryFloat(r, "periods", 1, 0.1, 10)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	line1, line2, err := s.tles.Lookup(r.Context(), sat)
	if err != nil {
		writeError(w, http.StatusBadGateway, err.Error())
		return
	}
	elems, _, err := ElementsFromTLE(line1, line2)
	if err != nil {
		writeError(w, http.StatusBadGateway, err.Error())
		return
	}

	track, err := prop.OrbitPath(s.now().UTC().Truncate(time.Second), elems.PeriodMin, steps, periods)
	if err != nil {
		s.propagationError(w, r, sat, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"satellite": sat.ID,
		"norad_id":  sat.NoradID,
		"steps":     steps,
		"periods":   periods,
		"points":    track,
	})
}

// resolve looks the path satellite up in the catalog and builds its
// propagator, writing the error response itself when either step fails.
func (s *Server) resolve(w http.ResponseWriter, r *http.Request) (model.Satellite, *Propagator, bool) {
	name := strings.ToLower(r.PathValue("name"))
	sat, ok := s.catalog.Get(name)
	if !ok {
		writeError(w, http.StatusNotFound, fmt.Sprintf("satellite %q not supported", name))
		return model.Satellite{}, nil, false
	}

	line1, line2, err := s.tles.Lookup(r.Context(), sat)
	if err != nil {
		writeError(w, http.StatusBadGateway, err.Error())
		return model.Satellite{}, nil, false
	}
	prop, err := New(line1, line2)
	if err != nil {
		writeError(w, http.StatusBadGateway, err.Error())
		return model.Satellite{}, nil, false
	}
	return sat, prop, true
}

func (s *Server) propagationError(w http.ResponseWriter, r *http.Request, sat model.Satellite, err error) {
	s.log.Error(r.Context(), "propagation failed",
		logging.String("satellite", sat.ID),
		logging.String("error", err.Error()))
	writeError(w, http.StatusInternalServerError, err.Error())
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func queryInt(r *http.Request, key string, def, min, max int) (int, error) {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return def, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < min || v > max {
		return 0, fmt.Errorf("invalid %s parameter, must be %d-%d", key, min, max)
	}
	return v, nil
}

func queryFloat(r *http.Request, key string, def, min, max float64) (float64, error) {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return def, nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil || v < min || v > max {
		return 0, fmt.Errorf("invalid %s parameter, must be %g-%g", key, min, max)
	}
	return v, nil
}

func queryFloatRequired(r *http.Request, key string, min, max float64) (float64, error) {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return 0, fmt.Errorf("missing required %s parameter", key)
	}
	return queryFloat(r, key, 0, min, max)
}
