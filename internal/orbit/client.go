// Package orbit is the JSON/HTTP client for the orbit-propagation backend.
// It is intentionally thin: transport, decoding, and error classification.
// Everything downstream works on model types.
package orbit

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/signalsfoundry/orbitview/internal/logging"
	"github.com/signalsfoundry/orbitview/internal/observability"
	"github.com/signalsfoundry/orbitview/model"
)

// Error classes for backend interactions. Callers branch with errors.Is.
var (
	// ErrUnavailable covers transport failures and non-2xx answers other
	// than 404: the backend could not serve the request right now.
	ErrUnavailable = errors.New("orbit backend unavailable")
	// ErrNotFound means the backend does not know the requested satellite.
	ErrNotFound = errors.New("satellite not found")
	// ErrMalformed means a 2xx response body that could not be decoded.
	ErrMalformed = errors.New("malformed backend response")
)

const defaultRequestTimeout = 30 * time.Second

// Client talks to the propagation backend. All methods are safe for
// concurrent use.
type Client struct {
	baseURL    string
	httpClient *http.Client
	log        logging.Logger
}

// ClientOption customises a Client.
type ClientOption func(*Client)

// WithHTTPClient swaps the underlying HTTP client, e.g. for tests or for
// callers that manage their own transport.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

// WithLogger attaches a logger for degraded-response warnings.
func WithLogger(log logging.Logger) ClientOption {
	return func(c *Client) {
		if log != nil {
			c.log = log
		}
	}
}

// NewClient builds a client for the backend at baseURL.
func NewClient(baseURL string, opts ...ClientOption) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: defaultRequestTimeout},
		log:        logging.Noop(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}
	return c
}

// Ping reports whether the backend answers its health probe.
func (c *Client) Ping(ctx context.Context) error {
	var payload struct {
		OK bool `json:"ok"`
	}
	if err := c.getJSON(ctx, "/api/ping", nil, &payload); err != nil {
		return err
	}
	if !payload.OK {
		return fmt.Errorf("%w: ping answered ok=false", ErrUnavailable)
	}
	return nil
}

// Satellites lists the satellites the backend can propagate.
func (c *Client) Satellites(ctx context.Context) ([]model.Satellite, error) {
	var payload struct {
		Satellites []model.Satellite `json:"satellites"`
	}
	if err := c.getJSON(ctx, "/api/satellites", nil, &payload); err != nil {
		return nil, err
	}
	return payload.Satellites, nil
}

// GroundTrack fetches sub-satellite samples starting now and covering the
// window at the given step. Malformed response bodies degrade to an empty
// track rather than an error; transport failures and unknown satellites are
// reported so the caller can keep its previous state.
func (c *Client) GroundTrack(ctx context.Context, satellite string, window, step time.Duration) (model.GroundTrack, error) {
	if satellite == "" {
		return nil, fmt.Errorf("satellite id is required")
	}
	if window <= 0 || step <= 0 {
		return nil, fmt.Errorf("window and step must be positive")
	}

	query := url.Values{}
	query.Set("minutes", strconv.Itoa(int(window/time.Minute)))
	query.Set("step_s", strconv.Itoa(int(step/time.Second)))

	var payload struct {
		Points []model.TrackPoint `json:"points"`
	}
	path := "/api/satellite/" + url.PathEscape(satellite) + "/track"
	if err := c.getJSON(ctx, path, query, &payload); err != nil {
		if errors.Is(err, ErrMalformed) {
			c.log.Warn(ctx, "treating malformed track response as empty",
				logging.String("satellite", satellite),
				logging.String("error", err.Error()))
			return model.GroundTrack{}, nil
		}
		return nil, err
	}
	return model.GroundTrack(payload.Points), nil
}

// CurrentPosition fetches the live sub-satellite sample.
func (c *Client) CurrentPosition(ctx context.Context, satellite string) (model.TrackPoint, error) {
	if satellite == "" {
		return model.TrackPoint{}, fmt.Errorf("satellite id is required")
	}

	var payload struct {
		TimeUTC  time.Time `json:"time_utc"`
		Subpoint struct {
			Lat   float64 `json:"lat"`
			Lon   float64 `json:"lon"`
			AltKm float64 `json:"alt_km"`
		} `json:"subpoint"`
	}
	path := "/api/satellite/" + url.PathEscape(satellite) + "/now"
	if err := c.getJSON(ctx, path, nil, &payload); err != nil {
		return model.TrackPoint{}, err
	}
	return model.TrackPoint{
		TimeUTC: payload.TimeUTC,
		Lat:     payload.Subpoint.Lat,
		Lon:     payload.Subpoint.Lon,
		AltKm:   payload.Subpoint.AltKm,
	}, nil
}

// Elements fetches the classical orbital elements for the satellite.
func (c *Client) Elements(ctx context.Context, satellite string) (model.OrbitalElements, error) {
	var payload struct {
		Elements model.OrbitalElements `json:"elements"`
	}
	path := "/api/satellite/" + url.PathEscape(satellite) + "/elements"
	if err := c.getJSON(ctx, path, nil, &payload); err != nil {
		return model.OrbitalElements{}, err
	}
	return payload.Elements, nil
}

// Passes fetches predicted passes over the given observer position.
func (c *Client) Passes(ctx context.Context, satellite string, lat, lon float64, hours int, minElevationDeg float64) ([]model.Pass, error) {
	query := url.Values{}
	query.Set("lat", strconv.FormatFloat(lat, 'f', -1, 64))
	query.Set("lon", strconv.FormatFloat(lon, 'f', -1, 64))
	if hours > 0 {
		query.Set("hours", strconv.Itoa(hours))
	}
	if minElevationDeg > 0 {
		query.Set("min_elev_deg", strconv.FormatFloat(minElevationDeg, 'f', -1, 64))
	}

	var payload struct {
		Passes []model.Pass `json:"passes"`
	}
	path := "/api/satellite/" + url.PathEscape(satellite) + "/passes"
	if err := c.getJSON(ctx, path, query, &payload); err != nil {
		return nil, err
	}
	return payload.Passes, nil
}

// OrbitPath fetches sub-satellite samples covering whole orbital periods,
// suited to drawing a full-orbit polyline.
func (c *Client) OrbitPath(ctx context.Context, satellite string, steps int, periods float64) (model.GroundTrack, error) {
	query := url.Values{}
	if steps > 0 {
		query.Set("steps", strconv.Itoa(steps))
	}
	if periods > 0 {
		query.Set("periods", strconv.FormatFloat(periods, 'f', -1, 64))
	}

	var payload struct {
		Points []model.TrackPoint `json:"points"`
	}
	path := "/api/satellite/" + url.PathEscape(satellite) + "/orbit_path"
	if err := c.getJSON(ctx, path, query, &payload); err != nil {
		return nil, err
	}
	return model.GroundTrack(payload.Points), nil
}

// getJSON performs one GET and decodes the body into out, classifying
// failures into the package error classes.
func (c *Client) getJSON(ctx context.Context, path string, query url.Values, out any) error {
	target := c.baseURL + path
	if len(query) > 0 {
		target += "?" + query.Encode()
	}

	ctx, span := observability.StartChildSpan(ctx, "orbit.get", "endpoint", path)
	defer span.End()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return fmt.Errorf("%w: %s", ErrNotFound, path)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("%w: unexpected status %d from %s", ErrUnavailable, resp.StatusCode, path)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("%w: reading body: %v", ErrUnavailable, err)
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	return nil
}
