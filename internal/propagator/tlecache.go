package propagator

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/signalsfoundry/orbitview/internal/logging"
	"github.com/signalsfoundry/orbitview/model"
)

const defaultTLETTL = 6 * time.Hour

// TLEMetricsRecorder receives TLE source events for metrics export. A nil
// recorder disables recording.
type TLEMetricsRecorder interface {
	RecordTLELookup(hit bool)
	RecordTLEStaleServe()
	RecordTLERefreshFailure()
}

type tleEntry struct {
	line1   string
	line2   string
	fetched time.Time
}

// TLESource resolves TLE element sets per satellite: fresh cache entries are
// served directly, expired entries trigger an upstream refresh, and when the
// refresh fails the expired entry (or the catalog's pinned set) is served
// instead of failing the request.
type TLESource struct {
	httpClient *http.Client
	ttl        time.Duration
	log        logging.Logger
	metrics    TLEMetricsRecorder
	now        func() time.Time

	mu      sync.RWMutex
	entries map[int]tleEntry
}

// TLESourceOption customises a TLESource.
type TLESourceOption func(*TLESource)

// WithTTL overrides how long a fetched element set stays fresh.
func WithTTL(ttl time.Duration) TLESourceOption {
	return func(s *TLESource) {
		if ttl > 0 {
			s.ttl = ttl
		}
	}
}

// WithTLEHTTPClient swaps the HTTP client used for upstream fetches.
func WithTLEHTTPClient(hc *http.Client) TLESourceOption {
	return func(s *TLESource) {
		if hc != nil {
			s.httpClient = hc
		}
	}
}

// WithTLELogger attaches a logger for refresh failures.
func WithTLELogger(log logging.Logger) TLESourceOption {
	return func(s *TLESource) {
		if log != nil {
			s.log = log
		}
	}
}

// WithTLEMetrics attaches a metrics sink.
func WithTLEMetrics(m TLEMetricsRecorder) TLESourceOption {
	return func(s *TLESource) { s.metrics = m }
}

// withNowFunc swaps the time source; tests use it to expire entries.
func withNowFunc(now func() time.Time) TLESourceOption {
	return func(s *TLESource) {
		if now != nil {
			s.now = now
		}
	}
}

// NewTLESource builds a source with a 6 h TTL by default.
func NewTLESource(opts ...TLESourceOption) *TLESource {
	s := &TLESource{
		httpClient: &http.Client{Timeout: 15 * time.Second},
		ttl:        defaultTLETTL,
		log:        logging.Noop(),
		now:        time.Now,
		entries:    make(map[int]tleEntry),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s
}

// Lookup returns the TLE lines for sat. Resolution order: fresh cache entry,
// upstream fetch from the satellite's source URL, expired cache entry, the
// satellite's pinned lines. Only when all of those are unavailable does the
// lookup fail.
func (s *TLESource) Lookup(ctx context.Context, sat model.Satellite) (line1, line2 string, err error) {
	s.mu.RLock()
	entry, cached := s.entries[sat.NoradID]
	s.mu.RUnlock()

	if cached && s.now().Sub(entry.fetched) < s.ttl {
		s.recordLookup(true)
		return entry.line1, entry.line2, nil
	}
	s.recordLookup(false)

	if sat.TLEURL != "" {
		l1, l2, fetchErr := s.fetch(ctx, sat)
		if fetchErr == nil {
			s.mu.Lock()
			s.entries[sat.NoradID] = tleEntry{line1: l1, line2: l2, fetched: s.now()}
			s.mu.Unlock()
			return l1, l2, nil
		}
		if s.metrics != nil {
			s.metrics.RecordTLERefreshFailure()
		}
		s.log.Warn(ctx, "TLE refresh failed",
			logging.String("satellite", sat.ID),
			logging.String("url", sat.TLEURL),
			logging.String("error", fetchErr.Error()))

		if cached {
			if s.metrics != nil {
				s.metrics.RecordTLEStaleServe()
			}
			return entry.line1, entry.line2, nil
		}
	}

	if sat.HasTLE() {
		s.mu.Lock()
		s.entries[sat.NoradID] = tleEntry{line1: sat.TLE1, line2: sat.TLE2, fetched: s.now()}
		s.mu.Unlock()
		return sat.TLE1, sat.TLE2, nil
	}
	return "", "", fmt.Errorf("no TLE available for %s (norad %d)", sat.ID, sat.NoradID)
}

func (s *TLESource) fetch(ctx context.Context, sat model.Satellite) (string, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, sat.TLEURL, nil)
	if err != nil {
		return "", "", fmt.Errorf("creating request: %w", err)
	}
	resp, err := s.httpClient.Do(req)
	if err != nil {
		return "", "", fmt.Errorf("fetching TLE data: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", "", fmt.Errorf("unexpected status %d from %s", resp.StatusCode, sat.TLEURL)
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", "", fmt.Errorf("reading response body: %w", err)
	}
	return findTLEByNorad(string(body), sat.NoradID)
}

// findTLEByNorad scans a Celestrak-style text listing for the catalog number
// and returns its line pair. Both the 3-line (name header) and bare 2-line
// formats are handled, since the line-1 scan skips name rows either way.
func findTLEByNorad(text string, noradID int) (string, string, error) {
	target := strconv.Itoa(noradID)
	var lines []string
	for _, ln := range strings.Split(text, "\n") {
		if ln = strings.TrimRight(ln, "\r "); ln != "" {
			lines = append(lines, ln)
		}
	}
	for i, ln := range lines {
		if !strings.HasPrefix(ln, "1 ") {
			continue
		}
		fields := strings.Fields(ln)
		if len(fields) < 2 || !strings.HasPrefix(fields[1], target) {
			continue
		}
		if i+1 < len(lines) && strings.HasPrefix(lines[i+1], "2 ") {
			return ln, lines[i+1], nil
		}
	}
	return "", "", fmt.Errorf("norad %d not found in TLE list", noradID)
}

func (s *TLESource) recordLookup(hit bool) {
	if s.metrics != nil {
		s.metrics.RecordTLELookup(hit)
	}
}
