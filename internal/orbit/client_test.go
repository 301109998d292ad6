package orbit

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestGroundTrackDecodesPoints(t *testing.T) {
	var gotPath, gotQuery string
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotQuery = r.URL.RawQuery
		fmt.Fprint(w, `{"points":[
			{"time_utc":"2021-10-02T14:00:00Z","lat":10.5,"lon":-20.25,"alt_km":420.1},
			{"time_utc":"2021-10-02T14:00:30Z","lat":11.0,"lon":-18.9,"alt_km":420.3}
		]}`)
	}))
	defer ts.Close()

	client := NewClient(ts.URL)
	track, err := client.GroundTrack(context.Background(), "iss", 90*time.Minute, 30*time.Second)
	if err != nil {
		t.Fatalf("GroundTrack: %v", err)
	}
	if gotPath != "/api/satellite/iss/track" {
		t.Fatalf("request path = %q, want /api/satellite/iss/track", gotPath)
	}
	if gotQuery != "minutes=90&step_s=30" {
		t.Fatalf("request query = %q, want minutes=90&step_s=30", gotQuery)
	}
	if len(track) != 2 {
		t.Fatalf("track has %d points, want 2", len(track))
	}
	if track[0].Lat != 10.5 || track[0].Lon != -20.25 || track[0].AltKm != 420.1 {
		t.Fatalf("first point = %+v", track[0])
	}
	want := time.Date(2021, 10, 2, 14, 0, 30, 0, time.UTC)
	if !track[1].TimeUTC.Equal(want) {
		t.Fatalf("second point time = %v, want %v", track[1].TimeUTC, want)
	}
}

func TestGroundTrackDegradesMalformedBodyToEmpty(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `<html>definitely not json</html>`)
	}))
	defer ts.Close()

	client := NewClient(ts.URL)
	track, err := client.GroundTrack(context.Background(), "iss", 90*time.Minute, 30*time.Second)
	if err != nil {
		t.Fatalf("GroundTrack on malformed body = %v, want nil", err)
	}
	if len(track) != 0 {
		t.Fatalf("track has %d points, want 0", len(track))
	}
}

func TestGroundTrackErrorClasses(t *testing.T) {
	cases := []struct {
		name   string
		status int
		want   error
	}{
		{"not_found", http.StatusNotFound, ErrNotFound},
		{"server_error", http.StatusInternalServerError, ErrUnavailable},
		{"bad_gateway", http.StatusBadGateway, ErrUnavailable},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tc.status)
			}))
			defer ts.Close()

			client := NewClient(ts.URL)
			_, err := client.GroundTrack(context.Background(), "iss", 90*time.Minute, 30*time.Second)
			if !errors.Is(err, tc.want) {
				t.Fatalf("error = %v, want %v", err, tc.want)
			}
		})
	}
}

func TestGroundTrackUnreachableBackend(t *testing.T) {
	// A server that is immediately closed leaves a port nothing listens on.
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	ts.Close()

	client := NewClient(ts.URL)
	_, err := client.GroundTrack(context.Background(), "iss", 90*time.Minute, 30*time.Second)
	if !errors.Is(err, ErrUnavailable) {
		t.Fatalf("error = %v, want ErrUnavailable", err)
	}
}

func TestGroundTrackValidatesArguments(t *testing.T) {
	client := NewClient("http://127.0.0.1:1")
	if _, err := client.GroundTrack(context.Background(), "", time.Minute, time.Second); err == nil {
		t.Fatal("empty satellite id should be rejected")
	}
	if _, err := client.GroundTrack(context.Background(), "iss", 0, time.Second); err == nil {
		t.Fatal("non-positive window should be rejected")
	}
}

func TestCurrentPositionDecodesSubpoint(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/satellite/iss/now" {
			t.Errorf("path = %q", r.URL.Path)
		}
		fmt.Fprint(w, `{
			"name":"iss","norad_id":25544,
			"time_utc":"2021-10-02T14:05:00Z",
			"eci_km":{"x":1.0,"y":2.0,"z":3.0},
			"eci_vel_km_s":{"x":7.1,"y":0.2,"z":-0.4},
			"subpoint":{"lat":51.2,"lon":100.75,"alt_km":419.9}
		}`)
	}))
	defer ts.Close()

	client := NewClient(ts.URL)
	p, err := client.CurrentPosition(context.Background(), "iss")
	if err != nil {
		t.Fatalf("CurrentPosition: %v", err)
	}
	if p.Lat != 51.2 || p.Lon != 100.75 || p.AltKm != 419.9 {
		t.Fatalf("subpoint = %+v", p)
	}
	want := time.Date(2021, 10, 2, 14, 5, 0, 0, time.UTC)
	if !p.TimeUTC.Equal(want) {
		t.Fatalf("time = %v, want %v", p.TimeUTC, want)
	}
}

func TestPingChecksOKFlag(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"ok":true}`)
	}))
	defer ts.Close()

	client := NewClient(ts.URL)
	if err := client.Ping(context.Background()); err != nil {
		t.Fatalf("Ping: %v", err)
	}
}

func TestElementsDecodesNestedObject(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{
			"satellite":"iss","norad_id":25544,"epoch_utc":"2021-10-02T14:10:59Z",
			"elements":{
				"inclination_deg":51.6459,
				"raan_deg":115.9059,
				"eccentricity":0.0001817,
				"argument_of_perigee_deg":61.3028,
				"mean_anomaly_deg":35.9198,
				"mean_motion_rev_per_day":15.4937,
				"period_min":92.94,
				"semi_major_axis_km":6795.6,
				"perigee_alt_km":416.2,
				"apogee_alt_km":418.7
			},
			"source":"SGP4 (no_kozai)"
		}`)
	}))
	defer ts.Close()

	client := NewClient(ts.URL)
	elems, err := client.Elements(context.Background(), "iss")
	if err != nil {
		t.Fatalf("Elements: %v", err)
	}
	if elems.InclinationDeg != 51.6459 {
		t.Fatalf("inclination = %v, want 51.6459", elems.InclinationDeg)
	}
	if elems.MeanMotionRevPerDay != 15.4937 {
		t.Fatalf("mean motion = %v, want 15.4937", elems.MeanMotionRevPerDay)
	}
}

func TestPassesSendsObserverQuery(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		if q.Get("lat") != "52.52" || q.Get("lon") != "13.405" {
			t.Errorf("observer query = %q", r.URL.RawQuery)
		}
		fmt.Fprint(w, `{"satellite":"iss","count":1,"passes":[
			{"aos_utc":"2021-10-02T18:00:00Z","tca_utc":"2021-10-02T18:05:00Z",
			 "los_utc":"2021-10-02T18:10:00Z","max_elev_deg":44.5,
			 "duration_s":600,"visible":true}
		]}`)
	}))
	defer ts.Close()

	client := NewClient(ts.URL)
	passes, err := client.Passes(context.Background(), "iss", 52.52, 13.405, 24, 10)
	if err != nil {
		t.Fatalf("Passes: %v", err)
	}
	if len(passes) != 1 {
		t.Fatalf("got %d passes, want 1", len(passes))
	}
	p := passes[0]
	if p.MaxElevationDeg != 44.5 || !p.Visible {
		t.Fatalf("pass = %+v", p)
	}
	if p.Duration() != 10*time.Minute {
		t.Fatalf("duration = %v, want 10m", p.Duration())
	}
}
