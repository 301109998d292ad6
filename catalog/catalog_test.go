package catalog

import (
	"strings"
	"testing"

	"github.com/signalsfoundry/orbitview/model"
)

func TestAddRejectsDuplicateAndEmptyIDs(t *testing.T) {
	store := NewStore()
	if err := store.Add(model.Satellite{ID: "iss", NoradID: 25544}); err != nil {
		t.Fatalf("Add: %v", err)
	}
	if err := store.Add(model.Satellite{ID: "iss", NoradID: 99999}); err == nil {
		t.Fatal("duplicate ID should be rejected")
	}
	if err := store.Add(model.Satellite{}); err == nil {
		t.Fatal("empty ID should be rejected")
	}
	if store.Len() != 1 {
		t.Fatalf("Len = %d, want 1", store.Len())
	}
}

func TestListIsSortedByID(t *testing.T) {
	store := NewStore()
	for _, id := range []string{"noaa20", "css", "iss"} {
		if err := store.Add(model.Satellite{ID: id}); err != nil {
			t.Fatalf("Add(%s): %v", id, err)
		}
	}
	got := store.List()
	want := []string{"css", "iss", "noaa20"}
	for i, sat := range got {
		if sat.ID != want[i] {
			t.Fatalf("List order = %v, want %v", got, want)
		}
	}
}

func TestUpdateTLENotifiesSubscribers(t *testing.T) {
	store := NewStore()
	if err := store.Add(model.Satellite{ID: "iss", NoradID: 25544}); err != nil {
		t.Fatalf("Add: %v", err)
	}

	var events []Event
	unsubscribe := store.Subscribe(func(e Event) {
		events = append(events, e)
		// Re-entering the store from a callback must not deadlock.
		_, _ = store.Get("iss")
	})

	if err := store.UpdateTLE("iss", "line1", "line2"); err != nil {
		t.Fatalf("UpdateTLE: %v", err)
	}
	if len(events) != 1 || events[0].Type != EventTLEUpdated {
		t.Fatalf("events = %+v, want one EventTLEUpdated", events)
	}
	if events[0].Satellite.TLE1 != "line1" {
		t.Fatalf("event carries TLE1 %q, want line1", events[0].Satellite.TLE1)
	}

	sat, ok := store.Get("iss")
	if !ok || sat.TLE2 != "line2" {
		t.Fatalf("Get after UpdateTLE = %+v, %v", sat, ok)
	}

	unsubscribe()
	if err := store.UpdateTLE("iss", "l1b", "l2b"); err != nil {
		t.Fatalf("UpdateTLE: %v", err)
	}
	if len(events) != 1 {
		t.Fatalf("unsubscribed callback still invoked; events = %d", len(events))
	}
}

func TestUnsubscribeOutOfOrder(t *testing.T) {
	store := NewStore()

	var gotA, gotB, gotC int
	unsubA := store.Subscribe(func(Event) { gotA++ })
	unsubB := store.Subscribe(func(Event) { gotB++ })
	store.Subscribe(func(Event) { gotC++ })

	// Removing the earliest subscriber first must not disturb the others.
	unsubA()
	if err := store.Add(model.Satellite{ID: "iss", NoradID: 25544}); err != nil {
		t.Fatalf("Add: %v", err)
	}
	if gotA != 0 || gotB != 1 || gotC != 1 {
		t.Fatalf("events after unsubA = A:%d B:%d C:%d, want 0/1/1", gotA, gotB, gotC)
	}

	unsubB()
	if err := store.Add(model.Satellite{ID: "css", NoradID: 48274}); err != nil {
		t.Fatalf("Add: %v", err)
	}
	if gotA != 0 || gotB != 1 || gotC != 2 {
		t.Fatalf("events after unsubB = A:%d B:%d C:%d, want 0/1/2", gotA, gotB, gotC)
	}

	// Unsubscribing twice is harmless.
	unsubB()
	if err := store.Add(model.Satellite{ID: "hubble", NoradID: 20580}); err != nil {
		t.Fatalf("Add: %v", err)
	}
	if gotB != 1 || gotC != 3 {
		t.Fatalf("events after repeated unsubB = B:%d C:%d, want 1/3", gotB, gotC)
	}
}

func TestUpdateTLEUnknownSatellite(t *testing.T) {
	store := NewStore()
	if err := store.UpdateTLE("ghost", "a", "b"); err == nil {
		t.Fatal("UpdateTLE on unknown satellite should fail")
	}
}

func TestLoadCatalogDecodesEntries(t *testing.T) {
	payload := `{
		"satellites": [
			{"id": "iss", "name": "ISS (ZARYA)", "norad_id": 25544,
			 "tle_url": "https://celestrak.org/NORAD/elements/stations.txt"},
			{"id": "hubble", "name": "HST", "norad_id": 20580,
			 "tle1": "1 20580U ...", "tle2": "2 20580 ..."}
		]
	}`
	store, err := LoadCatalog(strings.NewReader(payload))
	if err != nil {
		t.Fatalf("LoadCatalog: %v", err)
	}
	if store.Len() != 2 {
		t.Fatalf("Len = %d, want 2", store.Len())
	}
	sat, ok := store.Get("hubble")
	if !ok {
		t.Fatal("hubble missing after load")
	}
	if !sat.HasTLE() {
		t.Fatal("hubble should carry a pinned TLE")
	}
	if sat.NoradID != 20580 {
		t.Fatalf("hubble norad_id = %d, want 20580", sat.NoradID)
	}
}

func TestLoadCatalogRejectsBadJSON(t *testing.T) {
	if _, err := LoadCatalog(strings.NewReader("{nope")); err == nil {
		t.Fatal("malformed JSON should fail")
	}
	if _, err := LoadCatalog(strings.NewReader(`{"satellites":[{"id":""}]}`)); err == nil {
		t.Fatal("entry with empty id should fail")
	}
}

func TestDefaultRegistry(t *testing.T) {
	store := Default()
	wantNorad := map[string]int{"iss": 25544, "css": 48274, "hubble": 20580, "noaa20": 43013}
	if store.Len() != len(wantNorad) {
		t.Fatalf("default registry has %d satellites, want %d", store.Len(), len(wantNorad))
	}
	for id, norad := range wantNorad {
		sat, ok := store.Get(id)
		if !ok {
			t.Fatalf("default registry missing %q", id)
		}
		if sat.NoradID != norad {
			t.Fatalf("%s norad = %d, want %d", id, sat.NoradID, norad)
		}
		if !sat.HasTLE() {
			t.Fatalf("%s has no pinned TLE", id)
		}
	}
}
