package model

import (
	"errors"
	"testing"
	"time"
)

func TestGroundTrackValidate(t *testing.T) {
	base := time.Date(2021, 10, 2, 14, 0, 0, 0, time.UTC)

	empty := GroundTrack{}
	if err := empty.Validate(); !errors.Is(err, ErrTrackEmpty) {
		t.Fatalf("Validate(empty) = %v, want ErrTrackEmpty", err)
	}

	sorted := GroundTrack{
		{TimeUTC: base},
		{TimeUTC: base.Add(30 * time.Second)},
		{TimeUTC: base.Add(30 * time.Second)},
		{TimeUTC: base.Add(60 * time.Second)},
	}
	if err := sorted.Validate(); err != nil {
		t.Fatalf("Validate(sorted) = %v, want nil", err)
	}

	backwards := GroundTrack{
		{TimeUTC: base},
		{TimeUTC: base.Add(30 * time.Second)},
		{TimeUTC: base.Add(10 * time.Second)},
	}
	if err := backwards.Validate(); !errors.Is(err, ErrTrackNotSorted) {
		t.Fatalf("Validate(backwards) = %v, want ErrTrackNotSorted", err)
	}
}

func TestGroundTrackDuration(t *testing.T) {
	base := time.Date(2021, 10, 2, 14, 0, 0, 0, time.UTC)

	single := GroundTrack{{TimeUTC: base}}
	if got := single.Duration(); got != 0 {
		t.Fatalf("Duration(single) = %v, want 0", got)
	}

	track := GroundTrack{
		{TimeUTC: base},
		{TimeUTC: base.Add(90 * time.Minute)},
	}
	if got := track.Duration(); got != 90*time.Minute {
		t.Fatalf("Duration = %v, want 90m", got)
	}
	if got := track.First().TimeUTC; !got.Equal(base) {
		t.Fatalf("First().TimeUTC = %v, want %v", got, base)
	}
	if got := track.Last().TimeUTC; !got.Equal(base.Add(90*time.Minute)) {
		t.Fatalf("Last().TimeUTC = %v, want %v", got, base.Add(90*time.Minute))
	}
}

func TestSatelliteDisplayName(t *testing.T) {
	named := Satellite{ID: "iss", Name: "ISS (ZARYA)", NoradID: 25544}
	if got := named.DisplayName(); got != "ISS (ZARYA)" {
		t.Fatalf("DisplayName = %q, want %q", got, "ISS (ZARYA)")
	}
	bare := Satellite{ID: "iss", NoradID: 25544}
	if got := bare.DisplayName(); got != "iss" {
		t.Fatalf("DisplayName = %q, want %q", got, "iss")
	}
	if bare.HasTLE() {
		t.Fatal("HasTLE = true for satellite without element set")
	}
}
