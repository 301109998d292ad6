package catalog

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/signalsfoundry/orbitview/model"
)

// internal JSON shapes - kept unexported so we are free to evolve them.
type catalogJSON struct {
	Satellites []satelliteJSON `json:"satellites"`
}

type satelliteJSON struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	NoradID int    `json:"norad_id"`
	TLEURL  string `json:"tle_url"`
	TLE1    string `json:"tle1"`
	TLE2    string `json:"tle2"`
}

// LoadCatalog reads a JSON satellite catalog from r into a fresh Store.
// It fails only on JSON or structural errors; per-entry invariants (unique,
// non-empty ids) are enforced by Store.Add.
func LoadCatalog(r io.Reader) (*Store, error) {
	var payload catalogJSON
	dec := json.NewDecoder(r)
	if err := dec.Decode(&payload); err != nil {
		return nil, fmt.Errorf("loading catalog: decode failed: %w", err)
	}

	store := NewStore()
	for _, js := range payload.Satellites {
		sat := model.Satellite{
			ID:      js.ID,
			Name:    js.Name,
			NoradID: js.NoradID,
			TLEURL:  js.TLEURL,
			TLE1:    js.TLE1,
			TLE2:    js.TLE2,
		}
		if err := store.Add(sat); err != nil {
			return nil, fmt.Errorf("loading catalog: %w", err)
		}
	}
	return store, nil
}

// LoadCatalogFile reads a JSON satellite catalog from the given path.
func LoadCatalogFile(path string) (*Store, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("loading catalog: %w", err)
	}
	defer f.Close()
	return LoadCatalog(f)
}

// Default returns the built-in registry. The pinned TLE sets let the dev
// backend propagate without network access; they are refreshed from the
// satellite's source URL when TLE fetching is enabled.
func Default() *Store {
	store := NewStore()
	for _, sat := range []model.Satellite{
		{
			ID:      "iss",
			Name:    "ISS (ZARYA)",
			NoradID: 25544,
			TLEURL:  "https://celestrak.org/NORAD/elements/stations.txt",
			TLE1:    "1 25544U 98067A   21275.59097222  .00000204  00000-0  10270-4 0  9990",
			TLE2:    "2 25544  51.6459 115.9059 0001817  61.3028  35.9198 15.49370953257760",
		},
		{
			ID:      "css",
			Name:    "CSS (TIANHE)",
			NoradID: 48274,
			TLEURL:  "https://celestrak.org/NORAD/elements/stations.txt",
			TLE1:    "1 48274U 21035A   21275.51001157  .00020184  00000-0  23724-3 0  9996",
			TLE2:    "2 48274  41.4697 195.3437 0008393 279.2147 157.0577 15.61871640 25340",
		},
		{
			ID:      "hubble",
			Name:    "HST",
			NoradID: 20580,
			TLEURL:  "https://celestrak.org/NORAD/elements/science.txt",
			TLE1:    "1 20580U 90037B   21275.48583333  .00000798  00000-0  39519-4 0  9994",
			TLE2:    "2 20580  28.4699  40.8574 0002683 120.1101 325.5924 15.09749914528279",
		},
		{
			ID:      "noaa20",
			Name:    "NOAA 20",
			NoradID: 43013,
			TLEURL:  "https://celestrak.org/NORAD/elements/gp.php?GROUP=noaa&FORMAT=tle",
			TLE1:    "1 43013U 17073A   21275.54475694  .00000103  00000-0  70122-4 0  9991",
			TLE2:    "2 43013  98.7201 211.5257 0001327  82.2148 277.9171 14.19558509200920",
		},
	} {
		// Add on a fresh store only fails for duplicate or empty ids.
		if err := store.Add(sat); err != nil {
			panic(err)
		}
	}
	return store
}
