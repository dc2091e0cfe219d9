package geo

import (
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/skyfleet/takeoff-tracker/pkg/logger"
)

func testIndex(t *testing.T, airports ...Airport) *Index {
	t.Helper()
	return NewIndex(airports, logger.NewNop())
}

func TestDistance(t *testing.T) {
	// One degree of longitude along the equator is ~111.19 km for R=6371.
	d := Distance(0, 0, 0, 1)
	if math.Abs(d-111.19) > 0.1 {
		t.Errorf("expected ~111.19 km, got %f", d)
	}

	// Same point is zero.
	if d := Distance(43.6777, -79.6248, 43.6777, -79.6248); d != 0 {
		t.Errorf("expected 0, got %f", d)
	}
}

func TestNearest(t *testing.T) {
	idx := testIndex(t,
		Airport{Code: "AAA", Lat: 0, Lon: 0},
		Airport{Code: "BBB", Lat: 1, Lon: 1},
		Airport{Code: "CCC", Lat: 10, Lon: 10},
	)

	got := idx.Nearest(0.1, 0.1)
	if got.Code != "AAA" {
		t.Errorf("expected AAA, got %s", got.Code)
	}

	got = idx.Nearest(9, 9)
	if got.Code != "CCC" {
		t.Errorf("expected CCC, got %s", got.Code)
	}
}

func TestNearestEmptyIndex(t *testing.T) {
	idx := testIndex(t)

	got := idx.Nearest(43.0, -79.0)
	if !got.IsUnknown() {
		t.Errorf("expected unknown sentinel, got %s", got.Code)
	}
}

func TestNearestDeterministicTieBreak(t *testing.T) {
	// Two airports at the identical position: the lexically first code wins.
	idx := testIndex(t,
		Airport{Code: "ZZZ", Lat: 5, Lon: 5},
		Airport{Code: "MMM", Lat: 5, Lon: 5},
	)

	for i := 0; i < 10; i++ {
		if got := idx.Nearest(5, 5); got.Code != "MMM" {
			t.Fatalf("expected MMM, got %s", got.Code)
		}
	}
}

func TestResolve(t *testing.T) {
	idx := testIndex(t, Airport{Code: "CYYZ", Name: "Toronto Pearson", Lat: 43.6777, Lon: -79.6248})

	a, ok := idx.Resolve("CYYZ")
	if !ok || a.Name != "Toronto Pearson" {
		t.Errorf("expected Toronto Pearson, got %+v ok=%v", a, ok)
	}

	if _, ok := idx.Resolve("XXXX"); ok {
		t.Error("expected lookup miss for XXXX")
	}
}

func TestLoadIndex(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "airports.json")

	data := `{
		"CYYZ": {"name": "Toronto Pearson", "city": "Toronto", "country": "CA", "lat": 43.6777, "lon": -79.6248},
		"EGLL": {"name": "Heathrow", "city": "London", "country": "GB", "lat": 51.4706, "lon": -0.4619}
	}`
	if err := os.WriteFile(path, []byte(data), 0644); err != nil {
		t.Fatal(err)
	}

	idx, err := LoadIndex(path, logger.NewNop())
	if err != nil {
		t.Fatalf("LoadIndex failed: %v", err)
	}
	if idx.Count() != 2 {
		t.Errorf("expected 2 airports, got %d", idx.Count())
	}

	got := idx.Nearest(44.0, -79.0)
	if got.Code != "CYYZ" {
		t.Errorf("expected CYYZ, got %s", got.Code)
	}
}

func TestLoadIndexMissingFile(t *testing.T) {
	idx, err := LoadIndex(filepath.Join(t.TempDir(), "nope.json"), logger.NewNop())
	if err != nil {
		t.Fatalf("missing file should not be fatal: %v", err)
	}
	if idx.Count() != 0 {
		t.Errorf("expected empty index, got %d entries", idx.Count())
	}
}

func TestBearing(t *testing.T) {
	// Due east along the equator.
	b := Bearing(0, 0, 0, 10)
	if math.Abs(b-90) > 0.01 {
		t.Errorf("expected 90, got %f", b)
	}

	// Due north.
	b = Bearing(0, 0, 10, 0)
	if math.Abs(b) > 0.01 {
		t.Errorf("expected 0, got %f", b)
	}
}
