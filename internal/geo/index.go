package geo

import (
	"encoding/json"
	"fmt"
	"math"
	"os"
	"sort"

	"github.com/skyfleet/takeoff-tracker/pkg/logger"
)

// Airport represents a single reference point in the airport table
type Airport struct {
	Code    string  `json:"-"`
	Name    string  `json:"name"`
	City    string  `json:"city"`
	Country string  `json:"country"`
	Lat     float64 `json:"lat"`
	Lon     float64 `json:"lon"`
}

// Unknown is the sentinel airport returned when no reference point can be
// resolved (empty index or missing coordinates).
var Unknown = Airport{Code: "????", Name: "Unknown", City: "Unknown", Country: "Unknown"}

// IsUnknown reports whether the airport is the unknown sentinel.
func (a Airport) IsUnknown() bool {
	return a.Code == Unknown.Code
}

// Index is an immutable in-memory airport table with nearest-neighbor
// lookup by great-circle distance. It is built once at startup and never
// mutated afterwards, so it is safe for concurrent readers.
type Index struct {
	airports map[string]Airport
	codes    []string // sorted, for deterministic iteration
	logger   *logger.Logger
}

// LoadIndex builds an airport index from a JSON file mapping airport code
// to {name, city, country, lat, lon}. A missing file is not fatal: the
// index operates as empty and all lookups return the unknown sentinel.
func LoadIndex(path string, log *logger.Logger) (*Index, error) {
	indexLogger := log.Named("geo")

	idx := &Index{
		airports: make(map[string]Airport),
		logger:   indexLogger,
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			indexLogger.Warn("Airport database not found, operating with empty index",
				logger.String("path", path))
			return idx, nil
		}
		return nil, fmt.Errorf("failed to read airport database: %w", err)
	}

	var raw map[string]Airport
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("failed to parse airport database: %w", err)
	}

	for code, airport := range raw {
		airport.Code = code
		idx.airports[code] = airport
		idx.codes = append(idx.codes, code)
	}
	sort.Strings(idx.codes)

	indexLogger.Info("Loaded airport database",
		logger.String("path", path),
		logger.Int("count", len(idx.airports)))

	return idx, nil
}

// NewIndex builds an index directly from a set of airports (used in tests
// and by callers that already hold the table).
func NewIndex(airports []Airport, log *logger.Logger) *Index {
	idx := &Index{
		airports: make(map[string]Airport, len(airports)),
		logger:   log.Named("geo"),
	}
	for _, a := range airports {
		idx.airports[a.Code] = a
		idx.codes = append(idx.codes, a.Code)
	}
	sort.Strings(idx.codes)
	return idx
}

// Count returns the number of airports in the index.
func (idx *Index) Count() int {
	return len(idx.airports)
}

// Resolve returns the airport for the given code.
func (idx *Index) Resolve(code string) (Airport, bool) {
	a, ok := idx.airports[code]
	return a, ok
}

// Nearest returns the airport closest to the given position by great-circle
// distance. The table is small and static, so a full linear scan is fine.
// Ties break on the lexically first code so results are deterministic.
func (idx *Index) Nearest(lat, lon float64) Airport {
	if len(idx.airports) == 0 {
		return Unknown
	}

	best := Unknown
	bestDist := math.MaxFloat64
	for _, code := range idx.codes {
		a := idx.airports[code]
		d := Distance(lat, lon, a.Lat, a.Lon)
		if d < bestDist {
			best = a
			bestDist = d
		}
	}
	return best
}
