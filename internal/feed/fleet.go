package feed

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/skyfleet/takeoff-tracker/pkg/logger"
)

// LoadFleet reads the tracked-aircraft allow-list from a CSV file with an
// icao24 column (built offline from the bulk aircraft database). Codes are
// lowercased and deduplicated; order is preserved for stable feed queries.
func LoadFleet(path string, log *logger.Logger) ([]string, error) {
	fleetLogger := log.Named("fleet")

	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open fleet list: %w", err)
	}
	defer file.Close()

	reader := csv.NewReader(file)
	reader.LazyQuotes = true
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("failed to read fleet list header: %w", err)
	}

	col := -1
	for i, name := range header {
		if strings.EqualFold(strings.TrimSpace(name), "icao24") {
			col = i
			break
		}
	}
	if col < 0 {
		return nil, fmt.Errorf("fleet list %s has no icao24 column", path)
	}

	seen := make(map[string]bool)
	var fleet []string
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read fleet list: %w", err)
		}
		if len(record) <= col {
			continue
		}

		code := strings.ToLower(strings.TrimSpace(record[col]))
		if code == "" || seen[code] {
			continue
		}
		seen[code] = true
		fleet = append(fleet, code)
	}

	if len(fleet) == 0 {
		return nil, fmt.Errorf("fleet list %s contains no icao24 codes", path)
	}

	fleetLogger.Info("Loaded tracked-aircraft list",
		logger.String("path", path),
		logger.Int("count", len(fleet)))

	return fleet, nil
}
