// Package seed provides the placeholder portfolio inserted into an empty store.
package seed

import (
	"bytes"
	"context"
	_ "embed"
	"encoding/json"
	"fmt"

	"github.com/utsingh/portfolio-api/pkg/logger"
)

//go:embed placeholder.json
var placeholderJSON []byte

// Sections lists the top-level sections of the placeholder portfolio.
var Sections = []string{
	"about", "problemSolving", "machineLearning", "dataEngineering",
	"computerScience", "development", "hackathons", "achievements", "travelling",
}

// Placeholder returns a freshly decoded copy of the placeholder data.
// Numbers decode as float64, matching values read back from JSON requests.
func Placeholder() (map[string]interface{}, error) {
	var data map[string]interface{}
	dec := json.NewDecoder(bytes.NewReader(placeholderJSON))
	if err := dec.Decode(&data); err != nil {
		return nil, fmt.Errorf("decode placeholder: %w", err)
	}
	return data, nil
}

// Seeder inserts data only when no portfolio exists yet. Both the repository
// and the cache-aware service satisfy it.
type Seeder interface {
	Seed(ctx context.Context, data map[string]interface{}) (bool, error)
}

// Run inserts the placeholder portfolio when no document exists and reports
// whether it did. An existing document is never touched.
func Run(ctx context.Context, repo Seeder) (bool, error) {
	data, err := Placeholder()
	if err != nil {
		return false, err
	}
	inserted, err := repo.Seed(ctx, data)
	if err != nil {
		logger.Errorf("error seeding database: %v", err)
		return false, err
	}
	if !inserted {
		logger.Infof("portfolio data already exists, skipping seed; delete the existing document to reseed")
		return false, nil
	}
	logger.Infof("database seeded with placeholder portfolio (%d sections)", len(data))
	return true, nil
}
