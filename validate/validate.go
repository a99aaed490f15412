// Package validate lints rule-set files. Besides the structural checks of
// engine.ValidateGameConfig it reports:
//   - catalog pieces that fit in no stage's room
//   - storage pieces that accept no category found in the catalog
//   - rounds whose cumulative threshold does not grow within a stage
package validate

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/wysosilly/almost-happy-home/game/engine"
)

// Result captures the outcome of validating a single file. Errors make the
// file unusable; Warnings and Info are advisory.
type Result struct {
	File     string
	Valid    bool
	Errors   []string
	Warnings []string
	Info     []string
}

// File loads and validates a single rule-set file
func File(path string) Result {
	result := Result{
		File:  filepath.Base(path),
		Valid: true,
	}

	data, err := os.ReadFile(path)
	if err != nil {
		result.fail("Failed to read file: %v", err)
		return result
	}

	var config engine.GameConfig
	if err := yaml.Unmarshal(data, &config); err != nil {
		result.fail("Invalid YAML/JSON: %v", err)
		return result
	}
	config.ApplyDefaults()

	if err := engine.ValidateGameConfig(&config); err != nil {
		result.fail("%v", err)
		return result
	}

	result.Warnings = append(result.Warnings, checkCatalogFits(&config)...)
	result.Warnings = append(result.Warnings, checkStorage(&config)...)
	result.Warnings = append(result.Warnings, checkThresholds(&config)...)

	result.Info = append(result.Info,
		fmt.Sprintf("✓ %s: %d stages, %d catalog pieces, %d AP per turn",
			config.Name, len(config.Stages), len(config.Catalog), config.BaseActionPoints))
	return result
}

// Dir validates every .yaml, .yml and .json file in dir, sorted by name
func Dir(dir string) ([]Result, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}

	var files []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		switch strings.ToLower(filepath.Ext(entry.Name())) {
		case ".yaml", ".yml", ".json":
			files = append(files, filepath.Join(dir, entry.Name()))
		}
	}
	sort.Strings(files)

	results := make([]Result, 0, len(files))
	for _, f := range files {
		results = append(results, File(f))
	}
	return results, nil
}

func (r *Result) fail(format string, args ...interface{}) {
	r.Valid = false
	r.Errors = append(r.Errors, fmt.Sprintf(format, args...))
}

// checkCatalogFits flags templates that no stage room can hold in any rotation
func checkCatalogFits(config *engine.GameConfig) []string {
	var warnings []string
	for _, t := range config.Catalog {
		fits := false
		for _, stage := range config.Stages {
			for rot := 0; rot < engine.MaxRotation && !fits; rot++ {
				w, h := engine.EffectiveSize(t.Footprint, rot)
				fits = w <= stage.Width && h <= stage.Height
			}
			if fits {
				break
			}
		}
		if !fits {
			warnings = append(warnings, fmt.Sprintf("%s fits in no stage room", t.Name))
		}
	}
	return warnings
}

// checkStorage flags storage that nothing in the catalog can be put into
func checkStorage(config *engine.GameConfig) []string {
	categories := map[engine.Category]bool{}
	for _, t := range config.Catalog {
		categories[t.Category] = true
	}

	var warnings []string
	for _, t := range config.Catalog {
		if t.Kind != engine.KindStorage || len(t.Accepts) == 0 {
			continue
		}
		usable := false
		for _, c := range t.Accepts {
			if categories[c] {
				usable = true
				break
			}
		}
		if !usable {
			warnings = append(warnings, fmt.Sprintf("storage %s accepts no category in the catalog", t.Name))
		}
	}
	return warnings
}

// checkThresholds flags rounds that are cleared by arriving. Happy carries
// over between rounds, so a threshold at or below the previous one is free.
func checkThresholds(config *engine.GameConfig) []string {
	var warnings []string
	for i, stage := range config.Stages {
		prev := 0
		for r, round := range stage.Rounds {
			if r > 0 && round.RequiredHappy <= prev {
				warnings = append(warnings, fmt.Sprintf("stage %d (%s) round %d: required_happy %d does not exceed the previous %d",
					i+1, stage.Name, r+1, round.RequiredHappy, prev))
			}
			prev = round.RequiredHappy
		}
	}
	return warnings
}
