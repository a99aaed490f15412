package engine

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestValidateGameConfig_ValidConfig(t *testing.T) {
	if err := ValidateGameConfig(createTestConfig()); err != nil {
		t.Errorf("Expected valid config to pass validation, got: %v", err)
	}
}

func TestValidateGameConfig_DefaultConfig(t *testing.T) {
	if err := ValidateGameConfig(DefaultConfig()); err != nil {
		t.Errorf("Expected the built-in config to pass validation, got: %v", err)
	}
}

func TestValidateGameConfig_MissingName(t *testing.T) {
	config := createTestConfig()
	config.Name = "  "
	err := ValidateGameConfig(config)
	if err == nil {
		t.Fatal("Expected error for missing name")
	}
	if !strings.Contains(err.Error(), "name must not be empty") {
		t.Errorf("Expected name validation error, got: %v", err)
	}
}

func TestValidateGameConfig_InvalidRoomSize(t *testing.T) {
	tests := []struct {
		name          string
		width, height int
	}{
		{"too narrow", 1, 5},
		{"too deep", 5, MaxGridSize + 1},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			config := createTestConfig()
			config.Stages[0].Width = test.width
			config.Stages[0].Height = test.height
			err := ValidateGameConfig(config)
			if err == nil {
				t.Fatalf("Expected error for room %dx%d", test.width, test.height)
			}
			if !strings.Contains(err.Error(), "room size") {
				t.Errorf("Expected room size validation error, got: %v", err)
			}
		})
	}
}

func TestValidateGameConfig_InvalidRounds(t *testing.T) {
	tests := []struct {
		name          string
		rounds        []RoundConfig
		expectedError string
	}{
		{"no rounds", nil, "at least one round"},
		{"zero turns", []RoundConfig{{Turns: 0, RequiredHappy: 5}}, "turns must be at least 1"},
		{"negative requirement", []RoundConfig{{Turns: 3, RequiredHappy: -1}}, "required_happy must not be negative"},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			config := createTestConfig()
			config.Stages[0].Rounds = test.rounds
			err := ValidateGameConfig(config)
			if err == nil {
				t.Fatal("Expected a round validation error")
			}
			if !strings.Contains(err.Error(), test.expectedError) {
				t.Errorf("Expected error containing '%s', got: %v", test.expectedError, err)
			}
		})
	}
}

func TestValidateGameConfig_InvalidCatalog(t *testing.T) {
	tests := []struct {
		name          string
		mutate        func(c *GameConfig)
		expectedError string
	}{
		{"empty", func(c *GameConfig) { c.Catalog = nil }, "at least one furniture template"},
		{"bad category", func(c *GameConfig) { c.Catalog[0].Category = "shoes" }, "unknown category"},
		{"bad kind", func(c *GameConfig) { c.Catalog[0].Kind = "ceiling" }, "unknown kind"},
		{"capacity on plain piece", func(c *GameConfig) { c.Catalog[0].Capacity = 2 }, "only storage furniture"},
		{"bad accepted category", func(c *GameConfig) { c.Catalog[4].Accepts = []Category{"gems"} }, "unknown accepted category"},
		{"duplicate name", func(c *GameConfig) { c.Catalog[1].Name = " chair" }, "duplicate template name"},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			config := createTestConfig()
			test.mutate(config)
			err := ValidateGameConfig(config)
			if err == nil {
				t.Fatal("Expected a catalog validation error")
			}
			if !strings.Contains(err.Error(), test.expectedError) {
				t.Errorf("Expected error containing '%s', got: %v", test.expectedError, err)
			}
		})
	}
}

func TestValidateGameConfig_InitialFurniture(t *testing.T) {
	tests := []struct {
		name          string
		furniture     []InitialPlacement
		expectedError string
	}{
		{"unknown template", []InitialPlacement{{Template: "Piano"}}, "unknown template"},
		{"outside", []InitialPlacement{{Template: "Table", Pos: GridCell{5, 0}}}, "outside the room or overlaps"},
		{"overlap", []InitialPlacement{
			{Template: "Table", Pos: GridCell{0, 0}},
			{Template: "Chair", Pos: GridCell{1, 0}},
		}, "outside the room or overlaps"},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			config := createTestConfig()
			config.Stages[0].Furniture = test.furniture
			err := ValidateGameConfig(config)
			if err == nil {
				t.Fatal("Expected an initial furniture validation error")
			}
			if !strings.Contains(err.Error(), test.expectedError) {
				t.Errorf("Expected error containing '%s', got: %v", test.expectedError, err)
			}
		})
	}

	config := createTestConfig()
	config.Stages[0].Furniture = []InitialPlacement{{Template: "table", Pos: GridCell{5, 0}, Rotation: 1}}
	if err := ValidateGameConfig(config); err != nil {
		t.Errorf("Expected a rotated table at the edge to fit, got: %v", err)
	}
}

func TestGenerateStage(t *testing.T) {
	tests := []struct {
		index     int
		size      int
		obstacles int
		required  []int
	}{
		{0, 8, 0, []int{15, 35, 65}},
		{1, 8, 1, []int{40, 60, 90}},
		{2, 9, 2, []int{65, 85, 115}},
		{20, 15, 5, []int{515, 535, 565}},
	}

	for _, test := range tests {
		stage := GenerateStage(test.index)
		if stage.Width != test.size || stage.Height != test.size {
			t.Errorf("stage %d: expected %dx%d, got %dx%d", test.index, test.size, test.size, stage.Width, stage.Height)
		}
		if stage.Obstacles != test.obstacles {
			t.Errorf("stage %d: expected %d obstacles, got %d", test.index, test.obstacles, stage.Obstacles)
		}
		for r, want := range test.required {
			if stage.Rounds[r].RequiredHappy != want || stage.Rounds[r].Turns != 4+r {
				t.Errorf("stage %d round %d: expected %d happy in %d turns, got %+v", test.index, r, want, 4+r, stage.Rounds[r])
			}
		}
	}
}

func TestApplyDefaults(t *testing.T) {
	config := &GameConfig{Name: "sparse", GenerateStages: 2, Catalog: []FurnitureTemplate{{Name: "Chair"}}}
	config.ApplyDefaults()

	if config.BaseActionPoints != DefaultActionPoints || config.Synergy() != DefaultSynergyBonus {
		t.Errorf("Expected default AP and synergy, got %d and %d", config.BaseActionPoints, config.Synergy())
	}
	if config.EnhancementBoost != DefaultEnhancementBoost {
		t.Errorf("Expected default enhancement boost %d, got %d", DefaultEnhancementBoost, config.EnhancementBoost)
	}
	if config.AutoDelivery.MinTurns != 1 || config.AutoDelivery.MaxTurns != 3 {
		t.Errorf("Expected delivery window 1..3, got %d..%d", config.AutoDelivery.MinTurns, config.AutoDelivery.MaxTurns)
	}
	if len(config.Stages) != 2 {
		t.Errorf("Expected 2 generated stages, got %d", len(config.Stages))
	}
	if config.Catalog[0].Kind != KindNormal || config.Catalog[0].Category != CategoryNone {
		t.Errorf("Expected catalog defaults, got %s/%s", config.Catalog[0].Kind, config.Catalog[0].Category)
	}
	if err := ValidateGameConfig(config); err != nil {
		t.Errorf("Expected defaults to validate, got: %v", err)
	}
}

func TestParseGameConfig_SynergyBonus(t *testing.T) {
	base := `
name: synergy
generate_stages: 1
catalog:
  - name: Chair
    footprint: {width: 1, height: 1}
`
	tests := []struct {
		name string
		line string
		want int
	}{
		{"unset uses default", "", DefaultSynergyBonus},
		{"explicit zero turns synergy off", "synergy_bonus: 0\n", 0},
		{"explicit value", "synergy_bonus: 5\n", 5},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			config, err := ParseGameConfig([]byte(test.line + base))
			if err != nil {
				t.Fatalf("Expected config to parse, got: %v", err)
			}
			if config.Synergy() != test.want {
				t.Errorf("Expected synergy %d, got %d", test.want, config.Synergy())
			}
		})
	}

	if _, err := ParseGameConfig([]byte("synergy_bonus: -1\n" + base)); err == nil || !strings.Contains(err.Error(), "synergy_bonus") {
		t.Errorf("Expected a negative synergy to fail, got: %v", err)
	}
}

func TestParseGameConfig_YAML(t *testing.T) {
	data := []byte(`
name: tiny
base_action_points: 4
catalog:
  - name: Chair
    footprint: {width: 1, height: 1}
    happy_value: 2
  - name: Sofa
    footprint:
      cells: [{x: 0, y: 0}, {x: 1, y: 0}, {x: 0, y: 1}]
    happy_value: 5
  - name: Fridge
    kind: storage
    footprint: {width: 1, height: 1}
    capacity: 2
    accepts: [food]
stages:
  - name: Studio
    width: 5
    height: 4
    rounds:
      - {turns: 3, required_happy: 10}
    furniture:
      - {template: sofa, pos: {x: 1, y: 1}, rotation: 2}
`)
	config, err := ParseGameConfig(data)
	if err != nil {
		t.Fatalf("Expected YAML to parse, got: %v", err)
	}
	if config.BaseActionPoints != 4 {
		t.Errorf("Expected 4 action points, got %d", config.BaseActionPoints)
	}
	if len(config.Catalog[1].Footprint.Cells) != 3 {
		t.Errorf("Expected a 3-cell sofa, got %+v", config.Catalog[1].Footprint)
	}
	if config.Catalog[2].Accepts[0] != CategoryFood {
		t.Errorf("Expected fridge to accept food, got %v", config.Catalog[2].Accepts)
	}
	if config.Stages[0].Furniture[0].Rotation != 2 {
		t.Errorf("Expected rotation 2, got %d", config.Stages[0].Furniture[0].Rotation)
	}
}

func TestLoadGameConfig_JSON(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "tiny.json")
	data := `{
  "name": "tiny-json",
  "generate_stages": 1,
  "catalog": [{"name": "Chair", "footprint": {"width": 1, "height": 1}, "happy_value": 1}]
}`
	if err := os.WriteFile(path, []byte(data), 0644); err != nil {
		t.Fatal(err)
	}

	config, err := LoadGameConfig(path)
	if err != nil {
		t.Fatalf("Expected JSON to load, got: %v", err)
	}
	if config.Name != "tiny-json" || len(config.Stages) != 1 {
		t.Errorf("Unexpected config: %s with %d stages", config.Name, len(config.Stages))
	}

	if _, err := LoadGameConfig(filepath.Join(dir, "missing.json")); err == nil {
		t.Error("Expected an error for a missing file")
	}
}

func TestParseGameConfig_Invalid(t *testing.T) {
	if _, err := ParseGameConfig([]byte("name: [unclosed")); err == nil {
		t.Error("Expected malformed YAML to fail")
	}
	_, err := ParseGameConfig([]byte("name: empty\n"))
	if err == nil || !strings.Contains(err.Error(), "config validation") {
		t.Errorf("Expected a validation error, got: %v", err)
	}
}
