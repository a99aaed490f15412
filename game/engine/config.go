package engine

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// RoundConfig is one round of a stage: the turn threshold and the cumulative
// Happy required when it is reached
type RoundConfig struct {
	Turns         int `json:"turns" yaml:"turns"`
	RequiredHappy int `json:"required_happy" yaml:"required_happy"`
}

// InitialPlacement puts a catalog template on the floor when a stage loads
type InitialPlacement struct {
	Template string   `json:"template" yaml:"template"`
	Pos      GridCell `json:"pos" yaml:"pos"`
	Rotation int      `json:"rotation,omitempty" yaml:"rotation,omitempty"`
	Fixed    bool     `json:"fixed,omitempty" yaml:"fixed,omitempty"`
}

// StageConfig describes one room
type StageConfig struct {
	Name      string             `json:"name" yaml:"name"`
	Width     int                `json:"width" yaml:"width"`
	Height    int                `json:"height" yaml:"height"`
	Rounds    []RoundConfig      `json:"rounds" yaml:"rounds"`
	Furniture []InitialPlacement `json:"furniture,omitempty" yaml:"furniture,omitempty"`
	Obstacles int                `json:"obstacles,omitempty" yaml:"obstacles,omitempty"`
}

// AutoDeliveryConfig controls deliveries the scheduler adds on its own.
// Every == 0 disables them.
type AutoDeliveryConfig struct {
	Every    int `json:"every" yaml:"every"`
	MinTurns int `json:"min_turns" yaml:"min_turns"`
	MaxTurns int `json:"max_turns" yaml:"max_turns"`
}

// MessagesConfig holds the player-facing status lines
type MessagesConfig struct {
	Welcome      string `json:"welcome" yaml:"welcome"`
	RoundCleared string `json:"round_cleared" yaml:"round_cleared"`
	StageCleared string `json:"stage_cleared" yaml:"stage_cleared"`
	Victory      string `json:"victory" yaml:"victory"`
	GameOver     string `json:"game_over" yaml:"game_over"`
	Expansion    string `json:"expansion" yaml:"expansion"`
}

// GameConfig is a complete rule set
type GameConfig struct {
	Name             string              `json:"name" yaml:"name"`
	Description      string              `json:"description" yaml:"description"`
	BaseActionPoints int                 `json:"base_action_points" yaml:"base_action_points"`
	SynergyBonus     *int                `json:"synergy_bonus,omitempty" yaml:"synergy_bonus,omitempty"`
	EnhancementBoost int                 `json:"enhancement_boost" yaml:"enhancement_boost"`
	MinWallSpan      float64             `json:"min_wall_span" yaml:"min_wall_span"`
	OfferCount       int                 `json:"offer_count" yaml:"offer_count"`
	AutoDelivery     AutoDeliveryConfig  `json:"auto_delivery" yaml:"auto_delivery"`
	Seed             int64               `json:"seed,omitempty" yaml:"seed,omitempty"`
	GenerateStages   int                 `json:"generate_stages,omitempty" yaml:"generate_stages,omitempty"`
	Catalog          []FurnitureTemplate `json:"catalog" yaml:"catalog"`
	Stages           []StageConfig       `json:"stages" yaml:"stages"`
	Messages         MessagesConfig      `json:"messages" yaml:"messages"`
}

// obstacleTemplate is the fixed block generated stages scatter around the room
var obstacleTemplate = FurnitureTemplate{
	Name:      "Crate",
	Footprint: Footprint{Width: 1, Height: 1},
	Kind:      KindNormal,
	Height:    1,
}

// Template returns the catalog entry whose merge key matches name
func (c *GameConfig) Template(name string) (FurnitureTemplate, bool) {
	key := MergeKey(name)
	for _, t := range c.Catalog {
		if MergeKey(t.Name) == key {
			return t, true
		}
	}
	return FurnitureTemplate{}, false
}

// Synergy returns the per-item storage synergy. An unset bonus means the
// default; an explicit 0 turns synergy off.
func (c *GameConfig) Synergy() int {
	if c.SynergyBonus == nil {
		return DefaultSynergyBonus
	}
	return *c.SynergyBonus
}

// ApplyDefaults fills unset fields and generates stages when asked to
func (c *GameConfig) ApplyDefaults() {
	if c.BaseActionPoints <= 0 {
		c.BaseActionPoints = DefaultActionPoints
	}
	if c.SynergyBonus == nil {
		bonus := DefaultSynergyBonus
		c.SynergyBonus = &bonus
	}
	if c.EnhancementBoost <= 0 {
		c.EnhancementBoost = DefaultEnhancementBoost
	}
	if c.MinWallSpan <= 0 {
		c.MinWallSpan = DefaultMinWallSpan
	}
	if c.OfferCount <= 0 {
		c.OfferCount = DefaultOfferCount
	}
	if c.AutoDelivery.MinTurns <= 0 {
		c.AutoDelivery.MinTurns = 1
	}
	if c.AutoDelivery.MaxTurns < c.AutoDelivery.MinTurns {
		c.AutoDelivery.MaxTurns = max(3, c.AutoDelivery.MinTurns)
	}
	if len(c.Stages) == 0 && c.GenerateStages > 0 {
		for i := 0; i < c.GenerateStages; i++ {
			c.Stages = append(c.Stages, GenerateStage(i))
		}
	}
	for i := range c.Catalog {
		if c.Catalog[i].Category == "" {
			c.Catalog[i].Category = CategoryNone
		}
		if c.Catalog[i].Kind == "" {
			c.Catalog[i].Kind = KindNormal
		}
	}

	m := &c.Messages
	if m.Welcome == "" {
		m.Welcome = "Welcome home! Place furniture to make the room happy."
	}
	if m.RoundCleared == "" {
		m.RoundCleared = "Round cleared! Pick an enhancement."
	}
	if m.StageCleared == "" {
		m.StageCleared = "Stage cleared! On to %s."
	}
	if m.Victory == "" {
		m.Victory = "Victory! Every room is happy."
	}
	if m.GameOver == "" {
		m.GameOver = "Game over: needed %d Happy, had %d."
	}
	if m.Expansion == "" {
		m.Expansion = "Choose a cell to add to the room."
	}
}

// GenerateStage builds stage i with the standard difficulty curve: the room
// grows by one cell every second stage up to 15, each of the three rounds
// lasts one turn longer than the last, and requirements climb with both the
// stage and the round.
func GenerateStage(i int) StageConfig {
	size := min(8+i/2, 15)
	stage := StageConfig{
		Name:      fmt.Sprintf("Room %d", i+1),
		Width:     size,
		Height:    size,
		Obstacles: min(i, 5),
	}
	for r := 0; r < 3; r++ {
		stage.Rounds = append(stage.Rounds, RoundConfig{
			Turns:         4 + r,
			RequiredHappy: i*25 + (r+1)*15 + r*r*5,
		})
	}
	return stage
}

// ValidateGameConfig validates a game configuration for correctness.
// Defaults are expected to be applied already.
func ValidateGameConfig(config *GameConfig) error {
	if config == nil {
		return fmt.Errorf("config validation: config is nil")
	}
	if strings.TrimSpace(config.Name) == "" {
		return fmt.Errorf("config validation: name must not be empty")
	}
	if config.BaseActionPoints < 1 {
		return fmt.Errorf("config validation: base_action_points must be at least 1, got %d", config.BaseActionPoints)
	}
	if config.Synergy() < 0 {
		return fmt.Errorf("config validation: synergy_bonus must not be negative, got %d", config.Synergy())
	}
	if config.AutoDelivery.Every < 0 {
		return fmt.Errorf("config validation: auto_delivery.every must not be negative, got %d", config.AutoDelivery.Every)
	}
	if config.AutoDelivery.MinTurns < 1 || config.AutoDelivery.MaxTurns < config.AutoDelivery.MinTurns {
		return fmt.Errorf("config validation: auto_delivery turns must satisfy 1 <= min_turns (%d) <= max_turns (%d)",
			config.AutoDelivery.MinTurns, config.AutoDelivery.MaxTurns)
	}

	if len(config.Catalog) == 0 {
		return fmt.Errorf("config validation: catalog must contain at least one furniture template")
	}
	seen := make(map[string]bool)
	for i, t := range config.Catalog {
		if err := validateTemplate(t); err != nil {
			return fmt.Errorf("config validation: catalog[%d]: %v", i, err)
		}
		key := MergeKey(t.Name)
		if seen[key] {
			return fmt.Errorf("config validation: catalog[%d]: duplicate template name %q", i, t.Name)
		}
		seen[key] = true
	}

	if len(config.Stages) == 0 {
		return fmt.Errorf("config validation: at least one stage is required (set stages or generate_stages)")
	}
	for i, stage := range config.Stages {
		if err := validateStage(config, stage); err != nil {
			return fmt.Errorf("config validation: stage %d (%s): %v", i+1, stage.Name, err)
		}
	}
	return nil
}

func validateTemplate(t FurnitureTemplate) error {
	if strings.TrimSpace(t.Name) == "" {
		return fmt.Errorf("name must not be empty")
	}
	if !t.Category.IsValid() {
		return fmt.Errorf("%s: unknown category %q", t.Name, t.Category)
	}
	if !t.Kind.IsValid() {
		return fmt.Errorf("%s: unknown kind %q", t.Name, t.Kind)
	}
	if t.Capacity < 0 {
		return fmt.Errorf("%s: capacity must not be negative", t.Name)
	}
	if t.Kind != KindStorage && (t.Capacity > 0 || len(t.Accepts) > 0) {
		return fmt.Errorf("%s: only storage furniture may set capacity or accepts", t.Name)
	}
	for _, c := range t.Accepts {
		if !c.IsValid() {
			return fmt.Errorf("%s: unknown accepted category %q", t.Name, c)
		}
	}
	w, h := EffectiveSize(t.Footprint, 0)
	if w > MaxGridSize || h > MaxGridSize {
		return fmt.Errorf("%s: footprint %dx%d exceeds %d", t.Name, w, h, MaxGridSize)
	}
	return nil
}

func validateStage(config *GameConfig, stage StageConfig) error {
	if stage.Width < MinGridSize || stage.Width > MaxGridSize ||
		stage.Height < MinGridSize || stage.Height > MaxGridSize {
		return fmt.Errorf("room size %dx%d must be between %d and %d", stage.Width, stage.Height, MinGridSize, MaxGridSize)
	}
	if len(stage.Rounds) == 0 {
		return fmt.Errorf("at least one round is required")
	}
	for r, round := range stage.Rounds {
		if round.Turns < 1 {
			return fmt.Errorf("round %d: turns must be at least 1, got %d", r+1, round.Turns)
		}
		if round.RequiredHappy < 0 {
			return fmt.Errorf("round %d: required_happy must not be negative", r+1)
		}
	}
	if stage.Obstacles < 0 || stage.Obstacles >= stage.Width*stage.Height {
		return fmt.Errorf("obstacles must be between 0 and %d", stage.Width*stage.Height-1)
	}

	grid := NewGrid(stage.Width, stage.Height)
	for i, p := range stage.Furniture {
		t, ok := config.Template(p.Template)
		if !ok {
			return fmt.Errorf("furniture[%d]: unknown template %q", i, p.Template)
		}
		f := t.Instantiate(fmt.Sprintf("check-%d", i))
		f.Rotation = normRotation(p.Rotation)
		pos := p.Pos.Origin()
		if !ValidatePlacement(grid, f, pos, f.Rotation) {
			return fmt.Errorf("furniture[%d]: %s at (%d, %d) is outside the room or overlaps another piece",
				i, t.Name, p.Pos.X, p.Pos.Y)
		}
		f.Pos = pos
		f.State = StateFloor
		grid.AddActive(f)
	}
	return nil
}

// ParseGameConfig decodes a YAML or JSON rule set, applies defaults and validates it
func ParseGameConfig(data []byte) (*GameConfig, error) {
	var config GameConfig
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, err
	}
	config.ApplyDefaults()
	if err := ValidateGameConfig(&config); err != nil {
		return nil, err
	}
	return &config, nil
}

// LoadGameConfig loads a game configuration from a YAML or JSON file
func LoadGameConfig(filename string) (*GameConfig, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, err
	}
	return ParseGameConfig(data)
}

// DefaultConfig returns the built-in rule set used when no file is given
func DefaultConfig() *GameConfig {
	config := &GameConfig{
		Name:           "classic",
		Description:    "Ten generated rooms with the standard catalog",
		GenerateStages: 10,
		AutoDelivery:   AutoDeliveryConfig{Every: 3, MinTurns: 1, MaxTurns: 3},
		Catalog:        DefaultCatalog(),
	}
	config.ApplyDefaults()
	return config
}

// DefaultCatalog returns the standard furniture templates
func DefaultCatalog() []FurnitureTemplate {
	return []FurnitureTemplate{
		{Name: "Chair", Footprint: Footprint{Width: 1, Height: 1}, Height: 1, HappyValue: 2},
		{Name: "Table", Footprint: Footprint{Width: 2, Height: 1}, Height: 1, HappyValue: 3},
		{Name: "Bed", Footprint: Footprint{Width: 2, Height: 2}, Height: 1, HappyValue: 5},
		{Name: "Sofa", Footprint: Footprint{Cells: []GridCell{{0, 0}, {1, 0}, {2, 0}, {0, 1}}}, Height: 1, HappyValue: 6},
		{Name: "Lamp", Footprint: Footprint{Width: 1, Height: 1}, Height: 2, HappyValue: 1, BonusAP: 1},
		{Name: "Apple", Footprint: Footprint{Width: 1, Height: 1}, Category: CategoryFood, HappyValue: 1},
		{Name: "Sweater", Footprint: Footprint{Width: 1, Height: 1}, Category: CategoryClothes, HappyValue: 1},
		{Name: "Novel", Footprint: Footprint{Width: 1, Height: 1}, Category: CategoryBook, HappyValue: 1},
		{Name: "Teddy", Footprint: Footprint{Width: 1, Height: 1}, Category: CategoryToy, HappyValue: 2},
		{Name: "Fridge", Footprint: Footprint{Width: 1, Height: 1}, Kind: KindStorage, Height: 2, HappyValue: 1,
			Capacity: 2, Accepts: []Category{CategoryFood}},
		{Name: "Wardrobe", Footprint: Footprint{Width: 2, Height: 1}, Kind: KindStorage, Height: 2, HappyValue: 1,
			Capacity: 3, Accepts: []Category{CategoryClothes}},
		{Name: "Bookshelf", Footprint: Footprint{Width: 2, Height: 1}, Kind: KindStorage, Height: 2, HappyValue: 1,
			Capacity: 2, Accepts: []Category{CategoryBook}},
		{Name: "Toy Box", Footprint: Footprint{Width: 1, Height: 1}, Kind: KindStorage, Height: 1, HappyValue: 0,
			Capacity: 2},
		{Name: "Painting", Footprint: Footprint{Width: 1, Height: 1}, Kind: KindWall, HappyValue: 3},
		{Name: "Clock", Footprint: Footprint{Width: 1, Height: 1}, Kind: KindWall, HappyValue: 2},
		{Name: "Shelf", Footprint: Footprint{Width: 2, Height: 1}, Kind: KindWall, HappyValue: 2},
	}
}
