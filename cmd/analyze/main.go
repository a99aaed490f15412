// Command analyze prints quick, human-readable heuristics about the rule sets
// in the configs directory. For every stage it summarizes the room, the
// initial furniture and the Happy it yields per turn, then plays the rule set
// headlessly to show how far a simple strategy gets before the first missed
// threshold.
package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"sort"

	"github.com/urfave/cli/v3"
	"github.com/wysosilly/almost-happy-home/game/config"
	"github.com/wysosilly/almost-happy-home/game/engine"
)

// Strategies the simulator understands
const (
	StrategyPassive = "passive"
	StrategyGreedy  = "greedy"
)

// StageReport summarizes one stage of a rule set before any play
type StageReport struct {
	Index          int
	Name           string
	Width, Height  int
	Obstacles      int
	Rounds         []engine.RoundConfig
	InitialPieces  int
	InitialHappy   int
	TotalTurns     int
	FinalThreshold int
}

// SimulationReport is the outcome of one headless playthrough
type SimulationReport struct {
	Strategy      string
	Turns         int
	Happy         int
	RoundsCleared int
	StagesCleared int
	Placed        int
	Victory       bool
	GameOver      *engine.GameOverInfo
}

func main() {
	if err := newApp().Run(context.Background(), os.Args); err != nil {
		log.Fatal(err)
	}
}

func newApp() *cli.Command {
	return &cli.Command{
		Name:      "analyze",
		Usage:     "Summarize rule sets and simulate a headless playthrough",
		ArgsUsage: "[config...]",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config-dir",
				Value:   "configs",
				Usage:   "Directory containing rule set files",
				Sources: cli.EnvVars("CONFIG_DIR"),
			},
			&cli.StringFlag{
				Name:  "strategy",
				Value: StrategyGreedy,
				Usage: "Simulation strategy: passive or greedy",
			},
			&cli.IntFlag{
				Name:  "max-turns",
				Value: 500,
				Usage: "Stop a simulation after this many turns",
			},
		},
		Action: run,
	}
}

func run(ctx context.Context, cmd *cli.Command) error {
	strategy := cmd.String("strategy")
	if strategy != StrategyPassive && strategy != StrategyGreedy {
		return cli.Exit(fmt.Sprintf("unknown strategy %q", strategy), 1)
	}

	manager, err := config.NewManager(cmd.String("config-dir"))
	if err != nil {
		return cli.Exit(err.Error(), 1)
	}

	names := cmd.Args().Slice()
	if len(names) == 0 {
		infos, err := manager.ListConfigs()
		if err != nil {
			return cli.Exit(err.Error(), 1)
		}
		for _, info := range infos {
			names = append(names, info.ConfigID)
		}
	}

	w := cmd.Root().Writer
	failed := false
	for _, name := range names {
		fmt.Fprintf(w, "\n=== Analyzing %s ===\n", name)
		cfg, err := manager.LoadConfig(name)
		if err != nil {
			fmt.Fprintf(w, "Error loading config: %v\n", err)
			failed = true
			continue
		}
		printStages(w, cfg, analyzeStages(cfg))

		report, err := simulate(cfg, strategy, cmd.Int("max-turns"))
		if err != nil {
			fmt.Fprintf(w, "Error simulating: %v\n", err)
			failed = true
			continue
		}
		printSimulation(w, cfg, report)
	}

	if failed {
		return cli.Exit("❌ Some configurations could not be analyzed", 1)
	}
	return nil
}

// analyzeStages builds a StageReport per stage, scoring each stage's initial
// furniture in an otherwise empty room.
func analyzeStages(cfg *engine.GameConfig) []StageReport {
	reports := make([]StageReport, 0, len(cfg.Stages))
	for i, stage := range cfg.Stages {
		r := StageReport{
			Index:         i,
			Name:          stage.Name,
			Width:         stage.Width,
			Height:        stage.Height,
			Obstacles:     stage.Obstacles,
			Rounds:        stage.Rounds,
			InitialPieces: len(stage.Furniture),
		}
		for _, round := range stage.Rounds {
			r.TotalTurns += round.Turns
			r.FinalThreshold = round.RequiredHappy
		}

		single := *cfg
		single.Stages = []engine.StageConfig{stage}
		if e, err := engine.NewEngine(&single); err == nil {
			r.InitialHappy = engine.HappyTotal(e.GetState().Breakdown)
		}
		reports = append(reports, r)
	}
	return reports
}

func printStages(w io.Writer, cfg *engine.GameConfig, stages []StageReport) {
	fmt.Fprintf(w, "Name: %s\n", cfg.Name)
	fmt.Fprintf(w, "Catalog: %d pieces\n", len(cfg.Catalog))
	fmt.Fprintf(w, "Action Points: %d per turn\n", cfg.BaseActionPoints)
	fmt.Fprintf(w, "Synergy Bonus: %d\n", cfg.Synergy())

	for _, s := range stages {
		fmt.Fprintf(w, "Stage %d (%s): %dx%d room, %d obstacles, %d initial pieces\n",
			s.Index+1, s.Name, s.Width, s.Height, s.Obstacles, s.InitialPieces)
		for r, round := range s.Rounds {
			fmt.Fprintf(w, "   Round %d: %d Happy within %d turns\n", r+1, round.RequiredHappy, round.Turns)
		}
		if s.InitialHappy > 0 {
			fmt.Fprintf(w, "   Initial furniture yields %d Happy per turn\n", s.InitialHappy)
		}
		if s.InitialHappy*s.TotalTurns >= s.FinalThreshold && s.FinalThreshold > 0 {
			fmt.Fprintf(w, "⚠️  WARNING: stage %d can be cleared without placing anything\n", s.Index+1)
		}
	}
}

// simulate plays cfg until a terminal phase or maxTurns
func simulate(cfg *engine.GameConfig, strategy string, maxTurns int) (*SimulationReport, error) {
	e, err := engine.NewEngine(cfg)
	if err != nil {
		return nil, err
	}

	report := &SimulationReport{Strategy: strategy}
	for report.Turns < maxTurns && !e.Phase().IsTerminal() {
		if strategy == StrategyGreedy {
			if placeBestOffer(e) {
				report.Placed++
			}
			spendEnhancements(e)
		}

		turn := e.EndTurn()
		if !turn.OK() {
			return nil, turn.Err
		}
		report.Turns++

		switch turn.Transition {
		case engine.TransitionRoundCleared:
			report.RoundsCleared++
		case engine.TransitionStageCleared:
			report.RoundsCleared++
			report.StagesCleared++
		case engine.TransitionVictory:
			report.RoundsCleared++
			report.StagesCleared++
		}
	}

	state := e.GetState()
	report.Happy = state.Happy
	report.Victory = state.Victory
	report.GameOver = state.GameOver
	return report, nil
}

// placeBestOffer selects the highest-valued offer and schedules it on the
// first free spot that destroys nothing on arrival.
func placeBestOffer(e *engine.GameEngine) bool {
	state := e.GetState()
	if len(state.Offers) == 0 || state.ActionPoints < 1 {
		return false
	}

	best := 0
	for i, offer := range state.Offers {
		if offer.HappyValue > state.Offers[best].HappyValue {
			best = i
		}
	}
	offer := state.Offers[best]

	free := make(map[engine.HalfCell]bool, len(state.ValidHalfCells))
	for _, h := range state.ValidHalfCells {
		free[h] = true
	}
	for _, f := range state.Furniture {
		if f.State != engine.StateFloor {
			continue
		}
		for _, h := range engine.OccupiedHalfCells(f.Footprint, f.Rotation, f.Pos) {
			delete(free, h)
		}
	}
	for _, d := range state.Deliveries {
		for _, h := range d.Cells {
			delete(free, h)
		}
	}

	for _, cell := range state.ValidCells {
		for rotation := 0; rotation < engine.MaxRotation; rotation++ {
			if !fits(free, engine.OccupiedHalfCells(offer.Footprint, rotation, cell.Origin())) {
				continue
			}
			if !e.SelectOffer(best).OK() {
				return false
			}
			if e.PlaceSelection(cell.Origin(), rotation).OK() {
				return true
			}
			e.CancelSelection()
			return false
		}
	}
	return false
}

// spendEnhancements puts every pending enhancement into Happy on the floor
// piece that already scores the most.
func spendEnhancements(e *engine.GameEngine) {
	for e.GetState().PendingEnhancements > 0 {
		breakdown := e.GetState().Breakdown
		if len(breakdown) == 0 {
			return
		}
		sort.SliceStable(breakdown, func(i, j int) bool { return breakdown[i].Amount > breakdown[j].Amount })
		if !e.ApplyEnhancement(engine.Enhancement{Kind: engine.EnhanceHappy}, breakdown[0].FurnitureID).OK() {
			return
		}
	}
}

func fits(free map[engine.HalfCell]bool, cells []engine.HalfCell) bool {
	for _, h := range cells {
		if !free[h] {
			return false
		}
	}
	return true
}

func printSimulation(w io.Writer, cfg *engine.GameConfig, r *SimulationReport) {
	fmt.Fprintf(w, "Simulation (%s): %d turns, %d Happy, %d pieces placed\n", r.Strategy, r.Turns, r.Happy, r.Placed)
	fmt.Fprintf(w, "Cleared %d rounds and %d of %d stages\n", r.RoundsCleared, r.StagesCleared, len(cfg.Stages))
	switch {
	case r.Victory:
		fmt.Fprintf(w, "✅ The %s strategy wins this rule set\n", r.Strategy)
	case r.GameOver != nil:
		fmt.Fprintf(w, "💀 Game over at stage %d round %d: needed %d, had %d\n",
			r.GameOver.Stage+1, r.GameOver.Round+1, r.GameOver.Required, r.GameOver.Actual)
	default:
		fmt.Fprintf(w, "⏱  Stopped after %d turns without a result\n", r.Turns)
	}
}
