// Package engine provides the core game logic for Almost Happy Home.
//
// The engine package implements the game mechanics including:
//   - Half-cell occupancy with rectangle and polyomino footprints
//   - Placement, storage, merging and wall mounting
//   - Room expansion and wall derivation
//   - Deliveries, turns and round/stage progression
//   - Happy scoring with storage synergy
//
// Core Types:
//
// The Engine interface defines the request surface, implemented by
// GameEngine. Every request returns a Result; rejections are values, never
// panics. GameState is a detached snapshot for front-ends, while GameConfig
// defines the rules, catalog and stages loaded from YAML or JSON.
//
// Usage:
//
//	config, err := engine.LoadGameConfig("configs/classic.yaml")
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	gameEngine, err := engine.NewEngine(config)
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	if res := gameEngine.SelectOffer(0); res.OK() {
//		gameEngine.PlaceSelection(engine.HalfCell{X: 0, Y: 0}, 0)
//	}
//	report := gameEngine.EndTurn()
//	state := gameEngine.GetState()
//
// Game Rules:
//
// Each turn the player spends action points moving, storing, merging and
// hanging furniture, and may pick one offered piece for delivery. Ending the
// turn scores every piece in the room, lands due deliveries (crushing what is
// beneath them) and checks the round's Happy threshold. Missing a threshold
// ends the game until Retry; clearing a round grants an enhancement.
package engine
