// Package service provides the business logic layer for Almost Happy Home.
//
// The service package implements:
//   - Multi-session game management
//   - Furniture, offer and progression requests against a session's engine
//   - Presentation cues for every committed or rejected request
//   - Action history paging
//
// Core Interfaces:
//
// GameService is the main service interface providing high-level game operations.
// SessionManager handles session creation, retrieval, and lifecycle.
// ConfigManager manages rule set loading and validation.
//
// Architecture:
//
// The service layer sits between the transport layer (HTTP/WebSocket/MCP) and
// the game engine. A GameEngine is not safe for concurrent use, so the service
// is its single owner and serializes every request.
//
// Usage:
//
//	sessionMgr := session.NewManager()
//	configMgr, _ := config.NewManager("configs")
//	gameService := service.NewGameService(sessionMgr, configMgr)
//
//	info, err := gameService.CreateSession(ctx, "cozy")
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	result, err := gameService.Move(ctx, info.ID, "chair-1", engine.HalfCell{X: 4, Y: 2})
//	turn, err := gameService.EndTurn(ctx, info.ID)
package service
