// Package websocket fans game snapshots and presentation cues out to the
// front-ends watching a session.
//
// A central Hub owns every connection. Register, unregister and broadcast
// requests all go through the hub's event loop, so the client sets are only
// touched from one goroutine.
//
// Outgoing messages are JSON:
//
//	{"session_id": "a1b2", "event": "state_update", "game_state": {...}, "cues": [...]}
//
// Clients pick their session with the ?session= query parameter. Incoming
// frames are read only to keep the connection alive; requests go through the
// REST API.
//
// Usage:
//
//	hub := websocket.NewHub()
//	go hub.Run()
//
//	hub.BroadcastToSession(sessionID, state, cues)
package websocket
