// Package session provides in-memory session management for Almost Happy Home.
//
// The session package implements:
//   - Thread-safe session storage and retrieval
//   - Short session ID generation
//   - Expiry of sessions that have not been touched for a while
//
// Sessions use 4-character hex IDs for easy reference and are matched
// case-insensitively. Each session owns its own engine; the game service
// serializes calls into it.
//
// Usage:
//
//	manager := session.NewManager()
//
//	sess, err := manager.Create("", config)
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	go manager.RunCleanup(ctx, 24*time.Hour, time.Hour)
//
// Sessions live only as long as the process; there is no save format.
package session
