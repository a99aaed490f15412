// Package api provides HTTP REST API handlers for Almost Happy Home.
//
// Endpoints:
//
// Session Management:
//   - POST /api/sessions - Create new session ({"config_id": "classic"})
//   - GET /api/sessions - List sessions (?sort=created|accessed&order=asc|desc&limit=N)
//   - GET /api/sessions/{id} - Get specific session
//   - DELETE /api/sessions/{id} - Delete session
//
// Game State:
//   - GET /api/sessions/{id}/state - Current snapshot
//   - GET /api/sessions/{id}/history - Action history (?page=&limit=&order=)
//
// Furniture (POST /api/sessions/{id}/furniture/{fid}/...):
//   - move, take-out, detach - {"pos": {"x": 4, "y": 2}} or {"cell": {"x": 2, "y": 1}}
//   - rotate - no body
//   - store - {"storage_id": "fridge-1"}
//   - merge - {"target_id": "chair-2"}
//   - wall - {"side": "up_left", "along": 1.5, "elevation": 0.5}
//
// Offers and Progression (POST /api/sessions/{id}/...):
//   - offers/{index}/select
//   - selection/place - {"cell": {"x": 1, "y": 1}, "rotation": 1}
//   - selection/cancel
//   - enhancements - {"kind": "happy_boost", "amount": 1, "target_id": "sofa-1"}
//   - expansion - {"cell": {"x": 6, "y": 0}}
//   - end-turn
//   - retry
//
// Configuration:
//   - GET /api/configs - List rule sets
//   - GET /api/configs/{name} - Load one rule set
//   - POST /api/configs - Save a rule set
//
// A rejected request is not an HTTP error: the response is 200 with
// "success": false and a machine readable "code". Unknown sessions and
// configs answer 404, malformed bodies 400:
//
//	{
//	  "error": "error message"
//	}
//
// Every state-changing request is also pushed to the session's WebSocket
// subscribers at /ws?session={id}, together with its animation cues.
package api
