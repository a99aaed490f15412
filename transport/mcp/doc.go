// Package mcp exposes Almost Happy Home to AI agents over the Model Context
// Protocol.
//
// The Client is a thin proxy: every tool call becomes a request against the
// REST API, so MCP agents, browsers and WebSocket viewers all observe the
// same sessions.
//
// MCP Tools:
//   - create_session, get_session, list_sessions, delete_session
//   - game_state: stage, round, Happy, AP and a half-cell room map
//   - describe_cell: floor and occupancy of a single grid cell
//   - move_furniture, rotate_furniture, store_item, take_out, merge_furniture
//   - attach_to_wall, detach_from_wall
//   - select_offer, place_selection, cancel_selection
//   - apply_enhancement, request_expansion, end_turn, retry
//   - action_history, list_configs, game_instructions
//
// Transport Modes:
//   - Stdio: server.ServeStdio(client.GetMCPServer())
//   - HTTP: the /mcp route of the server command forwards JSON-RPC bodies to
//     GetMCPServer().HandleMessage
package mcp
