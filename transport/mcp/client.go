package mcp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/wysosilly/almost-happy-home/game/engine"
	"github.com/wysosilly/almost-happy-home/game/service"
)

// Client is a thin MCP client that proxies to the REST API
type Client struct {
	baseURL    string
	httpClient *http.Client
	mcpServer  *server.MCPServer
}

// NewClient creates a new MCP client that calls the REST API
func NewClient(baseURL string) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}

	c.initMCPServer()
	return c
}

// initMCPServer initializes the MCP server with all tools
func (c *Client) initMCPServer() {
	c.mcpServer = server.NewMCPServer(
		"Almost Happy Home",
		"1.0.0",
		server.WithToolCapabilities(true),
		server.WithInstructions(`Almost Happy Home - MCP Interface

This is a thin client that proxies all requests to the REST API server.

GAME OBJECTIVE:
Arrange furniture in a growing room so every turn earns enough Happy to clear
each round's threshold. Clear every stage to win.

AVAILABLE TOOLS:
- create_session / get_session / list_sessions / delete_session
- game_state: Room map, furniture, offers and round progress
- describe_cell: What occupies one grid cell
- move_furniture, rotate_furniture, store_item, take_out, merge_furniture
- attach_to_wall, detach_from_wall
- select_offer, place_selection, cancel_selection
- apply_enhancement, request_expansion
- end_turn, retry
- action_history, list_configs, game_instructions

Positions default to grid cells. Pass unit="half" to address half-cells.
NOTE: The 'intent' parameter on request tools serves as rubber duck debugging - explain your reasoning!`),
	)

	// Register all tools
	c.registerTools()
}

func sessionProp() map[string]interface{} {
	return map[string]interface{}{
		"type":        "string",
		"description": "Session ID",
	}
}

func furnitureProp() map[string]interface{} {
	return map[string]interface{}{
		"type":        "string",
		"description": "Furniture ID as shown by game_state",
	}
}

func intentProp() map[string]interface{} {
	return map[string]interface{}{
		"type":        "string",
		"description": "Why you are making this request (required)",
	}
}

func positionProps(props map[string]interface{}) map[string]interface{} {
	props["x"] = map[string]interface{}{"type": "integer", "description": "X coordinate"}
	props["y"] = map[string]interface{}{"type": "integer", "description": "Y coordinate"}
	props["unit"] = map[string]interface{}{
		"type":        "string",
		"enum":        []string{"cell", "half"},
		"description": "Coordinate unit: grid cell (default) or half-cell",
	}
	return props
}

// registerTools registers all MCP tools
func (c *Client) registerTools() {
	// Session management
	c.mcpServer.AddTool(mcp.Tool{
		Name:        "create_session",
		Description: "Create a new game session with optional rule set selection",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"config_id": map[string]interface{}{
					"type":        "string",
					"description": "Rule set to use (optional, see list_configs)",
				},
			},
		},
	}, c.handleCreateSession)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "list_sessions",
		Description: "List all active game sessions",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}, c.handleListSessions)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "get_session",
		Description: "Get details of a specific session",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{"session_id": sessionProp()},
			Required:   []string{"session_id"},
		},
	}, c.handleGetSession)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "delete_session",
		Description: "Delete a game session",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{"session_id": sessionProp()},
			Required:   []string{"session_id"},
		},
	}, c.handleDeleteSession)

	// Game state
	c.mcpServer.AddTool(mcp.Tool{
		Name:        "game_state",
		Description: "Get the current room map, furniture, offers and round progress",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{"session_id": sessionProp()},
			Required:   []string{"session_id"},
		},
	}, c.handleGameState)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "describe_cell",
		Description: "Describe one grid cell: whether it is floor, and which furniture covers it",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"session_id": sessionProp(),
				"x":          map[string]interface{}{"type": "integer", "description": "Grid cell X"},
				"y":          map[string]interface{}{"type": "integer", "description": "Grid cell Y"},
			},
			Required: []string{"session_id", "x", "y"},
		},
	}, c.handleDescribeCell)

	// Furniture requests
	c.mcpServer.AddTool(mcp.Tool{
		Name:        "move_furniture",
		Description: "Move a piece so its reference corner lands on a position. Dropping onto storage stores, onto a twin merges. Costs 1 AP",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: positionProps(map[string]interface{}{
				"session_id":   sessionProp(),
				"furniture_id": furnitureProp(),
				"intent":       intentProp(),
			}),
			Required: []string{"session_id", "furniture_id", "x", "y", "intent"},
		},
	}, c.handleMove)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "rotate_furniture",
		Description: "Rotate a floor piece a quarter turn in place",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"session_id":   sessionProp(),
				"furniture_id": furnitureProp(),
				"intent":       intentProp(),
			},
			Required: []string{"session_id", "furniture_id", "intent"},
		},
	}, c.handleRotate)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "store_item",
		Description: "Put an item into a storage piece that accepts its category",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"session_id": sessionProp(),
				"item_id":    furnitureProp(),
				"storage_id": map[string]interface{}{"type": "string", "description": "Storage furniture ID"},
				"intent":     intentProp(),
			},
			Required: []string{"session_id", "item_id", "storage_id", "intent"},
		},
	}, c.handleStore)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "take_out",
		Description: "Take a stored item out of its storage and place it on the floor",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: positionProps(map[string]interface{}{
				"session_id":   sessionProp(),
				"furniture_id": furnitureProp(),
				"intent":       intentProp(),
			}),
			Required: []string{"session_id", "furniture_id", "x", "y", "intent"},
		},
	}, c.handleTakeOut)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "merge_furniture",
		Description: "Merge two pieces with the same name into one upgraded piece",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"session_id": sessionProp(),
				"source_id":  furnitureProp(),
				"target_id":  map[string]interface{}{"type": "string", "description": "Piece that survives the merge"},
				"intent":     intentProp(),
			},
			Required: []string{"session_id", "source_id", "target_id", "intent"},
		},
	}, c.handleMerge)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "attach_to_wall",
		Description: "Hang a wall piece on a realized wall (side up_left or up_right)",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"session_id":   sessionProp(),
				"furniture_id": furnitureProp(),
				"side": map[string]interface{}{
					"type": "string",
					"enum": []string{string(engine.WallNegX), string(engine.WallNegY)},
				},
				"line":      map[string]interface{}{"type": "integer", "description": "Wall line (optional, picks the wall when several share a side)"},
				"along":     map[string]interface{}{"type": "number", "description": "Position along the wall in grid units"},
				"elevation": map[string]interface{}{"type": "number", "description": "Height above the floor"},
				"intent":    intentProp(),
			},
			Required: []string{"session_id", "furniture_id", "side", "along", "intent"},
		},
	}, c.handleAttachToWall)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "detach_from_wall",
		Description: "Take a piece off the wall and put it on the floor",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: positionProps(map[string]interface{}{
				"session_id":   sessionProp(),
				"furniture_id": furnitureProp(),
				"intent":       intentProp(),
			}),
			Required: []string{"session_id", "furniture_id", "x", "y", "intent"},
		},
	}, c.handleDetach)

	// Offers and progression
	c.mcpServer.AddTool(mcp.Tool{
		Name:        "select_offer",
		Description: "Pick one of this turn's offered pieces",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"session_id": sessionProp(),
				"index":      map[string]interface{}{"type": "integer", "description": "Offer index from game_state"},
				"intent":     intentProp(),
			},
			Required: []string{"session_id", "index", "intent"},
		},
	}, c.handleSelectOffer)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "place_selection",
		Description: "Place the selected offer in the room",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: positionProps(map[string]interface{}{
				"session_id": sessionProp(),
				"rotation":   map[string]interface{}{"type": "integer", "description": "Quarter turns 0-3"},
				"intent":     intentProp(),
			}),
			Required: []string{"session_id", "x", "y", "intent"},
		},
	}, c.handlePlaceSelection)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "cancel_selection",
		Description: "Drop the selected offer without placing it",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{"session_id": sessionProp()},
			Required:   []string{"session_id"},
		},
	}, c.handleCancelSelection)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "apply_enhancement",
		Description: "Spend a pending enhancement: happy_boost or action_boost on a piece, grid_expansion on the room",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"session_id": sessionProp(),
				"kind": map[string]interface{}{
					"type": "string",
					"enum": []string{string(engine.EnhanceHappy), string(engine.EnhanceActionPoints), string(engine.EnhanceGridExpansion)},
				},
				"target_id": map[string]interface{}{"type": "string", "description": "Furniture to enhance (not for grid_expansion)"},
				"intent":    intentProp(),
			},
			Required: []string{"session_id", "kind", "intent"},
		},
	}, c.handleApplyEnhancement)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "request_expansion",
		Description: "Add one grid cell to the room (only while an expansion is pending)",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"session_id": sessionProp(),
				"x":          map[string]interface{}{"type": "integer", "description": "Grid cell X"},
				"y":          map[string]interface{}{"type": "integer", "description": "Grid cell Y"},
				"intent":     intentProp(),
			},
			Required: []string{"session_id", "x", "y", "intent"},
		},
	}, c.handleRequestExpansion)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "end_turn",
		Description: "Score the room, land deliveries and check the round threshold",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"session_id": sessionProp(),
				"intent":     intentProp(),
			},
			Required: []string{"session_id", "intent"},
		},
	}, c.handleEndTurn)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "retry",
		Description: "Restart the current stage after a game over",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{"session_id": sessionProp()},
			Required:   []string{"session_id"},
		},
	}, c.handleRetry)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "action_history",
		Description: "Get paginated action history for a session",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"session_id": sessionProp(),
				"page":       map[string]interface{}{"type": "integer", "description": "Page number (default 1)"},
				"limit":      map[string]interface{}{"type": "integer", "description": "Entries per page (default 20)"},
			},
			Required: []string{"session_id"},
		},
	}, c.handleActionHistory)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "list_configs",
		Description: "List available rule sets",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}, c.handleListConfigs)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "game_instructions",
		Description: "Get the rules of the game",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}, c.handleGameInstructions)
}

// GetMCPServer returns the underlying MCP server
func (c *Client) GetMCPServer() *server.MCPServer {
	return c.mcpServer
}

// Helper methods for API calls

func (c *Client) apiCall(method, path string, body interface{}, result interface{}) error {
	url := c.baseURL + path

	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reqBody = bytes.NewBuffer(data)
	}

	req, err := http.NewRequest(method, url, reqBody)
	if err != nil {
		return err
	}

	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		var errResp map[string]string
		json.NewDecoder(resp.Body).Decode(&errResp)
		if msg, ok := errResp["error"]; ok {
			return fmt.Errorf("%s", msg)
		}
		return fmt.Errorf("API error: %d", resp.StatusCode)
	}

	if result != nil {
		return json.NewDecoder(resp.Body).Decode(result)
	}

	return nil
}

func sessionPath(sessionID string, parts ...string) string {
	p := "/api/sessions/" + url.PathEscape(sessionID)
	for _, part := range parts {
		p += "/" + part
	}
	return p
}

func intArg(args map[string]interface{}, key string) (int, bool) {
	v, ok := args[key].(float64)
	return int(v), ok
}

// positionBody turns x, y and unit arguments into a REST position body
func positionBody(args map[string]interface{}) (map[string]interface{}, error) {
	x, okX := intArg(args, "x")
	y, okY := intArg(args, "y")
	if !okX || !okY {
		return nil, fmt.Errorf("x and y are required")
	}
	key := "cell"
	if unit, _ := args["unit"].(string); unit == "half" {
		key = "pos"
	}
	return map[string]interface{}{key: map[string]int{"x": x, "y": y}}, nil
}

// Tool handlers

func (c *Client) handleCreateSession(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := request.Params.Arguments.(map[string]interface{})
	configID, _ := args["config_id"].(string)

	body := map[string]string{}
	if configID != "" {
		body["config_id"] = configID
	}

	var session service.SessionInfo
	err := c.apiCall("POST", "/api/sessions", body, &session)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	result := fmt.Sprintf("Created session: %s\nConfig: %s\n\n%s", session.ID, session.ConfigName, formatGameState(session.GameState))
	return mcp.NewToolResultText(result), nil
}

func (c *Client) handleListSessions(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var response struct {
		Count    int                   `json:"count"`
		Sessions []service.SessionInfo `json:"sessions"`
	}

	err := c.apiCall("GET", "/api/sessions", nil, &response)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	result := fmt.Sprintf("Active Sessions (%d):\n\n", response.Count)
	for _, s := range response.Sessions {
		result += fmt.Sprintf("- %s (Config: %s, Created: %s)\n",
			s.ID, s.ConfigName, s.CreatedAt.Format("15:04:05"))
	}

	return mcp.NewToolResultText(result), nil
}

func (c *Client) handleGetSession(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := request.Params.Arguments.(map[string]interface{})
	sessionID, _ := args["session_id"].(string)

	var session service.SessionInfo
	err := c.apiCall("GET", sessionPath(sessionID), nil, &session)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(formatSessionInfo(&session)), nil
}

func (c *Client) handleDeleteSession(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := request.Params.Arguments.(map[string]interface{})
	sessionID, _ := args["session_id"].(string)

	var response map[string]string
	if err := c.apiCall("DELETE", sessionPath(sessionID), nil, &response); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(response["message"]), nil
}

func (c *Client) handleGameState(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := request.Params.Arguments.(map[string]interface{})
	sessionID, _ := args["session_id"].(string)

	var state engine.GameState
	err := c.apiCall("GET", sessionPath(sessionID, "state"), nil, &state)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(formatGameState(&state)), nil
}

func (c *Client) handleDescribeCell(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := request.Params.Arguments.(map[string]interface{})
	sessionID, _ := args["session_id"].(string)
	x, okX := intArg(args, "x")
	y, okY := intArg(args, "y")
	if !okX || !okY {
		return mcp.NewToolResultError("x and y are required"), nil
	}

	var state engine.GameState
	if err := c.apiCall("GET", sessionPath(sessionID, "state"), nil, &state); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(describeCell(&state, engine.GridCell{X: x, Y: y})), nil
}

// action posts one engine request and formats the ActionResult
func (c *Client) action(path string, body interface{}) (*mcp.CallToolResult, error) {
	var result service.ActionResult
	if err := c.apiCall("POST", path, body, &result); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(formatActionResult(&result)), nil
}

func (c *Client) handleMove(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := request.Params.Arguments.(map[string]interface{})
	sessionID, _ := args["session_id"].(string)
	furnitureID, _ := args["furniture_id"].(string)
	intent, _ := args["intent"].(string)

	// Intent parameter serves as rubber duck debugging - we don't need to process it further
	_ = intent

	body, err := positionBody(args)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return c.action(sessionPath(sessionID, "furniture", url.PathEscape(furnitureID), "move"), body)
}

func (c *Client) handleRotate(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := request.Params.Arguments.(map[string]interface{})
	sessionID, _ := args["session_id"].(string)
	furnitureID, _ := args["furniture_id"].(string)

	return c.action(sessionPath(sessionID, "furniture", url.PathEscape(furnitureID), "rotate"), nil)
}

func (c *Client) handleStore(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := request.Params.Arguments.(map[string]interface{})
	sessionID, _ := args["session_id"].(string)
	itemID, _ := args["item_id"].(string)
	storageID, _ := args["storage_id"].(string)

	body := map[string]string{"storage_id": storageID}
	return c.action(sessionPath(sessionID, "furniture", url.PathEscape(itemID), "store"), body)
}

func (c *Client) handleTakeOut(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := request.Params.Arguments.(map[string]interface{})
	sessionID, _ := args["session_id"].(string)
	furnitureID, _ := args["furniture_id"].(string)

	body, err := positionBody(args)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return c.action(sessionPath(sessionID, "furniture", url.PathEscape(furnitureID), "take-out"), body)
}

func (c *Client) handleMerge(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := request.Params.Arguments.(map[string]interface{})
	sessionID, _ := args["session_id"].(string)
	sourceID, _ := args["source_id"].(string)
	targetID, _ := args["target_id"].(string)

	body := map[string]string{"target_id": targetID}
	return c.action(sessionPath(sessionID, "furniture", url.PathEscape(sourceID), "merge"), body)
}

func (c *Client) handleAttachToWall(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := request.Params.Arguments.(map[string]interface{})
	sessionID, _ := args["session_id"].(string)
	furnitureID, _ := args["furniture_id"].(string)
	side, _ := args["side"].(string)
	along, _ := args["along"].(float64)
	elevation, _ := args["elevation"].(float64)

	hit := engine.WallHit{
		Side:      engine.WallSide(side),
		Along:     along,
		Elevation: elevation,
	}
	if line, ok := intArg(args, "line"); ok {
		hit.Line = &line
	}
	return c.action(sessionPath(sessionID, "furniture", url.PathEscape(furnitureID), "wall"), hit)
}

func (c *Client) handleDetach(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := request.Params.Arguments.(map[string]interface{})
	sessionID, _ := args["session_id"].(string)
	furnitureID, _ := args["furniture_id"].(string)

	body, err := positionBody(args)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return c.action(sessionPath(sessionID, "furniture", url.PathEscape(furnitureID), "detach"), body)
}

func (c *Client) handleSelectOffer(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := request.Params.Arguments.(map[string]interface{})
	sessionID, _ := args["session_id"].(string)
	index, ok := intArg(args, "index")
	if !ok {
		return mcp.NewToolResultError("index is required"), nil
	}

	return c.action(sessionPath(sessionID, "offers", fmt.Sprint(index), "select"), nil)
}

func (c *Client) handlePlaceSelection(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := request.Params.Arguments.(map[string]interface{})
	sessionID, _ := args["session_id"].(string)

	body, err := positionBody(args)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if rotation, ok := intArg(args, "rotation"); ok {
		body["rotation"] = rotation
	}
	return c.action(sessionPath(sessionID, "selection", "place"), body)
}

func (c *Client) handleCancelSelection(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := request.Params.Arguments.(map[string]interface{})
	sessionID, _ := args["session_id"].(string)

	return c.action(sessionPath(sessionID, "selection", "cancel"), nil)
}

func (c *Client) handleApplyEnhancement(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := request.Params.Arguments.(map[string]interface{})
	sessionID, _ := args["session_id"].(string)
	kind, _ := args["kind"].(string)
	targetID, _ := args["target_id"].(string)

	body := map[string]interface{}{"kind": kind}
	if targetID != "" {
		body["target_id"] = targetID
	}
	return c.action(sessionPath(sessionID, "enhancements"), body)
}

func (c *Client) handleRequestExpansion(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := request.Params.Arguments.(map[string]interface{})
	sessionID, _ := args["session_id"].(string)
	x, okX := intArg(args, "x")
	y, okY := intArg(args, "y")
	if !okX || !okY {
		return mcp.NewToolResultError("x and y are required"), nil
	}

	body := map[string]interface{}{"cell": map[string]int{"x": x, "y": y}}
	return c.action(sessionPath(sessionID, "expansion"), body)
}

func (c *Client) handleEndTurn(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := request.Params.Arguments.(map[string]interface{})
	sessionID, _ := args["session_id"].(string)

	var result service.TurnResult
	if err := c.apiCall("POST", sessionPath(sessionID, "end-turn"), nil, &result); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(formatTurnResult(&result)), nil
}

func (c *Client) handleRetry(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := request.Params.Arguments.(map[string]interface{})
	sessionID, _ := args["session_id"].(string)

	return c.action(sessionPath(sessionID, "retry"), nil)
}

func (c *Client) handleActionHistory(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := request.Params.Arguments.(map[string]interface{})
	sessionID, _ := args["session_id"].(string)

	params := url.Values{}
	if page, ok := intArg(args, "page"); ok {
		params.Set("page", fmt.Sprint(page))
	}
	if limit, ok := intArg(args, "limit"); ok {
		params.Set("limit", fmt.Sprint(limit))
	}
	path := sessionPath(sessionID, "history")
	if len(params) > 0 {
		path += "?" + params.Encode()
	}

	var history service.HistoryResponse
	if err := c.apiCall("GET", path, nil, &history); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(formatHistory(&history)), nil
}

func (c *Client) handleListConfigs(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var configs []service.ConfigInfo
	err := c.apiCall("GET", "/api/configs", nil, &configs)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	result := "Available Configurations:\n\n"
	for _, config := range configs {
		result += fmt.Sprintf("• %s (%s)\n  %s\n  Stages: %d, Catalog: %d pieces, AP per turn: %d\n\n",
			config.ConfigID, config.Name, config.Description, config.Stages, config.CatalogSize, config.BaseActionPoints)
	}

	return mcp.NewToolResultText(result), nil
}

func (c *Client) handleGameInstructions(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultText(gameInstructions), nil
}

const gameInstructions = `ALMOST HAPPY HOME - RULES

GOAL
Every stage is a room split into rounds. Each round has a number of turns and
a Happy threshold. Happy accumulates at the end of every turn; reach the
threshold before the round's last turn ends or the game is over. Clearing the
last round of a stage moves you to the next, larger room. Clear every stage
to win.

THE ROOM
- The floor is a set of grid cells. Each grid cell is 2x2 half-cells and
  pieces may sit on half-cell offsets.
- Walls exist only on the far sides (up_left, up_right) of the room.
- game_state draws the room at half-cell resolution: '.' is free floor,
  letters are furniture (see the legend), blank is outside the room.

ACTIONS (each costs 1 action point unless noted)
- move_furniture: move a floor piece. Dropping it on a storage piece stores
  it; dropping it on a piece with the same name merges them. Moving to the
  spot it already occupies is free.
- rotate_furniture: free quarter turn in place.
- store_item / take_out: storage holds items of the categories it accepts,
  up to its capacity. Stored items still count toward Happy.
- merge_furniture: two pieces with the same name become one stronger piece.
- attach_to_wall / detach_from_wall: wall pieces hang on realized walls.
- select_offer + place_selection: each turn offers new pieces. Picking one
  uses up that turn's offers.
- request_expansion: only after a grid_expansion enhancement; the new cell
  must touch the room.

END OF TURN
end_turn scores every piece (base Happy, stored items and synergy between
neighbours), lands pending deliveries, refills action points and checks the
round threshold. Deliveries that land on occupied cells crush what is there.

ENHANCEMENTS
Clearing a stage grants an enhancement: happy_boost or action_boost on a
piece, or grid_expansion to grow the room by one cell.

Use retry after a game over to restart the current stage.`

func formatSessionInfo(session *service.SessionInfo) string {
	return fmt.Sprintf("Session: %s\nConfig: %s\nCreated: %s\n\n%s",
		session.ID, session.ConfigName,
		session.CreatedAt.Format("2006-01-02 15:04:05"),
		formatGameState(session.GameState))
}

// legendLetters labels furniture on the room map
const legendLetters = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz"

func formatGameState(state *engine.GameState) string {
	if state == nil {
		return "No game state available"
	}

	var result strings.Builder

	result.WriteString(fmt.Sprintf("Stage %d/%d: %s | Round %d/%d | Turn %d/%d\n",
		state.StageIndex+1, state.StageCount, state.StageName,
		state.RoundIndex+1, state.RoundCount, state.RoundTurn, state.TurnsInRound))
	result.WriteString(fmt.Sprintf("Happy: %d/%d | AP: %d | Phase: %s\n\n",
		state.Happy, state.RequiredHappy, state.ActionPoints, state.Phase))

	var floor []engine.FurnitureView
	for _, f := range state.Furniture {
		if f.State == engine.StateFloor {
			floor = append(floor, f)
		}
	}
	result.WriteString(formatRoomMap(state, floor))

	if len(state.Furniture) > 0 {
		result.WriteString("\nFurniture:\n")
		letter := 0
		for _, f := range state.Furniture {
			tag := " "
			if f.State == engine.StateFloor && letter < len(legendLetters) {
				tag = string(legendLetters[letter])
				letter++
			}
			result.WriteString(fmt.Sprintf("  %s %s\n", tag, formatFurniture(f)))
			for _, s := range f.Stored {
				result.WriteString(fmt.Sprintf("      └ %s\n", formatFurniture(s)))
			}
		}
	}

	if len(state.Deliveries) > 0 {
		result.WriteString("\nIncoming deliveries:\n")
		for _, d := range state.Deliveries {
			result.WriteString(fmt.Sprintf("  %s %s at (%d,%d) in %d turn(s)\n",
				d.ID, d.Name, d.Target.X, d.Target.Y, d.TurnsLeft))
		}
	}

	if len(state.Offers) > 0 {
		result.WriteString("\nOffers:\n")
		for i, o := range state.Offers {
			w, h := engine.EffectiveSize(o.Footprint, 0)
			result.WriteString(fmt.Sprintf("  [%d] %s %dx%d happy=%d\n", i, o.Name, w, h, o.HappyValue))
		}
	}
	if state.Selection != nil {
		result.WriteString(fmt.Sprintf("\nSelected: %s (use place_selection)\n", state.Selection.Name))
	}
	if state.PendingEnhancements > 0 {
		result.WriteString(fmt.Sprintf("\nPending enhancements: %d\n", state.PendingEnhancements))
	}
	if len(state.ExpansionCandidates) > 0 {
		cells := make([]string, 0, len(state.ExpansionCandidates))
		for _, c := range state.ExpansionCandidates {
			cells = append(cells, fmt.Sprintf("(%d,%d)", c.X, c.Y))
		}
		result.WriteString(fmt.Sprintf("\nExpansion candidates: %s\n", strings.Join(cells, " ")))
	}

	// Status
	if state.Victory {
		result.WriteString("\n🎉 VICTORY!")
	} else if state.GameOver != nil {
		result.WriteString(fmt.Sprintf("\n💀 GAME OVER (needed %d, had %d)", state.GameOver.Required, state.GameOver.Actual))
	}

	if state.Message != "" {
		result.WriteString(fmt.Sprintf("\nMessage: %s", state.Message))
	}

	return result.String()
}

func formatFurniture(f engine.FurnitureView) string {
	line := fmt.Sprintf("%s %s", f.ID, f.Name)
	switch f.State {
	case engine.StateFloor:
		line += fmt.Sprintf(" @(%d,%d) %dx%d rot=%d", f.Pos.X, f.Pos.Y, f.Width, f.Depth, f.Rotation)
	case engine.StateWall:
		if f.Wall != nil {
			line += fmt.Sprintf(" on %s wall %.1f/%.1f", f.Wall.Side, f.Wall.Along, f.Wall.Elevation)
		}
	default:
		line += " " + string(f.State)
	}
	line += fmt.Sprintf(" happy=%d", f.HappyValue)
	if f.MergeLevel > 0 {
		line += fmt.Sprintf(" lvl=%d", f.MergeLevel)
	}
	if f.Kind == engine.KindStorage {
		line += fmt.Sprintf(" storage %d/%d", len(f.Stored), f.Capacity)
	}
	if f.Fixed {
		line += " fixed"
	}
	return line
}

// formatRoomMap draws the floor at half-cell resolution
func formatRoomMap(state *engine.GameState, floor []engine.FurnitureView) string {
	if len(state.ValidHalfCells) == 0 {
		return ""
	}

	valid := make(map[engine.HalfCell]bool, len(state.ValidHalfCells))
	maxX, maxY := 0, 0
	for _, h := range state.ValidHalfCells {
		valid[h] = true
		if h.X > maxX {
			maxX = h.X
		}
		if h.Y > maxY {
			maxY = h.Y
		}
	}

	occupant := make(map[engine.HalfCell]byte)
	for i, f := range floor {
		if i >= len(legendLetters) {
			break
		}
		for _, h := range engine.OccupiedHalfCells(f.Footprint, f.Rotation, f.Pos) {
			occupant[h] = legendLetters[i]
		}
	}

	var b strings.Builder
	for y := 0; y <= maxY; y++ {
		for x := 0; x <= maxX; x++ {
			h := engine.HalfCell{X: x, Y: y}
			switch {
			case occupant[h] != 0:
				b.WriteByte(occupant[h])
			case valid[h]:
				b.WriteByte('.')
			default:
				b.WriteByte(' ')
			}
		}
		b.WriteString("\n")
	}
	return b.String()
}

func describeCell(state *engine.GameState, cell engine.GridCell) string {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("Cell (%d,%d) = half-cells (%d..%d, %d..%d)\n",
		cell.X, cell.Y, 2*cell.X, 2*cell.X+1, 2*cell.Y, 2*cell.Y+1))

	inside := false
	for _, c := range state.ValidCells {
		if c == cell {
			inside = true
			break
		}
	}
	if !inside {
		b.WriteString("Outside the room")
		for _, c := range state.ExpansionCandidates {
			if c == cell {
				b.WriteString(" (expansion candidate)")
				break
			}
		}
		return b.String()
	}
	b.WriteString("Floor\n")

	halves := cell.HalfCells()
	covered := map[string]int{}
	var ids []string
	for _, f := range state.Furniture {
		if f.State != engine.StateFloor {
			continue
		}
		for _, h := range engine.OccupiedHalfCells(f.Footprint, f.Rotation, f.Pos) {
			for _, ch := range halves {
				if h == ch {
					if covered[f.ID] == 0 {
						ids = append(ids, f.ID)
					}
					covered[f.ID]++
				}
			}
		}
	}
	if len(ids) == 0 {
		b.WriteString("Empty")
		return b.String()
	}
	sort.Strings(ids)
	for _, id := range ids {
		b.WriteString(fmt.Sprintf("- %s covers %d/4 half-cells\n", id, covered[id]))
	}
	return b.String()
}

func formatActionResult(result *service.ActionResult) string {
	var b strings.Builder
	if result.Success {
		b.WriteString("✓ ")
		if result.Outcome != "" {
			b.WriteString(string(result.Outcome) + ": ")
		}
	} else {
		b.WriteString(fmt.Sprintf("✗ Rejected (%s): ", result.Code))
	}
	b.WriteString(result.Message)
	if result.Error != "" && !result.Success {
		b.WriteString("\nReason: " + result.Error)
	}
	if len(result.Rejected) > 0 {
		b.WriteString("\nRejected furniture: " + strings.Join(result.Rejected, ", "))
	}
	b.WriteString("\n\n" + formatGameState(result.GameState))
	return b.String()
}

func formatTurnResult(result *service.TurnResult) string {
	if !result.Success {
		return fmt.Sprintf("✗ Rejected (%s): %s\n\n%s", result.Code, result.Error, formatGameState(result.GameState))
	}

	rep := result.Report
	var b strings.Builder
	b.WriteString(fmt.Sprintf("Turn scored %d Happy\n", rep.Scored))
	for _, e := range rep.Breakdown {
		if e.Amount == 0 {
			continue
		}
		b.WriteString(fmt.Sprintf("  %s %s: +%d (base %d", e.FurnitureID, e.Name, e.Amount, e.Base))
		if e.Stored != 0 {
			b.WriteString(fmt.Sprintf(", stored %d", e.Stored))
		}
		if e.Synergy != 0 {
			b.WriteString(fmt.Sprintf(", synergy %d", e.Synergy))
		}
		b.WriteString(")\n")
	}
	if len(rep.Delivered) > 0 {
		b.WriteString("Delivered: " + strings.Join(rep.Delivered, ", ") + "\n")
	}
	if len(rep.Destroyed) > 0 {
		b.WriteString("Destroyed: " + strings.Join(rep.Destroyed, ", ") + "\n")
	}
	if len(rep.Undelivered) > 0 {
		b.WriteString("Turned away: " + strings.Join(rep.Undelivered, ", ") + "\n")
	}
	if rep.Transition != "" && rep.Transition != engine.TransitionNone {
		b.WriteString("Transition: " + string(rep.Transition) + "\n")
	}
	b.WriteString("\n" + formatGameState(result.GameState))
	return b.String()
}

func formatHistory(history *service.HistoryResponse) string {
	result := fmt.Sprintf("Action History (Page %d/%d) - Total: %d\n\n",
		history.Page, history.TotalPages, history.TotalActions)

	for _, entry := range history.Actions {
		status := "✓"
		if entry.Error != "" {
			status = "✗"
		}
		line := fmt.Sprintf("%d. %s", entry.Seq, entry.Action)
		if entry.FurnitureID != "" {
			line += " " + entry.FurnitureID
		}
		if entry.OtherID != "" {
			line += " -> " + entry.OtherID
		}
		if entry.Target != nil {
			line += fmt.Sprintf(" @(%d,%d)", entry.Target.X, entry.Target.Y)
		}
		result += fmt.Sprintf("%s %s [Turn %d, AP %d, Happy %d]\n", line, status, entry.Turn, entry.ActionPoints, entry.Happy)
	}

	return result
}
