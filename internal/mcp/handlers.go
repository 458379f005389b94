package mcp

import (
	"context"
	"encoding/json"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/AO-5002/piecewall/internal/errors"
	"github.com/AO-5002/piecewall/internal/ops"
)

// Handlers holds dependencies for MCP tool handlers.
type Handlers struct {
	svc *ops.Service
}

// NewHandlers creates a new Handlers instance.
func NewHandlers(svc *ops.Service) *Handlers {
	return &Handlers{svc: svc}
}

// Request types for each tool

// RoomRequest represents the arguments of tools that only take a room.
type RoomRequest struct {
	Room string `json:"room"`
}

// AddRequest represents the arguments for piece_add.
type AddRequest struct {
	Room  string `json:"room"`
	Text  string `json:"text,omitempty"`
	Color string `json:"color,omitempty"`
}

// PieceRequest represents the arguments of tools addressing one piece.
type PieceRequest struct {
	Room string `json:"room"`
	ID   string `json:"id"`
}

// UpdateRequest represents the arguments for piece_update.
type UpdateRequest struct {
	Room string `json:"room"`
	ID   string `json:"id"`
	Text string `json:"text"`
}

// RecolorRequest represents the arguments for piece_recolor.
type RecolorRequest struct {
	Room  string `json:"room"`
	ID    string `json:"id"`
	Color string `json:"color"`
}

// ExportRequest represents the arguments for wall_export.
type ExportRequest struct {
	Room string `json:"room"`
	Path string `json:"path,omitempty"`
}

// ImportRequest represents the arguments for wall_import.
type ImportRequest struct {
	Path string `json:"path"`
	Room string `json:"room,omitempty"`
	Mode string `json:"mode,omitempty"`
}

// Handler implementations

// HandleAdd handles the piece_add tool call.
func (h *Handlers) HandleAdd(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[AddRequest](req)
	if err != nil {
		return errorResult(err), nil
	}

	result, err := h.svc.Add(ctx, ops.AddInput{
		Room:  input.Room,
		Text:  input.Text,
		Color: input.Color,
	})
	if err != nil {
		return errorResult(err), nil
	}

	return successResult(result)
}

// HandleUpdate handles the piece_update tool call.
func (h *Handlers) HandleUpdate(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[UpdateRequest](req)
	if err != nil {
		return errorResult(err), nil
	}

	result, err := h.svc.UpdateText(ctx, ops.UpdateTextInput{
		Room: input.Room,
		ID:   input.ID,
		Text: input.Text,
	})
	if err != nil {
		return errorResult(err), nil
	}

	return successResult(result)
}

// HandleDelete handles the piece_delete tool call.
func (h *Handlers) HandleDelete(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[PieceRequest](req)
	if err != nil {
		return errorResult(err), nil
	}

	result, err := h.svc.Delete(ctx, ops.DeleteInput{Room: input.Room, ID: input.ID})
	if err != nil {
		return errorResult(err), nil
	}

	return successResult(result)
}

// HandleDuplicate handles the piece_duplicate tool call.
func (h *Handlers) HandleDuplicate(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[PieceRequest](req)
	if err != nil {
		return errorResult(err), nil
	}

	result, err := h.svc.Duplicate(ctx, ops.DuplicateInput{Room: input.Room, ID: input.ID})
	if err != nil {
		return errorResult(err), nil
	}

	return successResult(result)
}

// HandleRecolor handles the piece_recolor tool call.
func (h *Handlers) HandleRecolor(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[RecolorRequest](req)
	if err != nil {
		return errorResult(err), nil
	}

	result, err := h.svc.Recolor(ctx, ops.RecolorInput{
		Room:  input.Room,
		ID:    input.ID,
		Color: input.Color,
	})
	if err != nil {
		return errorResult(err), nil
	}

	return successResult(result)
}

// HandleShow handles the wall_show tool call.
func (h *Handlers) HandleShow(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[RoomRequest](req)
	if err != nil {
		return errorResult(err), nil
	}

	result, err := h.svc.Get(ctx, ops.GetInput{Room: input.Room})
	if err != nil {
		return errorResult(err), nil
	}

	return successResult(result)
}

// HandleRooms handles the wall_rooms tool call.
func (h *Handlers) HandleRooms(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	result, err := h.svc.ListRooms(ctx)
	if err != nil {
		return errorResult(err), nil
	}

	return successResult(result)
}

// HandleConsolidate handles the wall_consolidate tool call.
func (h *Handlers) HandleConsolidate(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[RoomRequest](req)
	if err != nil {
		return errorResult(err), nil
	}

	result, err := h.svc.Consolidate(ctx, ops.ConsolidateInput{Room: input.Room})
	if err != nil {
		return errorResult(err), nil
	}

	return successResult(result)
}

// HandleClear handles the wall_clear tool call.
func (h *Handlers) HandleClear(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[RoomRequest](req)
	if err != nil {
		return errorResult(err), nil
	}

	result, err := h.svc.Clear(ctx, ops.ClearInput{Room: input.Room})
	if err != nil {
		return errorResult(err), nil
	}

	return successResult(result)
}

// HandleSeed handles the wall_seed tool call.
func (h *Handlers) HandleSeed(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[RoomRequest](req)
	if err != nil {
		return errorResult(err), nil
	}

	result, err := h.svc.Seed(ctx, ops.SeedInput{Room: input.Room})
	if err != nil {
		return errorResult(err), nil
	}

	return successResult(result)
}

// HandleExport handles the wall_export tool call.
func (h *Handlers) HandleExport(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[ExportRequest](req)
	if err != nil {
		return errorResult(err), nil
	}

	result, err := h.svc.Export(ctx, ops.ExportInput{Room: input.Room, Path: input.Path})
	if err != nil {
		return errorResult(err), nil
	}

	return successResult(result)
}

// HandleImport handles the wall_import tool call.
func (h *Handlers) HandleImport(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[ImportRequest](req)
	if err != nil {
		return errorResult(err), nil
	}

	result, err := h.svc.Import(ctx, ops.ImportInput{
		Path: input.Path,
		Room: input.Room,
		Mode: ops.ImportMode(input.Mode),
	})
	if err != nil {
		return errorResult(err), nil
	}

	return successResult(result)
}

// Result helpers

// errorResult creates an MCP error result from any error.
// Uses IsError: true so MCP clients recognize failures properly.
// Note: Internal error details are not exposed to prevent leaking sensitive info.
func errorResult(err error) *mcp.CallToolResult {
	wallErr := errors.As(err)
	errorObj := map[string]any{
		"code":    wallErr.Code,
		"message": wallErr.Message,
		"status":  wallErr.Status,
	}
	// Internal messages carry raw causes like SQL errors or file paths
	if wallErr.Code == errors.ErrInternal {
		errorObj["message"] = "an internal error occurred"
	} else if wallErr.Details != nil {
		errorObj["details"] = wallErr.Details
	}

	content, _ := json.Marshal(map[string]any{"error": errorObj})
	return &mcp.CallToolResult{
		Content: []mcp.Content{mcp.TextContent{Type: "text", Text: string(content)}},
		IsError: true,
	}
}

// successResult creates an MCP success result from any data.
func successResult(data any) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultJSON(data)
}
