package mcp

import "github.com/mark3labs/mcp-go/mcp"

// Tool definitions. Every tool takes a room; names are room-scoped and
// normalized (trimmed, lowercased).

var addToolDef = mcp.NewTool("piece_add",
	mcp.WithDescription("Add a new piece to a wall. It lands in the next free grid cell."),
	mcp.WithString("room", mcp.Description("Wall name"), mcp.Required()),
	mcp.WithString("text", mcp.Description("Piece text (optional, may be empty)")),
	mcp.WithString("color", mcp.Description("Hex color (optional, default: random palette color)")),
)

var updateToolDef = mcp.NewTool("piece_update",
	mcp.WithDescription("Replace the text of a piece. Unknown ids are a no-op."),
	mcp.WithString("room", mcp.Description("Wall name"), mcp.Required()),
	mcp.WithString("id", mcp.Description("Piece ID"), mcp.Required()),
	mcp.WithString("text", mcp.Description("New text"), mcp.Required()),
)

var deleteToolDef = mcp.NewTool("piece_delete",
	mcp.WithDescription("Remove a piece. Deleting a consolidated piece frees its cells but does not restore its sources."),
	mcp.WithString("room", mcp.Description("Wall name"), mcp.Required()),
	mcp.WithString("id", mcp.Description("Piece ID"), mcp.Required()),
)

var duplicateToolDef = mcp.NewTool("piece_duplicate",
	mcp.WithDescription("Copy a piece as a new regular piece with \" (Copy)\" appended to its text."),
	mcp.WithString("room", mcp.Description("Wall name"), mcp.Required()),
	mcp.WithString("id", mcp.Description("Piece ID"), mcp.Required()),
)

var recolorToolDef = mcp.NewTool("piece_recolor",
	mcp.WithDescription("Change the color of a piece."),
	mcp.WithString("room", mcp.Description("Wall name"), mcp.Required()),
	mcp.WithString("id", mcp.Description("Piece ID"), mcp.Required()),
	mcp.WithString("color", mcp.Description("Hex color, e.g. #bacded"), mcp.Required()),
)

var showToolDef = mcp.NewTool("wall_show",
	mcp.WithDescription("Show a wall: its pieces, their grid layout and the consolidation status."),
	mcp.WithString("room", mcp.Description("Wall name"), mcp.Required()),
)

var roomsToolDef = mcp.NewTool("wall_rooms",
	mcp.WithDescription("List every wall with its piece count, most recently changed first."),
)

var consolidateToolDef = mcp.NewTool("wall_consolidate",
	mcp.WithDescription("Merge every regular piece of a wall into one AI-summarized block that keeps their grid cells."),
	mcp.WithString("room", mcp.Description("Wall name"), mcp.Required()),
)

var clearToolDef = mcp.NewTool("wall_clear",
	mcp.WithDescription("🛑 DESTRUCTIVE: Remove every piece from a wall."),
	mcp.WithString("room", mcp.Description("Wall name"), mcp.Required()),
)

var seedToolDef = mcp.NewTool("wall_seed",
	mcp.WithDescription("Fill an empty wall with the five starter pieces. No-op when the wall has pieces."),
	mcp.WithString("room", mcp.Description("Wall name"), mcp.Required()),
)

var exportToolDef = mcp.NewTool("wall_export",
	mcp.WithDescription("Write a wall to a .json, .yaml or .yml file."),
	mcp.WithString("room", mcp.Description("Wall name"), mcp.Required()),
	mcp.WithString("path", mcp.Description("Output file (optional, default: ~/.piecewall/exports/<room>-<timestamp>.json)")),
)

var importToolDef = mcp.NewTool("wall_import",
	mcp.WithDescription("Load a file written by wall_export into a wall."),
	mcp.WithString("path", mcp.Description("Export file"), mcp.Required()),
	mcp.WithString("room", mcp.Description("Target wall (optional, default: the wall recorded in the file)")),
	mcp.WithString("mode", mcp.Description("replace (default) or append"), mcp.Enum("replace", "append")),
)
