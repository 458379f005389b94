package mcp

import (
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/AO-5002/piecewall/internal/ops"
)

// KnownTypes lists all valid tool groups.
var KnownTypes = []string{"piece", "wall"}

// toolEntry pairs a tool definition with a handler factory.
type toolEntry struct {
	def     mcp.Tool
	handler func(*Handlers) server.ToolHandlerFunc
}

// toolRegistry maps tool names to their definitions and handler factories.
var toolRegistry = map[string]toolEntry{
	"piece_add": {
		def:     addToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleAdd },
	},
	"piece_update": {
		def:     updateToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleUpdate },
	},
	"piece_delete": {
		def:     deleteToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleDelete },
	},
	"piece_duplicate": {
		def:     duplicateToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleDuplicate },
	},
	"piece_recolor": {
		def:     recolorToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleRecolor },
	},
	"wall_show": {
		def:     showToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleShow },
	},
	"wall_rooms": {
		def:     roomsToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleRooms },
	},
	"wall_consolidate": {
		def:     consolidateToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleConsolidate },
	},
	"wall_clear": {
		def:     clearToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleClear },
	},
	"wall_seed": {
		def:     seedToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleSeed },
	},
	"wall_export": {
		def:     exportToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleExport },
	},
	"wall_import": {
		def:     importToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleImport },
	},
}

// AllToolNames returns a list of all valid tool names.
func AllToolNames() []string {
	names := make([]string, 0, len(toolRegistry))
	for name := range toolRegistry {
		names = append(names, name)
	}
	return names
}

// ValidateDisabledTools returns a list of unknown tool names from the given list.
func ValidateDisabledTools(names []string) []string {
	unknown := make([]string, 0)
	for _, name := range names {
		if _, ok := toolRegistry[name]; !ok {
			unknown = append(unknown, name)
		}
	}
	return unknown
}

// ValidateDisabledTypes returns a list of unknown type names from the given list.
func ValidateDisabledTypes(names []string) []string {
	known := make(map[string]bool, len(KnownTypes))
	for _, t := range KnownTypes {
		known[t] = true
	}

	unknown := make([]string, 0)
	for _, name := range names {
		if !known[name] {
			unknown = append(unknown, name)
		}
	}
	return unknown
}

// GetTypeForTool extracts the group name from a tool name.
// Tool names follow the pattern "group_action" (e.g., "piece_add" → "piece").
func GetTypeForTool(toolName string) string {
	if idx := strings.Index(toolName, "_"); idx > 0 {
		return toolName[:idx]
	}
	return ""
}

// ExpandTypesToTools returns all tool names belonging to the given groups.
func ExpandTypesToTools(types []string) []string {
	if len(types) == 0 {
		return nil
	}

	typeSet := make(map[string]bool, len(types))
	for _, t := range types {
		typeSet[t] = true
	}

	tools := make([]string, 0)
	for name := range toolRegistry {
		if typeSet[GetTypeForTool(name)] {
			tools = append(tools, name)
		}
	}
	return tools
}

// enabledTools returns the registry names left after applying the
// disabled_types and disabled_tools settings.
func enabledTools(disabledTypes, disabledTools []string) []string {
	disabled := make(map[string]bool)
	for _, tool := range ExpandTypesToTools(disabledTypes) {
		disabled[tool] = true
	}
	for _, name := range disabledTools {
		disabled[name] = true
	}

	names := make([]string, 0, len(toolRegistry))
	for name := range toolRegistry {
		if !disabled[name] {
			names = append(names, name)
		}
	}
	return names
}

// NewServer creates a new MCP server with the wall tools registered.
// Tools listed in cfg.DisabledTools or belonging to cfg.DisabledTypes
// are excluded from registration.
func NewServer(svc *ops.Service, version string) *server.MCPServer {
	s := server.NewMCPServer(
		"piecewall",
		version,
		server.WithToolCapabilities(true),
	)

	cfg := svc.Config()
	h := NewHandlers(svc)
	for _, name := range enabledTools(cfg.DisabledTypes, cfg.DisabledTools) {
		entry := toolRegistry[name]
		s.AddTool(entry.def, entry.handler(h))
	}

	return s
}

// Run starts the MCP server using stdio transport.
func Run(svc *ops.Service, version string) error {
	return server.ServeStdio(NewServer(svc, version))
}
