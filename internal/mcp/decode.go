package mcp

import (
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/AO-5002/piecewall/internal/errors"
)

// decode binds tool arguments to T. Arguments of the wrong JSON type are
// INVALID_REQUEST.
func decode[T any](req mcp.CallToolRequest) (T, error) {
	var args T
	if err := req.BindArguments(&args); err != nil {
		return args, errors.NewInvalidRequest(fmt.Sprintf("invalid arguments for %s: %v", req.Params.Name, err))
	}
	return args, nil
}
