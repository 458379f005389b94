package ops

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/AO-5002/piecewall/internal/errors"
	"github.com/AO-5002/piecewall/internal/piece"
)

// maxImportBytes caps the size of an import file.
const maxImportBytes = 8 << 20

// ImportMode controls how imported pieces meet the room's current ones.
type ImportMode string

const (
	ImportModeReplace ImportMode = "replace" // the room becomes the file's pieces
	ImportModeAppend  ImportMode = "append"  // file pieces are added with fresh ids
)

// ImportInput contains parameters for the Import operation.
type ImportInput struct {
	Path string     // required
	Room string     // optional, default: the room recorded in the file
	Mode ImportMode // default: replace
}

// ImportOutput contains the result of the Import operation.
type ImportOutput struct {
	Room     string        `json:"room"`
	Imported int           `json:"imported"`
	Skipped  int           `json:"skipped"`
	Errors   []ImportError `json:"errors"`
	Version  int64         `json:"version"`
}

// ImportError describes one piece that was not imported.
type ImportError struct {
	Index   int    `json:"index"`
	ID      string `json:"id,omitempty"`
	Message string `json:"message"`
}

// Import loads a file written by Export into a room. Pieces that are invalid,
// repeat an id, or claim a cell already claimed are skipped and reported.
func (s *Service) Import(ctx context.Context, input ImportInput) (*ImportOutput, error) {
	if input.Path == "" {
		return nil, errors.NewInvalidRequest("path is required")
	}
	if input.Mode == "" {
		input.Mode = ImportModeReplace
	}
	if input.Mode != ImportModeReplace && input.Mode != ImportModeAppend {
		return nil, errors.NewInvalidRequest("mode must be one of: replace, append")
	}
	format, err := checkFilePath(input.Path, accessRead, s.cfg)
	if err != nil {
		return nil, err
	}

	doc, err := readExport(input.Path, format)
	if err != nil {
		return nil, err
	}

	target := input.Room
	if target == "" {
		target = doc.Room
	}
	room, err := roomName(target)
	if err != nil {
		return nil, err
	}

	// Append mode re-keys every piece so it cannot collide with live ids
	var freshIDs []string
	if input.Mode == ImportModeAppend {
		freshIDs = make([]string, len(doc.Pieces))
		for i := range freshIDs {
			if freshIDs[i], err = s.newID(); err != nil {
				return nil, errors.NewInternal(err)
			}
		}
	}

	var (
		imported int
		problems []ImportError
	)
	res, err := s.mutate(ctx, "import", room, func(current []piece.Piece) ([]piece.Piece, bool, error) {
		var base []piece.Piece
		if input.Mode == ImportModeAppend {
			base = current
		}
		next, accepted, errs := mergeImport(base, doc.Pieces, freshIDs)
		imported, problems = accepted, errs
		if input.Mode == ImportModeAppend && accepted == 0 {
			return nil, false, nil
		}
		return next, true, nil
	})
	if err != nil {
		return nil, err
	}

	if problems == nil {
		problems = []ImportError{}
	}
	s.logger.Info("imported room", "room", room, "mode", input.Mode, "imported", imported, "skipped", len(problems))
	return &ImportOutput{
		Room:     room,
		Imported: imported,
		Skipped:  len(problems),
		Errors:   problems,
		Version:  res.Version,
	}, nil
}

// mergeImport appends incoming to base, skipping pieces that would break the
// list invariants. freshIDs, when set, replaces incoming ids by position.
func mergeImport(base, incoming []piece.Piece, freshIDs []string) ([]piece.Piece, int, []ImportError) {
	next := make([]piece.Piece, 0, len(base)+len(incoming))
	next = append(next, base...)

	ids := make(map[string]bool, len(next))
	claimed := make(map[piece.Cell]bool)
	for _, p := range next {
		ids[p.ID] = true
		for _, c := range p.OccupiedCells {
			claimed[c] = true
		}
	}

	var problems []ImportError
	accepted := 0
	for i, p := range incoming {
		p = p.Clone()
		if freshIDs != nil {
			p.ID = freshIDs[i]
		}
		if issues := piece.Validate(p); len(issues) > 0 {
			problems = append(problems, ImportError{Index: i, ID: p.ID, Message: issues[0]})
			continue
		}
		if ids[p.ID] {
			problems = append(problems, ImportError{Index: i, ID: p.ID, Message: "duplicate id"})
			continue
		}
		if overlapsClaimed(p.OccupiedCells, claimed) {
			problems = append(problems, ImportError{Index: i, ID: p.ID, Message: "cells already claimed by another consolidated piece"})
			continue
		}

		ids[p.ID] = true
		for _, c := range p.OccupiedCells {
			claimed[c] = true
		}
		next = append(next, p)
		accepted++
	}
	return next, accepted, problems
}

func overlapsClaimed(cells []piece.Cell, claimed map[piece.Cell]bool) bool {
	for _, c := range cells {
		if claimed[c] {
			return true
		}
	}
	return false
}

// readExport opens and decodes an export file.
func readExport(path string, format Format) (*ExportFile, error) {
	file, err := openNoFollow(path, os.O_RDONLY, 0)
	if err != nil {
		if _, ok := err.(*errors.Error); ok {
			return nil, err
		}
		return nil, errors.NewInternal(fmt.Errorf("failed to open import file: %w", err))
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, maxImportBytes+1))
	if err != nil {
		return nil, errors.NewInternal(fmt.Errorf("failed to read import file: %w", err))
	}
	if len(data) > maxImportBytes {
		return nil, errors.NewInvalidRequest(fmt.Sprintf("import file exceeds %d bytes", maxImportBytes))
	}

	var doc ExportFile
	switch format {
	case FormatYAML:
		err = yaml.Unmarshal(data, &doc)
	default:
		err = json.Unmarshal(data, &doc)
	}
	if err != nil {
		return nil, errors.NewInvalidRequest(fmt.Sprintf("invalid %s: %v", format, err))
	}
	if !doc.PiecewallExport {
		return nil, errors.NewInvalidRequest("file is not a piecewall export")
	}
	return &doc, nil
}
