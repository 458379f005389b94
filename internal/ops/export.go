package ops

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/AO-5002/piecewall/internal/config"
	"github.com/AO-5002/piecewall/internal/errors"
	"github.com/AO-5002/piecewall/internal/piece"
)

// Format is an export file encoding, chosen by extension.
type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// ExportSchemaVersion is written into every export file.
const ExportSchemaVersion = "1.0"

// ExportFile is the document written by Export and read by Import.
type ExportFile struct {
	PiecewallExport bool          `json:"_piecewall_export" yaml:"_piecewall_export"`
	SchemaVersion   string        `json:"schema_version" yaml:"schema_version"`
	ExportedAt      int64         `json:"exported_at" yaml:"exported_at"`
	Room            string        `json:"room" yaml:"room"`
	Version         int64         `json:"version" yaml:"version"`
	Pieces          []piece.Piece `json:"pieces" yaml:"pieces"`
}

// ExportInput contains parameters for the Export operation.
type ExportInput struct {
	Room string // required
	Path string // optional, default: ~/.piecewall/exports/<room>-<timestamp>.json
}

// ExportOutput contains the result of the Export operation.
type ExportOutput struct {
	Path       string `json:"path"`
	Room       string `json:"room"`
	Format     Format `json:"format"`
	Count      int    `json:"count"`
	ExportedAt int64  `json:"exported_at"`
}

// Export writes a room to a JSON or YAML file.
func (s *Service) Export(ctx context.Context, input ExportInput) (*ExportOutput, error) {
	room, err := roomName(input.Room)
	if err != nil {
		return nil, err
	}
	now := time.Now()

	exportPath := input.Path
	if exportPath == "" {
		exportPath, err = defaultExportPath(room, now)
		if err != nil {
			return nil, err
		}
	}

	// Default paths are validated too: they embed the room name
	format, err := checkFilePath(exportPath, accessWrite, s.cfg)
	if err != nil {
		return nil, err
	}

	snap, err := s.storage.Load(ctx, room)
	if err != nil {
		return nil, err
	}

	doc := ExportFile{
		PiecewallExport: true,
		SchemaVersion:   ExportSchemaVersion,
		ExportedAt:      now.Unix(),
		Room:            room,
		Version:         snap.Version,
		Pieces:          snap.Pieces,
	}
	data, err := encodeExport(doc, format)
	if err != nil {
		return nil, errors.NewInternal(err)
	}

	if err := ctx.Err(); err != nil {
		return nil, errors.NewCancelled("export")
	}
	if err := writeFileAtomic(exportPath, data); err != nil {
		return nil, err
	}

	s.logger.Info("exported room", "room", room, "path", exportPath, "pieces", len(snap.Pieces))
	return &ExportOutput{
		Path:       exportPath,
		Room:       room,
		Format:     format,
		Count:      len(snap.Pieces),
		ExportedAt: doc.ExportedAt,
	}, nil
}

func encodeExport(doc ExportFile, format Format) ([]byte, error) {
	if format == FormatYAML {
		return yaml.Marshal(doc)
	}
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, err
	}
	return append(data, '\n'), nil
}

// writeFileAtomic writes data to a temp file next to path and renames it into
// place, so an existing file survives a failed export.
func writeFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return errors.NewInternal(fmt.Errorf("failed to create export directory: %w", err))
	}

	randBytes := make([]byte, 8)
	if _, err := rand.Read(randBytes); err != nil {
		return errors.NewInternal(fmt.Errorf("failed to generate temp file name: %w", err))
	}
	tempPath := path + "." + hex.EncodeToString(randBytes) + ".tmp"
	file, err := openNoFollow(tempPath, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
	if err != nil {
		return errors.NewInternal(fmt.Errorf("failed to create export file: %w", err))
	}

	success := false
	defer func() {
		if file != nil {
			file.Close()
		}
		if !success {
			os.Remove(tempPath)
		}
	}()

	if _, err := file.Write(data); err != nil {
		return errors.NewInternal(err)
	}
	if err := file.Sync(); err != nil {
		return errors.NewInternal(err)
	}
	// Close before rename (required on Windows)
	if err := file.Close(); err != nil {
		return errors.NewInternal(fmt.Errorf("failed to close export file: %w", err))
	}
	file = nil

	// os.Rename would follow a symlinked destination
	if info, err := os.Lstat(path); err == nil && info.Mode()&os.ModeSymlink != 0 {
		return errors.NewInvalidRequest("export path is a symlink")
	}

	if err := os.Rename(tempPath, path); err != nil {
		if runtime.GOOS == "windows" {
			if _, statErr := os.Stat(path); statErr == nil {
				return errors.NewInvalidRequest("export destination already exists; overwriting is not supported on Windows yet (choose a new path or delete the existing file)")
			}
		}
		return errors.NewInternal(fmt.Errorf("failed to finalize export: %w", err))
	}

	success = true
	return nil
}

// defaultExportPath returns ~/.piecewall/exports/<room>-<timestamp>.json.
func defaultExportPath(room string, now time.Time) (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", errors.NewInternal(fmt.Errorf("failed to get home directory: %w", err))
	}
	filename := fmt.Sprintf("%s-%s.json", SanitizeForFilename(room), now.Format("2006-01-02T150405"))
	return filepath.Join(homeDir, config.DirName, "exports", filename), nil
}
