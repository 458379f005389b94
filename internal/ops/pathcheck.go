package ops

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/AO-5002/piecewall/internal/config"
	"github.com/AO-5002/piecewall/internal/errors"
)

// pathAccess says whether a file is about to be read or written.
type pathAccess int

const (
	accessRead pathAccess = iota
	accessWrite
)

// pathPolicy decides where import and export files may live.
//
// A file must sit directly inside ~/.piecewall/exports or one of the
// configured allowed_paths, never in a subdirectory of them, so no directory
// component can be swapped for a symlink between the check and the open.
// allow_unsafe_paths lifts the directory rule only: symlinked files are
// always refused and the final open uses O_NOFOLLOW.
type pathPolicy struct {
	unsafe bool
	dirs   []string
}

func newPathPolicy(cfg *config.Config) (*pathPolicy, error) {
	if cfg != nil && cfg.AllowUnsafePaths {
		return &pathPolicy{unsafe: true}, nil
	}

	exports, err := DefaultExportsDir()
	if err != nil {
		return nil, err
	}
	candidates := []string{exports}
	if cfg != nil {
		for _, p := range cfg.AllowedPaths {
			if filepath.IsAbs(p) {
				candidates = append(candidates, p)
			}
		}
	}

	policy := &pathPolicy{dirs: make([]string, 0, len(candidates))}
	for _, d := range candidates {
		dir := filepath.Clean(d)
		// A symlinked allowed_paths entry is matched by its target
		if isSymlink(dir) {
			resolved, err := filepath.EvalSymlinks(dir)
			if err != nil {
				return nil, errors.NewInvalidRequest(fmt.Sprintf("cannot resolve allowed path %s: %v", d, err))
			}
			dir = resolved
		}
		policy.dirs = append(policy.dirs, dir)
	}
	return policy, nil
}

// check validates path for access and returns the file format its extension names.
func (p *pathPolicy) check(path string, access pathAccess) (Format, error) {
	if path == "" {
		return "", errors.NewInvalidRequest("path is required")
	}
	if containsTraversal(path) {
		return "", errors.NewInvalidRequest("path must not contain directory traversal (..)")
	}
	format, ok := formatForPath(path)
	if !ok {
		return "", errors.NewInvalidRequest("path must have a .json, .yaml or .yml extension")
	}

	abs, err := filepath.Abs(filepath.Clean(path))
	if err != nil {
		return "", errors.NewInvalidRequest(fmt.Sprintf("invalid path: %v", err))
	}

	if !p.unsafe {
		parent := filepath.Dir(abs)
		if !slices.Contains(p.dirs, parent) {
			return "", errors.NewInvalidRequest(
				fmt.Sprintf("file must be directly in an allowed directory (no subdirectories); allowed: %v", p.dirs))
		}
		if isSymlink(parent) {
			return "", errors.NewInvalidRequest("parent directory must not be a symlink")
		}
	}

	info, err := os.Lstat(abs)
	switch {
	case err == nil && info.Mode()&os.ModeSymlink != 0:
		return "", errors.NewInvalidRequest("path must not be a symlink")
	case os.IsNotExist(err) && access == accessRead:
		return "", errors.NewNotFound("file", path)
	}
	return format, nil
}

// checkFilePath applies the policy built from cfg to one path.
func checkFilePath(path string, access pathAccess, cfg *config.Config) (Format, error) {
	policy, err := newPathPolicy(cfg)
	if err != nil {
		return "", err
	}
	return policy.check(path, access)
}

func isSymlink(path string) bool {
	info, err := os.Lstat(path)
	return err == nil && info.Mode()&os.ModeSymlink != 0
}

// DefaultExportsDir returns the default exports directory (~/.piecewall/exports).
func DefaultExportsDir() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", errors.NewInternal(fmt.Errorf("failed to get home directory: %w", err))
	}
	return filepath.Join(homeDir, config.DirName, "exports"), nil
}

// formatForPath picks the file format from the extension.
func formatForPath(path string) (Format, bool) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return FormatJSON, true
	case ".yaml", ".yml":
		return FormatYAML, true
	}
	return "", false
}

// containsTraversal reports whether any component of path is "..". Forward
// slashes count as separators on every platform.
func containsTraversal(path string) bool {
	split := func(r rune) bool { return r == '/' || r == filepath.Separator }
	return slices.Contains(strings.FieldsFunc(path, split), "..")
}

// SanitizeForFilename turns a room name into something safe to embed in a
// file name: separators and ".." become dashes, control characters are
// dropped, and an empty result becomes "unnamed".
func SanitizeForFilename(s string) string {
	s = strings.NewReplacer("/", "-", "\\", "-", "..", "-").Replace(s)
	s = strings.Map(func(r rune) rune {
		if r < 32 || r == 127 {
			return -1
		}
		return r
	}, s)

	for strings.Contains(s, "--") {
		s = strings.ReplaceAll(s, "--", "-")
	}
	s = strings.Trim(s, "-")

	if s == "" {
		return "unnamed"
	}
	return s
}
