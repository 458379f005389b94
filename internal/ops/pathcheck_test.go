package ops

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AO-5002/piecewall/internal/config"
	"github.com/AO-5002/piecewall/internal/errors"
)

// writeFile creates path with an empty JSON object.
func writeFile(t *testing.T, path string) string {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte("{}"), 0600))
	return path
}

func symlinkOrSkip(t *testing.T, target, link string) string {
	t.Helper()
	if err := os.Symlink(target, link); err != nil {
		t.Skipf("cannot create symlink: %v", err)
	}
	return link
}

func TestCheckFilePath(t *testing.T) {
	allowed := t.TempDir()
	outside := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(allowed, "nested"), 0700))

	restricted := config.DefaultConfig()
	restricted.AllowedPaths = []string{allowed}

	unsafe := config.DefaultConfig()
	unsafe.AllowUnsafePaths = true

	wallJSON := writeFile(t, filepath.Join(allowed, "wall.json"))
	wallYAML := writeFile(t, filepath.Join(allowed, "wall.yml"))
	secret := writeFile(t, filepath.Join(outside, "secret.json"))
	nested := writeFile(t, filepath.Join(allowed, "nested", "wall.json"))
	link := symlinkOrSkip(t, secret, filepath.Join(allowed, "link.json"))

	tests := []struct {
		name     string
		path     string
		access   pathAccess
		cfg      *config.Config
		want     Format
		wantCode errors.ErrorCode
	}{
		{"read in allowed dir", wallJSON, accessRead, restricted, FormatJSON, ""},
		{"yaml extension", wallYAML, accessRead, restricted, FormatYAML, ""},
		{"write new file", filepath.Join(allowed, "out.yaml"), accessWrite, restricted, FormatYAML, ""},
		{"empty", "", accessRead, restricted, "", errors.ErrInvalidRequest},
		{"parent traversal", "../backup.json", accessWrite, restricted, "", errors.ErrInvalidRequest},
		{"hidden traversal", "/tmp/safe/../../../etc/shadow.json", accessWrite, unsafe, "", errors.ErrInvalidRequest},
		{"no extension", filepath.Join(allowed, "backup"), accessWrite, unsafe, "", errors.ErrInvalidRequest},
		{"jsonl extension", filepath.Join(allowed, "backup.jsonl"), accessWrite, unsafe, "", errors.ErrInvalidRequest},
		{"outside allowed dirs", secret, accessRead, restricted, "", errors.ErrInvalidRequest},
		{"default config outside exports", "/tmp/backup.json", accessWrite, config.DefaultConfig(), "", errors.ErrInvalidRequest},
		{"nested read", nested, accessRead, restricted, "", errors.ErrInvalidRequest},
		{"nested write", filepath.Join(allowed, "nested", "out.json"), accessWrite, restricted, "", errors.ErrInvalidRequest},
		{"missing file", filepath.Join(allowed, "missing.json"), accessRead, restricted, "", errors.ErrNotFound},
		{"symlink read", link, accessRead, restricted, "", errors.ErrInvalidRequest},
		{"symlink write", link, accessWrite, restricted, "", errors.ErrInvalidRequest},
		{"unsafe allows any dir", secret, accessRead, unsafe, FormatJSON, ""},
		{"unsafe still refuses symlinks", link, accessRead, unsafe, "", errors.ErrInvalidRequest},
		{"unsafe missing file", filepath.Join(outside, "missing.json"), accessRead, unsafe, "", errors.ErrNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := checkFilePath(tt.path, tt.access, tt.cfg)
			if tt.wantCode != "" {
				require.Error(t, err)
				assert.True(t, errors.Is(err, tt.wantCode), "got %v, want %s", err, tt.wantCode)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestPathPolicy_ResolvesSymlinkedAllowedDir(t *testing.T) {
	target := t.TempDir()
	alias := symlinkOrSkip(t, target, filepath.Join(t.TempDir(), "alias"))

	cfg := config.DefaultConfig()
	cfg.AllowedPaths = []string{alias, "relative/ignored"}

	policy, err := newPathPolicy(cfg)
	require.NoError(t, err)

	resolved, err := filepath.EvalSymlinks(target)
	require.NoError(t, err)
	assert.Contains(t, policy.dirs, resolved)
	assert.Len(t, policy.dirs, 2, "default exports dir plus the resolved alias")
}

func TestContainsTraversal(t *testing.T) {
	tests := map[string]bool{
		"/home/user/wall.json":         false,
		"../wall.json":                 true,
		"/home/../etc/passwd":          true,
		"./wall.json":                  false,
		"/home/user/.hidden/wall.json": false,
		"wall..name.json":              false,
		"/tmp/a/b/../c.json":           true,
		"..":                           true,
	}
	for path, want := range tests {
		assert.Equal(t, want, containsTraversal(path), path)
	}
}

func TestSanitizeForFilename(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"team board", "team board"},
		{"path/to/room", "path-to-room"},
		{"path\\to\\room", "path-to-room"},
		{"foo..bar", "foo-bar"},
		{"../../../etc/passwd", "etc-passwd"},
		{"../foo/bar\\..\\baz", "foo-bar-baz"},
		{"foo\x00bar", "foobar"},
		{"foo\x01\x02bar\x7f", "foobar"},
		{"../../..", "unnamed"},
		{"///", "unnamed"},
		{"wall-中文", "wall-中文"},
		{"a---b", "a-b"},
		{"---foo---", "foo"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, SanitizeForFilename(tt.input), "input %q", tt.input)
	}
}

func TestFormatForPath(t *testing.T) {
	tests := []struct {
		path string
		want Format
		ok   bool
	}{
		{"/tmp/wall.json", FormatJSON, true},
		{"/tmp/wall.JSON", FormatJSON, true},
		{"/tmp/wall.yaml", FormatYAML, true},
		{"/tmp/wall.yml", FormatYAML, true},
		{"/tmp/wall.jsonl", "", false},
		{"/tmp/wall", "", false},
	}

	for _, tt := range tests {
		got, ok := formatForPath(tt.path)
		assert.Equal(t, tt.want, got, tt.path)
		assert.Equal(t, tt.ok, ok, tt.path)
	}
}

func TestOpenNoFollow(t *testing.T) {
	dir := t.TempDir()
	target := writeFile(t, filepath.Join(dir, "target.json"))

	f, err := openNoFollow(target, os.O_RDONLY, 0)
	require.NoError(t, err)
	f.Close()

	_, err = openNoFollow(filepath.Join(dir, "missing.json"), os.O_RDONLY, 0)
	assert.True(t, errors.Is(err, errors.ErrNotFound), "got %v", err)

	link := symlinkOrSkip(t, target, filepath.Join(dir, "link.json"))
	_, err = openNoFollow(link, os.O_RDONLY, 0)
	assert.True(t, errors.Is(err, errors.ErrInvalidRequest), "got %v", err)
}
