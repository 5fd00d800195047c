package fileutil

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newTestTree builds:
//
//	/root/
//	  Main.class
//	  readme.txt
//	  com/
//	    example/
//	      Foo.class
//	      Foo$Inner.class
//	      data.xml
//	  .git/
//	    HEAD
//	  node_modules/
//	    package.json
func newTestTree(t *testing.T) afero.Fs {
	t.Helper()
	fsys := afero.NewMemMapFs()
	files := []string{
		"Main.class",
		"readme.txt",
		"com/example/Foo.class",
		"com/example/Foo$Inner.class",
		"com/example/data.xml",
		".git/HEAD",
		"node_modules/package.json",
	}
	for _, f := range files {
		path := filepath.Join("/root", f)
		require.NoError(t, fsys.MkdirAll(filepath.Dir(path), 0755))
		require.NoError(t, afero.WriteFile(fsys, path, []byte("content"), 0644))
	}
	return fsys
}

func TestScanTree(t *testing.T) {
	fsys := newTestTree(t)

	tests := []struct {
		name string
		opts ScanOptions
		want []string
	}{
		{
			name: "non-recursive",
			opts: ScanOptions{},
			want: []string{"Main.class", "readme.txt"},
		},
		{
			name: "recursive without markers",
			opts: ScanOptions{Recursive: true, SkipHidden: true, ExcludeDirs: []string{"node_modules"}},
			want: []string{
				"Main.class",
				"com/example/Foo$Inner.class",
				"com/example/Foo.class",
				"com/example/data.xml",
				"readme.txt",
			},
		},
		{
			name: "recursive with directory markers",
			opts: ScanOptions{Recursive: true, MarkDirs: true, SkipHidden: true, ExcludeDirs: []string{"node_modules"}},
			want: []string{
				"Main.class",
				"com/",
				"com/example/",
				"com/example/Foo$Inner.class",
				"com/example/Foo.class",
				"com/example/data.xml",
				"readme.txt",
			},
		},
		{
			name: "hidden directories walked unless skipped",
			opts: ScanOptions{Recursive: true, Extensions: []string{".json"}},
			want: []string{"node_modules/package.json"},
		},
		{
			name: "extension filter is case-insensitive and dot-optional",
			opts: ScanOptions{Recursive: true, Extensions: []string{"CLASS"}},
			want: []string{"Main.class", "com/example/Foo$Inner.class", "com/example/Foo.class"},
		},
		{
			name: "pattern on name without extension",
			opts: ScanOptions{Recursive: true, Pattern: `^Foo$`},
			want: []string{"com/example/Foo.class"},
		},
		{
			name: "max depth two",
			opts: ScanOptions{Recursive: true, MarkDirs: true, MaxDepth: 2, SkipHidden: true},
			want: []string{"Main.class", "com/", "node_modules/", "node_modules/package.json", "readme.txt"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := ScanTree(fsys, "/root", tt.opts)
			require.NoError(t, err)
			assert.Empty(t, result.Errors)
			assert.Equal(t, tt.want, result.Files)
		})
	}
}

func TestScanTree_MarkerPrecedesContents(t *testing.T) {
	fsys := newTestTree(t)

	result, err := ScanTree(fsys, "/root", ScanOptions{Recursive: true, MarkDirs: true})
	require.NoError(t, err)

	seen := make(map[string]bool)
	for _, member := range result.Files {
		dir := filepath.ToSlash(filepath.Dir(member))
		if dir != "." && !seen[dir+"/"] && member != dir+"/" {
			t.Errorf("member %s listed before its directory marker", member)
		}
		seen[member] = true
	}
}

func TestScanTree_Errors(t *testing.T) {
	fsys := newTestTree(t)

	_, err := ScanTree(fsys, "/missing", ScanOptions{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to access directory")

	_, err = ScanTree(fsys, "/root/readme.txt", ScanOptions{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "path is not a directory")

	_, err = ScanTree(fsys, "/root", ScanOptions{Pattern: "[invalid"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid pattern")
}

func TestScanTree_OsFs(t *testing.T) {
	tmpDir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(tmpDir, "pkg"), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(tmpDir, "pkg", "A.class"), []byte("x"), 0644))

	result, err := ScanTree(afero.NewOsFs(), tmpDir, ScanOptions{Recursive: true, MarkDirs: true})
	require.NoError(t, err)
	assert.Equal(t, []string{"pkg/", "pkg/A.class"}, result.Files)
}

func TestIsClassfile(t *testing.T) {
	tests := []struct {
		path string
		want bool
	}{
		{"Foo.class", true},
		{"com/example/Foo.CLASS", true},
		{"module-info.class", true},
		{".class", false},
		{"Foo.classes", false},
		{"Foo.java", false},
		{"class", false},
		{"", false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, IsClassfile(tt.path), tt.path)
	}
}
