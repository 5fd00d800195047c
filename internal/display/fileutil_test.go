package display

import (
	"reflect"
	"testing"

	"github.com/spf13/afero"
)

func TestIsContainerFile(t *testing.T) {
	tests := []struct {
		name string
		want bool
	}{
		{"app.jar", true},
		{"APP.JAR", true},
		{"web.war", true},
		{"bundle.ear", true},
		{"dist/archive.zip", true},
		{"layer.tar", true},
		{"layer.tgz", true},
		{"layer.tar.gz", true},
		{"notes.gz", false},
		{".tar.gz", false},
		{"Foo.class", false},
		{"README", false},
		{".jar", false},
		{"bad\nname.jar", false},
		{"", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsContainerFile(tt.name); got != tt.want {
				t.Errorf("IsContainerFile(%q) = %v, want %v", tt.name, got, tt.want)
			}
		})
	}
}

func TestFindContainers(t *testing.T) {
	fsys := afero.NewMemMapFs()
	for _, f := range []string{
		"/repo/app.jar",
		"/repo/README.md",
		"/repo/lib/util.jar",
		"/repo/lib/native.tar.gz",
		"/repo/lib/notes.gz",
		"/repo/.cache/stale.jar",
		"/repo/node_modules/dep.zip",
	} {
		if err := afero.WriteFile(fsys, f, []byte("x"), 0644); err != nil {
			t.Fatal(err)
		}
	}

	t.Run("recursive", func(t *testing.T) {
		got, err := FindContainers(fsys, "/repo", true)
		if err != nil {
			t.Fatalf("FindContainers() error = %v", err)
		}
		want := []string{"app.jar", "lib/native.tar.gz", "lib/util.jar"}
		if !reflect.DeepEqual(got, want) {
			t.Errorf("FindContainers() = %v, want %v", got, want)
		}
	})

	t.Run("top level only", func(t *testing.T) {
		got, err := FindContainers(fsys, "/repo", false)
		if err != nil {
			t.Fatalf("FindContainers() error = %v", err)
		}
		if !reflect.DeepEqual(got, []string{"app.jar"}) {
			t.Errorf("FindContainers() = %v", got)
		}
	})

	t.Run("missing directory", func(t *testing.T) {
		if _, err := FindContainers(fsys, "/nope", true); err == nil {
			t.Error("expected error for missing directory")
		}
	})
}
