package bundle

import (
	"archive/zip"
	"bytes"
	"os"
	"path/filepath"
	"testing"
)

// makeZip builds an in-memory zip from a path -> content map.
func makeZip(t *testing.T, files map[string]string) []byte {
	t.Helper()
	var buf bytes.Buffer
	w := zip.NewWriter(&buf)
	for name, content := range files {
		f, err := w.Create(name)
		if err != nil {
			t.Fatalf("zip create %s: %v", name, err)
		}
		if _, err := f.Write([]byte(content)); err != nil {
			t.Fatalf("zip write %s: %v", name, err)
		}
	}
	if err := w.Close(); err != nil {
		t.Fatalf("zip close: %v", err)
	}
	return buf.Bytes()
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		files   map[string]string
		wantErr bool
	}{
		{
			name:  "simple game",
			files: map[string]string{"index.html": "<html></html>", "game.js": "var x;"},
		},
		{
			name:  "nested folders",
			files: map[string]string{"mygame/index.html": "x", "mygame/assets/sprite.png": "y"},
		},
		{
			name:    "path traversal",
			files:   map[string]string{"../evil.sh": "rm -rf /"},
			wantErr: true,
		},
		{
			name:    "nested traversal",
			files:   map[string]string{"a/../../evil.sh": "x"},
			wantErr: true,
		},
		{
			name:    "git directory",
			files:   map[string]string{".git/config": "x"},
			wantErr: true,
		},
		{
			name:    "empty archive",
			files:   map[string]string{},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Validate(makeZip(t, tt.files), 0)
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestValidate_NotAZip(t *testing.T) {
	if err := Validate([]byte("definitely not a zip"), 0); err == nil {
		t.Fatal("expected an error for invalid zip data")
	}
}

func TestValidate_SizeLimit(t *testing.T) {
	archive := makeZip(t, map[string]string{"index.html": "0123456789"})

	if err := Validate(archive, 4); err == nil {
		t.Fatal("expected an error when contents exceed the cap")
	}
}

func TestExtract(t *testing.T) {
	archive := makeZip(t, map[string]string{
		"index.html":        "<html></html>",
		"assets/sprite.png": "png-bytes",
	})
	dir := t.TempDir()

	if err := Extract(archive, dir); err != nil {
		t.Fatalf("Extract: %v", err)
	}

	data, err := os.ReadFile(filepath.Join(dir, "index.html"))
	if err != nil || string(data) != "<html></html>" {
		t.Errorf("index.html = %q, %v", data, err)
	}
	if _, err := os.Stat(filepath.Join(dir, "assets", "sprite.png")); err != nil {
		t.Errorf("nested file missing: %v", err)
	}
}

func TestFlatten_SingleEnclosingFolder(t *testing.T) {
	dir := t.TempDir()
	archive := makeZip(t, map[string]string{
		"mygame/index.html": "x",
		"mygame/game.js":    "y",
	})
	if err := Extract(archive, dir); err != nil {
		t.Fatalf("Extract: %v", err)
	}

	if err := Flatten(dir); err != nil {
		t.Fatalf("Flatten: %v", err)
	}

	if _, err := os.Stat(filepath.Join(dir, "index.html")); err != nil {
		t.Errorf("index.html not promoted: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, "mygame")); !os.IsNotExist(err) {
		t.Error("enclosing folder should be gone")
	}
}

func TestFlatten_MultipleRootsUntouched(t *testing.T) {
	dir := t.TempDir()
	archive := makeZip(t, map[string]string{
		"index.html":      "x",
		"assets/game.js":  "y",
		"assets/data.bin": "z",
	})
	if err := Extract(archive, dir); err != nil {
		t.Fatalf("Extract: %v", err)
	}

	if err := Flatten(dir); err != nil {
		t.Fatalf("Flatten: %v", err)
	}

	if _, err := os.Stat(filepath.Join(dir, "index.html")); err != nil {
		t.Errorf("root file moved unexpectedly: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, "assets", "game.js")); err != nil {
		t.Errorf("assets tree moved unexpectedly: %v", err)
	}
}

func TestFlatten_SingleFileRootUntouched(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "index.html"), []byte("x"), 0640); err != nil {
		t.Fatal(err)
	}

	if err := Flatten(dir); err != nil {
		t.Fatalf("Flatten: %v", err)
	}

	if _, err := os.Stat(filepath.Join(dir, "index.html")); err != nil {
		t.Errorf("single file root should be untouched: %v", err)
	}
}
