package pipeline

import (
	"archive/zip"
	"bytes"
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/brainsta/game-admin/internal/catalog"
	"github.com/brainsta/game-admin/internal/config"
	"github.com/brainsta/game-admin/internal/filehost"
)

// ---------------------------------------------------------------------------
// Fakes
// ---------------------------------------------------------------------------

// memCollection is an in-memory Collection.
type memCollection struct {
	seq  int
	docs map[string]map[string]any
}

func newMemCollection() *memCollection {
	return &memCollection{docs: make(map[string]map[string]any)}
}

func (c *memCollection) Add(ctx context.Context, fields map[string]any) (string, error) {
	c.seq++
	id := fmt.Sprintf("doc-%04d", c.seq)
	c.docs[id] = fields
	return id, nil
}

func (c *memCollection) All(ctx context.Context) ([]catalog.Record, error) {
	var recs []catalog.Record
	for id, fields := range c.docs {
		recs = append(recs, catalog.Record{ID: id, Fields: fields})
	}
	return recs, nil
}

func (c *memCollection) Get(ctx context.Context, id string) (*catalog.Record, error) {
	fields, ok := c.docs[id]
	if !ok {
		return nil, nil
	}
	return &catalog.Record{ID: id, Fields: fields}, nil
}

func (c *memCollection) Update(ctx context.Context, id string, fields map[string]any) error {
	existing, ok := c.docs[id]
	if !ok {
		return fmt.Errorf("document %s not found", id)
	}
	for k, v := range fields {
		existing[k] = v
	}
	return nil
}

func (c *memCollection) Delete(ctx context.Context, id string) error {
	delete(c.docs, id)
	return nil
}

func (c *memCollection) Where(ctx context.Context, field string, value any) ([]catalog.Record, error) {
	var recs []catalog.Record
	for id, fields := range c.docs {
		if fields[field] == value {
			recs = append(recs, catalog.Record{ID: id, Fields: fields})
		}
	}
	return recs, nil
}

// memStore is an in-memory Store.
type memStore struct {
	games      *memCollection
	categories *memCollection
}

func newMemStore() *memStore {
	return &memStore{games: newMemCollection(), categories: newMemCollection()}
}

func (s *memStore) Games() catalog.Collection      { return s.games }
func (s *memStore) Categories() catalog.Collection { return s.categories }
func (s *memStore) Ping(ctx context.Context) error { return nil }
func (s *memStore) Close() error                   { return nil }

// fakeHost records uploads and deletes. Paths in failPaths fail to upload.
type fakeHost struct {
	files     map[string][]byte
	failPaths map[string]bool
	deleted   []string
}

func newFakeHost() *fakeHost {
	return &fakeHost{files: make(map[string][]byte), failPaths: make(map[string]bool)}
}

func (h *fakeHost) List(ctx context.Context, prefix string) ([]filehost.RemoteFile, error) {
	var out []filehost.RemoteFile
	for path := range h.files {
		if strings.HasPrefix(path, prefix+"/") {
			out = append(out, filehost.RemoteFile{Path: path, SHA: "sha-" + path})
		}
	}
	return out, nil
}

func (h *fakeHost) Upload(ctx context.Context, path string, content []byte) filehost.UploadResult {
	if h.failPaths[path] {
		return filehost.UploadResult{Success: false, Status: 422, Message: "induced failure"}
	}
	status := 201
	if _, ok := h.files[path]; ok {
		status = 200
	}
	h.files[path] = content
	return filehost.UploadResult{Success: true, Status: status}
}

func (h *fakeHost) Delete(ctx context.Context, path string, sha string) bool {
	if _, ok := h.files[path]; !ok {
		return false
	}
	delete(h.files, path)
	h.deleted = append(h.deleted, path)
	return true
}

// ---------------------------------------------------------------------------
// Helpers
// ---------------------------------------------------------------------------

func makeZip(t *testing.T, files map[string]string) []byte {
	t.Helper()
	var buf bytes.Buffer
	w := zip.NewWriter(&buf)
	for name, content := range files {
		f, err := w.Create(name)
		if err != nil {
			t.Fatalf("zip create: %v", err)
		}
		f.Write([]byte(content))
	}
	if err := w.Close(); err != nil {
		t.Fatalf("zip close: %v", err)
	}
	return buf.Bytes()
}

func newProcessor(t *testing.T, store catalog.Store, host filehost.Host) *Processor {
	t.Helper()
	return New(store, host, &config.ContentConfig{
		BaseURL:    "https://games.example.com",
		EntryPoint: "index.html",
		ScratchDir: t.TempDir(),
	})
}

// ---------------------------------------------------------------------------
// Process
// ---------------------------------------------------------------------------

func TestProcess_NewGame(t *testing.T) {
	store := newMemStore()
	host := newFakeHost()
	p := newProcessor(t, store, host)

	archive := makeZip(t, map[string]string{"index.html": "<html></html>", "game.js": "var x;"})
	result := p.Process(context.Background(), "My Game", archive, "cat-1")

	if !result.Success {
		t.Fatalf("pipeline failed: %s", result.Message)
	}
	if result.Uploaded != 2 || result.Replaced {
		t.Errorf("unexpected result: %+v", result)
	}
	if result.Message != "Uploaded 2 file(s)" {
		t.Errorf("message = %q", result.Message)
	}

	if _, ok := host.files["my_game/index.html"]; !ok {
		t.Error("index.html not uploaded under slug")
	}

	recs, _ := store.games.All(context.Background())
	if len(recs) != 1 {
		t.Fatalf("expected 1 record, got %d", len(recs))
	}
	game := catalog.GameFromRecord(recs[0])
	if game.Slug != "my_game" || game.Published {
		t.Errorf("unexpected game: %+v", game)
	}
	if game.URL != "https://games.example.com/my_game/index.html" {
		t.Errorf("url = %q", game.URL)
	}
	if game.TitleNormalized != "my game" {
		t.Errorf("titleNormalized = %q", game.TitleNormalized)
	}
}

func TestProcess_FlattensEnclosingFolder(t *testing.T) {
	store := newMemStore()
	host := newFakeHost()
	p := newProcessor(t, store, host)

	archive := makeZip(t, map[string]string{
		"mygame/index.html": "x",
		"mygame/game.js":    "y",
	})
	result := p.Process(context.Background(), "Snake", archive, "")

	if !result.Success {
		t.Fatalf("pipeline failed: %s", result.Message)
	}
	if _, ok := host.files["snake/index.html"]; !ok {
		t.Errorf("expected flattened path snake/index.html, have %v", keys(host.files))
	}
	if _, ok := host.files["snake/mygame/index.html"]; ok {
		t.Error("enclosing folder leaked into remote paths")
	}
}

func TestProcess_ReplaceDeletesOldFilesAndKeepsID(t *testing.T) {
	store := newMemStore()
	host := newFakeHost()
	p := newProcessor(t, store, host)
	ctx := context.Background()

	first := p.Process(ctx, "Snake", makeZip(t, map[string]string{"index.html": "v1", "old.js": "x"}), "cat-1")
	if !first.Success {
		t.Fatalf("first upload failed: %s", first.Message)
	}
	recs, _ := store.games.All(ctx)
	originalID := recs[0].ID

	// Differently-cased title must still hit the replace path.
	second := p.Process(ctx, "SNAKE", makeZip(t, map[string]string{"index.html": "v2"}), "cat-1")
	if !second.Success || !second.Replaced {
		t.Fatalf("replace failed: %+v", second)
	}
	if second.Message != "Replaced with 1 file(s)" {
		t.Errorf("message = %q", second.Message)
	}

	if _, ok := host.files["snake/old.js"]; ok {
		t.Error("old remote file survived the replace")
	}
	if string(host.files["snake/index.html"]) != "v2" {
		t.Errorf("index.html = %q", host.files["snake/index.html"])
	}

	recs, _ = store.games.All(ctx)
	if len(recs) != 1 {
		t.Fatalf("expected 1 record after replace, got %d", len(recs))
	}
	if recs[0].ID != originalID {
		t.Error("replace must preserve the record id")
	}
	if catalog.GameFromRecord(recs[0]).Title != "SNAKE" {
		t.Errorf("title not overwritten: %+v", recs[0].Fields)
	}
}

func TestProcess_PartialFailureWritesNoRecordAndCompensates(t *testing.T) {
	store := newMemStore()
	host := newFakeHost()
	host.failPaths["snake/game.js"] = true
	p := newProcessor(t, store, host)

	archive := makeZip(t, map[string]string{"index.html": "x", "game.js": "y"})
	result := p.Process(context.Background(), "Snake", archive, "")

	if result.Success {
		t.Fatal("expected failure")
	}
	if result.Failed != 1 || result.Uploaded != 1 {
		t.Errorf("unexpected tally: %+v", result)
	}
	if result.Message != "Failed to upload 1 file(s)" {
		t.Errorf("message = %q", result.Message)
	}

	recs, _ := store.games.All(context.Background())
	if len(recs) != 0 {
		t.Error("no catalog record may be written on partial failure")
	}
	if _, ok := host.files["snake/index.html"]; ok {
		t.Error("files from the failed attempt should have been cleaned up")
	}
}

func TestProcess_SlugCollisionGetsSuffix(t *testing.T) {
	store := newMemStore()
	host := newFakeHost()
	p := newProcessor(t, store, host)
	ctx := context.Background()

	// "A/B" and "A B" both slugify to a_b but have distinct titles.
	if r := p.Process(ctx, "A/B", makeZip(t, map[string]string{"index.html": "x"}), ""); !r.Success {
		t.Fatalf("first upload failed: %s", r.Message)
	}
	if r := p.Process(ctx, "A B", makeZip(t, map[string]string{"index.html": "y"}), ""); !r.Success {
		t.Fatalf("second upload failed: %s", r.Message)
	}

	if _, ok := host.files["a_b/index.html"]; !ok {
		t.Error("first slug missing")
	}
	if _, ok := host.files["a_b_2/index.html"]; !ok {
		t.Errorf("expected disambiguated slug, have %v", keys(host.files))
	}
	if string(host.files["a_b/index.html"]) != "x" {
		t.Error("first game's files were overwritten")
	}
}

func TestProcess_Validation(t *testing.T) {
	store := newMemStore()
	host := newFakeHost()
	p := newProcessor(t, store, host)
	ctx := context.Background()

	if r := p.Process(ctx, "   ", makeZip(t, map[string]string{"index.html": "x"}), ""); r.Success {
		t.Error("blank title must fail")
	}
	if r := p.Process(ctx, "Snake", nil, ""); r.Success {
		t.Error("missing archive must fail")
	}
	if r := p.Process(ctx, "Snake", []byte("not a zip"), ""); r.Success {
		t.Error("invalid archive must fail")
	}
	if r := p.Process(ctx, "Snake", makeZip(t, map[string]string{"../evil": "x"}), ""); r.Success {
		t.Error("traversal archive must fail")
	}

	recs, _ := store.games.All(ctx)
	if len(recs) != 0 {
		t.Error("validation failures must not write records")
	}
	if len(host.files) != 0 {
		t.Error("validation failures must not upload files")
	}
}

func keys(m map[string][]byte) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	return out
}
