package admin

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/brainsta/game-admin/internal/catalog"
	"github.com/brainsta/game-admin/internal/config"
	"github.com/brainsta/game-admin/internal/filehost"
	"github.com/brainsta/game-admin/internal/pipeline"
)

// memCollection is an in-memory Collection for handler tests.
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

// seedGame inserts a game record directly and returns its id.
func seedGame(t *testing.T, s *memStore, g catalog.Game) string {
	t.Helper()
	id, err := s.games.Add(context.Background(), g.Fields())
	if err != nil {
		t.Fatalf("seed game: %v", err)
	}
	return id
}

func seedCategory(t *testing.T, s *memStore, name string) string {
	t.Helper()
	id, err := s.categories.Add(context.Background(), map[string]any{catalog.FieldName: name})
	if err != nil {
		t.Fatalf("seed category: %v", err)
	}
	return id
}

// fakeHost records uploads and deletes.
type fakeHost struct {
	files   map[string][]byte
	deleted []string
}

func newFakeHost() *fakeHost {
	return &fakeHost{files: make(map[string][]byte)}
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

// newTestProcessor wires a pipeline onto the in-memory fakes.
func newTestProcessor(t *testing.T, store catalog.Store, host filehost.Host) *pipeline.Processor {
	t.Helper()
	return pipeline.New(store, host, &config.ContentConfig{
		BaseURL:    "https://games.example.com",
		EntryPoint: "index.html",
		ScratchDir: t.TempDir(),
	})
}

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

// jsonRequest performs a request with a JSON body against the handler.
func jsonRequest(t *testing.T, router *gin.Engine, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(encoded)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

// multipartRequest builds a multipart form with fields and named file parts.
func multipartRequest(t *testing.T, router *gin.Engine, path string, fields map[string]string, files map[string][]byte, fileField string) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for k, v := range fields {
		mw.WriteField(k, v)
	}
	for name, content := range files {
		part, err := mw.CreateFormFile(fileField, name)
		if err != nil {
			t.Fatalf("create form file: %v", err)
		}
		part.Write(content)
	}
	if err := mw.Close(); err != nil {
		t.Fatalf("close multipart: %v", err)
	}

	req := httptest.NewRequest(http.MethodPost, path, &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode response %q: %v", w.Body.String(), err)
	}
	return body
}
