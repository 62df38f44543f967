package github

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/brainsta/game-admin/internal/config"
)

func newTestHost(t *testing.T, handler http.Handler) *GitHubHost {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	host, err := New(&config.GitHubFileHostConfig{
		Token:  "test-token",
		Owner:  "acme",
		Repo:   "games-site",
		Branch: "main",
		APIURL: srv.URL,
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return host
}

func TestUpload_NewFile(t *testing.T) {
	var putBody map[string]any
	host := newTestHost(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer test-token" {
			t.Errorf("missing auth header")
		}
		switch r.Method {
		case http.MethodGet:
			// Probe: file does not exist yet.
			w.WriteHeader(http.StatusNotFound)
		case http.MethodPut:
			if err := json.NewDecoder(r.Body).Decode(&putBody); err != nil {
				t.Fatalf("decode PUT body: %v", err)
			}
			w.WriteHeader(http.StatusCreated)
		default:
			t.Errorf("unexpected method %s", r.Method)
		}
	}))

	result := host.Upload(context.Background(), "snake/index.html", []byte("<html></html>"))
	if !result.Success {
		t.Fatalf("upload failed: %s", result.Message)
	}
	if result.Status != http.StatusCreated {
		t.Errorf("status = %d", result.Status)
	}
	if putBody["message"] != "Add snake/index.html" {
		t.Errorf("message = %v", putBody["message"])
	}
	if _, hasSHA := putBody["sha"]; hasSHA {
		t.Error("new file upload must not carry a sha")
	}
	if putBody["branch"] != "main" {
		t.Errorf("branch = %v", putBody["branch"])
	}

	decoded, err := base64.StdEncoding.DecodeString(putBody["content"].(string))
	if err != nil || string(decoded) != "<html></html>" {
		t.Errorf("content did not round trip: %q, %v", decoded, err)
	}
}

func TestUpload_ExistingFileCarriesSHA(t *testing.T) {
	var putBody map[string]any
	host := newTestHost(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			json.NewEncoder(w).Encode(map[string]string{"sha": "abc123"})
		case http.MethodPut:
			json.NewDecoder(r.Body).Decode(&putBody)
			w.WriteHeader(http.StatusOK)
		}
	}))

	result := host.Upload(context.Background(), "snake/index.html", []byte("v2"))
	if !result.Success {
		t.Fatalf("upload failed: %s", result.Message)
	}
	if putBody["sha"] != "abc123" {
		t.Errorf("sha = %v", putBody["sha"])
	}
	if putBody["message"] != "Update snake/index.html" {
		t.Errorf("message = %v", putBody["message"])
	}
}

func TestUpload_ServerError(t *testing.T) {
	host := newTestHost(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.WriteHeader(http.StatusUnprocessableEntity)
	}))

	result := host.Upload(context.Background(), "snake/index.html", []byte("x"))
	if result.Success {
		t.Fatal("expected failure")
	}
	if result.Status != http.StatusUnprocessableEntity {
		t.Errorf("status = %d", result.Status)
	}
}

func TestList_FilesOnly(t *testing.T) {
	host := newTestHost(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("ref") != "main" {
			t.Errorf("ref = %q", r.URL.Query().Get("ref"))
		}
		json.NewEncoder(w).Encode([]map[string]string{
			{"path": "snake/index.html", "sha": "s1", "type": "file"},
			{"path": "snake/assets", "sha": "s2", "type": "dir"},
			{"path": "snake/game.js", "sha": "s3", "type": "file"},
		})
	}))

	files, err := host.List(context.Background(), "snake")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(files) != 2 {
		t.Fatalf("expected 2 files, got %d", len(files))
	}
	if files[0].Path != "snake/index.html" || files[0].SHA != "s1" {
		t.Errorf("unexpected first file: %+v", files[0])
	}
}

func TestList_MissingPrefixIsEmpty(t *testing.T) {
	host := newTestHost(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))

	files, err := host.List(context.Background(), "missing")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(files) != 0 {
		t.Fatalf("expected empty listing, got %d", len(files))
	}
}

func TestList_ServerErrorIsAnError(t *testing.T) {
	host := newTestHost(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))

	if _, err := host.List(context.Background(), "snake"); err == nil {
		t.Fatal("expected an error for a non-404 failure")
	}
}

func TestDelete(t *testing.T) {
	var deleteBody map[string]any
	host := newTestHost(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodDelete {
			t.Errorf("method = %s", r.Method)
		}
		json.NewDecoder(r.Body).Decode(&deleteBody)
		w.WriteHeader(http.StatusOK)
	}))

	if !host.Delete(context.Background(), "snake/index.html", "s1") {
		t.Fatal("expected delete to succeed")
	}
	if deleteBody["sha"] != "s1" {
		t.Errorf("sha = %v", deleteBody["sha"])
	}
	if deleteBody["message"] != "Delete snake/index.html" {
		t.Errorf("message = %v", deleteBody["message"])
	}
}

func TestDelete_Refused(t *testing.T) {
	host := newTestHost(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusConflict)
	}))

	if host.Delete(context.Background(), "snake/index.html", "stale") {
		t.Fatal("expected delete to be refused")
	}
}
