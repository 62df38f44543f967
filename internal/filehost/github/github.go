// Package github implements the file host on the GitHub contents API, for
// sites served straight out of a repository via GitHub Pages. It uses the
// GitHub REST API v3; every write goes through the contents endpoint, which
// requires the blob SHA of the version being replaced.
package github

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/brainsta/game-admin/internal/config"
	"github.com/brainsta/game-admin/internal/filehost"
)

const defaultAPIURL = "https://api.github.com"

func init() {
	// Register GitHub file host backend
	filehost.Register("github", func(cfg *config.Config) (filehost.Host, error) {
		return New(&cfg.FileHost.GitHub)
	})
}

// GitHubHost implements filehost.Host on the GitHub contents API.
type GitHubHost struct {
	token  string
	owner  string
	repo   string
	branch string
	apiURL string
	client *http.Client
}

// New creates a GitHub file host.
func New(cfg *config.GitHubFileHostConfig) (*GitHubHost, error) {
	if cfg.Token == "" {
		return nil, fmt.Errorf("github token is required")
	}
	if cfg.Owner == "" || cfg.Repo == "" {
		return nil, fmt.Errorf("github owner and repo are required")
	}

	apiURL := cfg.APIURL
	if apiURL == "" {
		apiURL = defaultAPIURL
	}

	branch := cfg.Branch
	if branch == "" {
		branch = "main"
	}

	return &GitHubHost{
		token:  cfg.Token,
		owner:  cfg.Owner,
		repo:   cfg.Repo,
		branch: branch,
		apiURL: apiURL,
		client: http.DefaultClient,
	}, nil
}

// contentsURL builds the contents endpoint URL for a repository path.
// Path segments are escaped individually so separators survive.
func (h *GitHubHost) contentsURL(path string) string {
	segments := strings.Split(path, "/")
	for i, s := range segments {
		segments[i] = url.PathEscape(s)
	}
	return fmt.Sprintf("%s/repos/%s/%s/contents/%s", h.apiURL, h.owner, h.repo, strings.Join(segments, "/"))
}

func (h *GitHubHost) setAuthHeaders(req *http.Request) {
	req.Header.Set("Authorization", "Bearer "+h.token)
	req.Header.Set("Accept", "application/vnd.github+json")
	req.Header.Set("X-GitHub-Api-Version", "2022-11-28")
}

// probeSHA returns the blob SHA of the file at path, or "" when the file
// does not exist on the branch.
func (h *GitHubHost) probeSHA(ctx context.Context, path string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, "GET", h.contentsURL(path)+"?ref="+url.QueryEscape(h.branch), nil)
	if err != nil {
		return "", fmt.Errorf("github: create probe request: %w", err)
	}
	h.setAuthHeaders(req)

	resp, err := h.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("github: probe %s: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", nil
	}

	var result struct {
		SHA string `json:"sha"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", fmt.Errorf("github: decode probe response: %w", err)
	}

	return result.SHA, nil
}

// List returns the files directly under prefix on the branch. A prefix that
// does not exist is an empty listing.
func (h *GitHubHost) List(ctx context.Context, prefix string) ([]filehost.RemoteFile, error) {
	req, err := http.NewRequestWithContext(ctx, "GET", h.contentsURL(prefix)+"?ref="+url.QueryEscape(h.branch), nil)
	if err != nil {
		return nil, fmt.Errorf("github: create list request: %w", err)
	}
	h.setAuthHeaders(req)

	resp, err := h.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("github: list %s: %w", prefix, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return []filehost.RemoteFile{}, nil
	}
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("github: list %s failed with status %d: %s", prefix, resp.StatusCode, body)
	}

	var entries []struct {
		Path string `json:"path"`
		SHA  string `json:"sha"`
		Type string `json:"type"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&entries); err != nil {
		return nil, fmt.Errorf("github: decode list response: %w", err)
	}

	files := make([]filehost.RemoteFile, 0, len(entries))
	for _, e := range entries {
		if e.Type != "file" {
			continue
		}
		files = append(files, filehost.RemoteFile{Path: e.Path, SHA: e.SHA})
	}

	return files, nil
}

// Upload creates or replaces the file at path on the branch. An existing
// file is detected by probing for its blob SHA first.
func (h *GitHubHost) Upload(ctx context.Context, path string, content []byte) filehost.UploadResult {
	sha, err := h.probeSHA(ctx, path)
	if err != nil {
		return filehost.UploadResult{Success: false, Message: err.Error()}
	}

	payload := map[string]any{
		"message": "Add " + path,
		"content": base64.StdEncoding.EncodeToString(content),
		"branch":  h.branch,
	}
	if sha != "" {
		payload["message"] = "Update " + path
		payload["sha"] = sha
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return filehost.UploadResult{Success: false, Message: err.Error()}
	}

	req, err := http.NewRequestWithContext(ctx, "PUT", h.contentsURL(path), bytes.NewReader(body))
	if err != nil {
		return filehost.UploadResult{Success: false, Message: err.Error()}
	}
	h.setAuthHeaders(req)
	req.Header.Set("Content-Type", "application/json")

	resp, err := h.client.Do(req)
	if err != nil {
		return filehost.UploadResult{Success: false, Message: err.Error()}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		respBody, _ := io.ReadAll(resp.Body)
		return filehost.UploadResult{
			Success: false,
			Status:  resp.StatusCode,
			Message: fmt.Sprintf("upload failed with status %d: %s", resp.StatusCode, respBody),
		}
	}

	return filehost.UploadResult{Success: true, Status: resp.StatusCode}
}

// Delete removes the file at path; sha must be the blob SHA of the stored
// version.
func (h *GitHubHost) Delete(ctx context.Context, path string, sha string) bool {
	payload, err := json.Marshal(map[string]any{
		"message": "Delete " + path,
		"sha":     sha,
		"branch":  h.branch,
	})
	if err != nil {
		return false
	}

	req, err := http.NewRequestWithContext(ctx, "DELETE", h.contentsURL(path), bytes.NewReader(payload))
	if err != nil {
		return false
	}
	h.setAuthHeaders(req)
	req.Header.Set("Content-Type", "application/json")

	resp, err := h.client.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()

	return resp.StatusCode == http.StatusOK
}
