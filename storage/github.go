package storage

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"iter"
	"log/slog"
	"net/http"
	"net/url"
	"path"
	"strings"
	"time"

	"github.com/ruteri/exampledb/interfaces"
	"github.com/ruteri/exampledb/naming"
)

const defaultGitHubAPI = "https://api.github.com"

// GitHubBackend is a read-only view of a FileBackend tree committed to a GitHub
// repository, e.g. a CI job's example store checked in under .exampledb/.
// Directories are listed with the contents API and files are downloaded as git
// blobs. Save, Delete and Move are no-ops.
type GitHubBackend struct {
	owner       string
	repo        string
	root        string
	ref         string
	token       string
	apiBase     string
	namer       *naming.Namer
	client      *http.Client
	log         *slog.Logger
	locationURI string
}

// GitHubBlob represents a Git blob object from GitHub's API
type GitHubBlob struct {
	Content  string `json:"content"`
	Encoding string `json:"encoding"`
	URL      string `json:"url"`
	SHA      string `json:"sha"`
	Size     int    `json:"size"`
}

// GitHubContentEntry is one item of a contents API directory listing.
type GitHubContentEntry struct {
	Name string `json:"name"`
	Path string `json:"path"`
	SHA  string `json:"sha"`
	Type string `json:"type"`
	Size int    `json:"size"`
}

// NewGitHubBackend creates a GitHub backend reading the tree under root at ref.
// An empty ref reads the default branch; an empty token makes anonymous requests.
func NewGitHubBackend(owner, repo, root, ref, token string, namer *naming.Namer, log *slog.Logger) *GitHubBackend {
	if namer == nil {
		namer = naming.Default
	}

	root = strings.Trim(root, "/")
	uri := fmt.Sprintf("github://%s/%s", owner, repo)
	if root != "" {
		uri += "/" + root
	}
	if ref != "" {
		uri += "?ref=" + url.QueryEscape(ref)
	}

	return &GitHubBackend{
		owner:       owner,
		repo:        repo,
		root:        root,
		ref:         ref,
		token:       token,
		apiBase:     defaultGitHubAPI,
		namer:       namer,
		client:      &http.Client{Timeout: 30 * time.Second},
		log:         log,
		locationURI: uri,
	}
}

// Save is not implemented for this read-only backend.
func (b *GitHubBackend) Save(ctx context.Context, key interfaces.Key, value interfaces.Value) error {
	b.log.Debug("Ignoring save on read-only GitHub backend", slog.String("repo", b.owner+"/"+b.repo))
	return nil
}

// Fetch lists the key directory in the repository and downloads each blob.
func (b *GitHubBackend) Fetch(ctx context.Context, key interfaces.Key) iter.Seq[interfaces.Value] {
	prefix, rest := b.namer.Shard(key)
	keyDir := path.Join(b.root, prefix, rest)

	return func(yield func(interfaces.Value) bool) {
		entries, err := b.listDirectory(ctx, keyDir)
		if err != nil {
			if !errors.Is(err, errGitHubNotFound) {
				b.log.Debug("Failed to list GitHub directory", slog.String("path", keyDir), "err", err)
			}
			return
		}

		for _, entry := range entries {
			if entry.Type != "file" || !b.namer.IsName(entry.Name) {
				continue
			}

			data, err := b.fetchBlobContent(ctx, entry.SHA)
			if err != nil {
				b.log.Debug("Skipping unreadable GitHub blob", slog.String("path", entry.Path), "err", err)
				continue
			}
			if b.namer.NameFor(data) != entry.Name {
				b.log.Warn("Content hash mismatch", slog.String("path", entry.Path))
				continue
			}

			if !yield(data) {
				return
			}
		}
	}
}

// Delete is not implemented for this read-only backend.
func (b *GitHubBackend) Delete(ctx context.Context, key interfaces.Key, value interfaces.Value) error {
	return nil
}

// Move is not implemented for this read-only backend.
func (b *GitHubBackend) Move(ctx context.Context, src, dest interfaces.Key, value interfaces.Value) error {
	return nil
}

// Available checks if the GitHub backend is accessible.
func (b *GitHubBackend) Available(ctx context.Context) bool {
	resp, err := b.get(ctx, fmt.Sprintf("%s/repos/%s/%s", b.apiBase, b.owner, b.repo))
	if err != nil {
		b.log.Debug("GitHub backend unavailable", "err", err)
		return false
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		b.log.Debug("GitHub backend unavailable",
			slog.String("status", resp.Status))
		return false
	}

	return true
}

// Name returns a unique identifier for this storage backend.
func (b *GitHubBackend) Name() string {
	return fmt.Sprintf("github-%s-%s", b.owner, b.repo)
}

// LocationURI returns the URI that identifies this storage backend.
func (b *GitHubBackend) LocationURI() string {
	return b.locationURI
}

var errGitHubNotFound = errors.New("not found on GitHub")

func (b *GitHubBackend) get(ctx context.Context, rawURL string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Accept", "application/vnd.github.v3+json")
	if b.token != "" {
		req.Header.Set("Authorization", "Bearer "+b.token)
	}

	return b.client.Do(req)
}

func (b *GitHubBackend) getJSON(ctx context.Context, rawURL string, out any) error {
	resp, err := b.get(ctx, rawURL)
	if err != nil {
		return fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return errGitHubNotFound
	}

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("GitHub API error: %s, %s", resp.Status, string(body))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

// listDirectory lists a repository directory with the contents API.
func (b *GitHubBackend) listDirectory(ctx context.Context, dir string) ([]GitHubContentEntry, error) {
	rawURL := fmt.Sprintf("%s/repos/%s/%s/contents/%s", b.apiBase, b.owner, b.repo, dir)
	if b.ref != "" {
		rawURL += "?ref=" + url.QueryEscape(b.ref)
	}

	var entries []GitHubContentEntry
	if err := b.getJSON(ctx, rawURL, &entries); err != nil {
		return nil, err
	}
	return entries, nil
}

// fetchBlobContent fetches a Git blob directly by its SHA and decodes it.
func (b *GitHubBackend) fetchBlobContent(ctx context.Context, sha string) ([]byte, error) {
	var blob GitHubBlob
	rawURL := fmt.Sprintf("%s/repos/%s/%s/git/blobs/%s", b.apiBase, b.owner, b.repo, sha)
	if err := b.getJSON(ctx, rawURL, &blob); err != nil {
		return nil, err
	}

	if blob.Encoding != "base64" {
		return nil, fmt.Errorf("unexpected blob encoding: %s", blob.Encoding)
	}

	data, err := base64.StdEncoding.DecodeString(strings.ReplaceAll(blob.Content, "\n", ""))
	if err != nil {
		return nil, fmt.Errorf("failed to decode blob content: %w", err)
	}
	return data, nil
}
