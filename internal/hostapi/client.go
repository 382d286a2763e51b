// Package hostapi is the REST boundary to the code host: listing a pull
// request's changed paths and fetching raw file content at a ref. The diff
// pipeline treats any non-success here as "absent manifest": a failed fetch
// degrades to an empty registry instead of propagating an error into the
// page.
package hostapi

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// PullRequest identifies the comparison and carries its two refs.
type PullRequest struct {
	Owner   string
	Repo    string
	Number  int
	BaseRef string
	HeadRef string
}

// Client talks to a GitHub-style REST API.
type Client struct {
	base  string
	token string
	http  *http.Client
	log   *zap.Logger
}

// NewClient builds a client for the given API base URL. An empty base uses
// the public GitHub API.
func NewClient(base, token string, log *zap.Logger) *Client {
	if base == "" {
		base = "https://api.github.com"
	}
	return &Client{
		base:  strings.TrimRight(base, "/"),
		token: token,
		http:  &http.Client{Timeout: 30 * time.Second},
		log:   log,
	}
}

// ParsePullURL extracts owner, repo and number from a pull-request page URL
// like https://github.com/owner/repo/pull/123.
func ParsePullURL(raw string) (PullRequest, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return PullRequest{}, fmt.Errorf("parse pull url: %w", err)
	}
	parts := strings.Split(strings.Trim(u.Path, "/"), "/")
	if len(parts) < 4 || parts[2] != "pull" {
		return PullRequest{}, fmt.Errorf("not a pull request url: %s", raw)
	}
	number, err := strconv.Atoi(parts[3])
	if err != nil {
		return PullRequest{}, fmt.Errorf("pull number in %s: %w", raw, err)
	}
	return PullRequest{Owner: parts[0], Repo: parts[1], Number: number}, nil
}

func (c *Client) get(ctx context.Context, path, accept string) ([]byte, int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.base+path, nil)
	if err != nil {
		return nil, 0, fmt.Errorf("build request: %w", err)
	}
	if accept != "" {
		req.Header.Set("Accept", accept)
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, 0, fmt.Errorf("GET %s: %w", path, err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, resp.StatusCode, fmt.Errorf("read %s: %w", path, err)
	}
	return body, resp.StatusCode, nil
}

// Pull fetches the pull request's metadata and fills in the base and head
// refs.
func (c *Client) Pull(ctx context.Context, pr PullRequest) (PullRequest, error) {
	path := fmt.Sprintf("/repos/%s/%s/pulls/%d", pr.Owner, pr.Repo, pr.Number)
	body, status, err := c.get(ctx, path, "application/vnd.github+json")
	if err != nil {
		return pr, err
	}
	if status != http.StatusOK {
		return pr, fmt.Errorf("pull %s: status %d", path, status)
	}
	var payload struct {
		Base struct {
			SHA string `json:"sha"`
		} `json:"base"`
		Head struct {
			SHA string `json:"sha"`
		} `json:"head"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return pr, fmt.Errorf("decode pull %s: %w", path, err)
	}
	pr.BaseRef = payload.Base.SHA
	pr.HeadRef = payload.Head.SHA
	return pr, nil
}

// ChangedFiles lists the paths changed by the pull request. This is the
// change-list inspection used to decide whether the lockfile diff should run
// at all, without fetching any file content.
func (c *Client) ChangedFiles(ctx context.Context, pr PullRequest) ([]string, error) {
	path := fmt.Sprintf("/repos/%s/%s/pulls/%d/files?per_page=100", pr.Owner, pr.Repo, pr.Number)
	body, status, err := c.get(ctx, path, "application/vnd.github+json")
	if err != nil {
		return nil, err
	}
	if status != http.StatusOK {
		return nil, fmt.Errorf("changed files %s: status %d", path, status)
	}
	var files []struct {
		Filename string `json:"filename"`
	}
	if err := json.Unmarshal(body, &files); err != nil {
		return nil, fmt.Errorf("decode changed files: %w", err)
	}
	out := make([]string, 0, len(files))
	for _, f := range files {
		out = append(out, f.Filename)
	}
	return out, nil
}

// RawFile returns the file's raw content at a ref. Any transport error or
// non-success status yields "", an absent manifest, logged, never an error.
// A lockfile legitimately may not exist yet at one side of the comparison.
func (c *Client) RawFile(ctx context.Context, pr PullRequest, ref, filePath string) string {
	path := fmt.Sprintf("/repos/%s/%s/contents/%s?ref=%s",
		pr.Owner, pr.Repo, filePath, url.QueryEscape(ref))
	body, status, err := c.get(ctx, path, "application/vnd.github.raw+json")
	if err != nil {
		c.log.Warn("raw file fetch failed, treating as absent",
			zap.String("path", filePath), zap.String("ref", ref), zap.Error(err))
		return ""
	}
	if status != http.StatusOK {
		c.log.Info("raw file not available, treating as absent",
			zap.String("path", filePath), zap.String("ref", ref), zap.Int("status", status))
		return ""
	}
	return string(body)
}

// FetchPair fetches both lockfile snapshots concurrently. There is no
// ordering dependency between the two; the pair is issued together purely to
// cut wall-clock latency, and either side may come back absent.
func (c *Client) FetchPair(ctx context.Context, pr PullRequest, filePath string) (oldRaw, newRaw string) {
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		oldRaw = c.RawFile(gctx, pr, pr.BaseRef, filePath)
		return nil
	})
	g.Go(func() error {
		newRaw = c.RawFile(gctx, pr, pr.HeadRef, filePath)
		return nil
	})
	_ = g.Wait()
	return oldRaw, newRaw
}
