// Copyright 2024 The pyport Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package source downloads and unpacks source tarballs.
package source

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"time"

	"github.com/charmbracelet/log"
)

// ErrUnsupportedArchive is returned for archive formats Extract cannot read.
var ErrUnsupportedArchive = errors.New("unsupported archive format")

// Fetcher resolves a source URL into a freshly extracted local tree.
type Fetcher interface {
	// Fetch extracts the archive at url under destDir and returns the
	// source root (the archive's single top-level directory, if any).
	Fetch(ctx context.Context, url, destDir string) (string, error)
}

// HTTPFetcher downloads tarballs over HTTP, keeping them in CacheDir so a
// re-run does not download again. Extraction always starts from scratch.
type HTTPFetcher struct {
	Client    *http.Client
	CacheDir  string
	UserAgent string
	Logger    *log.Logger
}

// NewHTTPFetcher returns a fetcher with a default client and timeout.
func NewHTTPFetcher(cacheDir string, logger *log.Logger) *HTTPFetcher {
	return &HTTPFetcher{
		Client: &http.Client{
			Timeout: 10 * time.Minute,
			Transport: &http.Transport{
				MaxIdleConns:        10,
				MaxIdleConnsPerHost: 4,
				IdleConnTimeout:     90 * time.Second,
			},
		},
		CacheDir:  cacheDir,
		UserAgent: "pyport/1.0",
		Logger:    logger,
	}
}

func (f *HTTPFetcher) Fetch(ctx context.Context, url, destDir string) (string, error) {
	archive, err := f.download(ctx, url)
	if err != nil {
		return "", err
	}
	if err := os.RemoveAll(destDir); err != nil {
		return "", err
	}
	if f.Logger != nil {
		f.Logger.Debug("extracting", "archive", filepath.Base(archive), "dest", destDir)
	}
	if err := Extract(archive, destDir); err != nil {
		return "", fmt.Errorf("extracting %s: %w", filepath.Base(archive), err)
	}
	return Root(destDir)
}

func (f *HTTPFetcher) download(ctx context.Context, url string) (string, error) {
	if err := os.MkdirAll(f.CacheDir, 0o755); err != nil {
		return "", fmt.Errorf("creating download dir: %w", err)
	}
	dest := filepath.Join(f.CacheDir, path.Base(url))
	if info, err := os.Stat(dest); err == nil && info.Size() > 0 {
		if f.Logger != nil {
			f.Logger.Debug("using cached download", "file", dest)
		}
		return dest, nil
	}

	if f.Logger != nil {
		f.Logger.Info("downloading", "url", url)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("User-Agent", f.UserAgent)

	client := f.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return "", fmt.Errorf("downloading %s: %w", url, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("downloading %s: unexpected status: %d", url, resp.StatusCode)
	}

	tmp, err := os.CreateTemp(f.CacheDir, ".download-*")
	if err != nil {
		return "", err
	}
	defer os.Remove(tmp.Name())
	if _, err := io.Copy(tmp, resp.Body); err != nil {
		tmp.Close()
		return "", fmt.Errorf("downloading %s: %w", url, err)
	}
	if err := tmp.Close(); err != nil {
		return "", err
	}
	if err := os.Rename(tmp.Name(), dest); err != nil {
		return "", err
	}
	return dest, nil
}

// Root returns the single top-level directory of an extracted tree, or dir
// itself when the archive was not wrapped in one.
func Root(dir string) (string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return "", err
	}
	if len(entries) == 1 && entries[0].IsDir() {
		return filepath.Join(dir, entries[0].Name()), nil
	}
	return dir, nil
}
