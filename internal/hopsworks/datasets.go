// Copyright 2025 Hopsworks Community
// SPDX-License-Identifier: Apache-2.0

package hopsworks

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/google/uuid"
)

// DatasetEntry is one file or directory in the project filesystem.
type DatasetEntry struct {
	Name     string
	Path     string
	Dir      bool
	Size     int64
	Modified string
	Owner    string
}

// datasetItem is the inode envelope the listing endpoint returns.
type datasetItem struct {
	Attributes struct {
		Name             string `json:"name"`
		Path             string `json:"path"`
		Dir              bool   `json:"dir"`
		Size             int64  `json:"size"`
		ModificationTime string `json:"modificationTime"`
		Owner            string `json:"owner"`
	} `json:"attributes"`
}

func datasetPath(projectID int, dsPath string) string {
	return fmt.Sprintf("project/%d/dataset/%s", projectID, escapeDatasetPath(dsPath))
}

// escapeDatasetPath escapes each path segment while keeping the
// separators.
func escapeDatasetPath(p string) string {
	parts := strings.Split(strings.Trim(p, "/"), "/")
	for i, part := range parts {
		parts[i] = url.PathEscape(part)
	}
	return strings.Join(parts, "/")
}

// ListDataset lists the entries of a directory in the project
// filesystem.
func (c *Client) ListDataset(ctx context.Context, projectID int, dsPath string) ([]DatasetEntry, error) {
	q := url.Values{}
	q.Set("action", "listing")
	q.Set("expand", "inodes")
	var resp itemsEnvelope[datasetItem]
	if err := c.get(ctx, "list dataset", datasetPath(projectID, dsPath), q, &resp); err != nil {
		return nil, err
	}
	entries := make([]DatasetEntry, len(resp.Items))
	for i, it := range resp.Items {
		entries[i] = DatasetEntry{
			Name:     it.Attributes.Name,
			Path:     it.Attributes.Path,
			Dir:      it.Attributes.Dir,
			Size:     it.Attributes.Size,
			Modified: it.Attributes.ModificationTime,
			Owner:    it.Attributes.Owner,
		}
	}
	return entries, nil
}

// DatasetExists reports whether a path exists in the project
// filesystem.
func (c *Client) DatasetExists(ctx context.Context, projectID int, dsPath string) (bool, error) {
	q := url.Values{}
	q.Set("action", "stat")
	err := c.get(ctx, "stat dataset", datasetPath(projectID, dsPath), q, nil)
	if err == nil {
		return true, nil
	}
	var apiErr *Error
	if errors.As(err, &apiErr) && apiErr.Kind == KindNotFound {
		return false, nil
	}
	return false, err
}

// MkdirDataset creates a directory.
func (c *Client) MkdirDataset(ctx context.Context, projectID int, dsPath string) error {
	q := url.Values{}
	q.Set("action", "create")
	q.Set("type", "DIR")
	return c.post(ctx, "create dataset directory", datasetPath(projectID, dsPath), q, nil, nil)
}

// RemoveDataset deletes a file or directory.
func (c *Client) RemoveDataset(ctx context.Context, projectID int, dsPath string) error {
	return c.delete(ctx, "remove dataset path", datasetPath(projectID, dsPath), nil)
}

// MoveDataset moves a file or directory. The destination must not
// exist unless overwrite is set.
func (c *Client) MoveDataset(ctx context.Context, projectID int, src, dst string, overwrite bool) error {
	return c.relocateDataset(ctx, "move dataset path", projectID, "move", src, dst, overwrite)
}

// CopyDataset copies a file or directory.
func (c *Client) CopyDataset(ctx context.Context, projectID int, src, dst string, overwrite bool) error {
	return c.relocateDataset(ctx, "copy dataset path", projectID, "copy", src, dst, overwrite)
}

func (c *Client) relocateDataset(ctx context.Context, op string, projectID int, action, src, dst string, overwrite bool) error {
	if src == "" || dst == "" {
		return NewError(KindInvalidArgument, op, "source and destination paths are required")
	}
	if !overwrite {
		exists, err := c.DatasetExists(ctx, projectID, dst)
		if err != nil {
			return err
		}
		if exists {
			return NewError(KindConflict, op, "destination %q already exists", dst)
		}
	}
	q := url.Values{}
	q.Set("action", action)
	q.Set("destination_path", dst)
	return c.post(ctx, op, datasetPath(projectID, src), q, nil, nil)
}

// ReadDatasetContent downloads a file and returns its content.
func (c *Client) ReadDatasetContent(ctx context.Context, projectID int, dsPath string) ([]byte, error) {
	q := url.Values{}
	q.Set("type", "DATASET")
	path := fmt.Sprintf("project/%d/dataset/download/with_auth/%s", projectID, escapeDatasetPath(dsPath))
	return c.getBytes(ctx, "read dataset content", path, q)
}

// DownloadDataset downloads a file to the local filesystem and returns
// the local path written.
func (c *Client) DownloadDataset(ctx context.Context, projectID int, dsPath, localPath string, overwrite bool) (string, error) {
	const op = "download dataset file"
	if localPath == "" {
		localPath = filepath.Base(dsPath)
	}
	if info, err := os.Stat(localPath); err == nil {
		if info.IsDir() {
			localPath = filepath.Join(localPath, filepath.Base(dsPath))
		} else if !overwrite {
			return "", NewError(KindConflict, op, "local file %q already exists", localPath)
		}
	}
	data, err := c.ReadDatasetContent(ctx, projectID, dsPath)
	if err != nil {
		return "", err
	}
	if err := os.WriteFile(localPath, data, 0o644); err != nil {
		return "", NewError(KindBackend, op, "writing %q: %v", localPath, err)
	}
	return localPath, nil
}

// UploadDataset uploads a local file into a directory of the project
// filesystem and returns the uploaded path.
func (c *Client) UploadDataset(ctx context.Context, projectID int, localPath, uploadDir string, overwrite bool) (string, error) {
	const op = "upload dataset file"
	data, err := os.ReadFile(localPath)
	if err != nil {
		return "", NewError(KindInvalidArgument, op, "reading %q: %v", localPath, err)
	}
	name := filepath.Base(localPath)
	remote := strings.TrimRight(uploadDir, "/") + "/" + name

	exists, err := c.DatasetExists(ctx, projectID, remote)
	if err != nil {
		return "", err
	}
	if exists {
		if !overwrite {
			return "", NewError(KindConflict, op, "remote file %q already exists", remote)
		}
		if err := c.RemoveDataset(ctx, projectID, remote); err != nil {
			return "", err
		}
	}

	// The upload endpoint speaks the flow.js chunk protocol; files our
	// size fit in a single chunk.
	size := strconv.Itoa(len(data))
	fields := map[string]string{
		"flowChunkNumber":      "1",
		"flowChunkSize":        size,
		"flowCurrentChunkSize": size,
		"flowTotalSize":        size,
		"flowTotalChunks":      "1",
		"flowIdentifier":       uuid.NewString(),
		"flowFilename":         name,
		"flowRelativePath":     name,
	}
	path := fmt.Sprintf("project/%d/dataset/upload/%s", projectID, escapeDatasetPath(uploadDir))
	if err := c.postMultipart(ctx, op, path, fields, name, data); err != nil {
		return "", err
	}
	return remote, nil
}

// ZipDataset compresses a file or directory. When block is true the
// call waits until the archive appears at the destination.
func (c *Client) ZipDataset(ctx context.Context, projectID int, dsPath, destPath string, block bool) (string, error) {
	const op = "zip dataset path"
	if destPath == "" {
		destPath = dsPath + ".zip"
	}
	q := url.Values{}
	q.Set("action", "zip")
	q.Set("destination_path", destPath)
	if err := c.post(ctx, op, datasetPath(projectID, dsPath), q, nil, nil); err != nil {
		return "", err
	}
	if block {
		if err := c.awaitDatasetPath(ctx, op, projectID, destPath); err != nil {
			return "", err
		}
	}
	return destPath, nil
}

// UnzipDataset extracts an archive next to itself. When block is true
// the call waits until the extracted directory appears.
func (c *Client) UnzipDataset(ctx context.Context, projectID int, dsPath string, block bool) error {
	const op = "unzip dataset path"
	q := url.Values{}
	q.Set("action", "unzip")
	if err := c.post(ctx, op, datasetPath(projectID, dsPath), q, nil, nil); err != nil {
		return err
	}
	if block {
		extracted := strings.TrimSuffix(dsPath, ".zip")
		if extracted == dsPath {
			return nil
		}
		return c.awaitDatasetPath(ctx, op, projectID, extracted)
	}
	return nil
}

func (c *Client) awaitDatasetPath(ctx context.Context, op string, projectID int, dsPath string) error {
	_, err := backoff.Retry(ctx, func() (struct{}, error) {
		exists, err := c.DatasetExists(ctx, projectID, dsPath)
		if err != nil {
			return struct{}{}, backoff.Permanent(err)
		}
		if !exists {
			return struct{}{}, fmt.Errorf("%q not present yet", dsPath)
		}
		return struct{}{}, nil
	}, backoff.WithBackOff(backoff.NewConstantBackOff(2*time.Second)),
		backoff.WithMaxElapsedTime(10*time.Minute))
	if err != nil {
		return NewError(KindUnavailable, op, "timed out waiting for %q", dsPath)
	}
	return nil
}
