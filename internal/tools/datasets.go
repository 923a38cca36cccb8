// Copyright 2025 Hopsworks Community
// SPDX-License-Identifier: Apache-2.0

package tools

import (
	"context"
	"encoding/json"
	"unicode/utf8"
)

// readContentLimit caps how much of a remote file read_content returns
// inline.
const readContentLimit = 1 << 20

func (r *Registry) registerDatasetTools() {
	r.read(tool("get_dataset_api",
		"Connect to the current project's dataset filesystem.",
		noArgs()),
		r.handleGetDatasetAPI)

	r.write(tool("upload_file",
		"Upload a local file to the project filesystem.",
		schema(map[string]any{
			"local_path":  stringProp("Local file to upload"),
			"upload_path": stringProp("Target directory in the project filesystem"),
			"overwrite":   boolProp("Replace an existing file"),
		}, "local_path", "upload_path")),
		r.handleUploadFile)

	r.read(tool("download_file",
		"Download a file from the project filesystem to a local path.",
		schema(map[string]any{
			"path":       stringProp("Remote file to download"),
			"local_path": stringProp("Local destination, defaults to the working directory"),
			"overwrite":  boolProp("Replace an existing local file"),
		}, "path")),
		r.handleDownloadFile)

	r.read(tool("list_files",
		"List the entries of a directory in the project filesystem.",
		schema(map[string]any{
			"path": stringProp("Directory to list"),
		}, "path")),
		r.handleListFiles)

	r.write(tool("create_directory",
		"Create a directory in the project filesystem.",
		schema(map[string]any{
			"path": stringProp("Directory to create"),
		}, "path")),
		r.handleCreateDirectory)

	r.destructive(tool("remove_file",
		"Remove a file or directory from the project filesystem.",
		schema(map[string]any{
			"path": stringProp("Path to remove"),
		}, "path")),
		r.handleRemoveFile)

	r.read(tool("check_exists",
		"Check whether a path exists in the project filesystem.",
		schema(map[string]any{
			"path": stringProp("Path to check"),
		}, "path")),
		r.handleCheckExists)

	r.write(tool("move_file",
		"Move a file or directory within the project filesystem.",
		schema(map[string]any{
			"source_path":      stringProp("Path to move"),
			"destination_path": stringProp("Target path"),
			"overwrite":        boolProp("Replace an existing target"),
		}, "source_path", "destination_path")),
		r.handleMoveFile)

	r.write(tool("copy_file",
		"Copy a file or directory within the project filesystem.",
		schema(map[string]any{
			"source_path":      stringProp("Path to copy"),
			"destination_path": stringProp("Target path"),
			"overwrite":        boolProp("Replace an existing target"),
		}, "source_path", "destination_path")),
		r.handleCopyFile)

	r.read(tool("read_content",
		"Read the content of a file in the project filesystem, truncated to 1 MiB.",
		schema(map[string]any{
			"path": stringProp("File to read"),
		}, "path")),
		r.handleReadContent)

	r.write(tool("zip_file",
		"Compress a file or directory in the project filesystem.",
		schema(map[string]any{
			"remote_path":      stringProp("Path to compress"),
			"destination_path": stringProp("Archive path, defaults to <remote_path>.zip"),
			"block":            boolProp("Wait until the archive exists"),
		}, "remote_path")),
		r.handleZipFile)

	r.write(tool("unzip_file",
		"Extract an archive in the project filesystem next to itself.",
		schema(map[string]any{
			"remote_path": stringProp("Archive to extract"),
			"block":       boolProp("Wait until the extraction finishes"),
		}, "remote_path")),
		r.handleUnzipFile)
}

type datasetPathArgs struct {
	Path      string `json:"path"`
	LocalPath string `json:"local_path"`
	Overwrite bool   `json:"overwrite"`
}

func (r *Registry) handleGetDatasetAPI(ctx context.Context, args json.RawMessage) (any, error) {
	session, err := r.session()
	if err != nil {
		return nil, err
	}
	return map[string]any{
		"status":    "ok",
		"connected": true,
		"project":   session.Project().Name,
	}, nil
}

type uploadFileArgs struct {
	LocalPath  string `json:"local_path"`
	UploadPath string `json:"upload_path"`
	Overwrite  bool   `json:"overwrite"`
}

func (r *Registry) handleUploadFile(ctx context.Context, args json.RawMessage) (any, error) {
	var a uploadFileArgs
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}
	session, err := r.session()
	if err != nil {
		return nil, err
	}
	remote, err := session.Client().UploadDataset(ctx, session.Project().ID, a.LocalPath, a.UploadPath, a.Overwrite)
	if err != nil {
		return nil, err
	}
	return map[string]any{"status": "uploaded", "path": remote}, nil
}

func (r *Registry) handleDownloadFile(ctx context.Context, args json.RawMessage) (any, error) {
	var a datasetPathArgs
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}
	session, err := r.session()
	if err != nil {
		return nil, err
	}
	local, err := session.Client().DownloadDataset(ctx, session.Project().ID, a.Path, a.LocalPath, a.Overwrite)
	if err != nil {
		return nil, err
	}
	return map[string]any{"status": "downloaded", "path": a.Path, "local_path": local}, nil
}

func (r *Registry) handleListFiles(ctx context.Context, args json.RawMessage) (any, error) {
	var a datasetPathArgs
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}
	session, err := r.session()
	if err != nil {
		return nil, err
	}
	entries, err := session.Client().ListDataset(ctx, session.Project().ID, a.Path)
	if err != nil {
		return nil, err
	}

	files := make([]map[string]any, 0, len(entries))
	for _, e := range entries {
		files = append(files, map[string]any{
			"name":     e.Name,
			"path":     e.Path,
			"dir":      e.Dir,
			"size":     e.Size,
			"modified": e.Modified,
			"owner":    e.Owner,
		})
	}
	return map[string]any{"status": "ok", "path": a.Path, "count": len(files), "files": files}, nil
}

func (r *Registry) handleCreateDirectory(ctx context.Context, args json.RawMessage) (any, error) {
	var a datasetPathArgs
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}
	session, err := r.session()
	if err != nil {
		return nil, err
	}
	if err := session.Client().MkdirDataset(ctx, session.Project().ID, a.Path); err != nil {
		return nil, err
	}
	return map[string]any{"status": "created", "path": a.Path}, nil
}

func (r *Registry) handleRemoveFile(ctx context.Context, args json.RawMessage) (any, error) {
	var a datasetPathArgs
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}
	session, err := r.session()
	if err != nil {
		return nil, err
	}
	if err := session.Client().RemoveDataset(ctx, session.Project().ID, a.Path); err != nil {
		return nil, err
	}
	return map[string]any{"status": "removed", "path": a.Path}, nil
}

func (r *Registry) handleCheckExists(ctx context.Context, args json.RawMessage) (any, error) {
	var a datasetPathArgs
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}
	session, err := r.session()
	if err != nil {
		return nil, err
	}
	exists, err := session.Client().DatasetExists(ctx, session.Project().ID, a.Path)
	if err != nil {
		return nil, err
	}
	return map[string]any{"status": "ok", "path": a.Path, "exists": exists}, nil
}

type relocateArgs struct {
	SourcePath      string `json:"source_path"`
	DestinationPath string `json:"destination_path"`
	Overwrite       bool   `json:"overwrite"`
}

func (r *Registry) handleMoveFile(ctx context.Context, args json.RawMessage) (any, error) {
	var a relocateArgs
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}
	session, err := r.session()
	if err != nil {
		return nil, err
	}
	if err := session.Client().MoveDataset(ctx, session.Project().ID, a.SourcePath, a.DestinationPath, a.Overwrite); err != nil {
		return nil, err
	}
	return map[string]any{"status": "moved", "source": a.SourcePath, "destination": a.DestinationPath}, nil
}

func (r *Registry) handleCopyFile(ctx context.Context, args json.RawMessage) (any, error) {
	var a relocateArgs
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}
	session, err := r.session()
	if err != nil {
		return nil, err
	}
	if err := session.Client().CopyDataset(ctx, session.Project().ID, a.SourcePath, a.DestinationPath, a.Overwrite); err != nil {
		return nil, err
	}
	return map[string]any{"status": "copied", "source": a.SourcePath, "destination": a.DestinationPath}, nil
}

func (r *Registry) handleReadContent(ctx context.Context, args json.RawMessage) (any, error) {
	var a datasetPathArgs
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}
	session, err := r.session()
	if err != nil {
		return nil, err
	}
	content, err := session.Client().ReadDatasetContent(ctx, session.Project().ID, a.Path)
	if err != nil {
		return nil, err
	}

	truncated := false
	if len(content) > readContentLimit {
		content = content[:readContentLimit]
		truncated = true
	}
	result := map[string]any{
		"status":    "ok",
		"path":      a.Path,
		"size":      len(content),
		"truncated": truncated,
	}
	if utf8.Valid(content) {
		result["content"] = string(content)
	} else {
		result["content"] = nil
		result["binary"] = true
	}
	return result, nil
}

type zipArgs struct {
	RemotePath      string `json:"remote_path"`
	DestinationPath string `json:"destination_path"`
	Block           bool   `json:"block"`
}

func (r *Registry) handleZipFile(ctx context.Context, args json.RawMessage) (any, error) {
	var a zipArgs
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}
	session, err := r.session()
	if err != nil {
		return nil, err
	}
	archive, err := session.Client().ZipDataset(ctx, session.Project().ID, a.RemotePath, a.DestinationPath, a.Block)
	if err != nil {
		return nil, err
	}
	return map[string]any{"status": "zipped", "path": a.RemotePath, "archive": archive}, nil
}

func (r *Registry) handleUnzipFile(ctx context.Context, args json.RawMessage) (any, error) {
	var a zipArgs
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}
	session, err := r.session()
	if err != nil {
		return nil, err
	}
	if err := session.Client().UnzipDataset(ctx, session.Project().ID, a.RemotePath, a.Block); err != nil {
		return nil, err
	}
	return map[string]any{"status": "unzipped", "path": a.RemotePath}, nil
}
