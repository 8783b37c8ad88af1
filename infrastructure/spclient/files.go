package spclient

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"spconnect/domain/sharepoint"
)

// GetFolders lists the sub-folders of path, relative to the document root.
func (c *SharePointClientImpl) GetFolders(ctx context.Context, path string) ([]sharepoint.Folder, error) {
	resp, err := c.web(ctx).GetFolder(c.serverRelativeURL(path)).Folders().Get()
	if err != nil {
		return nil, fmt.Errorf("get folders %s: %w", path, fromGosipError(err))
	}
	var data []folderApiData
	if err := json.Unmarshal(resp.Normalized(), &data); err != nil {
		return nil, fmt.Errorf("decode folders: %w", err)
	}
	folders := make([]sharepoint.Folder, 0, len(data))
	for _, f := range data {
		folders = append(folders, f.toDomain())
	}
	return folders, nil
}

// GetFiles lists the files directly under path.
func (c *SharePointClientImpl) GetFiles(ctx context.Context, path string) ([]sharepoint.File, error) {
	resp, err := c.web(ctx).GetFolder(c.serverRelativeURL(path)).Files().Get()
	if err != nil {
		return nil, fmt.Errorf("get files %s: %w", path, fromGosipError(err))
	}
	var data []fileApiData
	if err := json.Unmarshal(resp.Normalized(), &data); err != nil {
		return nil, fmt.Errorf("decode files: %w", err)
	}
	files := make([]sharepoint.File, 0, len(data))
	for _, f := range data {
		files = append(files, f.toDomain())
	}
	return files, nil
}

// GetFileContent downloads the raw bytes of a file.
func (c *SharePointClientImpl) GetFileContent(ctx context.Context, path string) ([]byte, error) {
	data, err := c.web(ctx).GetFile(c.serverRelativeURL(path)).Download()
	if err != nil {
		return nil, fmt.Errorf("get file content %s: %w", path, fromGosipError(err))
	}
	return data, nil
}

// WriteFileContent uploads data to path, overwriting any existing file.
// Files larger than the single-request threshold go through an upload session.
func (c *SharePointClientImpl) WriteFileContent(ctx context.Context, path string, data []byte) error {
	if err := sharepoint.AssertValidPath(path); err != nil {
		return err
	}
	if int64(len(data)) > c.maxSingleSize {
		return c.uploadChunked(ctx, path, data)
	}

	parent, name := sharepoint.SplitPath(path)
	h := http.Header{}
	h.Set("Content-Type", "application/octet-stream")
	if _, err := c.post(ctx, c.fileAddURL(parent, name), h, data); err != nil {
		return fmt.Errorf("write file %s: %w", path, err)
	}
	return nil
}

func (c *SharePointClientImpl) fileAddURL(parent, name string) string {
	return c.folderURL(parent) + "/Files/add(url=" + quoteODataString(name) + ",overwrite=true)"
}

// CreateFolder creates path under the document root. Existing folders are left alone.
func (c *SharePointClientImpl) CreateFolder(ctx context.Context, path string) error {
	if err := sharepoint.AssertValidPath(path); err != nil {
		return err
	}
	url := c.baseURL() + "/Folders/add(" + quoteODataString(c.site.Root+path) + ")"
	if _, err := c.post(ctx, url, nil, nil); err != nil {
		return fmt.Errorf("create folder %s: %w", path, err)
	}
	return nil
}

// CreatePath creates every ancestor folder of filePath.
func (c *SharePointClientImpl) CreatePath(ctx context.Context, filePath string) error {
	parent, _ := sharepoint.SplitPath(filePath)
	current := ""
	for _, token := range splitSegments(parent) {
		current = sharepoint.LNTPath(current + "/" + token)
		if err := c.CreateFolder(ctx, current); err != nil {
			return err
		}
	}
	return nil
}

// MoveFile moves a file, overwriting the destination.
func (c *SharePointClientImpl) MoveFile(ctx context.Context, fromPath, toPath string) error {
	url := c.fileURL(fromPath) + "/moveto(newurl=" + c.sitePath(toPath) + ",flags=1)"
	if _, err := c.post(ctx, url, nil, nil); err != nil {
		return fmt.Errorf("move %s to %s: %w", fromPath, toPath, err)
	}
	return nil
}

// RecycleFile sends a file to the site recycle bin.
func (c *SharePointClientImpl) RecycleFile(ctx context.Context, path string) error {
	if _, err := c.post(ctx, c.fileURL(path)+"/recycle()", nil, nil); err != nil {
		return fmt.Errorf("recycle file %s: %w", path, err)
	}
	return nil
}

// RecycleFolder sends a folder and its content to the site recycle bin.
func (c *SharePointClientImpl) RecycleFolder(ctx context.Context, path string) error {
	if _, err := c.post(ctx, c.folderURL(path)+"/recycle()", nil, nil); err != nil {
		return fmt.Errorf("recycle folder %s: %w", path, err)
	}
	return nil
}

// DeleteFile permanently deletes a file.
func (c *SharePointClientImpl) DeleteFile(ctx context.Context, path string) error {
	if _, err := c.post(ctx, c.fileURL(path), deleteHeader(), nil); err != nil {
		return fmt.Errorf("delete file %s: %w", path, err)
	}
	return nil
}

// DeleteFolder permanently deletes a folder.
func (c *SharePointClientImpl) DeleteFolder(ctx context.Context, path string) error {
	if _, err := c.post(ctx, c.folderURL(path), deleteHeader(), nil); err != nil {
		return fmt.Errorf("delete folder %s: %w", path, err)
	}
	return nil
}

// CheckInFile checks in a file left checked out by an upload.
func (c *SharePointClientImpl) CheckInFile(ctx context.Context, path string) error {
	url := c.fileURL(path) + "/CheckIn(comment='',checkintype=0)"
	if _, err := c.post(ctx, url, nil, nil); err != nil {
		return fmt.Errorf("check in %s: %w", path, err)
	}
	return nil
}

// IsFile reports whether path names an existing file.
func (c *SharePointClientImpl) IsFile(ctx context.Context, path string) (bool, error) {
	resp, err := c.web(ctx).GetFile(c.serverRelativeURL(path)).Get()
	if err != nil {
		err = fromGosipError(err)
		if errors.Is(err, ErrNotFound) {
			return false, nil
		}
		return false, fmt.Errorf("stat file %s: %w", path, err)
	}
	var data fileApiData
	if err := json.Unmarshal(resp.Normalized(), &data); err != nil {
		return false, fmt.Errorf("decode file: %w", err)
	}
	return data.Exists, nil
}

func deleteHeader() http.Header {
	h := http.Header{}
	h.Set(headerHTTPMethod, "DELETE")
	h.Set("IF-MATCH", "*")
	return h
}

func splitSegments(p string) []string {
	lnt := sharepoint.LNTPath(p)
	if lnt == "/" {
		return nil
	}
	return strings.Split(lnt[1:], "/")
}
