package application

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"spconnect/domain/sharepoint"
	"spconnect/infrastructure/spclient"
	"spconnect/logging"
)

// FileStat describes a file or folder. LastModified is epoch milliseconds, 0 when unknown.
type FileStat struct {
	Path         string `json:"path"`
	Size         int64  `json:"size"`
	LastModified int64  `json:"lastModified,omitempty"`
	IsDirectory  bool   `json:"isDirectory"`
}

// BrowseEntry is a browse result; directories list their direct children.
type BrowseEntry struct {
	FullPath     string        `json:"fullPath,omitempty"`
	Exists       bool          `json:"exists"`
	Directory    bool          `json:"directory"`
	Size         int64         `json:"size"`
	LastModified int64         `json:"lastModified,omitempty"`
	Children     []BrowseEntry `json:"children,omitempty"`
}

// EnumeratedFile is a file found by Enumerate.
type EnumeratedFile struct {
	Path         string `json:"path"`
	Size         int64  `json:"size"`
	LastModified int64  `json:"lastModified,omitempty"`
}

// FileSystemProvider exposes the document library as a file system rooted at a sub path.
type FileSystemProvider struct {
	client spclient.SharePointClient
	root   string
	logger *logging.Logger
}

// NewFileSystemProvider creates a provider. root is relative to the document library.
func NewFileSystemProvider(client spclient.SharePointClient, root string, logger *logging.Logger) *FileSystemProvider {
	if logger == nil {
		logger = logging.Default()
	}
	root = sharepoint.RelPath(root)
	logger = logger.WithComponent("fs_provider")
	logger.Info("File system provider initialized", "root", root)
	return &FileSystemProvider{client: client, root: root, logger: logger}
}

// fullPath prefixes path with the provider root.
func (p *FileSystemProvider) fullPath(path string) string {
	return sharepoint.LNTPath(sharepoint.JoinPath("/", p.root, sharepoint.RelPath(path)))
}

// children lists a folder's content. A missing folder has no children.
func (p *FileSystemProvider) children(ctx context.Context, fullPath string) ([]sharepoint.File, []sharepoint.Folder, error) {
	files, err := p.client.GetFiles(ctx, fullPath)
	if err != nil && !errors.Is(err, spclient.ErrNotFound) {
		return nil, nil, err
	}
	folders, err := p.client.GetFolders(ctx, fullPath)
	if err != nil && !errors.Is(err, spclient.ErrNotFound) {
		return nil, nil, err
	}
	return files, folders, nil
}

// Stat returns nil when nothing exists at path.
func (p *FileSystemProvider) Stat(ctx context.Context, path string) (*FileStat, error) {
	full := p.fullPath(path)
	p.logger.Debug("stat", "path", path, "full_path", full)

	files, folders, err := p.children(ctx, full)
	if err != nil {
		return nil, err
	}
	if len(files) > 0 || len(folders) > 0 {
		return &FileStat{Path: sharepoint.LNTPath(path), IsDirectory: true}, nil
	}

	parent, name := sharepoint.SplitPath(full)
	files, folders, err = p.children(ctx, sharepoint.LNTPath(parent))
	if err != nil {
		return nil, err
	}
	if folder := sharepoint.FindFolder(folders, name); folder != nil {
		return &FileStat{
			Path:         sharepoint.LNTPath(path),
			LastModified: folder.LastModifiedMillis(),
			IsDirectory:  true,
		}, nil
	}
	if file := sharepoint.FindFile(files, name); file != nil {
		return &FileStat{
			Path:         sharepoint.LNTPath(path),
			Size:         file.Length,
			LastModified: file.LastModifiedMillis(),
		}, nil
	}
	return nil, nil
}

// Browse lists a directory, or describes a single file. Exists is false when
// nothing is found.
func (p *FileSystemProvider) Browse(ctx context.Context, path string) (*BrowseEntry, error) {
	rel := sharepoint.RelPath(path)
	full := p.fullPath(rel)
	p.logger.Debug("browse", "path", rel, "full_path", full)

	files, folders, err := p.children(ctx, full)
	if err != nil {
		return nil, err
	}

	var children []BrowseEntry
	for _, f := range files {
		children = append(children, BrowseEntry{
			FullPath:     sharepoint.LNTPath(sharepoint.JoinPath(rel, f.Name)),
			Exists:       true,
			Size:         f.Length,
			LastModified: f.LastModifiedMillis(),
		})
	}
	for _, f := range folders {
		children = append(children, BrowseEntry{
			FullPath:     sharepoint.LNTPath(sharepoint.JoinPath(rel, f.Name)),
			Exists:       true,
			Directory:    true,
			LastModified: f.LastModifiedMillis(),
		})
	}
	if len(children) > 0 {
		return &BrowseEntry{FullPath: sharepoint.LNTPath(rel), Exists: true, Directory: true, Children: children}, nil
	}

	parent, name := sharepoint.SplitPath(full)
	files, folders, err = p.children(ctx, sharepoint.LNTPath(parent))
	if err != nil {
		return nil, err
	}
	if file := sharepoint.FindFile(files, name); file != nil {
		return &BrowseEntry{
			FullPath:     sharepoint.LNTPath(rel),
			Exists:       true,
			Size:         file.Length,
			LastModified: file.LastModifiedMillis(),
		}, nil
	}
	if folder := sharepoint.FindFolder(folders, name); folder != nil {
		return &BrowseEntry{FullPath: sharepoint.LNTPath(rel), Exists: true, Directory: true}, nil
	}
	return &BrowseEntry{Exists: false}, nil
}

// Enumerate lists every file below path, sub folders first. When firstNonEmpty
// is set it stops at the first file found.
func (p *FileSystemProvider) Enumerate(ctx context.Context, path string, firstNonEmpty bool) ([]EnumeratedFile, error) {
	full := p.fullPath(path)
	p.logger.Debug("enumerate", "path", path, "full_path", full, "first_non_empty", firstNonEmpty)

	isFile, err := p.client.IsFile(ctx, full)
	if err != nil {
		return nil, err
	}
	if isFile {
		return []EnumeratedFile{{Path: path}}, nil
	}

	var found []EnumeratedFile
	err = p.listRecursive(ctx, sharepoint.LNTPath(path), full, firstNonEmpty, &found)
	if errors.Is(err, errLimitReached) {
		err = nil
	}
	return found, err
}

func (p *FileSystemProvider) listRecursive(ctx context.Context, path, full string, firstNonEmpty bool, found *[]EnumeratedFile) error {
	files, folders, err := p.children(ctx, full)
	if err != nil {
		return err
	}
	for _, folder := range folders {
		err := p.listRecursive(ctx,
			sharepoint.LNTPath(sharepoint.JoinPath(path, folder.Name)),
			sharepoint.LNTPath(sharepoint.JoinPath(full, folder.Name)),
			firstNonEmpty, found)
		if err != nil {
			return err
		}
	}
	for _, f := range files {
		*found = append(*found, EnumeratedFile{
			Path:         sharepoint.LNTPath(sharepoint.JoinPath(path, f.Name)),
			Size:         f.Length,
			LastModified: f.LastModifiedMillis(),
		})
		if firstNonEmpty {
			return errLimitReached
		}
	}
	return nil
}

// DeleteRecursive recycles the file or folder at path and returns how many items
// were removed (0 or 1). The root cannot be deleted.
func (p *FileSystemProvider) DeleteRecursive(ctx context.Context, path string) (int, error) {
	full := p.fullPath(path)
	p.logger.Info("delete_recursive", "path", path, "full_path", full)
	if err := sharepoint.AssertPathIsNotRoot(full); err != nil {
		return 0, err
	}

	parent, name := sharepoint.SplitPath(full)
	files, folders, err := p.children(ctx, sharepoint.LNTPath(parent))
	if err != nil {
		return 0, err
	}
	file := sharepoint.FindFile(files, name)
	folder := sharepoint.FindFolder(folders, name)

	switch {
	case file != nil && folder != nil:
		return 0, fmt.Errorf("ambiguous naming with file / folder %s", name)
	case file != nil:
		if err := p.client.RecycleFile(ctx, full); err != nil {
			return 0, err
		}
		return 1, nil
	case folder != nil:
		if err := p.client.RecycleFolder(ctx, full); err != nil {
			return 0, err
		}
		return 1, nil
	}
	return 0, nil
}

// Move moves a file within the provider root.
func (p *FileSystemProvider) Move(ctx context.Context, fromPath, toPath string) (bool, error) {
	from, to := p.fullPath(fromPath), p.fullPath(toPath)
	p.logger.Info("move", "from", from, "to", to)
	if err := p.client.MoveFile(ctx, from, to); err != nil {
		return false, err
	}
	return true, nil
}

// Read copies the file content to w.
func (p *FileSystemProvider) Read(ctx context.Context, path string, w io.Writer) error {
	full := p.fullPath(path)
	data, err := p.client.GetFileContent(ctx, full)
	if err != nil {
		return err
	}
	if _, err := io.Copy(w, bytes.NewReader(data)); err != nil {
		return fmt.Errorf("copy %s: %w", full, err)
	}
	return nil
}

// Write uploads r to path, creating the parent folders, then checks the file in.
func (p *FileSystemProvider) Write(ctx context.Context, path string, r io.Reader) error {
	full := p.fullPath(path)
	data, err := io.ReadAll(r)
	if err != nil {
		return fmt.Errorf("read upload for %s: %w", full, err)
	}
	p.logger.Info("write", "path", path, "full_path", full, "size", len(data))

	if err := p.client.CreatePath(ctx, full); err != nil {
		return err
	}
	if err := p.client.WriteFileContent(ctx, full, data); err != nil {
		return err
	}
	return p.client.CheckInFile(ctx, full)
}

// SetLastModified is not supported by SharePoint and always reports false.
func (p *FileSystemProvider) SetLastModified(ctx context.Context, path string, lastModified time.Time) bool {
	p.logger.Debug("set_last_modified is not supported", "path", p.fullPath(path), "last_modified", lastModified)
	return false
}
