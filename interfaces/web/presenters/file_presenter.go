package presenters

import (
	"fmt"
	"time"

	"spconnect/application"
)

// FileVM describes a file or folder with display-ready fields.
type FileVM struct {
	Path           string   `json:"path"`
	Exists         bool     `json:"exists"`
	Directory      bool     `json:"directory"`
	Size           int64    `json:"size"`
	SizeText       string   `json:"size_text,omitempty"`
	LastModified   int64    `json:"last_modified,omitempty"`
	LastModifiedAt string   `json:"last_modified_at,omitempty"`
	Children       []FileVM `json:"children,omitempty"`
}

// FilePresenter transforms file system results into view models.
type FilePresenter struct{}

// NewFilePresenter creates a file presenter.
func NewFilePresenter() *FilePresenter {
	return &FilePresenter{}
}

// FromStat converts a stat result. A nil stat is a missing path.
func (p *FilePresenter) FromStat(stat *application.FileStat) FileVM {
	if stat == nil {
		return FileVM{}
	}
	return p.file(stat.Path, true, stat.IsDirectory, stat.Size, stat.LastModified)
}

// FromBrowse converts a browse result and its children.
func (p *FilePresenter) FromBrowse(entry *application.BrowseEntry) FileVM {
	vm := p.file(entry.FullPath, entry.Exists, entry.Directory, entry.Size, entry.LastModified)
	for i := range entry.Children {
		vm.Children = append(vm.Children, p.FromBrowse(&entry.Children[i]))
	}
	return vm
}

// FromEnumerated converts enumerated files.
func (p *FilePresenter) FromEnumerated(files []application.EnumeratedFile) []FileVM {
	viewModels := make([]FileVM, len(files))
	for i, f := range files {
		viewModels[i] = p.file(f.Path, true, false, f.Size, f.LastModified)
	}
	return viewModels
}

func (p *FilePresenter) file(path string, exists, directory bool, size, lastModified int64) FileVM {
	vm := FileVM{
		Path:         path,
		Exists:       exists,
		Directory:    directory,
		Size:         size,
		LastModified: lastModified,
	}
	if !directory && exists {
		vm.SizeText = FormatSize(size)
	}
	if lastModified > 0 {
		vm.LastModifiedAt = time.UnixMilli(lastModified).UTC().Format(time.RFC3339)
	}
	return vm
}

// FormatSize renders a byte count with a binary unit.
func FormatSize(size int64) string {
	const unit = 1024
	if size < unit {
		return fmt.Sprintf("%d B", size)
	}
	div, exp := int64(unit), 0
	for n := size / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(size)/float64(div), "KMGTPE"[exp])
}
