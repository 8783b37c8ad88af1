package sharepoint

import (
	"time"
)

// List represents a SharePoint list as returned by GetByTitle
type List struct {
	ID                         string
	Title                      string
	EntityTypeName             string
	ListItemEntityTypeFullName string
	BaseTemplate               int
	LastItemModifiedDate       time.Time
	RootFolderURL              string // server-relative
}

// IsCustomList returns true if this is a custom list (BaseTemplate 100)
func (l *List) IsCustomList() bool {
	return l.BaseTemplate == BaseTemplateGenericList
}

// WebName returns the list segment used in /Lists/{name} URLs.
// Falls back to the title when the root folder is unknown.
func (l *List) WebName() string {
	if l.RootFolderURL == "" {
		return l.Title
	}
	_, name := SplitPath(l.RootFolderURL)
	if name == "" {
		return l.Title
	}
	return name
}

// Field represents a list column definition
type Field struct {
	ID                 string
	StaticName         string
	InternalName       string
	EntityPropertyName string
	Title              string
	Description        string
	Hidden             bool
	ReadOnlyField      bool
	TypeAsString       string
}

// Folder represents a folder in a document library
type Folder struct {
	Name              string
	ServerRelativeURL string
	ItemCount         int
	TimeLastModified  string // 2006-01-02T15:04:05Z
}

// LastModifiedMillis returns TimeLastModified as epoch milliseconds, 0 when unknown.
func (f *Folder) LastModifiedMillis() int64 {
	ms, _ := TimeLastModifiedToEpochMillis(f.TimeLastModified)
	return ms
}

// File represents a file in a document library
type File struct {
	Name              string
	ServerRelativeURL string
	Length            int64
	TimeLastModified  string // 2006-01-02T15:04:05Z
	Exists            bool
}

// LastModifiedMillis returns TimeLastModified as epoch milliseconds, 0 when unknown.
func (f *File) LastModifiedMillis() int64 {
	ms, _ := TimeLastModifiedToEpochMillis(f.TimeLastModified)
	return ms
}

// Item is one list row keyed by field static name.
type Item map[string]any

// FindFile returns the file with the given name, or nil.
func FindFile(files []File, name string) *File {
	for i := range files {
		if files[i].Name == name {
			return &files[i]
		}
	}
	return nil
}

// FindFolder returns the folder with the given name, or nil.
func FindFolder(folders []Folder, name string) *Folder {
	for i := range folders {
		if folders[i].Name == name {
			return &folders[i]
		}
	}
	return nil
}

// Site is a site collection discovered through search
type Site struct {
	Title string
	URL   string
	Path  string // "{type}/{name}" relative to the tenant origin
}
