package application

import (
	"context"
	"errors"
	"fmt"
	"time"

	"spconnect/domain/schema"
	"spconnect/domain/sharepoint"
	"spconnect/infrastructure/spclient"
	"spconnect/logging"
)

// errLimitReached ends a metadata walk once enough rows were produced.
var errLimitReached = errors.New("record limit reached")

// DocumentMetadata is one row of the documents metadata dataset.
type DocumentMetadata struct {
	Path         string `json:"path"`
	Name         string `json:"name"`
	Size         int64  `json:"size"`
	LastModified string `json:"last_modified"` // DSS date format
}

// DocumentsMetadataSchema is the fixed schema of the documents metadata dataset.
var DocumentsMetadataSchema = schema.Schema{Columns: []schema.Column{
	{Name: "path", Type: schema.TypeString},
	{Name: "name", Type: schema.TypeString},
	{Name: "size", Type: "bigint"},
	{Name: "last_modified", Type: schema.TypeDate},
}}

// DocumentsMetadata is a read-only dataset listing every file below the document root.
type DocumentsMetadata struct {
	client spclient.SharePointClient
	logger *logging.Logger
}

// NewDocumentsMetadata creates the dataset reader.
func NewDocumentsMetadata(client spclient.SharePointClient, logger *logging.Logger) *DocumentsMetadata {
	if logger == nil {
		logger = logging.Default()
	}
	return &DocumentsMetadata{client: client, logger: logger.WithComponent("documents_metadata")}
}

// GenerateRows walks the library depth first, files before sub folders, and calls
// fn for each file. A limit <= 0 means no limit.
func (d *DocumentsMetadata) GenerateRows(ctx context.Context, limit int, fn func(DocumentMetadata) error) (int, error) {
	count := 0
	err := d.walk(ctx, "/", func(doc DocumentMetadata) error {
		if err := fn(doc); err != nil {
			return err
		}
		count++
		if limit > 0 && count >= limit {
			return errLimitReached
		}
		return nil
	})
	if err != nil && !errors.Is(err, errLimitReached) {
		return count, err
	}
	d.logger.Info("Documents metadata generated", "rows", count, "limit", limit)
	return count, nil
}

func (d *DocumentsMetadata) walk(ctx context.Context, path string, fn func(DocumentMetadata) error) error {
	files, err := d.client.GetFiles(ctx, path)
	if err != nil {
		return fmt.Errorf("list files in %s: %w", path, err)
	}
	for _, f := range files {
		doc := DocumentMetadata{
			Path:         sharepoint.JoinPath(path, f.Name),
			Name:         f.Name,
			Size:         f.Length,
			LastModified: time.UnixMilli(f.LastModifiedMillis()).UTC().Format(sharepoint.DSSDateLayout),
		}
		if err := fn(doc); err != nil {
			return err
		}
	}

	folders, err := d.client.GetFolders(ctx, path)
	if err != nil {
		return fmt.Errorf("list folders in %s: %w", path, err)
	}
	for _, folder := range folders {
		if err := d.walk(ctx, sharepoint.JoinPath(path, folder.Name), fn); err != nil {
			return err
		}
	}
	return nil
}
