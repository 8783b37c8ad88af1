package application

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"spconnect/domain/schema"
	"spconnect/domain/sharepoint"
	"spconnect/infrastructure/spclient"
	"spconnect/logging"
)

// ListWriter buffers rows and adds them to a list through $batch requests.
// Rows are positional and follow the order of the writer's schema columns.
type ListWriter struct {
	client    spclient.SharePointClient
	logger    *logging.Logger
	listTitle string

	columns    []schema.Column
	columnKeys map[string]string // column name -> item property

	listID     string
	entityType string
	webName    string

	maxWorkers int
	batchSize  int
	buffer     [][]any
	written    atomic.Int64
}

func newListWriter(ctx context.Context, c *ListConnector, s schema.Schema) (*ListWriter, error) {
	p := c.params
	w := &ListWriter{
		client:     c.client,
		logger:     c.logger.WithComponent("list_writer"),
		listTitle:  p.ListTitle,
		columns:    s.Columns,
		columnKeys: make(map[string]string, len(s.Columns)),
		maxWorkers: p.MaxWorkers,
		batchSize:  p.BatchSize,
	}
	w.logger.Info("Initializing list writer", "list", p.ListTitle, "max_workers", w.maxWorkers, "batch_size", w.batchSize)

	var list *sharepoint.List
	var err error
	if p.WriteMode == sharepoint.WriteModeCreate {
		w.logger.Info("Recycling list before creation", "list", p.ListTitle)
		if err := c.client.RecycleList(ctx, p.ListTitle); err != nil {
			return nil, err
		}
		list, err = c.client.CreateList(ctx, p.ListTitle)
	} else {
		list, err = c.client.GetListMetadata(ctx, p.ListTitle)
	}
	if err != nil {
		return nil, err
	}
	w.listID = list.ID
	w.entityType = list.ListItemEntityTypeFullName
	w.webName = list.WebName()

	// The mapping must describe the list as it is now, which after a create is the fresh list.
	if _, err := c.ReadSchema(ctx); err != nil {
		return nil, err
	}
	if err := w.createColumns(ctx, c.mapping); err != nil {
		return nil, err
	}
	return w, nil
}

// createColumns maps every dataset column to an item property, creating missing fields.
func (w *ListWriter) createColumns(ctx context.Context, mapping *schema.ColumnMapping) error {
	for _, col := range w.columns {
		spType := schema.SharePointType(col.Type)
		if existing, ok := mapping.SharePointTypes[col.Name]; ok {
			spType = existing
		}

		if staticName, ok := mapping.StaticNameFor(col.Name); ok {
			w.columnKeys[col.Name] = mapping.EntityPropertyName[staticName]
			continue
		}
		if _, ok := mapping.Types[col.Name]; ok {
			w.columnKeys[col.Name] = col.Name
			continue
		}

		w.logger.Info("Creating column", "column", col.Name, "type", spType)
		field, err := w.client.CreateCustomField(ctx, w.listID, col.Name, spType)
		if err != nil {
			return err
		}
		w.columnKeys[col.Name] = field.StaticName
		if err := w.client.AddColumnToDefaultView(ctx, w.listTitle, col.Name); err != nil {
			return err
		}
	}
	return nil
}

// WriteRow buffers one row and flushes once MaxWorkers*BatchSize rows are pending.
func (w *ListWriter) WriteRow(ctx context.Context, row []any) error {
	w.buffer = append(w.buffer, row)
	if len(w.buffer) >= w.maxWorkers*w.batchSize {
		return w.Flush(ctx)
	}
	return nil
}

// WriteRowDict writes a row given by column name. Missing columns are written empty.
func (w *ListWriter) WriteRowDict(ctx context.Context, row Row) error {
	values := make([]any, len(w.columns))
	for i, col := range w.columns {
		if v, ok := row[col.Name]; ok && v != nil {
			values[i] = fmt.Sprint(v)
		}
	}
	return w.WriteRow(ctx, values)
}

// Flush sends the buffered rows. With several workers the buffer is split in
// BatchSize slices sent concurrently and the first error is returned.
func (w *ListWriter) Flush(ctx context.Context) error {
	if len(w.buffer) == 0 {
		return nil
	}
	parts := make([]spclient.BatchPart, 0, len(w.buffer))
	for _, row := range w.buffer {
		part, err := w.client.AddListItemRequest(w.webName, w.entityType, w.buildItem(row))
		if err != nil {
			return err
		}
		parts = append(parts, part)
	}
	w.buffer = w.buffer[:0]

	start := time.Now()
	var err error
	if w.maxWorkers > 1 {
		err = w.sendConcurrently(ctx, parts)
	} else {
		err = w.sendSequentially(ctx, parts)
	}
	if err != nil {
		return err
	}
	w.logger.Info("Items written", "list", w.listTitle, "items", len(parts), "total", w.written.Load(),
		"duration_ms", time.Since(start).Milliseconds())
	return nil
}

func (w *ListWriter) sendSequentially(ctx context.Context, parts []spclient.BatchPart) error {
	for start := 0; start < len(parts); start += w.batchSize {
		chunk := parts[start:min(start+w.batchSize, len(parts))]
		if err := w.client.ProcessBatch(ctx, chunk); err != nil {
			return err
		}
		w.written.Add(int64(len(chunk)))
	}
	return nil
}

func (w *ListWriter) sendConcurrently(ctx context.Context, parts []spclient.BatchPart) error {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(w.maxWorkers)
	for start := 0; start < len(parts); start += w.batchSize {
		chunk := parts[start:min(start+w.batchSize, len(parts))]
		g.Go(func() error {
			if err := w.client.ProcessBatch(gctx, chunk); err != nil {
				return err
			}
			w.written.Add(int64(len(chunk)))
			return nil
		})
	}
	return g.Wait()
}

// buildItem keys row values by item property. Non-empty date values are converted
// to the SharePoint date format.
func (w *ListWriter) buildItem(row []any) sharepoint.Item {
	item := make(sharepoint.Item, len(w.columns))
	for i, col := range w.columns {
		if i >= len(row) {
			break
		}
		value := row[i]
		if s, ok := value.(string); ok && s != "" && col.Type == schema.TypeDate {
			value = sharepoint.DSSToSharePointDate(s)
		}
		item[w.columnKeys[col.Name]] = value
	}
	return item
}

// Written returns the number of items sent successfully.
func (w *ListWriter) Written() int64 {
	return w.written.Load()
}

// Close flushes the remaining rows.
func (w *ListWriter) Close(ctx context.Context) error {
	return w.Flush(ctx)
}
