package application

import (
	"context"
	"fmt"

	"spconnect/domain/lists"
	"spconnect/domain/schema"
	"spconnect/domain/sharepoint"
	"spconnect/infrastructure/spclient"
	"spconnect/logging"
)

// Row is one dataset record keyed by column name.
type Row = map[string]any

// ListConnector exposes a SharePoint list as a dataset: schema, rows and a writer.
// The column mapping is fetched once per connector and reused for one read or write pass.
type ListConnector struct {
	client spclient.SharePointClient
	params *lists.Parameters
	logger *logging.Logger

	schema  schema.Schema
	mapping *schema.ColumnMapping
}

// NewListConnector validates params and returns a connector for params.ListTitle.
func NewListConnector(client spclient.SharePointClient, params *lists.Parameters, logger *logging.Logger) (*ListConnector, error) {
	if err := params.ValidateAndSetDefaults(lists.DefaultConstraints()); err != nil {
		return nil, fmt.Errorf("invalid list parameters: %w", err)
	}
	if logger == nil {
		logger = logging.Default()
	}
	logger = logger.WithComponent("list_connector")
	logger.Info("List connector initialized",
		"list", params.ListTitle,
		"write_mode", params.WriteMode,
		"advanced_parameters", params.AdvancedParameters,
		"max_workers", params.MaxWorkers,
		"batch_size", params.BatchSize)

	return &ListConnector{client: client, params: params, logger: logger}, nil
}

// Parameters returns the validated parameters.
func (c *ListConnector) Parameters() *lists.Parameters {
	return c.params
}

// ReadSchema fetches the list fields and rebuilds the column mapping.
func (c *ListConnector) ReadSchema(ctx context.Context) (schema.Schema, error) {
	if c.params.ViewTitle != "" {
		viewID, err := c.client.GetViewID(ctx, c.params.ListTitle, c.params.ViewTitle)
		if err != nil {
			return schema.Schema{}, fmt.Errorf("resolve view %q: %w", c.params.ViewTitle, err)
		}
		c.logger.Debug("View resolved", "view", c.params.ViewTitle, "view_id", viewID)
	}

	fields, err := c.client.GetListFields(ctx, c.params.ListTitle)
	if err != nil {
		return schema.Schema{}, err
	}
	c.schema, c.mapping = schema.BuildMapping(fields, c.params.MetadataToRetrieve)
	c.logger.Info("Read schema updated", "list", c.params.ListTitle, "columns", len(c.schema.Columns))
	return c.schema, nil
}

// Mapping returns the column mapping, reading the schema first if needed.
func (c *ListConnector) Mapping(ctx context.Context) (*schema.ColumnMapping, error) {
	if c.mapping.Empty() {
		if _, err := c.ReadSchema(ctx); err != nil {
			return nil, err
		}
	}
	return c.mapping, nil
}

// GenerateRows streams list items as rows keyed by display name. A limit <= 0
// reads everything; otherwise paging stops after the page that reaches limit,
// so up to one page more than limit may be delivered.
func (c *ListConnector) GenerateRows(ctx context.Context, limit int, fn func(Row) error) (int, error) {
	mapping, err := c.Mapping(ctx)
	if err != nil {
		return 0, err
	}

	count := 0
	err = c.client.IterateListItems(ctx, c.params.ListTitle, c.params.PageSize, func(items []sharepoint.Item) error {
		for _, item := range items {
			if err := fn(mapping.ColumnIDsToNames(item)); err != nil {
				return err
			}
		}
		count += len(items)
		if limit > 0 && count >= limit {
			return spclient.ErrStopPaging
		}
		return nil
	})
	if err != nil {
		return count, fmt.Errorf("generate rows from %s: %w", c.params.ListTitle, err)
	}
	c.logger.Info("Rows generated", "list", c.params.ListTitle, "rows", count, "limit", limit)
	return count, nil
}

// Writer prepares the list for writing rows of the given schema.
func (c *ListConnector) Writer(ctx context.Context, s schema.Schema) (*ListWriter, error) {
	if err := schema.AssertListTitle(c.params.ListTitle); err != nil {
		return nil, err
	}
	return newListWriter(ctx, c, s)
}
