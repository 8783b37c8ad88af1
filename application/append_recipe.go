package application

import (
	"context"
	"errors"
	"fmt"
	"io"

	"spconnect/domain/lists"
	"spconnect/domain/sharepoint"
	"spconnect/infrastructure/spclient"
	"spconnect/logging"
)

// AppendListRecipe appends every input row to an existing list and echoes the
// rows, unchanged and with the input schema, to an output sink.
type AppendListRecipe struct {
	client spclient.SharePointClient
	params *lists.Parameters
	logger *logging.Logger
}

// NewAppendListRecipe forces append mode on a copy of params.
func NewAppendListRecipe(client spclient.SharePointClient, params lists.Parameters, logger *logging.Logger) *AppendListRecipe {
	if logger == nil {
		logger = logging.Default()
	}
	params.WriteMode = sharepoint.WriteModeAppend
	return &AppendListRecipe{client: client, params: &params, logger: logger.WithComponent("append_recipe")}
}

// Run returns the number of rows appended.
func (r *AppendListRecipe) Run(ctx context.Context, in RowSource, out RowSink) (int, error) {
	connector, err := NewListConnector(r.client, r.params, r.logger)
	if err != nil {
		return 0, err
	}

	inputSchema := in.Schema()
	if err := out.WriteSchema(inputSchema); err != nil {
		return 0, fmt.Errorf("write output schema: %w", err)
	}
	writer, err := connector.Writer(ctx, inputSchema)
	if err != nil {
		return 0, err
	}

	count := 0
	for {
		row, err := in.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return count, fmt.Errorf("read input row %d: %w", count+1, err)
		}
		if err := writer.WriteRowDict(ctx, row); err != nil {
			return count, err
		}
		if err := out.WriteRow(row); err != nil {
			return count, fmt.Errorf("write output row %d: %w", count+1, err)
		}
		count++
	}

	if err := writer.Close(ctx); err != nil {
		return count, err
	}
	if err := out.Close(); err != nil {
		return count, fmt.Errorf("close output: %w", err)
	}
	r.logger.Info("Rows appended", "list", r.params.ListTitle, "rows", count)
	return count, nil
}
