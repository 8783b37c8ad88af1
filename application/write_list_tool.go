package application

import (
	"context"
	"fmt"
	"sync"

	"spconnect/domain/lists"
	"spconnect/domain/schema"
	"spconnect/domain/sharepoint"
	"spconnect/infrastructure/spclient"
	"spconnect/logging"
)

const (
	WriteListToolName        = "sharepoint_online_write_list"
	WriteListToolDescription = "This tool can be used to access lists on SharePoint Online. " +
		"The input to this tool is a dictionary containing the new issue summary and description, " +
		"e.g. '{'summary':'new issue summary', 'description':'new issue description'}'"
	WriteListToolResult = "The record was added"

	writeListToolSchemaID    = "https://dataiku.com/agents/tools/search/input"
	writeListToolSchemaTitle = "Add an item to a SharePoint Online list tool"
)

// ToolDescriptor describes the tool input to an agent.
type ToolDescriptor struct {
	Description string         `json:"description"`
	InputSchema map[string]any `json:"inputSchema"`
}

// ToolProperty is one input property of the tool.
type ToolProperty struct {
	Type string `json:"type"`
	Name string `json:"name"`
}

// WriteListTool lets an agent add one item to a list. Only columns carrying a
// description are exposed as inputs.
type WriteListTool struct {
	client spclient.SharePointClient
	params lists.Parameters
	logger *logging.Logger

	mu           sync.Mutex
	outputSchema *schema.Schema
}

// NewWriteListTool creates the tool for params.ListTitle.
func NewWriteListTool(client spclient.SharePointClient, params lists.Parameters, logger *logging.Logger) *WriteListTool {
	if logger == nil {
		logger = logging.Default()
	}
	logger = logger.WithComponent("write_list_tool")
	logger.Info("List write tool initialized", "list", params.ListTitle)
	return &WriteListTool{client: client, params: params, logger: logger}
}

// Descriptor reads the list schema and builds the tool input schema.
func (t *WriteListTool) Descriptor(ctx context.Context) (*ToolDescriptor, error) {
	params := t.params
	connector, err := NewListConnector(t.client, &params, t.logger)
	if err != nil {
		return nil, err
	}
	readSchema, err := connector.ReadSchema(ctx)
	if err != nil {
		return nil, err
	}

	properties := map[string]ToolProperty{}
	output := schema.Schema{}
	for _, col := range readSchema.Columns {
		if col.Description == "" {
			continue
		}
		properties[col.Name] = ToolProperty{Type: col.Type, Name: col.Name}
		output.Columns = append(output.Columns, schema.Column{Name: col.Name, Type: col.Type})
	}
	t.mu.Lock()
	t.outputSchema = &output
	t.mu.Unlock()

	return &ToolDescriptor{
		Description: WriteListToolDescription,
		InputSchema: map[string]any{
			"$id":        writeListToolSchemaID,
			"title":      writeListToolSchemaTitle,
			"type":       "object",
			"properties": properties,
		},
	}, nil
}

// Invoke appends input["input"] as one item with a single worker and a batch of one.
func (t *WriteListTool) Invoke(ctx context.Context, input map[string]any) (string, error) {
	outputSchema, err := t.schema(ctx)
	if err != nil {
		return "", err
	}

	row, _ := input["input"].(map[string]any)
	if row == nil {
		row = Row{}
	}

	params := t.params
	params.WriteMode = sharepoint.WriteModeAppend
	params.AdvancedParameters = true
	params.MaxWorkers = 1
	params.BatchSize = 1
	connector, err := NewListConnector(t.client, &params, t.logger)
	if err != nil {
		return "", err
	}
	writer, err := connector.Writer(ctx, outputSchema)
	if err != nil {
		return "", err
	}
	if err := writer.WriteRowDict(ctx, row); err != nil {
		return "", fmt.Errorf("add item to %s: %w", t.params.ListTitle, err)
	}
	if err := writer.Close(ctx); err != nil {
		return "", err
	}
	t.logger.Info("Record added", "list", t.params.ListTitle)
	return WriteListToolResult, nil
}

// schema returns the input columns, reading them once when Descriptor was not called.
func (t *WriteListTool) schema(ctx context.Context) (schema.Schema, error) {
	t.mu.Lock()
	cached := t.outputSchema
	t.mu.Unlock()
	if cached != nil {
		return *cached, nil
	}
	if _, err := t.Descriptor(ctx); err != nil {
		return schema.Schema{}, err
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	return *t.outputSchema, nil
}
