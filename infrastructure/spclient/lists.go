package spclient

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/koltyakov/gosip/api"

	"spconnect/domain/sharepoint"
)

// GetListFields returns every field of a list, hidden ones included.
func (c *SharePointClientImpl) GetListFields(ctx context.Context, listTitle string) ([]sharepoint.Field, error) {
	resp, err := c.list(ctx, listTitle).Fields().Get()
	if err != nil {
		return nil, fmt.Errorf("get list fields %s: %w", listTitle, fromGosipError(err))
	}
	var data []fieldApiData
	if err := json.Unmarshal(resp.Normalized(), &data); err != nil {
		return nil, fmt.Errorf("decode list fields: %w", err)
	}
	fields := make([]sharepoint.Field, 0, len(data))
	for _, f := range data {
		fields = append(fields, f.toDomain())
	}
	return fields, nil
}

// GetListMetadata returns list identity and entity type names.
func (c *SharePointClientImpl) GetListMetadata(ctx context.Context, listTitle string) (*sharepoint.List, error) {
	resp, err := c.list(ctx, listTitle).Expand("RootFolder").Get()
	if err != nil {
		return nil, fmt.Errorf("get list %s: %w", listTitle, fromGosipError(err))
	}
	var data listApiData
	if err := json.Unmarshal(resp.Normalized(), &data); err != nil {
		return nil, fmt.Errorf("decode list: %w", err)
	}
	return data.toDomain(), nil
}

// GetListLastModified returns LastItemModifiedDate as epoch milliseconds.
func (c *SharePointClientImpl) GetListLastModified(ctx context.Context, listTitle string) (int64, error) {
	resp, err := c.list(ctx, listTitle).Select("LastItemModifiedDate").Get()
	if err != nil {
		return 0, fmt.Errorf("get list last modified %s: %w", listTitle, fromGosipError(err))
	}
	var data listApiData
	if err := json.Unmarshal(resp.Normalized(), &data); err != nil {
		return 0, fmt.Errorf("decode list last modified: %w", err)
	}
	if data.LastItemModifiedDate.IsZero() {
		return 0, nil
	}
	return data.LastItemModifiedDate.Unix() * 1000, nil
}

// GetViewID resolves a view title to its GUID.
func (c *SharePointClientImpl) GetViewID(ctx context.Context, listTitle, viewTitle string) (string, error) {
	resp, err := c.list(ctx, listTitle).Views().GetByTitle(escapeODataLiteral(viewTitle)).Select("Id,Title").Get()
	if err != nil {
		return "", fmt.Errorf("get view %s of %s: %w", viewTitle, listTitle, fromGosipError(err))
	}
	var data viewApiData
	if err := json.Unmarshal(resp.Normalized(), &data); err != nil {
		return "", fmt.Errorf("decode view: %w", err)
	}
	return data.ID, nil
}

// GetListItems fetches one page of items. When next is set it is followed as is,
// otherwise the first page of at most pageSize items is requested.
func (c *SharePointClientImpl) GetListItems(ctx context.Context, listTitle string, pageSize int, next string) (*ItemsPage, error) {
	var items *api.Items
	switch {
	case next != "":
		items = api.NewItems(c.spClient, next, c.createRequestConfig(ctx))
	case pageSize > 0:
		items = c.list(ctx, listTitle).Items().Top(pageSize)
	default:
		items = c.list(ctx, listTitle).Items()
	}
	resp, err := items.Get()
	if err != nil {
		return nil, fmt.Errorf("get list items %s: %w", listTitle, fromGosipError(err))
	}
	rows, err := decodeItems(resp)
	if err != nil {
		return nil, err
	}
	return &ItemsPage{Items: rows, Next: resp.NextPageURL()}, nil
}

// IterateListItems walks every page by following d.__next until it is absent.
// fn may return ErrStopPaging to end early without error.
func (c *SharePointClientImpl) IterateListItems(ctx context.Context, listTitle string, pageSize int, fn func(items []sharepoint.Item) error) error {
	items := c.list(ctx, listTitle).Items()
	if pageSize > 0 {
		items = items.Top(pageSize)
	}

	page, err := items.GetPaged()
	for pageNum := 1; ; pageNum++ {
		if err != nil {
			return fmt.Errorf("get list items %s: %w", listTitle, fromGosipError(err))
		}
		rows, decodeErr := decodeItems(page.Items)
		if decodeErr != nil {
			return decodeErr
		}
		c.logger.SharePoint("List page fetched", "list", listTitle, "page", pageNum, "items", len(rows))
		if fnErr := fn(rows); fnErr != nil {
			if errors.Is(fnErr, ErrStopPaging) {
				return nil
			}
			return fnErr
		}
		if !page.HasNextPage() {
			return nil
		}
		page, err = page.GetNextPage()
	}
}

// GetListAllItems collects every page of a list.
func (c *SharePointClientImpl) GetListAllItems(ctx context.Context, listTitle string, pageSize int) ([]sharepoint.Item, error) {
	var all []sharepoint.Item
	err := c.IterateListItems(ctx, listTitle, pageSize, func(items []sharepoint.Item) error {
		all = append(all, items...)
		return nil
	})
	return all, err
}

// CreateList creates a generic list (BaseTemplate 100).
func (c *SharePointClientImpl) CreateList(ctx context.Context, listTitle string) (*sharepoint.List, error) {
	body, err := json.Marshal(map[string]any{
		"__metadata":          map[string]string{"type": "SP.List"},
		"AllowContentTypes":   true,
		"BaseTemplate":        sharepoint.BaseTemplateGenericList,
		"ContentTypesEnabled": true,
		"Title":               listTitle,
	})
	if err != nil {
		return nil, fmt.Errorf("encode list: %w", err)
	}
	resp, err := c.post(ctx, c.listsURL(), nil, body)
	if err != nil {
		return nil, fmt.Errorf("create list %s: %w", listTitle, err)
	}
	var env verboseEntity[listApiData]
	if err := resp.JSON(&env); err != nil {
		return nil, fmt.Errorf("decode created list: %w", err)
	}
	c.logger.SharePoint("List created", "list", listTitle, "id", env.D.ID, "entity_type", env.D.ListItemEntityTypeFullName)
	return env.D.toDomain(), nil
}

// RecycleList moves a list to the recycle bin. A missing list is not an error.
func (c *SharePointClientImpl) RecycleList(ctx context.Context, listTitle string) error {
	_, err := c.post(ctx, c.listByTitleURL(listTitle)+"/recycle()", nil, nil)
	if errors.Is(err, ErrNotFound) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("recycle list %s: %w", listTitle, err)
	}
	return nil
}

// DeleteList permanently deletes a list.
func (c *SharePointClientImpl) DeleteList(ctx context.Context, listTitle string) error {
	if _, err := c.post(ctx, c.listByTitleURL(listTitle), deleteHeader(), nil); err != nil {
		return fmt.Errorf("delete list %s: %w", listTitle, err)
	}
	return nil
}

// CreateCustomField adds a field through CreateFieldAsXml and returns it; the
// returned StaticName is the key rows must use.
func (c *SharePointClientImpl) CreateCustomField(ctx context.Context, listID, fieldTitle, fieldType string) (*sharepoint.Field, error) {
	if fieldType == "" {
		fieldType = "Text"
	}
	title := xmlAttrEscaper.Replace(fieldTitle)
	schemaXML := fmt.Sprintf(
		"<Field DisplayName='%[1]s' Format='Dropdown' MaxLength='255' Name='%[1]s' Title='%[1]s' Type='%[2]s'></Field>",
		title, fieldType)
	body, err := json.Marshal(map[string]any{
		"parameters": map[string]any{
			"__metadata": map[string]string{"type": "SP.XmlSchemaFieldCreationInformation"},
			"SchemaXml":  schemaXML,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("encode field: %w", err)
	}
	resp, err := c.post(ctx, c.listByIDURL(listID)+"/Fields/CreateFieldAsXml", nil, body)
	if err != nil {
		return nil, fmt.Errorf("create field %s: %w", fieldTitle, err)
	}
	var env verboseEntity[fieldApiData]
	if err := resp.JSON(&env); err != nil {
		return nil, fmt.Errorf("decode created field: %w", err)
	}
	field := env.D.toDomain()
	return &field, nil
}

var xmlAttrEscaper = strings.NewReplacer("&", "&amp;", "'", "&apos;", "<", "&lt;", ">", "&gt;", `"`, "&quot;")

// AddColumnToDefaultView shows a column in the list's default view.
func (c *SharePointClientImpl) AddColumnToDefaultView(ctx context.Context, listTitle, columnName string) error {
	url := c.listByTitleURL(listTitle) + "/DefaultView/ViewFields/AddViewField(" + quoteODataString(columnName) + ")"
	if _, err := c.post(ctx, url, nil, nil); err != nil {
		return fmt.Errorf("add %s to default view: %w", columnName, err)
	}
	return nil
}

// AddListItem creates a single item outside of a batch.
func (c *SharePointClientImpl) AddListItem(ctx context.Context, listTitle, entityType string, item sharepoint.Item) error {
	body, err := itemBody(entityType, item)
	if err != nil {
		return err
	}
	if _, err := c.post(ctx, c.listByTitleURL(listTitle)+"/Items", nil, body); err != nil {
		return fmt.Errorf("add item to %s: %w", listTitle, err)
	}
	return nil
}

// itemBody encodes item with its __metadata type.
func itemBody(entityType string, item sharepoint.Item) ([]byte, error) {
	payload := make(map[string]any, len(item)+1)
	for k, v := range item {
		payload[k] = v
	}
	payload["__metadata"] = map[string]string{"type": entityType}
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encode item: %w", err)
	}
	return body, nil
}
