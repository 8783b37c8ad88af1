// Package schema maps SharePoint list fields to dataset columns and back.
package schema

import (
	"errors"
	"strings"
)

// Dataset column types
const (
	TypeString  = "string"
	TypeDate    = "date"
	TypeBoolean = "boolean"
	TypeObject  = "object"
	TypeArray   = "array"

	FallbackDatasetType    = TypeString
	FallbackSharePointType = "Text"
)

// sharePointToDataset maps TypeAsString to a dataset type. An empty value hides the column.
var sharePointToDataset = map[string]string{
	"Text":        TypeString,
	"Number":      TypeString,
	"DateTime":    TypeDate,
	"Boolean":     TypeString,
	"URL":         TypeObject,
	"Location":    TypeObject,
	"Computed":    "",
	"Attachments": "",
	"Calculated":  TypeString,
	"User":        TypeArray,
	"Thumbnail":   TypeObject,
}

var datasetToSharePoint = map[string]string{
	"string":   "Text",
	"date":     "DateTime",
	"boolean":  "Boolean",
	"tinyint":  "Number",
	"smallint": "Number",
	"int":      "Number",
	"bigint":   "Number",
	"float":    "Number",
	"double":   "Number",
}

// Column is one dataset column
type Column struct {
	Name        string `json:"name"`
	Type        string `json:"type"`
	Description string `json:"description,omitempty"`
}

// Schema is an ordered set of columns
type Schema struct {
	Columns []Column `json:"columns"`
}

// Names returns the column names in order.
func (s Schema) Names() []string {
	names := make([]string, len(s.Columns))
	for i, c := range s.Columns {
		names[i] = c.Name
	}
	return names
}

// DatasetType returns the dataset type for a SharePoint field type.
// ok is false for field types that are never exposed (Computed, Attachments).
func DatasetType(sharePointType string) (string, bool) {
	t, known := sharePointToDataset[sharePointType]
	if !known {
		return FallbackDatasetType, true
	}
	return t, t != ""
}

// SharePointType returns the field type used when creating a column for a dataset type.
func SharePointType(datasetType string) string {
	if t, ok := datasetToSharePoint[datasetType]; ok {
		return t
	}
	return FallbackSharePointType
}

// AssertListTitle rejects titles the list creation call cannot accept.
func AssertListTitle(title string) error {
	if strings.Contains(title, "?") {
		return errors.New("the list title contains a '?' character")
	}
	return nil
}
