package schema

import (
	"slices"

	"spconnect/domain/sharepoint"
)

// ColumnMapping links list fields (by StaticName) to dataset columns for one read or write pass.
type ColumnMapping struct {
	Types              map[string]string // StaticName -> dataset type
	Names              map[string]string // StaticName -> display name (Title)
	EntityPropertyName map[string]string // StaticName -> EntityPropertyName
	SharePointTypes    map[string]string // display name -> TypeAsString
	Descriptions       map[string]string // display name -> field description

	order []string
}

// NewColumnMapping returns an empty mapping.
func NewColumnMapping() *ColumnMapping {
	return &ColumnMapping{
		Types:              map[string]string{},
		Names:              map[string]string{},
		EntityPropertyName: map[string]string{},
		SharePointTypes:    map[string]string{},
		Descriptions:       map[string]string{},
	}
}

// Displayable reports whether a field should appear in the read schema.
// Hidden fields are shown only when listed in metadata.
func Displayable(field sharepoint.Field, metadata []string) bool {
	if len(metadata) > 0 && slices.Contains(metadata, field.StaticName) {
		return true
	}
	return !field.Hidden
}

// BuildMapping builds the read schema and column mapping from list fields.
// "Title" is always part of the metadata to retrieve.
func BuildMapping(fields []sharepoint.Field, metadata []string) (Schema, *ColumnMapping) {
	if !slices.Contains(metadata, "Title") {
		metadata = append(slices.Clone(metadata), "Title")
	}

	mapping := NewColumnMapping()
	var s Schema
	for _, field := range fields {
		if !Displayable(field, metadata) {
			continue
		}
		dsType, ok := DatasetType(field.TypeAsString)
		if !ok {
			continue
		}
		s.Columns = append(s.Columns, Column{
			Name:        field.Title,
			Type:        dsType,
			Description: field.Description,
		})
		if _, seen := mapping.Types[field.StaticName]; !seen {
			mapping.order = append(mapping.order, field.StaticName)
		}
		mapping.Types[field.StaticName] = dsType
		mapping.Names[field.StaticName] = field.Title
		mapping.EntityPropertyName[field.StaticName] = field.EntityPropertyName
		mapping.SharePointTypes[field.Title] = field.TypeAsString
		if field.Description != "" {
			mapping.Descriptions[field.Title] = field.Description
		}
	}
	return s, mapping
}

// Empty reports whether the mapping has been built.
func (m *ColumnMapping) Empty() bool {
	return m == nil || len(m.Types) == 0
}

// StaticNames returns mapped static names in field order.
func (m *ColumnMapping) StaticNames() []string {
	return slices.Clone(m.order)
}

// StaticNameFor returns the static name whose display name is name.
func (m *ColumnMapping) StaticNameFor(name string) (string, bool) {
	for _, id := range m.order {
		if m.Names[id] == name {
			return id, true
		}
	}
	return "", false
}

// ColumnIDsToNames keeps only mapped keys of row, renamed to display names.
// Date columns are converted from SharePoint display format.
func (m *ColumnMapping) ColumnIDsToNames(row sharepoint.Item) map[string]any {
	out := make(map[string]any, len(m.Names))
	for key, value := range row {
		name, ok := m.Names[key]
		if !ok {
			continue
		}
		if m.Types[key] == TypeDate {
			if s, isString := value.(string); isString {
				value = sharepoint.SharePointToDSSDate(s)
			}
		}
		out[name] = value
	}
	return out
}
