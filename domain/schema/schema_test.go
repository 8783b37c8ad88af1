package schema

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"spconnect/domain/sharepoint"
)

func TestDatasetType(t *testing.T) {
	tests := []struct {
		spType   string
		expected string
		exposed  bool
	}{
		{"Text", TypeString, true},
		{"Number", TypeString, true},
		{"Boolean", TypeString, true},
		{"Calculated", TypeString, true},
		{"DateTime", TypeDate, true},
		{"URL", TypeObject, true},
		{"Location", TypeObject, true},
		{"Thumbnail", TypeObject, true},
		{"User", TypeArray, true},
		{"Computed", "", false},
		{"Attachments", "", false},
		{"Choice", TypeString, true},
	}
	for _, tt := range tests {
		t.Run(tt.spType, func(t *testing.T) {
			got, ok := DatasetType(tt.spType)
			assert.Equal(t, tt.exposed, ok)
			assert.Equal(t, tt.expected, got)
		})
	}
}

func TestSharePointType(t *testing.T) {
	assert.Equal(t, "Text", SharePointType("string"))
	assert.Equal(t, "DateTime", SharePointType("date"))
	assert.Equal(t, "Boolean", SharePointType("boolean"))
	for _, numeric := range []string{"tinyint", "smallint", "int", "bigint", "float", "double"} {
		assert.Equal(t, "Number", SharePointType(numeric))
	}
	assert.Equal(t, "Text", SharePointType("geopoint"))
}

func TestAssertListTitle(t *testing.T) {
	assert.NoError(t, AssertListTitle("Quarterly Report"))
	assert.Error(t, AssertListTitle("Why?"))
}

func TestBuildMapping(t *testing.T) {
	fields := []sharepoint.Field{
		{StaticName: "Title", EntityPropertyName: "Title", Title: "Title", TypeAsString: "Text", Hidden: false},
		{StaticName: "Due_x0020_Date", EntityPropertyName: "Due_x0020_Date", Title: "Due Date", TypeAsString: "DateTime", Description: "When it is due"},
		{StaticName: "ID", EntityPropertyName: "Id", Title: "ID", TypeAsString: "Counter", Hidden: true},
		{StaticName: "Attachments", Title: "Attachments", TypeAsString: "Attachments"},
		{StaticName: "Modified", EntityPropertyName: "Modified", Title: "Modified", TypeAsString: "DateTime", Hidden: true},
	}

	s, m := BuildMapping(fields, []string{"Modified"})

	assert.Equal(t, []string{"Title", "Due Date", "Modified"}, s.Names())
	assert.Equal(t, TypeDate, m.Types["Due_x0020_Date"])
	assert.Equal(t, "Due Date", m.Names["Due_x0020_Date"])
	assert.Equal(t, "DateTime", m.SharePointTypes["Due Date"])
	assert.Equal(t, "When it is due", m.Descriptions["Due Date"])
	assert.Equal(t, []string{"Title", "Due_x0020_Date", "Modified"}, m.StaticNames())
	assert.False(t, m.Empty())

	id, ok := m.StaticNameFor("Due Date")
	assert.True(t, ok)
	assert.Equal(t, "Due_x0020_Date", id)
}

func TestColumnIDsToNames(t *testing.T) {
	fields := []sharepoint.Field{
		{StaticName: "Title", Title: "Title", TypeAsString: "Text"},
		{StaticName: "Due", Title: "Due Date", TypeAsString: "DateTime"},
	}
	_, m := BuildMapping(fields, nil)

	row := m.ColumnIDsToNames(sharepoint.Item{
		"Title":      "Write report",
		"Due":        "03/05/2024",
		"__metadata": map[string]any{"type": "SP.Data.TasksListItem"},
	})

	assert.Equal(t, map[string]any{"Title": "Write report", "Due Date": "2024-03-05T00:00:00.000Z"}, row)
}

func TestColumnMapping_EmptyWhenNil(t *testing.T) {
	var m *ColumnMapping
	assert.True(t, m.Empty())
	assert.True(t, NewColumnMapping().Empty())
}
