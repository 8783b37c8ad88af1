package presenters

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"spconnect/application"
	"spconnect/domain/contracts"
	"spconnect/domain/sharepoint"
)

func TestFormatSize(t *testing.T) {
	tests := []struct {
		size     int64
		expected string
	}{
		{0, "0 B"},
		{1023, "1023 B"},
		{1024, "1.0 KiB"},
		{1536, "1.5 KiB"},
		{5 * 1024 * 1024, "5.0 MiB"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.expected, FormatSize(tt.size))
	}
}

func TestFilePresenter_FromBrowse(t *testing.T) {
	presenter := NewFilePresenter()
	entry := &application.BrowseEntry{
		FullPath:  "/reports",
		Exists:    true,
		Directory: true,
		Children: []application.BrowseEntry{
			{FullPath: "/reports/q1.csv", Exists: true, Size: 2048, LastModified: 1705588906000},
		},
	}

	vm := presenter.FromBrowse(entry)

	assert.Equal(t, "/reports", vm.Path)
	assert.Empty(t, vm.SizeText)
	require.Len(t, vm.Children, 1)
	assert.Equal(t, "2.0 KiB", vm.Children[0].SizeText)
	assert.Equal(t, "2024-01-18T14:41:46Z", vm.Children[0].LastModifiedAt)
}

func TestFilePresenter_FromStat_Missing(t *testing.T) {
	vm := NewFilePresenter().FromStat(nil)
	assert.False(t, vm.Exists)
}

func TestTriggerPresenter_FromResult(t *testing.T) {
	presenter := NewTriggerPresenter()

	fired := presenter.FromResult(&application.TriggerResult{Key: "k", Fired: true, Remote: 1705588906000, Now: 1705589000000})
	assert.True(t, fired.Fired)
	assert.Equal(t, "2024-01-18T14:41:46Z", fired.RemoteAt)
	assert.Equal(t, "2024-01-18T14:43:20Z", fired.StoredAt)

	idle := presenter.FromResult(&application.TriggerResult{Key: "k", Remote: 1705588906000, Stored: 1705588906000, IsSet: true})
	assert.False(t, idle.Fired)
	assert.Equal(t, "2024-01-18T14:41:46Z", idle.StoredAt)
}

func TestTriggerPresenter_FromStates(t *testing.T) {
	updated := time.Date(2024, 1, 18, 15, 0, 0, 0, time.UTC)
	vms := NewTriggerPresenter().FromStates([]*contracts.TriggerState{{Key: "k", Value: 1705588906000, UpdatedAt: updated}})
	require.Len(t, vms, 1)
	assert.Equal(t, "2024-01-18T15:00:00Z", vms[0].UpdatedAt)
	assert.Equal(t, "2024-01-18T14:41:46Z", vms[0].ValueAt)
}

func TestSitePresenter_ToSites(t *testing.T) {
	vms := NewSitePresenter().ToSites([]sharepoint.Site{{Title: "Finance", URL: "https://contoso.sharepoint.com/sites/finance", Path: "sites/finance"}})
	assert.Equal(t, []SiteVM{{Title: "Finance", URL: "https://contoso.sharepoint.com/sites/finance", Path: "sites/finance"}}, vms)
}
