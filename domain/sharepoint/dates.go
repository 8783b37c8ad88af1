package sharepoint

import (
	"fmt"
	"time"
)

// Date layouts
const (
	TimeLastModifiedLayout = "2006-01-02T15:04:05Z"
	SharePointDateLayout   = "2006-01-02 15:04:05"
	DSSDateLayout          = "2006-01-02T15:04:05.000Z"
)

// display formats SharePoint uses in rendered list rows
var sharePointDisplayLayouts = []string{"01/02/2006", "01/02/2006 03:04 PM"}

// TimeLastModifiedToEpochMillis converts a TimeLastModified value to epoch milliseconds.
// An empty value returns 0 with no error.
func TimeLastModifiedToEpochMillis(value string) (int64, error) {
	if value == "" {
		return 0, nil
	}
	t, err := time.Parse(TimeLastModifiedLayout, value)
	if err != nil {
		return 0, fmt.Errorf("parse time last modified %q: %w", value, err)
	}
	return t.Unix() * 1000, nil
}

// DSSToSharePointDate reformats a DSS timestamp for a SharePoint DateTime column.
// Empty and unparseable values are returned unchanged.
func DSSToSharePointDate(value string) string {
	if value == "" {
		return value
	}
	t, err := time.Parse(DSSDateLayout, value)
	if err != nil {
		// pandas-style timestamps without milliseconds
		if t, err = time.Parse(time.RFC3339, value); err != nil {
			return value
		}
	}
	return t.UTC().Format(SharePointDateLayout)
}

// SharePointToDSSDate converts a SharePoint display date to the DSS layout.
// Unparseable values are returned unchanged.
func SharePointToDSSDate(value string) string {
	if value == "" {
		return value
	}
	for _, layout := range sharePointDisplayLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return t.Format(DSSDateLayout)
		}
	}
	return value
}

// FormatEpochMillis renders epoch milliseconds for log lines.
func FormatEpochMillis(ms int64) string {
	return time.UnixMilli(ms).UTC().Format("2006-01-02 15:04:05-0700")
}
