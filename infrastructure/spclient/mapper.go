package spclient

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"
)

// firstNonEmpty returns the first non-empty string from the provided values
func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}

var odataPathEscaper = strings.NewReplacer("%", "%25", "#", "%23", "?", "%3F", " ", "%20")

// quoteODataString quotes a value for use as an OData string literal in a URL path.
func quoteODataString(s string) string {
	return "'" + odataPathEscaper.Replace(strings.ReplaceAll(s, "'", "''")) + "'"
}

// flexInt decodes Edm.Int64 values, which verbose OData sends as strings.
type flexInt int64

func (f *flexInt) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		*f = 0
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		if s == "" {
			*f = 0
			return nil
		}
		n, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return err
		}
		*f = flexInt(n)
		return nil
	}
	var n int64
	if err := json.Unmarshal(b, &n); err != nil {
		return err
	}
	*f = flexInt(n)
	return nil
}
