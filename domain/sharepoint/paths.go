package sharepoint

import (
	"errors"
	"fmt"
	"strings"
)

// ErrRootPath is returned when an operation refuses to touch the root folder.
var ErrRootPath = errors.New("cannot delete root path")

// RelPath strips one leading slash.
func RelPath(p string) string {
	return strings.TrimPrefix(p, "/")
}

// LNTPath normalises p to a leading slash with no empty segments. "" and "/" map to "/".
func LNTPath(p string) string {
	if p == "" || p == "/" {
		return "/"
	}
	parts := strings.Split(p, "/")
	kept := parts[:0]
	for _, part := range parts {
		if part != "" {
			kept = append(kept, part)
		}
	}
	return "/" + strings.Join(kept, "/")
}

// JoinPath joins segments with "/" and skips empty ones. The result has no leading slash
// unless the first non-empty segment had one.
func JoinPath(elems ...string) string {
	var b strings.Builder
	for _, e := range elems {
		if e == "" {
			continue
		}
		if b.Len() > 0 && !strings.HasSuffix(b.String(), "/") {
			b.WriteByte('/')
		}
		if b.Len() > 0 {
			e = strings.TrimPrefix(e, "/")
		}
		b.WriteString(e)
	}
	return b.String()
}

// SplitPath splits p into parent directory and final element, trailing slashes ignored.
func SplitPath(p string) (string, string) {
	p = strings.TrimRight(p, "/")
	i := strings.LastIndex(p, "/")
	if i < 0 {
		return "", p
	}
	return p[:i], p[i+1:]
}

// AssertPathIsNotRoot rejects empty and root paths.
func AssertPathIsNotRoot(p string) error {
	rel := RelPath(p)
	if rel == "" || rel == "/" {
		return ErrRootPath
	}
	return nil
}

// AssertValidPath rejects paths containing characters SharePoint forbids.
func AssertValidPath(p string) error {
	for _, c := range ForbiddenPathChars {
		if strings.Contains(p, c) {
			return fmt.Errorf("path %q contains forbidden character %q", p, c)
		}
	}
	return nil
}
