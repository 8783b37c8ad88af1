package sharepoint

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLNTPath(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"", "/"},
		{"/", "/"},
		{"a", "/a"},
		{"/a/b/", "/a/b"},
		{"//a///b", "/a/b"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.expected, LNTPath(tt.input), "input %q", tt.input)
	}
}

func TestRelPath(t *testing.T) {
	assert.Equal(t, "a/b", RelPath("/a/b"))
	assert.Equal(t, "a/b", RelPath("a/b"))
	assert.Equal(t, "", RelPath("/"))
}

func TestJoinPath(t *testing.T) {
	assert.Equal(t, "/root/a", JoinPath("/", "root", "a"))
	assert.Equal(t, "a/b", JoinPath("a/", "/b"))
	assert.Equal(t, "x", JoinPath("", "x", ""))
}

func TestSplitPath(t *testing.T) {
	dir, name := SplitPath("/folder/sub/file.csv")
	assert.Equal(t, "/folder/sub", dir)
	assert.Equal(t, "file.csv", name)

	dir, name = SplitPath("/folder/")
	assert.Equal(t, "", dir)
	assert.Equal(t, "folder", name)

	dir, name = SplitPath("file")
	assert.Equal(t, "", dir)
	assert.Equal(t, "file", name)
}

func TestAssertPathIsNotRoot(t *testing.T) {
	assert.ErrorIs(t, AssertPathIsNotRoot(""), ErrRootPath)
	assert.ErrorIs(t, AssertPathIsNotRoot("/"), ErrRootPath)
	assert.ErrorIs(t, AssertPathIsNotRoot("//"), ErrRootPath)
	assert.NoError(t, AssertPathIsNotRoot("/data"))
}

func TestAssertValidPath(t *testing.T) {
	assert.NoError(t, AssertValidPath("/reports/2024 Q1.xlsx"))
	for _, bad := range []string{"/a:b", "/a*b", `/a"b`, "/a?b", "/a|b", `/a\b`, "/a<b", "/a>b"} {
		assert.Error(t, AssertValidPath(bad), bad)
	}
}

func TestList_WebName(t *testing.T) {
	l := List{Title: "My Tasks", RootFolderURL: "/sites/team/Lists/MyTasks"}
	assert.Equal(t, "MyTasks", l.WebName())

	l.RootFolderURL = ""
	assert.Equal(t, "My Tasks", l.WebName())
}

func TestFindFileAndFolder(t *testing.T) {
	files := []File{{Name: "a.txt"}, {Name: "b.txt"}}
	folders := []Folder{{Name: "docs"}}

	assert.Equal(t, "b.txt", FindFile(files, "b.txt").Name)
	assert.Nil(t, FindFile(files, "c.txt"))
	assert.Equal(t, "docs", FindFolder(folders, "docs").Name)
	assert.Nil(t, FindFolder(folders, "other"))
}
