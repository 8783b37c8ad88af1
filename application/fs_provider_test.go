package application

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"spconnect/domain/sharepoint"
	"spconnect/logging"
	"spconnect/test/helpers"
)

const modified = "2024-01-18T14:41:46Z"
const modifiedMillis int64 = 1705588906000

func TestFileSystemProvider_Stat(t *testing.T) {
	td := helpers.NewTestData()

	t.Run("directory with content", func(t *testing.T) {
		m := helpers.NewMockServices()
		m.ExpectFolder("/docs/reports", []sharepoint.File{td.File("q1.csv", 10, modified)}, nil)

		stat, err := NewFileSystemProvider(m.Client, "docs", logging.Discard()).Stat(context.Background(), "/reports")
		require.NoError(t, err)
		require.NotNil(t, stat)
		assert.True(t, stat.IsDirectory)
		assert.Equal(t, "/reports", stat.Path)
	})

	t.Run("file", func(t *testing.T) {
		m := helpers.NewMockServices()
		m.ExpectMissingFolder("/docs/a.txt")
		m.ExpectFolder("/docs", []sharepoint.File{td.File("a.txt", 12, modified)}, nil)

		stat, err := NewFileSystemProvider(m.Client, "docs", logging.Discard()).Stat(context.Background(), "a.txt")
		require.NoError(t, err)
		require.NotNil(t, stat)
		assert.False(t, stat.IsDirectory)
		assert.Equal(t, int64(12), stat.Size)
		assert.Equal(t, modifiedMillis, stat.LastModified)
	})

	t.Run("empty folder", func(t *testing.T) {
		m := helpers.NewMockServices()
		m.ExpectFolder("/docs/empty", nil, nil)
		m.ExpectFolder("/docs", nil, []sharepoint.Folder{td.Folder("empty", modified)})

		stat, err := NewFileSystemProvider(m.Client, "docs", logging.Discard()).Stat(context.Background(), "/empty")
		require.NoError(t, err)
		require.NotNil(t, stat)
		assert.True(t, stat.IsDirectory)
		assert.Equal(t, modifiedMillis, stat.LastModified)
	})

	t.Run("missing", func(t *testing.T) {
		m := helpers.NewMockServices()
		m.ExpectMissingFolder("/docs/nope")
		m.ExpectFolder("/docs", nil, nil)

		stat, err := NewFileSystemProvider(m.Client, "docs", logging.Discard()).Stat(context.Background(), "/nope")
		require.NoError(t, err)
		assert.Nil(t, stat)
	})
}

func TestFileSystemProvider_Browse(t *testing.T) {
	td := helpers.NewTestData()

	t.Run("directory", func(t *testing.T) {
		m := helpers.NewMockServices()
		m.ExpectFolder("/docs/reports",
			[]sharepoint.File{td.File("q1.csv", 10, modified)},
			[]sharepoint.Folder{td.Folder("archive", modified)})

		entry, err := NewFileSystemProvider(m.Client, "/docs", logging.Discard()).Browse(context.Background(), "/reports")
		require.NoError(t, err)
		assert.True(t, entry.Exists)
		assert.True(t, entry.Directory)
		assert.Equal(t, "/reports", entry.FullPath)
		require.Len(t, entry.Children, 2)
		assert.Equal(t, BrowseEntry{FullPath: "/reports/q1.csv", Exists: true, Size: 10, LastModified: modifiedMillis}, entry.Children[0])
		assert.Equal(t, "/reports/archive", entry.Children[1].FullPath)
		assert.True(t, entry.Children[1].Directory)
	})

	t.Run("file", func(t *testing.T) {
		m := helpers.NewMockServices()
		m.ExpectMissingFolder("/docs/reports/q1.csv")
		m.ExpectFolder("/docs/reports", []sharepoint.File{td.File("q1.csv", 10, modified)}, nil)

		entry, err := NewFileSystemProvider(m.Client, "docs", logging.Discard()).Browse(context.Background(), "reports/q1.csv")
		require.NoError(t, err)
		assert.True(t, entry.Exists)
		assert.False(t, entry.Directory)
		assert.Equal(t, int64(10), entry.Size)
		assert.Equal(t, "/reports/q1.csv", entry.FullPath)
	})

	t.Run("missing", func(t *testing.T) {
		m := helpers.NewMockServices()
		m.ExpectMissingFolder("/docs/nope")
		m.ExpectFolder("/docs", nil, nil)

		entry, err := NewFileSystemProvider(m.Client, "docs", logging.Discard()).Browse(context.Background(), "/nope")
		require.NoError(t, err)
		assert.False(t, entry.Exists)
	})
}

func TestFileSystemProvider_Enumerate(t *testing.T) {
	td := helpers.NewTestData()
	setup := func() *helpers.MockServices {
		m := helpers.NewMockServices()
		m.Client.On("IsFile", mock.Anything, "/").Return(false, nil)
		m.ExpectFolder("/", []sharepoint.File{td.File("top.txt", 1, modified)}, []sharepoint.Folder{td.Folder("sub", modified)})
		m.ExpectFolder("/sub", []sharepoint.File{td.File("inner.txt", 2, modified)}, nil)
		return m
	}

	t.Run("all files, sub folders first", func(t *testing.T) {
		m := setup()
		files, err := NewFileSystemProvider(m.Client, "", logging.Discard()).Enumerate(context.Background(), "/", false)
		require.NoError(t, err)
		require.Len(t, files, 2)
		assert.Equal(t, "/sub/inner.txt", files[0].Path)
		assert.Equal(t, int64(2), files[0].Size)
		assert.Equal(t, "/top.txt", files[1].Path)
	})

	t.Run("first non empty", func(t *testing.T) {
		m := setup()
		files, err := NewFileSystemProvider(m.Client, "", logging.Discard()).Enumerate(context.Background(), "/", true)
		require.NoError(t, err)
		require.Len(t, files, 1)
		assert.Equal(t, "/sub/inner.txt", files[0].Path)
	})

	t.Run("single file", func(t *testing.T) {
		m := helpers.NewMockServices()
		m.Client.On("IsFile", mock.Anything, "/docs/a.txt").Return(true, nil)

		files, err := NewFileSystemProvider(m.Client, "docs", logging.Discard()).Enumerate(context.Background(), "/a.txt", false)
		require.NoError(t, err)
		assert.Equal(t, []EnumeratedFile{{Path: "/a.txt"}}, files)
		m.Client.AssertNotCalled(t, "GetFiles", mock.Anything, mock.Anything)
	})
}

func TestFileSystemProvider_DeleteRecursive(t *testing.T) {
	td := helpers.NewTestData()

	t.Run("refuses root", func(t *testing.T) {
		m := helpers.NewMockServices()
		_, err := NewFileSystemProvider(m.Client, "", logging.Discard()).DeleteRecursive(context.Background(), "/")
		assert.ErrorIs(t, err, sharepoint.ErrRootPath)
	})

	t.Run("ambiguous name", func(t *testing.T) {
		m := helpers.NewMockServices()
		m.ExpectFolder("/docs", []sharepoint.File{td.File("x", 1, modified)}, []sharepoint.Folder{td.Folder("x", modified)})

		_, err := NewFileSystemProvider(m.Client, "docs", logging.Discard()).DeleteRecursive(context.Background(), "/x")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "ambiguous")
	})

	t.Run("file", func(t *testing.T) {
		m := helpers.NewMockServices()
		m.ExpectFolder("/docs", []sharepoint.File{td.File("x", 1, modified)}, nil)
		m.Client.On("RecycleFile", mock.Anything, "/docs/x").Return(nil)

		n, err := NewFileSystemProvider(m.Client, "docs", logging.Discard()).DeleteRecursive(context.Background(), "/x")
		require.NoError(t, err)
		assert.Equal(t, 1, n)
		m.AssertAllExpectations(t)
	})

	t.Run("folder", func(t *testing.T) {
		m := helpers.NewMockServices()
		m.ExpectFolder("/docs", nil, []sharepoint.Folder{td.Folder("x", modified)})
		m.Client.On("RecycleFolder", mock.Anything, "/docs/x").Return(nil)

		n, err := NewFileSystemProvider(m.Client, "docs", logging.Discard()).DeleteRecursive(context.Background(), "/x")
		require.NoError(t, err)
		assert.Equal(t, 1, n)
		m.AssertAllExpectations(t)
	})

	t.Run("missing", func(t *testing.T) {
		m := helpers.NewMockServices()
		m.ExpectFolder("/docs", nil, nil)

		n, err := NewFileSystemProvider(m.Client, "docs", logging.Discard()).DeleteRecursive(context.Background(), "/x")
		require.NoError(t, err)
		assert.Equal(t, 0, n)
	})
}

func TestFileSystemProvider_ReadWriteMove(t *testing.T) {
	m := helpers.NewMockServices()
	provider := NewFileSystemProvider(m.Client, "docs", logging.Discard())
	ctx := context.Background()

	m.Client.On("GetFileContent", mock.Anything, "/docs/in/a.csv").Return([]byte("a,b\n1,2\n"), nil)
	var out bytes.Buffer
	require.NoError(t, provider.Read(ctx, "in/a.csv", &out))
	assert.Equal(t, "a,b\n1,2\n", out.String())

	mock.InOrder(
		m.Client.On("CreatePath", mock.Anything, "/docs/out/b.csv").Return(nil),
		m.Client.On("WriteFileContent", mock.Anything, "/docs/out/b.csv", []byte("hello")).Return(nil),
		m.Client.On("CheckInFile", mock.Anything, "/docs/out/b.csv").Return(nil),
	)
	require.NoError(t, provider.Write(ctx, "/out/b.csv", bytes.NewBufferString("hello")))

	m.Client.On("MoveFile", mock.Anything, "/docs/out/b.csv", "/docs/archive/b.csv").Return(nil)
	moved, err := provider.Move(ctx, "/out/b.csv", "/archive/b.csv")
	require.NoError(t, err)
	assert.True(t, moved)

	assert.False(t, provider.SetLastModified(ctx, "/out/b.csv", time.Now()))
	m.AssertAllExpectations(t)
}
