package spclient

import (
	"context"
	"net/http"
	"regexp"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetFoldersAndFiles(t *testing.T) {
	f := newFakeSharePoint(t, func(w http.ResponseWriter, r *http.Request, body []byte) {
		switch {
		case strings.HasSuffix(r.URL.Path, "/Folders"):
			writeJSON(w, http.StatusOK, `{"d":{"results":[
				{"Name":"Forms","ServerRelativeUrl":"/sites/team/Shared Documents/Forms","ItemCount":3,"TimeLastModified":"2024-01-18T14:41:46Z"}
			]}}`)
		case strings.HasSuffix(r.URL.Path, "/Files"):
			writeJSON(w, http.StatusOK, `{"d":{"results":[
				{"Name":"report.csv","ServerRelativeUrl":"/sites/team/Shared Documents/report.csv","Length":"2048","TimeLastModified":"2024-01-18T14:41:46Z"}
			]}}`)
		default:
			http.NotFound(w, r)
		}
	})
	c := newTestClient(t, f)

	folders, err := c.GetFolders(context.Background(), "/")
	require.NoError(t, err)
	files, err := c.GetFiles(context.Background(), "/")
	require.NoError(t, err)

	require.Len(t, folders, 1)
	assert.Equal(t, "Forms", folders[0].Name)
	assert.Equal(t, 3, folders[0].ItemCount)
	require.Len(t, files, 1)
	assert.Equal(t, int64(2048), files[0].Length)
	assert.Equal(t, int64(1705588906000), files[0].LastModifiedMillis())

	reqs := f.recorded()
	assert.Equal(t, "/sites/team/_api/Web/GetFolderByServerRelativeUrl('/sites/team/Shared Documents')/Folders", reqs[0].Path)
}

func TestGetFileContent(t *testing.T) {
	f := newFakeSharePoint(t, func(w http.ResponseWriter, r *http.Request, body []byte) {
		w.Write([]byte("a,b\n1,2\n"))
	})
	c := newTestClient(t, f)

	data, err := c.GetFileContent(context.Background(), "/data/report.csv")

	require.NoError(t, err)
	assert.Equal(t, "a,b\n1,2\n", string(data))
	assert.Equal(t, "/sites/team/_api/Web/GetFileByServerRelativeUrl('/sites/team/Shared Documents/data/report.csv')/$value", f.recorded()[0].Path)
}

func TestWriteFileContent_SingleRequest(t *testing.T) {
	f := newFakeSharePoint(t, func(w http.ResponseWriter, r *http.Request, body []byte) {
		writeJSON(w, http.StatusOK, `{"d":{"Name":"notes.txt"}}`)
	})
	c := newTestClient(t, f)

	err := c.WriteFileContent(context.Background(), "/inbox/notes.txt", []byte("hello"))

	require.NoError(t, err)
	reqs := f.recorded()
	require.Len(t, reqs, 1)
	assert.Equal(t, "/sites/team/_api/Web/GetFolderByServerRelativeUrl('/sites/team/Shared Documents/inbox')/Files/add(url='notes.txt',overwrite=true)", reqs[0].Path)
	assert.Equal(t, "hello", string(reqs[0].Body))
	assert.Equal(t, "application/octet-stream", reqs[0].Header.Get("Content-Type"))
	assert.Equal(t, testDigest, reqs[0].Header.Get("X-RequestDigest"))
}

func TestWriteFileContent_RejectsForbiddenCharacters(t *testing.T) {
	f := newFakeSharePoint(t, func(w http.ResponseWriter, r *http.Request, body []byte) {})
	c := newTestClient(t, f)

	err := c.WriteFileContent(context.Background(), "/inbox/what?.txt", []byte("x"))

	assert.Error(t, err)
	assert.Empty(t, f.recorded())
}

var uploadStep = regexp.MustCompile(`/(StartUpload|ContinueUpload|FinishUpload|CancelUpload)\(uploadId=guid'([0-9a-f-]+)'(?:,fileOffset=(\d+))?\)$`)

func TestWriteFileContent_ChunkedUpload(t *testing.T) {
	f := newFakeSharePoint(t, func(w http.ResponseWriter, r *http.Request, body []byte) {
		m := uploadStep.FindStringSubmatch(r.URL.Path)
		switch {
		case m == nil:
			writeJSON(w, http.StatusOK, `{"d":{}}`)
		case m[1] == "StartUpload":
			writeJSON(w, http.StatusOK, `{"d":{"StartUpload":"4"}}`)
		case m[1] == "ContinueUpload":
			writeJSON(w, http.StatusOK, `{"d":{"ContinueUpload":"8"}}`)
		default:
			writeJSON(w, http.StatusOK, `{"d":{"Name":"big.bin"}}`)
		}
	})
	c := newTestClient(t, f, WithChunkSize(4, 6))

	err := c.WriteFileContent(context.Background(), "/big.bin", []byte("0123456789"))

	require.NoError(t, err)
	reqs := f.recorded()
	require.Len(t, reqs, 4)

	assert.Contains(t, reqs[0].Path, "/Files/add(url='big.bin',overwrite=true)")
	assert.Empty(t, reqs[0].Body)

	start := uploadStep.FindStringSubmatch(reqs[1].Path)
	cont := uploadStep.FindStringSubmatch(reqs[2].Path)
	finish := uploadStep.FindStringSubmatch(reqs[3].Path)
	require.NotNil(t, start)
	require.NotNil(t, cont)
	require.NotNil(t, finish)

	assert.Equal(t, "StartUpload", start[1])
	assert.Equal(t, "0123", string(reqs[1].Body))
	assert.Equal(t, "ContinueUpload", cont[1])
	assert.Equal(t, "4", cont[3])
	assert.Equal(t, "4567", string(reqs[2].Body))
	assert.Equal(t, "FinishUpload", finish[1])
	assert.Equal(t, "8", finish[3])
	assert.Equal(t, "89", string(reqs[3].Body))

	assert.Equal(t, start[2], cont[2], "one upload id for the whole session")
	assert.Equal(t, start[2], finish[2])
}

func TestWriteFileContent_ChunkedUploadCancelsOnFailure(t *testing.T) {
	f := newFakeSharePoint(t, func(w http.ResponseWriter, r *http.Request, body []byte) {
		m := uploadStep.FindStringSubmatch(r.URL.Path)
		switch {
		case m == nil:
			writeJSON(w, http.StatusOK, `{"d":{}}`)
		case m[1] == "StartUpload":
			writeJSON(w, http.StatusOK, `{"d":{"StartUpload":"4"}}`)
		case m[1] == "ContinueUpload":
			writeJSON(w, http.StatusInternalServerError, `{"error":{"code":"-1","message":{"value":"boom"}}}`)
		default:
			writeJSON(w, http.StatusOK, `{"d":{}}`)
		}
	})
	c := newTestClient(t, f, WithChunkSize(4, 6))

	err := c.WriteFileContent(context.Background(), "/big.bin", []byte("0123456789"))

	require.Error(t, err)
	assert.Contains(t, err.Error(), "ContinueUpload")
	reqs := f.recorded()
	last := uploadStep.FindStringSubmatch(reqs[len(reqs)-1].Path)
	require.NotNil(t, last)
	assert.Equal(t, "CancelUpload", last[1])
}

func TestWriteFileContent_ChunkedUploadOffsetMismatch(t *testing.T) {
	f := newFakeSharePoint(t, func(w http.ResponseWriter, r *http.Request, body []byte) {
		m := uploadStep.FindStringSubmatch(r.URL.Path)
		if m != nil && m[1] == "StartUpload" {
			writeJSON(w, http.StatusOK, `{"d":{"StartUpload":"3"}}`)
			return
		}
		writeJSON(w, http.StatusOK, `{"d":{}}`)
	})
	c := newTestClient(t, f, WithChunkSize(4, 6))

	err := c.WriteFileContent(context.Background(), "/big.bin", []byte("0123456789"))

	require.Error(t, err)
	assert.Contains(t, err.Error(), "does not match")
	reqs := f.recorded()
	assert.Contains(t, reqs[len(reqs)-1].Path, "CancelUpload")
}

func TestCreatePath(t *testing.T) {
	f := newFakeSharePoint(t, func(w http.ResponseWriter, r *http.Request, body []byte) {
		writeJSON(w, http.StatusOK, `{"d":{}}`)
	})
	c := newTestClient(t, f)

	require.NoError(t, c.CreatePath(context.Background(), "/a/b/file.txt"))

	reqs := f.recorded()
	require.Len(t, reqs, 2)
	assert.Equal(t, "/sites/team/_api/Web/Folders/add('Shared Documents/a')", reqs[0].Path)
	assert.Equal(t, "/sites/team/_api/Web/Folders/add('Shared Documents/a/b')", reqs[1].Path)
}

func TestMoveRecycleDeleteCheckIn(t *testing.T) {
	f := newFakeSharePoint(t, func(w http.ResponseWriter, r *http.Request, body []byte) {
		writeJSON(w, http.StatusOK, `{"d":{}}`)
	})
	c := newTestClient(t, f)
	ctx := context.Background()

	require.NoError(t, c.MoveFile(ctx, "/a.txt", "/b.txt"))
	require.NoError(t, c.RecycleFile(ctx, "/a.txt"))
	require.NoError(t, c.RecycleFolder(ctx, "/dir"))
	require.NoError(t, c.DeleteFile(ctx, "/a.txt"))
	require.NoError(t, c.DeleteFolder(ctx, "/dir"))
	require.NoError(t, c.CheckInFile(ctx, "/a.txt"))

	reqs := f.recorded()
	require.Len(t, reqs, 6)
	assert.True(t, strings.HasSuffix(reqs[0].Path, "/moveto(newurl='/sites/team/Shared Documents/b.txt',flags=1)"))
	assert.True(t, strings.HasSuffix(reqs[1].Path, "GetFileByServerRelativeUrl('/sites/team/Shared Documents/a.txt')/recycle()"))
	assert.True(t, strings.HasSuffix(reqs[2].Path, "GetFolderByServerRelativeUrl('/sites/team/Shared Documents/dir')/recycle()"))
	assert.Equal(t, "DELETE", reqs[3].Header.Get("X-HTTP-Method"))
	assert.Equal(t, "DELETE", reqs[4].Header.Get("X-HTTP-Method"))
	assert.True(t, strings.HasSuffix(reqs[5].Path, "/CheckIn(comment='',checkintype=0)"))
}

func TestIsFile(t *testing.T) {
	f := newFakeSharePoint(t, func(w http.ResponseWriter, r *http.Request, body []byte) {
		if strings.Contains(r.URL.Path, "missing") {
			writeJSON(w, http.StatusNotFound, `{"error":{"code":"-2147024894, System.IO.FileNotFoundException","message":{"value":"File Not Found."}}}`)
			return
		}
		writeJSON(w, http.StatusOK, `{"d":{"Name":"a.txt","Exists":true,"Length":"1"}}`)
	})
	c := newTestClient(t, f)

	ok, err := c.IsFile(context.Background(), "/a.txt")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = c.IsFile(context.Background(), "/missing")
	require.NoError(t, err)
	assert.False(t, ok)
}
