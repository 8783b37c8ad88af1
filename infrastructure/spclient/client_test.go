package spclient

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"spconnect/infrastructure/session"
	"spconnect/logging"
	"spconnect/spauth"
)

const testDigest = "0x1234,18 Jan 2024 14:41:46 -0000"

// recordedRequest is what the fake SharePoint saw, with the path already decoded.
type recordedRequest struct {
	Method string
	Path   string
	Query  string
	Header http.Header
	Body   []byte
}

// fakeSharePoint answers contextinfo itself and hands everything else to handler.
type fakeSharePoint struct {
	*httptest.Server

	mu           sync.Mutex
	requests     []recordedRequest
	digestCalls  int
	digestTTLSec int
}

func (f *fakeSharePoint) recorded() []recordedRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]recordedRequest(nil), f.requests...)
}

func (f *fakeSharePoint) digests() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.digestCalls
}

func newFakeSharePoint(t *testing.T, handler func(w http.ResponseWriter, r *http.Request, body []byte)) *fakeSharePoint {
	t.Helper()
	f := &fakeSharePoint{digestTTLSec: 1800}
	f.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		query, _ := url.QueryUnescape(r.URL.RawQuery)
		if strings.HasSuffix(r.URL.Path, "/_api/contextinfo") {
			f.mu.Lock()
			f.digestCalls++
			ttl := f.digestTTLSec
			f.mu.Unlock()
			w.Header().Set("Content-Type", ApplicationJSON)
			io.WriteString(w, `{"d":{"GetContextWebInformation":{"FormDigestValue":"`+testDigest+`","FormDigestTimeoutSeconds":`+strconv.Itoa(ttl)+`}}}`)
			return
		}
		f.mu.Lock()
		f.requests = append(f.requests, recordedRequest{
			Method: r.Method,
			Path:   r.URL.Path,
			Query:  query,
			Header: r.Header.Clone(),
			Body:   body,
		})
		f.mu.Unlock()
		handler(w, r, body)
	}))
	t.Cleanup(f.Close)
	return f
}

func newTestClient(t *testing.T, f *fakeSharePoint, opts ...Option) *SharePointClientImpl {
	t.Helper()
	cfg := session.DefaultConfig()
	cfg.ResetOnForbidden = false
	cfg.MaxRetries = 1
	s, err := session.New(context.Background(), cfg,
		func(ctx context.Context) (session.Transport, error) { return f.Client(), nil },
		session.WithSleep(func(ctx context.Context, d time.Duration) error { return ctx.Err() }),
		session.WithLogger(logging.Discard()),
	)
	require.NoError(t, err)

	opts = append([]Option{WithLogger(logging.Discard())}, opts...)
	return NewSharePointClient(s, SiteConfig{Origin: f.URL, SiteType: "sites", Site: "team", Root: "Shared Documents"}, opts...)
}

func writeJSON(w http.ResponseWriter, status int, body string) {
	w.Header().Set("Content-Type", ApplicationJSON)
	w.WriteHeader(status)
	io.WriteString(w, body)
}

func TestNewSharePointClient_Defaults(t *testing.T) {
	c := NewSharePointClient(nil, SiteConfig{Origin: "https://contoso.sharepoint.com/", Site: "/team/"})

	assert.Equal(t, "https://contoso.sharepoint.com", c.Site().Origin)
	assert.Equal(t, "sites", c.Site().SiteType)
	assert.Equal(t, "team", c.Site().Site)
	assert.Equal(t, "Shared Documents", c.Site().Root)
	assert.Equal(t, "https://contoso.sharepoint.com/sites/team/_api/Web", c.baseURL())
	assert.Equal(t,
		"https://contoso.sharepoint.com/sites/team/_api/Web/GetFolderByServerRelativeUrl('/sites/team/Shared%20Documents/a%20b')",
		c.folderURL("/a b"))
	assert.Equal(t,
		"https://contoso.sharepoint.com/sites/team/_api/Web/GetFileByServerRelativeUrl('/sites/team/Shared%20Documents')",
		c.fileURL("/"))
	assert.Equal(t, "https://contoso.sharepoint.com/sites/team/_api/Web/Lists/GetByTitle('Bob''s%20list')", c.listByTitleURL("Bob's list"))
}

func TestSiteFromAuth(t *testing.T) {
	site := SiteFromAuth(spauth.Config{Tenant: "contoso", Site: "/team/", Root: "/Documents/"})

	assert.Equal(t, SiteConfig{Origin: "https://contoso.sharepoint.com", SiteType: "sites", Site: "team", Root: "Documents"}, site)
}

func TestFormDigest_CachedUntilExpiry(t *testing.T) {
	f := newFakeSharePoint(t, func(w http.ResponseWriter, r *http.Request, body []byte) {})
	f.mu.Lock()
	f.digestTTLSec = 120
	f.mu.Unlock()

	now := time.Date(2024, 1, 18, 14, 0, 0, 0, time.UTC)
	var clockMu sync.Mutex
	clock := func() time.Time {
		clockMu.Lock()
		defer clockMu.Unlock()
		return now
	}
	c := newTestClient(t, f, WithClock(clock))

	d1, err := c.FormDigest(context.Background())
	require.NoError(t, err)
	d2, err := c.FormDigest(context.Background())
	require.NoError(t, err)

	assert.Equal(t, testDigest, d1)
	assert.Equal(t, d1, d2)
	assert.Equal(t, 1, f.digests())

	// 120s lifetime minus 60s margin
	clockMu.Lock()
	now = now.Add(61 * time.Second)
	clockMu.Unlock()

	_, err = c.FormDigest(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, f.digests())

	_, err = c.RefreshFormDigest(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, f.digests())
}

func TestFormDigest_ConcurrentCallersShareOneFetch(t *testing.T) {
	f := newFakeSharePoint(t, func(w http.ResponseWriter, r *http.Request, body []byte) {})
	c := newTestClient(t, f)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := c.FormDigest(context.Background())
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, f.digests())
}

func TestMutatingRequestsCarryDigest(t *testing.T) {
	f := newFakeSharePoint(t, func(w http.ResponseWriter, r *http.Request, body []byte) {
		writeJSON(w, http.StatusOK, `{"d":{}}`)
	})
	c := newTestClient(t, f)

	require.NoError(t, c.CreateFolder(context.Background(), "/reports"))

	reqs := f.recorded()
	require.Len(t, reqs, 1)
	assert.Equal(t, http.MethodPost, reqs[0].Method)
	assert.Equal(t, "/sites/team/_api/Web/Folders/add('Shared Documents/reports')", reqs[0].Path)
	assert.Equal(t, testDigest, reqs[0].Header.Get("X-RequestDigest"))
	assert.Equal(t, ApplicationJSON, reqs[0].Header.Get("Accept"))
}

func TestResponseAssertions(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		check  func(t *testing.T, err error)
	}{
		{
			name:   "bare 404",
			status: http.StatusNotFound,
			check:  func(t *testing.T, err error) { assert.ErrorIs(t, err, ErrNotFound) },
		},
		{
			name:   "bare 403",
			status: http.StatusForbidden,
			check:  func(t *testing.T, err error) { assert.ErrorIs(t, err, ErrForbidden) },
		},
		{
			name:   "odata error",
			status: http.StatusBadRequest,
			body:   `{"error":{"code":"-1, Microsoft.SharePoint.Client.InvalidClientQueryException","message":{"lang":"en-US","value":"Bad field"}}}`,
			check: func(t *testing.T, err error) {
				var apiErr *APIError
				require.ErrorAs(t, err, &apiErr)
				assert.Equal(t, http.StatusBadRequest, apiErr.StatusCode)
				assert.Equal(t, "Bad field", apiErr.Message)
				assert.Contains(t, apiErr.Code, "InvalidClientQueryException")
			},
		},
		{
			name:   "odata 404 still matches ErrNotFound",
			status: http.StatusNotFound,
			body:   `{"error":{"code":"-2147024894, System.IO.FileNotFoundException","message":{"value":"File Not Found."}}}`,
			check:  func(t *testing.T, err error) { assert.ErrorIs(t, err, ErrNotFound) },
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFakeSharePoint(t, func(w http.ResponseWriter, r *http.Request, body []byte) {
				writeJSON(w, tt.status, tt.body)
			})
			c := newTestClient(t, f)

			_, err := c.GetFolders(context.Background(), "/missing")

			require.Error(t, err)
			tt.check(t, err)
		})
	}
}

func TestQuoteODataString(t *testing.T) {
	assert.Equal(t, "'a%20b'", quoteODataString("a b"))
	assert.Equal(t, "'O''Brien'", quoteODataString("O'Brien"))
	assert.Equal(t, "'100%25%3F%23'", quoteODataString("100%?#"))
}

func TestPost_RetriesOnceWithFreshDigestAfterForbidden(t *testing.T) {
	var mu sync.Mutex
	itemPosts := 0
	f := newFakeSharePoint(t, func(w http.ResponseWriter, r *http.Request, body []byte) {
		mu.Lock()
		itemPosts++
		first := itemPosts == 1
		mu.Unlock()
		if first {
			writeJSON(w, http.StatusForbidden, `{"error":{"code":"-2130575251, Microsoft.SharePoint.SPException","message":{"value":"The security validation for this page is invalid and might be corrupted."}}}`)
			return
		}
		writeJSON(w, http.StatusCreated, `{"d":{"Id":1}}`)
	})
	c := newTestClient(t, f)

	err := c.AddListItem(context.Background(), "Tasks", "SP.Data.TasksListItem", map[string]any{"Title": "a"})

	require.NoError(t, err)
	assert.Equal(t, 2, f.digests())
	reqs := f.recorded()
	require.Len(t, reqs, 2)
	for _, req := range reqs {
		assert.Equal(t, testDigest, req.Header.Get("X-RequestDigest"))
		assert.JSONEq(t, `{"Title":"a","__metadata":{"type":"SP.Data.TasksListItem"}}`, string(req.Body))
	}
}

func TestPost_PersistentForbiddenIsReturned(t *testing.T) {
	f := newFakeSharePoint(t, func(w http.ResponseWriter, r *http.Request, body []byte) {
		w.WriteHeader(http.StatusForbidden)
	})
	c := newTestClient(t, f)

	err := c.CreateFolder(context.Background(), "/locked")

	assert.ErrorIs(t, err, ErrForbidden)
	assert.Len(t, f.recorded(), 2)
	assert.Equal(t, 2, f.digests())
}
