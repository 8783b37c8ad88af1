package spclient

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/koltyakov/gosip"
	"github.com/koltyakov/gosip/api"

	"spconnect/domain/sharepoint"
	"spconnect/infrastructure/session"
	"spconnect/logging"
	"spconnect/spauth"
)

// Content types used with the REST API.
const (
	ApplicationJSON            = "application/json;odata=verbose"
	headerRequestDigest        = "X-RequestDigest"
	headerHTTPMethod           = "X-HTTP-Method"
	defaultDigestTimeout       = 1800 * time.Second
	defaultDigestRefreshMargin = time.Minute
)

// Requester sends SharePoint REST requests. *session.RobustSession satisfies it.
type Requester interface {
	Do(ctx context.Context, method, url string, header http.Header, body []byte) (*session.Response, error)
	DoOnce(ctx context.Context, method, url string, header http.Header, body []byte) (*session.Response, error)
}

// SiteConfig addresses one site and its document library root.
type SiteConfig struct {
	Origin   string // https://{tenant}.sharepoint.com
	SiteType string // sites or teams
	Site     string
	Root     string // document library folder, no surrounding slashes
}

// SiteFromAuth derives the site addressing from an authentication config.
func SiteFromAuth(cfg spauth.Config) SiteConfig {
	return SiteConfig{
		Origin:   cfg.Origin(),
		SiteType: firstNonEmpty(cfg.SiteType, "sites"),
		Site:     strings.Trim(cfg.Site, "/"),
		Root:     strings.Trim(firstNonEmpty(cfg.Root, sharepoint.DefaultRoot), "/"),
	}
}

// ItemsPage is one page of list items and the URL of the next page, if any.
type ItemsPage struct {
	Items []sharepoint.Item
	Next  string
}

// ErrStopPaging can be returned by an IterateListItems callback to end iteration early.
var ErrStopPaging = errors.New("stop paging")

// SharePointClient abstracts the SharePoint REST API operations used by the connectors.
// Provides document library, list and batch operations while the session layer
// handles authentication, throttling and reconnects.
type SharePointClient interface {
	// Form digest
	FormDigest(ctx context.Context) (string, error)
	RefreshFormDigest(ctx context.Context) (string, error)

	// Files and folders
	GetFolders(ctx context.Context, path string) ([]sharepoint.Folder, error)
	GetFiles(ctx context.Context, path string) ([]sharepoint.File, error)
	GetFileContent(ctx context.Context, path string) ([]byte, error)
	WriteFileContent(ctx context.Context, path string, data []byte) error
	CreateFolder(ctx context.Context, path string) error
	CreatePath(ctx context.Context, filePath string) error
	MoveFile(ctx context.Context, fromPath, toPath string) error
	RecycleFile(ctx context.Context, path string) error
	RecycleFolder(ctx context.Context, path string) error
	DeleteFile(ctx context.Context, path string) error
	DeleteFolder(ctx context.Context, path string) error
	CheckInFile(ctx context.Context, path string) error
	IsFile(ctx context.Context, path string) (bool, error)

	// Lists
	GetListFields(ctx context.Context, listTitle string) ([]sharepoint.Field, error)
	GetListMetadata(ctx context.Context, listTitle string) (*sharepoint.List, error)
	GetListLastModified(ctx context.Context, listTitle string) (int64, error)
	GetViewID(ctx context.Context, listTitle, viewTitle string) (string, error)
	GetListItems(ctx context.Context, listTitle string, pageSize int, next string) (*ItemsPage, error)
	IterateListItems(ctx context.Context, listTitle string, pageSize int, fn func(items []sharepoint.Item) error) error
	GetListAllItems(ctx context.Context, listTitle string, pageSize int) ([]sharepoint.Item, error)
	CreateList(ctx context.Context, listTitle string) (*sharepoint.List, error)
	RecycleList(ctx context.Context, listTitle string) error
	DeleteList(ctx context.Context, listTitle string) error
	CreateCustomField(ctx context.Context, listID, fieldTitle, fieldType string) (*sharepoint.Field, error)
	AddColumnToDefaultView(ctx context.Context, listTitle, columnName string) error
	AddListItem(ctx context.Context, listTitle, entityType string, item sharepoint.Item) error

	// Batch
	AddListItemRequest(listWebName, entityType string, item sharepoint.Item) (BatchPart, error)
	ProcessBatch(ctx context.Context, parts []BatchPart) error

	// Site discovery
	AvailableSitePaths(ctx context.Context) ([]sharepoint.Site, error)
}

// SharePointClientImpl implements SharePointClient over a retrying session.
// Reads go through the gosip API client, mutations through the requester
// so they share the client's form digest.
type SharePointClientImpl struct {
	requester     Requester
	spClient      *gosip.SPClient
	defaultConfig *api.RequestConfig
	site          SiteConfig
	logger        *logging.Logger
	now           func() time.Time

	chunkSize     int64 // upload chunk size
	maxSingleSize int64 // largest file sent in one request
	digestMargin  time.Duration

	digestMu      sync.Mutex
	digest        string
	digestExpires time.Time
}

// Option customises a SharePointClientImpl.
type Option func(*SharePointClientImpl)

// WithLogger sets the component logger.
func WithLogger(l *logging.Logger) Option {
	return func(c *SharePointClientImpl) { c.logger = l.WithComponent("sharepoint_client") }
}

// WithChunkSize overrides the upload chunk size and single-request threshold.
func WithChunkSize(chunk, maxSingle int64) Option {
	return func(c *SharePointClientImpl) {
		if chunk > 0 {
			c.chunkSize = chunk
		}
		if maxSingle > 0 {
			c.maxSingleSize = maxSingle
		}
	}
}

// WithClock replaces time.Now for form digest expiry.
func WithClock(now func() time.Time) Option {
	return func(c *SharePointClientImpl) { c.now = now }
}

// NewSharePointClient creates a client for site that sends every request through requester.
func NewSharePointClient(requester Requester, site SiteConfig, opts ...Option) *SharePointClientImpl {
	if site.SiteType == "" {
		site.SiteType = "sites"
	}
	if site.Root == "" {
		site.Root = sharepoint.DefaultRoot
	}
	site.Origin = strings.TrimRight(site.Origin, "/")
	site.Site = strings.Trim(site.Site, "/")
	site.Root = strings.Trim(site.Root, "/")

	c := &SharePointClientImpl{
		requester:     requester,
		site:          site,
		logger:        logging.Default().WithComponent("sharepoint_client"),
		now:           time.Now,
		chunkSize:     sharepoint.FileUploadChunkSize,
		maxSingleSize: sharepoint.MaxFileSizeContinuousUpload,
		digestMargin:  defaultDigestRefreshMargin,
	}
	c.spClient = newSessionSPClient(requester, c.siteURL())
	c.defaultConfig = &api.RequestConfig{
		Headers: map[string]string{
			"Accept":          ApplicationJSON,
			"Accept-Language": "en-US,en;q=0.9",
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Site returns the addressing this client was built with.
func (c *SharePointClientImpl) Site() SiteConfig {
	return c.site
}

// ---------- URL builders ----------

func (c *SharePointClientImpl) siteURL() string {
	return c.site.Origin + "/" + c.site.SiteType + "/" + c.site.Site
}

func (c *SharePointClientImpl) baseURL() string {
	return c.siteURL() + "/_api/Web"
}

func (c *SharePointClientImpl) contextInfoURL() string {
	return c.siteURL() + "/_api/contextinfo"
}

func (c *SharePointClientImpl) batchURL() string {
	return c.siteURL() + "/_api/$batch"
}

// serverRelativeURL builds '/{type}/{site}/{root}{path}'.
func (c *SharePointClientImpl) serverRelativeURL(path string) string {
	if path == "/" {
		path = ""
	}
	if path != "" && !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	return "/" + c.site.SiteType + "/" + c.site.Site + "/" + c.site.Root + path
}

// sitePath is serverRelativeURL quoted as an OData string literal.
func (c *SharePointClientImpl) sitePath(path string) string {
	return quoteODataString(c.serverRelativeURL(path))
}

func (c *SharePointClientImpl) folderURL(path string) string {
	return c.baseURL() + "/GetFolderByServerRelativeUrl(" + c.sitePath(path) + ")"
}

func (c *SharePointClientImpl) fileURL(path string) string {
	return c.baseURL() + "/GetFileByServerRelativeUrl(" + c.sitePath(path) + ")"
}

func (c *SharePointClientImpl) listsURL() string {
	return c.baseURL() + "/Lists"
}

func (c *SharePointClientImpl) listByTitleURL(title string) string {
	return c.listsURL() + "/GetByTitle(" + quoteODataString(title) + ")"
}

func (c *SharePointClientImpl) listByIDURL(id string) string {
	return c.listsURL() + "(guid'" + id + "')"
}

// ---------- request helpers ----------

func jsonHeader() http.Header {
	h := http.Header{}
	h.Set("Accept", ApplicationJSON)
	return h
}

func (c *SharePointClientImpl) get(ctx context.Context, url string) (*session.Response, error) {
	resp, err := c.requester.Do(ctx, http.MethodGet, url, jsonHeader(), nil)
	if err != nil {
		return nil, err
	}
	return resp, assertResponseOK(resp)
}

// post sends a mutating request carrying the form digest. extra headers override defaults.
// A 403 is retried once with a freshly fetched digest.
func (c *SharePointClientImpl) post(ctx context.Context, url string, extra http.Header, body []byte) (*session.Response, error) {
	digest, err := c.FormDigest(ctx)
	if err != nil {
		return nil, err
	}
	resp, err := c.postWithDigest(ctx, url, digest, extra, body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode == http.StatusForbidden {
		c.logger.SharePoint("Forbidden with cached form digest, retrying with a new one", "url", url)
		if digest, err = c.RefreshFormDigest(ctx); err != nil {
			return nil, err
		}
		if resp, err = c.postWithDigest(ctx, url, digest, extra, body); err != nil {
			return nil, err
		}
	}
	return resp, assertResponseOK(resp)
}

func (c *SharePointClientImpl) postWithDigest(ctx context.Context, url, digest string, extra http.Header, body []byte) (*session.Response, error) {
	h := jsonHeader()
	h.Set(headerRequestDigest, digest)
	if body != nil {
		h.Set("Content-Type", ApplicationJSON)
	}
	for k, v := range extra {
		h[k] = v
	}
	return c.requester.Do(ctx, http.MethodPost, url, h, body)
}
