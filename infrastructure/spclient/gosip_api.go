package spclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/koltyakov/gosip"
	"github.com/koltyakov/gosip/api"
	"github.com/koltyakov/gosip/auth/anon"

	"spconnect/domain/sharepoint"
	"spconnect/infrastructure/session"
	"spconnect/spauth"
)

// sessionRoundTripper sends gosip requests through the Requester, so typed API
// calls share the session's authentication, throttling and reconnects.
type sessionRoundTripper struct {
	requester Requester
}

func (t *sessionRoundTripper) RoundTrip(req *http.Request) (*http.Response, error) {
	var body []byte
	if req.Body != nil {
		data, err := io.ReadAll(req.Body)
		req.Body.Close()
		if err != nil {
			return nil, fmt.Errorf("read request body: %w", err)
		}
		if len(data) > 0 {
			body = data
		}
	}

	resp, err := t.requester.Do(req.Context(), req.Method, req.URL.String(), req.Header.Clone(), body)
	if err != nil {
		return nil, err
	}
	header := resp.Header
	if header == nil {
		header = http.Header{}
	}
	return &http.Response{
		Status:        fmt.Sprintf("%d %s", resp.StatusCode, http.StatusText(resp.StatusCode)),
		StatusCode:    resp.StatusCode,
		Proto:         "HTTP/1.1",
		ProtoMajor:    1,
		ProtoMinor:    1,
		Header:        header,
		Body:          io.NopCloser(bytes.NewReader(resp.Body)),
		ContentLength: int64(len(resp.Body)),
		Request:       req,
	}, nil
}

// newSessionSPClient builds a gosip client for siteURL on top of requester.
// Authentication already happens in the session transport, hence the anonymous strategy.
func newSessionSPClient(requester Requester, siteURL string) *gosip.SPClient {
	policies := spauth.NoRetryPolicies()
	policies[http.StatusUnauthorized] = 0
	return &gosip.SPClient{
		Client:        http.Client{Transport: &sessionRoundTripper{requester: requester}},
		AuthCnfg:      &anon.AuthCnfg{SiteURL: siteURL},
		RetryPolicies: policies,
	}
}

// createRequestConfig returns verbose OData headers bound to ctx.
func (c *SharePointClientImpl) createRequestConfig(ctx context.Context) *api.RequestConfig {
	headers := make(map[string]string, len(c.defaultConfig.Headers))
	for k, v := range c.defaultConfig.Headers {
		headers[k] = v
	}
	return &api.RequestConfig{Headers: headers, Context: ctx}
}

// web returns a per-call API root; api.SP.Conf mutates its receiver.
func (c *SharePointClientImpl) web(ctx context.Context) *api.Web {
	return api.NewSP(c.spClient).Conf(c.createRequestConfig(ctx)).Web()
}

func (c *SharePointClientImpl) list(ctx context.Context, listTitle string) *api.List {
	return c.web(ctx).Lists().GetByTitle(escapeODataLiteral(listTitle))
}

// escapeODataLiteral prepares a value for gosip's unescaped '...' URL literals.
func escapeODataLiteral(s string) string {
	return strings.ReplaceAll(api.EscapePathURI(s), "?", "%3F")
}

// fromGosipError maps gosip HTTP errors onto ErrNotFound, ErrForbidden and *APIError.
func fromGosipError(err error) error {
	var spErr *gosip.SPError
	if !errors.As(err, &spErr) {
		return err
	}
	return assertResponseOK(&session.Response{StatusCode: spErr.StatusCode, Body: []byte(spErr.Body)})
}

func decodeItems(resp api.ItemsResp) ([]sharepoint.Item, error) {
	var items []sharepoint.Item
	if err := json.Unmarshal(resp.Normalized(), &items); err != nil {
		return nil, fmt.Errorf("decode list items: %w", err)
	}
	return items, nil
}
