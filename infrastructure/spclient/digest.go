package spclient

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"
)

// FormDigest returns the cached form digest, fetching a new one when missing or
// within the refresh margin of its expiry. Safe for concurrent use; concurrent
// callers share one contextinfo request.
func (c *SharePointClientImpl) FormDigest(ctx context.Context) (string, error) {
	c.digestMu.Lock()
	defer c.digestMu.Unlock()

	if c.digest != "" && c.now().Before(c.digestExpires.Add(-c.digestMargin)) {
		return c.digest, nil
	}
	return c.fetchDigestLocked(ctx)
}

// RefreshFormDigest discards the cached digest and fetches a new one.
func (c *SharePointClientImpl) RefreshFormDigest(ctx context.Context) (string, error) {
	c.digestMu.Lock()
	defer c.digestMu.Unlock()
	return c.fetchDigestLocked(ctx)
}

func (c *SharePointClientImpl) fetchDigestLocked(ctx context.Context) (string, error) {
	resp, err := c.requester.Do(ctx, http.MethodPost, c.contextInfoURL(), jsonHeader(), nil)
	if err != nil {
		return "", fmt.Errorf("get form digest: %w", err)
	}
	if err := assertResponseOK(resp); err != nil {
		return "", fmt.Errorf("get form digest: %w", err)
	}

	var info verboseEntity[contextInfoApiData]
	if err := resp.JSON(&info); err != nil {
		return "", fmt.Errorf("decode form digest: %w", err)
	}
	web := info.D.GetContextWebInformation
	if web.FormDigestValue == "" {
		return "", errors.New("get form digest: empty FormDigestValue")
	}

	timeout := time.Duration(web.FormDigestTimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = defaultDigestTimeout
	}
	c.digest = web.FormDigestValue
	c.digestExpires = c.now().Add(timeout)
	c.logger.SharePoint("Form digest refreshed", "expires_in", timeout.String())
	return c.digest, nil
}
