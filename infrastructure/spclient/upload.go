package spclient

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/google/uuid"

	"spconnect/domain/sharepoint"
)

// uploadChunked sends data through a StartUpload / ContinueUpload / FinishUpload session.
// The upload id is a random GUID and the file offset only moves forward; any failure
// cancels the session so SharePoint releases the partial file.
func (c *SharePointClientImpl) uploadChunked(ctx context.Context, path string, data []byte) error {
	parent, name := sharepoint.SplitPath(path)
	if _, err := c.post(ctx, c.fileAddURL(parent, name), octetHeader(), []byte{}); err != nil {
		return fmt.Errorf("create empty file %s: %w", path, err)
	}

	uploadID := uuid.NewString()
	fileURL := c.fileURL(path)
	total := int64(len(data))
	var offset int64

	c.logger.SharePoint("Starting chunked upload",
		"path", path, "size", total, "chunk_size", c.chunkSize, "upload_id", uploadID)

	for {
		end := min(offset+c.chunkSize, total)
		chunk := data[offset:end]

		var url, step string
		switch {
		case offset == 0:
			step = "StartUpload"
			url = fmt.Sprintf("%s/StartUpload(uploadId=guid'%s')", fileURL, uploadID)
		case end == total:
			step = "FinishUpload"
			url = fmt.Sprintf("%s/FinishUpload(uploadId=guid'%s',fileOffset=%d)", fileURL, uploadID, offset)
		default:
			step = "ContinueUpload"
			url = fmt.Sprintf("%s/ContinueUpload(uploadId=guid'%s',fileOffset=%d)", fileURL, uploadID, offset)
		}

		resp, err := c.post(ctx, url, octetHeader(), chunk)
		if err != nil {
			c.cancelUpload(ctx, fileURL, uploadID)
			return fmt.Errorf("%s %s at offset %d: %w", step, path, offset, err)
		}
		if step == "FinishUpload" {
			break
		}

		next := offset + int64(len(chunk))
		if reported, ok := reportedOffset(resp.Body); ok && reported != next {
			c.cancelUpload(ctx, fileURL, uploadID)
			return fmt.Errorf("%s %s: server offset %d does not match sent offset %d", step, path, reported, next)
		}
		offset = next
		c.logger.SharePoint("Upload chunk sent", "path", path, "offset", offset, "size", total)
	}

	c.logger.SharePoint("Chunked upload finished", "path", path, "size", total)
	return nil
}

func (c *SharePointClientImpl) cancelUpload(ctx context.Context, fileURL, uploadID string) {
	url := fmt.Sprintf("%s/CancelUpload(uploadId=guid'%s')", fileURL, uploadID)
	if _, err := c.post(context.WithoutCancel(ctx), url, nil, nil); err != nil {
		c.logger.Warn("Failed to cancel upload session", "upload_id", uploadID, "error", err.Error())
	}
}

// reportedOffset reads the offset returned by StartUpload or ContinueUpload.
func reportedOffset(body []byte) (int64, bool) {
	var env verboseEntity[uploadOffsetApiData]
	if err := json.Unmarshal(body, &env); err != nil {
		return 0, false
	}
	switch {
	case env.D.StartUpload != nil:
		return int64(*env.D.StartUpload), true
	case env.D.ContinueUpload != nil:
		return int64(*env.D.ContinueUpload), true
	}
	return 0, false
}

func octetHeader() http.Header {
	h := http.Header{}
	h.Set("Content-Type", "application/octet-stream")
	return h
}
