package spclient

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"regexp"
	"strconv"

	"github.com/google/uuid"

	"spconnect/domain/sharepoint"
)

// BatchPart is one request inside a $batch change set.
type BatchPart struct {
	Method string
	URL    string
	Body   []byte
}

// BatchBuilder renders change requests as a multipart/mixed $batch body:
// one batch_{uuid} part holding a changeset_{uuid} with one application/http part per request.
type BatchBuilder struct {
	batchID     string
	changesetID string
	parts       []BatchPart
}

// NewBatchBuilder creates a builder with random batch and changeset boundaries.
func NewBatchBuilder() *BatchBuilder {
	return newBatchBuilderWithIDs(uuid.NewString(), uuid.NewString())
}

func newBatchBuilderWithIDs(batchID, changesetID string) *BatchBuilder {
	return &BatchBuilder{batchID: batchID, changesetID: changesetID}
}

// Add appends a request to the change set.
func (b *BatchBuilder) Add(parts ...BatchPart) *BatchBuilder {
	b.parts = append(b.parts, parts...)
	return b
}

// Len returns the number of requests added.
func (b *BatchBuilder) Len() int {
	return len(b.parts)
}

// ContentType is the Content-Type header for the outer $batch request.
func (b *BatchBuilder) ContentType() string {
	return fmt.Sprintf(`multipart/mixed; boundary="batch_%s"`, b.batchID)
}

// Body renders the multipart payload. Lines end with CRLF.
func (b *BatchBuilder) Body() []byte {
	const crlf = "\r\n"
	var buf bytes.Buffer

	buf.WriteString("--batch_" + b.batchID + crlf)
	buf.WriteString(`Content-Type: multipart/mixed; boundary="changeset_` + b.changesetID + `"` + crlf)
	buf.WriteString("Content-Transfer-Encoding: binary" + crlf)
	buf.WriteString(crlf)

	for _, p := range b.parts {
		method := firstNonEmpty(p.Method, http.MethodPost)
		buf.WriteString("--changeset_" + b.changesetID + crlf)
		buf.WriteString("Content-Type: application/http" + crlf)
		buf.WriteString("Content-Transfer-Encoding: binary" + crlf)
		buf.WriteString(crlf)
		buf.WriteString(method + " " + p.URL + " HTTP/1.1" + crlf)
		buf.WriteString("Content-Type: " + ApplicationJSON + crlf)
		buf.WriteString("Accept: " + ApplicationJSON + crlf)
		buf.WriteString(crlf)
		buf.Write(p.Body)
		buf.WriteString(crlf)
	}

	buf.WriteString("--changeset_" + b.changesetID + "--" + crlf)
	buf.WriteString(crlf)
	buf.WriteString("--batch_" + b.batchID + "--" + crlf)
	return buf.Bytes()
}

// AddListItemRequest builds the batch part creating item in the list whose URL
// segment is listWebName.
func (c *SharePointClientImpl) AddListItemRequest(listWebName, entityType string, item sharepoint.Item) (BatchPart, error) {
	body, err := itemBody(entityType, item)
	if err != nil {
		return BatchPart{}, err
	}
	listPath := "/" + c.site.SiteType + "/" + c.site.Site + "/Lists/" + listWebName
	return BatchPart{
		Method: http.MethodPost,
		URL:    c.baseURL() + "/GetList(" + quoteODataString(listPath) + ")/items",
		Body:   body,
	}, nil
}

// ProcessBatch posts parts as one $batch request. The outer request can succeed
// while individual changes fail, so the response text is scanned per part.
func (c *SharePointClientImpl) ProcessBatch(ctx context.Context, parts []BatchPart) error {
	if len(parts) == 0 {
		return nil
	}
	builder := NewBatchBuilder().Add(parts...)

	h := http.Header{}
	h.Set("Content-Type", builder.ContentType())
	resp, err := c.post(ctx, c.batchURL(), h, builder.Body())
	if err != nil {
		return fmt.Errorf("process batch: %w", err)
	}

	if failed := scanBatchResponse(resp.Body); len(failed) > 0 {
		batchErr := &BatchError{Total: len(parts), Failed: failed}
		c.logger.Error("Batch items failed", "failed", len(failed), "total", len(parts), "error", batchErr.Error())
		return batchErr
	}
	c.logger.SharePoint("Batch processed", "items", len(parts))
	return nil
}

var (
	batchStatusLine = regexp.MustCompile(`(?m)^HTTP/1\.1 (\d{3})[^\r\n]*`)
	batchErrorCode  = regexp.MustCompile(`"code"\s*:\s*"((?:[^"\\]|\\.)*)"`)
	batchErrorValue = regexp.MustCompile(`"value"\s*:\s*"((?:[^"\\]|\\.)*)"`)
)

// scanBatchResponse returns every part whose status line is >= 400, with the
// OData error code and message found in that part's body.
func scanBatchResponse(body []byte) []BatchPartError {
	matches := batchStatusLine.FindAllSubmatchIndex(body, -1)
	var failed []BatchPartError
	for i, m := range matches {
		status, err := strconv.Atoi(string(body[m[2]:m[3]]))
		if err != nil || status < 400 {
			continue
		}
		end := len(body)
		if i+1 < len(matches) {
			end = matches[i+1][0]
		}
		segment := body[m[1]:end]

		pe := BatchPartError{Index: i, StatusCode: status}
		if sm := batchErrorCode.FindSubmatch(segment); sm != nil {
			pe.Code = string(sm[1])
		}
		if sm := batchErrorValue.FindSubmatch(segment); sm != nil {
			pe.Message = string(sm[1])
		}
		failed = append(failed, pe)
	}
	return failed
}
