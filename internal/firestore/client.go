package firestore

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/mkulima/asha/internal/apperr"
	"github.com/mkulima/asha/internal/metrics"
	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// DefaultBaseURL is the public REST endpoint of the document store.
const DefaultBaseURL = "https://firestore.googleapis.com/v1"

const tracerName = "github.com/mkulima/asha/internal/firestore"

// TokenSource supplies OAuth2 access tokens for store requests.
type TokenSource interface {
	AccessToken(ctx context.Context) (string, error)
}

// Document is a stored document with decoded wire fields.
type Document struct {
	Name       string    `json:"name"`
	Fields     Fields    `json:"fields"`
	CreateTime time.Time `json:"createTime"`
	UpdateTime time.Time `json:"updateTime"`
}

// ID returns the last segment of the document's resource name.
func (d *Document) ID() string {
	if i := strings.LastIndex(d.Name, "/"); i >= 0 {
		return d.Name[i+1:]
	}
	return d.Name
}

// Data returns the document's fields as native Go values.
func (d *Document) Data() map[string]any {
	return DecodeFields(d.Fields)
}

// Client talks to one project's default database. It holds no mutable
// state and is safe for concurrent use.
type Client struct {
	baseURL    string
	projectID  string
	tokens     TokenSource
	httpClient *http.Client
	tracer     trace.Tracer
}

// NewClient creates a client for projectID. baseURL may be empty to use
// DefaultBaseURL; tests point it at an httptest server.
//
// Example:
//
//	minter := services.NewServiceAccountMinter(cfg.ServiceAccount, nil)
//	store := firestore.NewClient("", cfg.Identity.ProjectID, minter, nil)
//	doc, err := store.GetDocument(ctx, "users/"+uid)
func NewClient(baseURL, projectID string, tokens TokenSource, httpClient *http.Client) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 15 * time.Second}
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		projectID:  projectID,
		tokens:     tokens,
		httpClient: httpClient,
		tracer:     otel.Tracer(tracerName),
	}
}

func (c *Client) documentsURL() string {
	return fmt.Sprintf("%s/projects/%s/databases/(default)/documents", c.baseURL, c.projectID)
}

// GetDocument reads a single document by path ("listings/abc").
// It returns nil, nil when the document does not exist.
func (c *Client) GetDocument(ctx context.Context, path string) (*Document, error) {
	ctx, span := c.tracer.Start(ctx, "firestore.GetDocument",
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(attribute.String("firestore.path", path)))
	defer span.End()

	body, status, err := c.do(ctx, "get", http.MethodGet, c.documentsURL()+"/"+strings.TrimLeft(path, "/"), nil)
	if err != nil {
		recordSpanError(span, err)
		return nil, err
	}
	if status == http.StatusNotFound {
		return nil, nil
	}
	if status < 200 || status >= 300 {
		err := upstreamError("get document", status, body)
		recordSpanError(span, err)
		return nil, err
	}

	var doc Document
	if err := json.Unmarshal(body, &doc); err != nil {
		return nil, apperr.Internal("failed to decode document", err)
	}
	return &doc, nil
}

// RunQuery executes a structured query and returns the matching documents
// in result order. Result entries that carry no document (read-time
// markers) are skipped.
func (c *Client) RunQuery(ctx context.Context, q Query) ([]Document, error) {
	ctx, span := c.tracer.Start(ctx, "firestore.RunQuery",
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("firestore.collection", q.Collection),
			attribute.Int("firestore.filters", len(q.Filters)),
		))
	defer span.End()

	payload, err := json.Marshal(q)
	if err != nil {
		return nil, apperr.Internal("failed to encode query", err)
	}

	endpoint := c.documentsURL()
	if q.Parent != "" {
		endpoint += "/" + strings.Trim(q.Parent, "/")
	}
	endpoint += ":runQuery"

	body, status, err := c.do(ctx, "run_query", http.MethodPost, endpoint, payload)
	if err != nil {
		recordSpanError(span, err)
		return nil, err
	}
	if status < 200 || status >= 300 {
		err := upstreamError("run query", status, body)
		recordSpanError(span, err)
		return nil, err
	}

	var results []struct {
		Document *Document `json:"document"`
	}
	if err := json.Unmarshal(body, &results); err != nil {
		return nil, apperr.Internal("failed to decode query results", err)
	}

	docs := make([]Document, 0, len(results))
	for _, r := range results {
		if r.Document != nil {
			docs = append(docs, *r.Document)
		}
	}
	span.SetAttributes(attribute.Int("firestore.results", len(docs)))
	return docs, nil
}

// do performs one authenticated request. It returns the body and status for
// any HTTP response; err is only set when no response was obtained.
func (c *Client) do(ctx context.Context, operation, method, url string, payload []byte) ([]byte, int, error) {
	if c.projectID == "" {
		return nil, 0, apperr.Configuration("document store project id is not configured", nil)
	}

	token, err := c.tokens.AccessToken(ctx)
	if err != nil {
		return nil, 0, err
	}

	var reader io.Reader
	if payload != nil {
		reader = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return nil, 0, apperr.Internal("failed to build document store request", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		metrics.RecordUpstream("firestore", operation, "error", time.Since(start))
		return nil, 0, apperr.Upstream("document store request failed: "+err.Error(), 0, "")
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	metrics.RecordUpstream("firestore", operation, strconv.Itoa(resp.StatusCode), time.Since(start))
	if err != nil {
		return nil, 0, apperr.Upstream("failed to read document store response", resp.StatusCode, "")
	}

	log.Debug().
		Str("operation", operation).
		Int("status", resp.StatusCode).
		Dur("duration", time.Since(start)).
		Msg("Document store call")

	return body, resp.StatusCode, nil
}

// upstreamError extracts error.message from the store's error envelope,
// falling back to the raw body text.
func upstreamError(action string, status int, body []byte) error {
	message := strings.TrimSpace(string(body))
	var envelope struct {
		Error struct {
			Message string `json:"message"`
		} `json:"error"`
	}
	if json.Unmarshal(body, &envelope) == nil && envelope.Error.Message != "" {
		message = envelope.Error.Message
	}
	if message == "" {
		message = http.StatusText(status)
	}
	return apperr.Upstream(fmt.Sprintf("document store %s failed (%d): %s", action, status, message), status, string(body))
}

func recordSpanError(span trace.Span, err error) {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}
