package store

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/memcardhq/memcard/internal/session"
	"github.com/memcardhq/memcard/pkg/logger"
)

const (
	// Collection names on the record store.
	CollectionJobs  = "job_requests"
	CollectionCards = "flashcards_store"
	CollectionPDFs  = "user_pdfs"

	defaultPerPage = 200
)

// Client is a typed HTTP client for the backend record store. It covers
// the operations this application consumes: password auth, scoped list
// reads, point reads, creates (JSON and multipart), field updates, and
// the realtime subscription in realtime.go.
type Client struct {
	baseURL string
	http    *http.Client
	log     *logger.Logger
}

type Option func(*Client)

func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) {
		c.http = h
	}
}

func WithLogger(log *logger.Logger) Option {
	return func(c *Client) {
		c.log = log
	}
}

func New(baseURL string, options ...Option) *Client {
	c := &Client{
		baseURL: baseURL,
		http: &http.Client{
			Timeout: 30 * time.Second,
		},
		log: logger.New(logger.WithPrefix("[store] ")),
	}

	for _, opt := range options {
		opt(c)
	}

	return c
}

type authResponse struct {
	Token  string `json:"token"`
	Record struct {
		ID    string `json:"id"`
		Email string `json:"email"`
	} `json:"record"`
}

// AuthWithPassword signs in against the users collection and returns a
// usable session.
func (c *Client) AuthWithPassword(ctx context.Context, identity, password string) (*session.Session, error) {
	body := map[string]string{
		"identity": identity,
		"password": password,
	}

	var resp authResponse
	err := c.send(ctx, nil, http.MethodPost, "/api/collections/users/auth-with-password", nil, body, &resp)
	if err != nil {
		return nil, fmt.Errorf("sign in failed: %w", err)
	}

	return &session.Session{
		Token:  resp.Token,
		UserID: resp.Record.ID,
		Email:  resp.Record.Email,
	}, nil
}

// ListParams scope a list read. Filter and Sort use the store's query
// syntax ("user = \"abc\"", "-created"); Expand names relations to join.
type ListParams struct {
	Filter  string
	Sort    string
	Expand  string
	PerPage int
}

type listResponse struct {
	Page       int               `json:"page"`
	PerPage    int               `json:"perPage"`
	TotalPages int               `json:"totalPages"`
	TotalItems int               `json:"totalItems"`
	Items      []json.RawMessage `json:"items"`
}

// FullList reads every record the filter matches, walking pages until
// the store reports no more.
func (c *Client) FullList(ctx context.Context, sess *session.Session, collection string, params ListParams) ([]json.RawMessage, error) {
	perPage := params.PerPage
	if perPage <= 0 {
		perPage = defaultPerPage
	}

	var items []json.RawMessage
	for page := 1; ; page++ {
		q := url.Values{}
		q.Set("page", strconv.Itoa(page))
		q.Set("perPage", strconv.Itoa(perPage))
		if params.Filter != "" {
			q.Set("filter", params.Filter)
		}
		if params.Sort != "" {
			q.Set("sort", params.Sort)
		}
		if params.Expand != "" {
			q.Set("expand", params.Expand)
		}

		var resp listResponse
		path := "/api/collections/" + url.PathEscape(collection) + "/records"
		if err := c.send(ctx, sess, http.MethodGet, path, q, nil, &resp); err != nil {
			return nil, fmt.Errorf("failed to list %s: %w", collection, err)
		}

		items = append(items, resp.Items...)
		if page >= resp.TotalPages || len(resp.Items) == 0 {
			return items, nil
		}
	}
}

// GetOne reads a single record by id.
func (c *Client) GetOne(ctx context.Context, sess *session.Session, collection, id, expand string) (json.RawMessage, error) {
	q := url.Values{}
	if expand != "" {
		q.Set("expand", expand)
	}

	var record json.RawMessage
	path := "/api/collections/" + url.PathEscape(collection) + "/records/" + url.PathEscape(id)
	if err := c.send(ctx, sess, http.MethodGet, path, q, nil, &record); err != nil {
		return nil, fmt.Errorf("failed to fetch %s/%s: %w", collection, id, err)
	}
	return record, nil
}

// Create inserts a new record from a JSON body.
func (c *Client) Create(ctx context.Context, sess *session.Session, collection string, body interface{}) (json.RawMessage, error) {
	var record json.RawMessage
	path := "/api/collections/" + url.PathEscape(collection) + "/records"
	if err := c.send(ctx, sess, http.MethodPost, path, nil, body, &record); err != nil {
		return nil, fmt.Errorf("failed to create %s record: %w", collection, err)
	}
	return record, nil
}

// Update patches individual fields of a record. A nil field value
// clears the field on the server.
func (c *Client) Update(ctx context.Context, sess *session.Session, collection, id string, fields map[string]interface{}) (json.RawMessage, error) {
	var record json.RawMessage
	path := "/api/collections/" + url.PathEscape(collection) + "/records/" + url.PathEscape(id)
	if err := c.send(ctx, sess, http.MethodPatch, path, nil, fields, &record); err != nil {
		return nil, fmt.Errorf("failed to update %s/%s: %w", collection, id, err)
	}
	return record, nil
}

// CreateMultipart inserts a record whose body carries a file upload
// alongside plain form fields.
func (c *Client) CreateMultipart(ctx context.Context, sess *session.Session, collection string, fields map[string]string, fileField, filename string, file io.Reader) (json.RawMessage, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	for key, value := range fields {
		if err := w.WriteField(key, value); err != nil {
			return nil, fmt.Errorf("failed to write form field %s: %w", key, err)
		}
	}

	part, err := w.CreateFormFile(fileField, filename)
	if err != nil {
		return nil, fmt.Errorf("failed to create form file: %w", err)
	}
	if _, err := io.Copy(part, file); err != nil {
		return nil, fmt.Errorf("failed to copy file contents: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("failed to finalize multipart body: %w", err)
	}

	path := "/api/collections/" + url.PathEscape(collection) + "/records"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, &buf)
	if err != nil {
		return nil, fmt.Errorf("failed to build upload request: %w", err)
	}
	req.Header.Set("Content-Type", w.FormDataContentType())
	c.setCommonHeaders(req, sess)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("upload request failed: %w", err)
	}
	defer resp.Body.Close()

	var record json.RawMessage
	if err := decodeResponse(resp, &record); err != nil {
		return nil, fmt.Errorf("failed to create %s record: %w", collection, err)
	}
	return record, nil
}

func (c *Client) send(ctx context.Context, sess *session.Session, method, path string, query url.Values, body, out interface{}) error {
	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request body: %w", err)
		}
		reqBody = bytes.NewReader(data)
	}

	fullURL := c.baseURL + path
	if len(query) > 0 {
		fullURL += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, method, fullURL, reqBody)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	c.setCommonHeaders(req, sess)

	c.log.Trace("%s %s", method, path)

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	return decodeResponse(resp, out)
}

func (c *Client) setCommonHeaders(req *http.Request, sess *session.Session) {
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-Id", uuid.NewString())
	if sess.Valid() {
		req.Header.Set("Authorization", sess.Token)
	}
}

type errorEnvelope struct {
	Code    int                    `json:"code"`
	Status  int                    `json:"status"`
	Message string                 `json:"message"`
	Data    map[string]interface{} `json:"data"`
}

func decodeResponse(resp *http.Response, out interface{}) error {
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode >= 400 {
		apiErr := &APIError{Status: resp.StatusCode}
		var envelope errorEnvelope
		if err := json.Unmarshal(data, &envelope); err == nil {
			apiErr.Message = envelope.Message
			apiErr.Data = envelope.Data
			if envelope.Status != 0 {
				apiErr.Status = envelope.Status
			} else if envelope.Code != 0 {
				apiErr.Status = envelope.Code
			}
		}
		return apiErr
	}

	if out == nil || len(data) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("failed to parse response: %w", err)
	}
	return nil
}
