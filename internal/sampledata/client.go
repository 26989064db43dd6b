package sampledata

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"time"

	"github.com/okian/kam/internal/domain/analytics"
	"github.com/okian/kam/internal/domain/model"
)

// Client talks to the KAM HTTP API.
type Client struct {
	baseURL string
	http    *http.Client
	token   string
}

// APIError is a non-2xx answer from the server.
type APIError struct {
	Status  int    `json:"-"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("server answered %d %s: %s", e.Status, e.Code, e.Message)
}

// Preview is the staged import returned by the server.
type Preview struct {
	ID       string `json:"id"`
	DataRows int    `json:"dataRows"`
	Dropped  int    `json:"dropped"`
	Records  []model.PerformanceRecord `json:"records"`
}

// ImportResult is the answer to a confirmed import.
type ImportResult struct {
	PreviewID string `json:"previewId"`
	Records   int    `json:"records"`
	Dropped   int    `json:"dropped"`
}

// Profile is the subset of a user profile the runner checks.
type Profile struct {
	Record model.PerformanceRecord `json:"record"`
}

// NewClient creates a client for baseURL with a per-request timeout.
func NewClient(baseURL string, timeout time.Duration) *Client {
	return &Client{baseURL: baseURL, http: &http.Client{Timeout: timeout}}
}

// Health checks /healthz.
func (c *Client) Health(ctx context.Context) error {
	return c.do(ctx, http.MethodGet, "/healthz", nil, "", http.StatusOK, nil)
}

// Login signs in and keeps the token for later calls.
func (c *Client) Login(ctx context.Context, login, password string) error {
	body, err := json.Marshal(map[string]string{"login": login, "password": password})
	if err != nil {
		return err
	}
	var sess struct {
		Token string `json:"token"`
	}
	if err := c.do(ctx, http.MethodPost, "/api/auth/login", bytes.NewReader(body), "application/json", http.StatusOK, &sess); err != nil {
		return err
	}
	c.token = sess.Token
	return nil
}

// Upload posts a workbook and returns the staged preview.
func (c *Client) Upload(ctx context.Context, filename string, book []byte) (Preview, error) {
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile("file", filename)
	if err != nil {
		return Preview{}, err
	}
	if _, err := part.Write(book); err != nil {
		return Preview{}, err
	}
	if err := mw.Close(); err != nil {
		return Preview{}, err
	}

	var pv Preview
	err = c.do(ctx, http.MethodPost, "/api/imports", &body, mw.FormDataContentType(), http.StatusCreated, &pv)
	return pv, err
}

// Confirm applies a staged preview.
func (c *Client) Confirm(ctx context.Context, previewID string) (ImportResult, error) {
	var res ImportResult
	err := c.do(ctx, http.MethodPost, "/api/imports/"+url.PathEscape(previewID)+"/confirm", nil, "", http.StatusOK, &res)
	return res, err
}

// Records fetches one page of the records table.
func (c *Client) Records(ctx context.Context, q url.Values) (analytics.TablePage, error) {
	var page analytics.TablePage
	err := c.do(ctx, http.MethodGet, "/api/records?"+q.Encode(), nil, "", http.StatusOK, &page)
	return page, err
}

// Profile fetches the profile of one user.
func (c *Client) Profile(ctx context.Context, userID string) (Profile, error) {
	var p Profile
	err := c.do(ctx, http.MethodGet, "/api/records/"+url.PathEscape(userID), nil, "", http.StatusOK, &p)
	return p, err
}

func (c *Client) do(ctx context.Context, method, path string, body io.Reader, contentType string, want int, out any) error {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read %s %s: %w", method, path, err)
	}
	if resp.StatusCode != want {
		apiErr := &APIError{Status: resp.StatusCode}
		_ = json.Unmarshal(data, apiErr)
		return apiErr
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decode %s %s: %w", method, path, err)
	}
	return nil
}
