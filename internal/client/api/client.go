// Package api is a thin client for the DiagNexus HTTP API.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/dmitrijs2005/diagnexus/internal/client/models"
	"github.com/dmitrijs2005/diagnexus/internal/common"
	"github.com/sethvargo/go-retry"
)

// uploadAttempts bounds retries of an upload that failed before the server
// answered. The idempotency key makes the repeats safe.
const uploadAttempts = 3

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Message string          `json:"message"`
}

// Client calls the API on behalf of one user. It keeps the bearer token
// obtained by Login.
type Client struct {
	baseURL    string
	httpClient *http.Client
	retryBase  time.Duration

	mu    sync.RWMutex
	token string
}

func NewClient(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
		retryBase:  500 * time.Millisecond,
	}
}

func (c *Client) setToken(t string) {
	c.mu.Lock()
	c.token = t
	c.mu.Unlock()
}

func (c *Client) getToken() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.token
}

// Logout forgets the token. Tokens are stateless, so the server is not told.
func (c *Client) Logout() {
	c.setToken("")
}

func (c *Client) newRequest(ctx context.Context, method, path string, body io.Reader) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, err
	}
	if t := c.getToken(); t != "" {
		req.Header.Set("Authorization", "Bearer "+t)
	}
	return req, nil
}

func (c *Client) send(req *http.Request) (*http.Response, error) {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
	return resp, nil
}

// decode reads an envelope and unmarshals its data into out (when non-nil).
func decode(resp *http.Response, out any) error {
	defer resp.Body.Close()

	var env envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		if resp.StatusCode >= 300 {
			return &Error{StatusCode: resp.StatusCode}
		}
		return fmt.Errorf("decode response: %w", err)
	}
	if resp.StatusCode >= 300 || !env.Success {
		code := resp.StatusCode
		if code < 300 {
			code = http.StatusInternalServerError
		}
		return &Error{StatusCode: code, Message: env.Message}
	}
	if out != nil && len(env.Data) > 0 {
		if err := json.Unmarshal(env.Data, out); err != nil {
			return fmt.Errorf("decode data: %w", err)
		}
	}
	return nil
}

func (c *Client) doJSON(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return err
		}
		body = bytes.NewReader(b)
	}

	req, err := c.newRequest(ctx, method, path, body)
	if err != nil {
		return err
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.send(req)
	if err != nil {
		return err
	}
	return decode(resp, out)
}

// Login authenticates and keeps the returned token for later calls.
func (c *Client) Login(ctx context.Context, email string, password []byte) (*models.Session, error) {
	b, err := json.Marshal(map[string]string{"email": email, "password": string(password)})
	if err != nil {
		return nil, err
	}
	req, err := c.newRequest(ctx, http.MethodPost, "/api/auth/login", bytes.NewReader(b))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.send(req)
	if err != nil {
		return nil, err
	}
	header := resp.Header.Get(common.AuthTokenHeaderName)

	var s models.Session
	if err := decode(resp, &s); err != nil {
		return nil, err
	}
	if s.Token == "" {
		s.Token = header
	}
	if s.Token == "" {
		return nil, fmt.Errorf("%w: no token in login response", common.ErrorInternal)
	}
	c.setToken(s.Token)
	return &s, nil
}

// Health calls the liveness endpoint.
func (c *Client) Health(ctx context.Context) error {
	return c.doJSON(ctx, http.MethodGet, "/api/health", nil, nil)
}

// ListReports lists reports, optionally for one owner.
func (c *Client) ListReports(ctx context.Context, ownerID int64) ([]models.Report, error) {
	path := "/api/reports"
	if ownerID > 0 {
		path += "?userId=" + strconv.FormatInt(ownerID, 10)
	}
	var out []models.Report
	if err := c.doJSON(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

type UploadRequest struct {
	OwnerID        int64
	Name           string
	Comments       string
	FileName       string
	ContentType    string
	Body           []byte
	IdempotencyKey string
}

func buildUploadForm(in UploadRequest) (*bytes.Buffer, string, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)

	fields := map[string]string{"name": in.Name, "comments": in.Comments}
	if in.OwnerID > 0 {
		fields["userId"] = strconv.FormatInt(in.OwnerID, 10)
	}
	for k, v := range fields {
		if err := mw.WriteField(k, v); err != nil {
			return nil, "", err
		}
	}

	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename=%q`, in.FileName))
	h.Set("Content-Type", in.ContentType)
	part, err := mw.CreatePart(h)
	if err != nil {
		return nil, "", err
	}
	if _, err := part.Write(in.Body); err != nil {
		return nil, "", err
	}
	if err := mw.Close(); err != nil {
		return nil, "", err
	}
	return &buf, mw.FormDataContentType(), nil
}

// UploadReport sends a report as multipart form data. Transport failures,
// 503 answers and 409 (an earlier attempt still holds the key) are retried
// with the same idempotency key.
func (c *Client) UploadReport(ctx context.Context, in UploadRequest) (*models.Report, error) {
	form, contentType, err := buildUploadForm(in)
	if err != nil {
		return nil, err
	}
	payload := form.Bytes()

	var out models.Report
	backoff := retry.WithMaxRetries(uploadAttempts-1, retry.NewExponential(c.retryBase))

	err = retry.Do(ctx, backoff, func(ctx context.Context) error {
		req, err := c.newRequest(ctx, http.MethodPost, "/api/reports/upload", bytes.NewReader(payload))
		if err != nil {
			return err
		}
		req.Header.Set("Content-Type", contentType)
		if in.IdempotencyKey != "" {
			req.Header.Set(common.IdempotencyKeyHeaderName, in.IdempotencyKey)
		}

		resp, err := c.send(req)
		if err != nil {
			if in.IdempotencyKey != "" {
				return retry.RetryableError(err)
			}
			return err
		}
		err = decode(resp, &out)
		if in.IdempotencyKey != "" && (errors.Is(err, common.ErrorServiceUnavailable) || errors.Is(err, common.ErrorConflict)) {
			return retry.RetryableError(err)
		}
		return err
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// attachmentName returns the filename from a Content-Disposition header,
// falling back to report_<id>.
func attachmentName(header string, id int64) string {
	if _, params, err := mime.ParseMediaType(header); err == nil {
		if name := filepath.Base(params["filename"]); name != "" && name != "." && name != "/" {
			return name
		}
	}
	return "report_" + strconv.FormatInt(id, 10)
}

// DownloadReport fetches report bytes.
func (c *Client) DownloadReport(ctx context.Context, id int64) (*models.Download, error) {
	req, err := c.newRequest(ctx, http.MethodGet, "/api/reports/"+strconv.FormatInt(id, 10)+"/download", nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.send(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		return nil, decode(resp, nil)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}

	return &models.Download{
		ReportID:    id,
		FileName:    attachmentName(resp.Header.Get("Content-Disposition"), id),
		ContentType: resp.Header.Get("Content-Type"),
		Body:        body,
	}, nil
}

// ReportLink asks for a presigned URL.
func (c *Client) ReportLink(ctx context.Context, id int64) (*models.Link, error) {
	var out models.Link
	if err := c.doJSON(ctx, http.MethodGet, "/api/reports/"+strconv.FormatInt(id, 10)+"/link", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) DeleteReport(ctx context.Context, id int64) error {
	return c.doJSON(ctx, http.MethodDelete, "/api/reports/"+strconv.FormatInt(id, 10), nil, nil)
}

// ListObjects returns raw storage objects under prefix (empty for the
// server default).
func (c *Client) ListObjects(ctx context.Context, prefix string) (*models.ObjectListing, error) {
	path := "/api/storage/objects"
	if prefix != "" {
		path += "?prefix=" + url.QueryEscape(prefix)
	}
	var out models.ObjectListing
	if err := c.doJSON(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) ListUsers(ctx context.Context) ([]models.Account, error) {
	var out []models.Account
	if err := c.doJSON(ctx, http.MethodGet, "/api/users", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) CreateUser(ctx context.Context, u models.NewUser) (*models.Account, error) {
	var out models.Account
	if err := c.doJSON(ctx, http.MethodPost, "/api/users", u, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) UpdateUser(ctx context.Context, id int64, u models.UserUpdate) (*models.Account, error) {
	var out models.Account
	if err := c.doJSON(ctx, http.MethodPut, "/api/users/"+strconv.FormatInt(id, 10), u, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) DeleteUser(ctx context.Context, id int64) error {
	return c.doJSON(ctx, http.MethodDelete, "/api/users/"+strconv.FormatInt(id, 10), nil, nil)
}
