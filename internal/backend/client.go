// Package backend is the HTTP client for the question paper service.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/url"
	"path"
	"strconv"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"

	"github.com/Nagarajan13172/qpgen/internal/model"
)

const (
	// DefaultBaseURL is the backend API root used when none is configured.
	DefaultBaseURL = "http://localhost:8000/api"
	// DefaultTimeout bounds every backend call.
	DefaultTimeout = 30 * time.Second
	// MaxUploadBytes is the largest syllabus PDF accepted for upload.
	MaxUploadBytes = 10 << 20
	// DefaultLimit is the page size of list calls that leave Limit unset.
	DefaultLimit = 10
)

var (
	// ErrNotPDF is returned when an upload does not look like a PDF.
	ErrNotPDF = errors.New("please select a PDF file")
	// ErrFileTooLarge is returned when an upload exceeds MaxUploadBytes.
	ErrFileTooLarge = errors.New("file size must be less than 10MB")
)

// Page is one page of a list endpoint. Items is never nil.
type Page[T any] struct {
	Items []T
	Total int
	Skip  int
	Limit int
}

// ListOptions selects a page of a list endpoint.
type ListOptions struct {
	Skip  int
	Limit int
	// SyllabusID filters papers by syllabus; ignored for syllabus lists.
	SyllabusID string
}

func (o ListOptions) query() url.Values {
	q := url.Values{}
	limit := o.Limit
	if limit <= 0 {
		limit = DefaultLimit
	}
	q.Set("skip", strconv.Itoa(max(o.Skip, 0)))
	q.Set("limit", strconv.Itoa(limit))
	if o.SyllabusID != "" {
		q.Set("syllabus_id", o.SyllabusID)
	}
	return q
}

// Client talks to the backend over HTTP.
type Client struct {
	http *http.Client
	base *url.URL
}

// New creates a client for the API rooted at baseURL.
func New(baseURL string, timeout time.Duration) (*Client, error) {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("parse base URL: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("base URL %q must be http or https", baseURL)
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Client{
		http: &http.Client{Timeout: timeout},
		base: u,
	}, nil
}

// BaseURL returns the API root.
func (c *Client) BaseURL() string {
	return c.base.String()
}

func (c *Client) endpoint(p string, q url.Values) string {
	u := *c.base
	trailing := strings.HasSuffix(p, "/")
	u.Path = path.Join(u.Path, p)
	if trailing {
		u.Path += "/"
	}
	if q != nil {
		u.RawQuery = q.Encode()
	}
	return u.String()
}

// do sends the request and decodes a JSON response into out (if non-nil).
func (c *Client) do(req *http.Request, kind Kind, op string, out any) error {
	reqID := uuid.New().String()
	req.Header.Set("X-Request-ID", reqID)
	if req.Header.Get("Accept") == "" {
		req.Header.Set("Accept", "application/json")
	}

	start := time.Now()
	res, err := c.http.Do(req)
	if err != nil {
		slog.Error("backend request failed", "op", op, "request_id", reqID, "error", err)
		return &Error{Kind: KindTransport, Op: op, Message: err.Error(), Err: err}
	}
	defer res.Body.Close()

	slog.Debug("backend request", "op", op, "method", req.Method, "url", req.URL.String(),
		"status", res.StatusCode, "request_id", reqID, "duration", time.Since(start))

	body, err := io.ReadAll(res.Body)
	if err != nil {
		return &Error{Kind: KindTransport, Op: op, StatusCode: res.StatusCode, Message: err.Error(), Err: err}
	}
	if res.StatusCode/100 != 2 {
		msg := errorMessage(body, res.StatusCode)
		slog.Error("API error", "op", op, "status", res.StatusCode, "request_id", reqID, "message", msg)
		return &Error{Kind: kind, Op: op, StatusCode: res.StatusCode, Message: msg}
	}
	if out == nil {
		return nil
	}
	if raw, ok := out.(*[]byte); ok {
		*raw = body
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return &Error{Kind: kind, Op: op, StatusCode: res.StatusCode, Message: fmt.Sprintf("decode %s response: %v", op, err), Err: err}
	}
	return nil
}

func (c *Client) get(ctx context.Context, op, p string, q url.Values, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint(p, q), nil)
	if err != nil {
		return fmt.Errorf("build %s request: %w", op, err)
	}
	return c.do(req, KindFetch, op, out)
}

func (c *Client) postJSON(ctx context.Context, op, p string, in, out any) error {
	data, err := json.Marshal(in)
	if err != nil {
		return fmt.Errorf("encode %s request: %w", op, err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint(p, nil), bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("build %s request: %w", op, err)
	}
	req.Header.Set("Content-Type", "application/json")
	return c.do(req, KindSubmit, op, out)
}

func (c *Client) delete(ctx context.Context, op, p string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, c.endpoint(p, nil), nil)
	if err != nil {
		return fmt.Errorf("build %s request: %w", op, err)
	}
	return c.do(req, KindDelete, op, nil)
}

func pageOf[T any](items []T, opts ListOptions) Page[T] {
	if items == nil {
		items = []T{}
	}
	limit := opts.Limit
	if limit <= 0 {
		limit = DefaultLimit
	}
	return Page[T]{Items: items, Total: len(items), Skip: opts.Skip, Limit: limit}
}

// Health checks the backend health endpoint.
func (c *Client) Health(ctx context.Context) (model.HealthStatus, error) {
	var h model.HealthStatus
	err := c.get(ctx, "health", "/health", nil, &h)
	return h, err
}

// GeneratePaper submits a generation request and returns the new paper.
func (c *Client) GeneratePaper(ctx context.Context, req model.GenerationRequest) (*model.Paper, error) {
	var p model.Paper
	if err := c.postJSON(ctx, "generate paper", "/question-paper/generate", req, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

// ListPapers returns a page of question papers.
func (c *Client) ListPapers(ctx context.Context, opts ListOptions) (Page[model.Paper], error) {
	var items []model.Paper
	if err := c.get(ctx, "list papers", "/question-paper/", opts.query(), &items); err != nil {
		return Page[model.Paper]{Items: []model.Paper{}}, err
	}
	return pageOf(items, opts), nil
}

// GetPaper fetches one question paper.
func (c *Client) GetPaper(ctx context.Context, id string) (*model.Paper, error) {
	var p model.Paper
	if err := c.get(ctx, "get paper", "/question-paper/"+url.PathEscape(id), nil, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

// GetAnswerKey fetches the answer key of a paper.
func (c *Client) GetAnswerKey(ctx context.Context, paperID string) (*model.AnswerKey, error) {
	var k model.AnswerKey
	if err := c.get(ctx, "get answer key", "/question-paper/"+url.PathEscape(paperID)+"/answer-key", nil, &k); err != nil {
		return nil, err
	}
	if k.Answers == nil {
		k.Answers = []model.AnswerKeyEntry{}
	}
	return &k, nil
}

// DeletePaper deletes a question paper.
func (c *Client) DeletePaper(ctx context.Context, id string) error {
	return c.delete(ctx, "delete paper", "/question-paper/"+url.PathEscape(id))
}

// DownloadPDF returns the rendered PDF of a paper. The bytes are opaque.
func (c *Client) DownloadPDF(ctx context.Context, paperID string, includeAnswers bool) ([]byte, error) {
	q := url.Values{}
	q.Set("include_answers", strconv.FormatBool(includeAnswers))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint("/question-paper/"+url.PathEscape(paperID)+"/pdf", q), nil)
	if err != nil {
		return nil, fmt.Errorf("build download pdf request: %w", err)
	}
	req.Header.Set("Accept", "application/pdf")
	var data []byte
	if err := c.do(req, KindFetch, "download pdf", &data); err != nil {
		return nil, err
	}
	return data, nil
}

// PDFFileName is the file name a downloaded paper is saved under.
func PDFFileName(paperID string) string {
	return "question-paper-" + paperID + ".pdf"
}

// UploadSyllabusText uploads a syllabus as plain text.
func (c *Client) UploadSyllabusText(ctx context.Context, courseName, content string) (*model.Syllabus, error) {
	var s model.Syllabus
	payload := model.UploadTextRequest{CourseName: courseName, Content: content}
	if err := c.postJSON(ctx, "upload syllabus text", "/syllabus/upload/text", payload, &s); err != nil {
		return nil, err
	}
	return &s, nil
}

// CheckPDF validates an upload candidate: it must sniff as a PDF and be at
// most MaxUploadBytes.
func CheckPDF(data []byte) error {
	if len(data) > MaxUploadBytes {
		return ErrFileTooLarge
	}
	if !mimetype.Detect(data).Is("application/pdf") {
		return ErrNotPDF
	}
	return nil
}

// UploadSyllabusFile uploads a syllabus PDF.
func (c *Client) UploadSyllabusFile(ctx context.Context, courseName, fileName string, data []byte) (*model.Syllabus, error) {
	if err := CheckPDF(data); err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("file", fileName)
	if err != nil {
		return nil, fmt.Errorf("create form file: %w", err)
	}
	if _, err := fw.Write(data); err != nil {
		return nil, fmt.Errorf("write form file: %w", err)
	}
	if err := mw.WriteField("course_name", courseName); err != nil {
		return nil, fmt.Errorf("write course name: %w", err)
	}
	if err := mw.Close(); err != nil {
		return nil, fmt.Errorf("close multipart writer: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint("/syllabus/upload/file", nil), &buf)
	if err != nil {
		return nil, fmt.Errorf("build upload syllabus file request: %w", err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	var s model.Syllabus
	if err := c.do(req, KindSubmit, "upload syllabus file", &s); err != nil {
		return nil, err
	}
	return &s, nil
}

// ListSyllabi returns a page of syllabi.
func (c *Client) ListSyllabi(ctx context.Context, opts ListOptions) (Page[model.Syllabus], error) {
	opts.SyllabusID = ""
	var items []model.Syllabus
	if err := c.get(ctx, "list syllabi", "/syllabus/", opts.query(), &items); err != nil {
		return Page[model.Syllabus]{Items: []model.Syllabus{}}, err
	}
	return pageOf(items, opts), nil
}

// GetSyllabus fetches one syllabus.
func (c *Client) GetSyllabus(ctx context.Context, id string) (*model.Syllabus, error) {
	var s model.Syllabus
	if err := c.get(ctx, "get syllabus", "/syllabus/"+url.PathEscape(id), nil, &s); err != nil {
		return nil, err
	}
	return &s, nil
}

// DeleteSyllabus deletes a syllabus.
func (c *Client) DeleteSyllabus(ctx context.Context, id string) error {
	return c.delete(ctx, "delete syllabus", "/syllabus/"+url.PathEscape(id))
}
