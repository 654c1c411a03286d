package browser

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/hashicorp/go-retryablehttp"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/chriserin/b2b/internal/step"
)

var (
	ErrNoSession  = errors.New("no browser session")
	ErrNoPage     = errors.New("no page loaded")
	ErrNotFound   = errors.New("element not found")
	ErrEmptyClip  = errors.New("clipboard is empty")
	ErrClosed     = errors.New("session is closed")
	ErrHTTPStatus = errors.New("unexpected status")
	ErrNoBaseURL  = errors.New("relative url needs a base url")
)

// Session is one scenario's view of the application under test: a cookie
// jar, the current page and the values typed into it.
type Session struct {
	pool        *Pool
	client      *retryablehttp.Client
	base        *url.URL
	feature     string
	scenario    string
	featurePath string
	rec         *recorder
	logger      *slog.Logger

	mu        sync.Mutex
	current   *url.URL
	body      []byte
	doc       *html.Node
	fields    map[string]string
	files     map[string]string
	clipboard string
	closed    bool
}

// From returns the session carried by a step context.
func From(sc step.Context) (*Session, error) {
	s, ok := sc.Session.(*Session)
	if !ok || s == nil {
		return nil, ErrNoSession
	}
	return s, nil
}

func (s *Session) resolve(target string) (*url.URL, error) {
	ref, err := url.Parse(strings.TrimSpace(target))
	if err != nil {
		return nil, fmt.Errorf("parsing %q: %w", target, err)
	}
	if ref.IsAbs() {
		return ref, nil
	}
	switch {
	case s.current != nil:
		return s.current.ResolveReference(ref), nil
	case s.base != nil:
		return s.base.ResolveReference(ref), nil
	case step.IsRelativeURL(target):
		return nil, fmt.Errorf("%w: %q", ErrNoBaseURL, target)
	}
	return url.Parse(step.NormalizeURL(target))
}

// Navigate loads target. Relative targets resolve against the current page,
// then the base URL.
func (s *Session) Navigate(ctx context.Context, target string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	u, err := s.resolve(target)
	if err != nil {
		return err
	}
	return s.get(ctx, u)
}

func (s *Session) Reload(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	if s.current == nil {
		return ErrNoPage
	}
	return s.get(ctx, s.current)
}

func (s *Session) get(ctx context.Context, u *url.URL) error {
	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return fmt.Errorf("building request: %w", err)
	}
	return s.load(req)
}

func (s *Session) load(req *retryablehttp.Request) error {
	if req.Method != http.MethodGet && req.Method != http.MethodHead {
		req = req.WithContext(withoutRetry(req.Context()))
	}
	resp, err := s.client.Do(req)
	if err != nil {
		s.rec.log(req.Method, req.URL.String()+" error: "+err.Error())
		return fmt.Errorf("%s %s: %w", req.Method, req.URL, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("reading %s: %w", req.URL, err)
	}
	doc, err := html.Parse(bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("parsing %s: %w", req.URL, err)
	}

	s.current = resp.Request.URL
	s.body = body
	s.doc = doc
	s.fields = make(map[string]string)
	s.files = make(map[string]string)
	s.rec.log(req.Method, fmt.Sprintf("%s %d", s.current, resp.StatusCode))
	s.logger.Debug("page loaded", "method", req.Method, "url", s.current.String(), "status", resp.StatusCode)

	if resp.StatusCode >= http.StatusBadRequest {
		return fmt.Errorf("%w: %s %s returned %s", ErrHTTPStatus, req.Method, s.current, resp.Status)
	}
	return nil
}

// URL is the address of the current page, after redirects.
func (s *Session) URL() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current == nil {
		return ""
	}
	return s.current.String()
}

func (s *Session) Title() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return textContent(findFirst(s.doc, func(n *html.Node) bool { return n.DataAtom == atom.Title }))
}

// Text is the visible text of the page body.
func (s *Session) Text() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.text()
}

func (s *Session) text() string {
	if body := findFirst(s.doc, func(n *html.Node) bool { return n.DataAtom == atom.Body }); body != nil {
		return textContent(body)
	}
	return textContent(s.doc)
}

// Contains reports whether the page text or a typed value contains text,
// ignoring case.
func (s *Session) Contains(text string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if containsFold(s.text(), text) {
		return true
	}
	for _, v := range s.fields {
		if containsFold(v, text) {
			return true
		}
	}
	return false
}

// Type sets the value of the field identified by label.
func (s *Session) Type(label, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.doc == nil {
		return ErrNoPage
	}
	field := labelFor(s.doc, label)
	if field == nil {
		return fmt.Errorf("%w: no field labelled %q", ErrNotFound, label)
	}
	s.fields[fieldKey(field)] = value
	s.rec.log("TYPE", fmt.Sprintf("%s=%q", fieldKey(field), value))
	return nil
}

// Value is what the field identified by label would submit.
func (s *Session) Value(label string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.doc == nil {
		return "", ErrNoPage
	}
	field := labelFor(s.doc, label)
	if field == nil {
		return "", fmt.Errorf("%w: no field labelled %q", ErrNotFound, label)
	}
	return s.fieldValue(field), nil
}

func (s *Session) fieldValue(n *html.Node) string {
	if v, ok := s.fields[fieldKey(n)]; ok {
		return v
	}
	switch n.DataAtom {
	case atom.Textarea:
		return textContent(n)
	case atom.Select:
		options := findAll(n, func(o *html.Node) bool { return o.DataAtom == atom.Option })
		for _, o := range options {
			if hasAttr(o, "selected") {
				return optionValue(o)
			}
		}
		if len(options) > 0 {
			return optionValue(options[0])
		}
		return ""
	}
	return attr(n, "value")
}

func optionValue(o *html.Node) string {
	if hasAttr(o, "value") {
		return attr(o, "value")
	}
	return textContent(o)
}

// Search types query into the page's search box and submits its form.
func (s *Session) Search(ctx context.Context, query string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.doc == nil {
		return ErrNoPage
	}
	box := findFirst(s.doc, func(n *html.Node) bool {
		return n.DataAtom == atom.Input && strings.EqualFold(attr(n, "type"), "search")
	})
	if box == nil {
		box = findFirst(s.doc, func(n *html.Node) bool {
			return isField(n) && (ancestorRole(n, "search") || attr(n, "name") == "q")
		})
	}
	if box == nil {
		return fmt.Errorf("%w: no search box", ErrNotFound)
	}
	s.fields[fieldKey(box)] = query
	s.rec.log("SEARCH", query)

	form := ancestor(box, atom.Form)
	if form == nil {
		return nil
	}
	return s.submit(ctx, form, nil)
}

func ancestorRole(n *html.Node, role string) bool {
	for p := n.Parent; p != nil; p = p.Parent {
		if p.Type == html.ElementNode && strings.EqualFold(attr(p, "role"), role) {
			return true
		}
	}
	return false
}

// SetFile attaches path to the page's file input. Relative paths resolve
// against the feature file's directory.
func (s *Session) SetFile(path string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.doc == nil {
		return ErrNoPage
	}
	input := findFirst(s.doc, func(n *html.Node) bool {
		return n.DataAtom == atom.Input && strings.EqualFold(attr(n, "type"), "file")
	})
	if input == nil {
		return fmt.Errorf("%w: no file input", ErrNotFound)
	}
	if !filepath.IsAbs(path) {
		path = filepath.Join(filepath.Dir(s.featurePath), path)
	}
	if _, err := os.Stat(path); err != nil {
		return fmt.Errorf("selecting file: %w", err)
	}
	s.files[fieldKey(input)] = path
	s.rec.log("FILE", path)
	return nil
}

// Click activates the link, button or copy control identified by label.
func (s *Session) Click(ctx context.Context, label string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.doc == nil {
		return ErrNoPage
	}
	el := clickable(s.doc, label)
	if el == nil {
		return fmt.Errorf("%w: nothing clickable labelled %q", ErrNotFound, label)
	}
	s.rec.log("CLICK", label)

	if clip, ok := clipboardText(el); ok {
		s.clipboard = clip
		return nil
	}
	if el.DataAtom == atom.A {
		u, err := s.resolve(attr(el, "href"))
		if err != nil {
			return err
		}
		return s.get(ctx, u)
	}
	if isSubmit(el) {
		if form := ancestor(el, atom.Form); form != nil {
			return s.submit(ctx, form, el)
		}
	}
	return fmt.Errorf("clicking %q has no effect without scripts", label)
}

func clipboardText(n *html.Node) (string, bool) {
	for _, a := range n.Attr {
		if a.Key == "data-clipboard-text" {
			return a.Val, true
		}
	}
	return "", false
}

// CopyLink puts the target of the link identified by text on the clipboard.
func (s *Session) CopyLink(text string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.doc == nil {
		return ErrNoPage
	}
	el := clickable(s.doc, text)
	if el == nil {
		return fmt.Errorf("%w: no link %q", ErrNotFound, text)
	}
	if clip, ok := clipboardText(el); ok {
		s.clipboard = clip
		return nil
	}
	if !hasAttr(el, "href") {
		return fmt.Errorf("%w: %q is not a link", ErrNotFound, text)
	}
	u, err := s.resolve(attr(el, "href"))
	if err != nil {
		return err
	}
	s.clipboard = u.String()
	s.rec.log("COPY", s.clipboard)
	return nil
}

func (s *Session) Clipboard() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.clipboard
}

// OpenClipboard navigates to the link on the clipboard.
func (s *Session) OpenClipboard(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.clipboard == "" {
		return ErrEmptyClip
	}
	u, err := s.resolve(s.clipboard)
	if err != nil {
		return err
	}
	return s.get(ctx, u)
}

func (s *Session) submit(ctx context.Context, form, submitter *html.Node) error {
	method := strings.ToUpper(attr(form, "method"))
	if method == "" {
		method = http.MethodGet
	}
	action, err := s.resolve(attr(form, "action"))
	if err != nil {
		return err
	}

	values := url.Values{}
	files := make(map[string]string)
	for _, f := range findAll(form, isField) {
		key := fieldKey(f)
		if key == "" || hasAttr(f, "disabled") {
			continue
		}
		switch strings.ToLower(attr(f, "type")) {
		case "checkbox", "radio":
			if hasAttr(f, "checked") {
				values.Add(key, valueOr(attr(f, "value"), "on"))
			}
			continue
		case "file":
			if path, ok := s.files[key]; ok {
				files[key] = path
			}
			continue
		}
		values.Add(key, s.fieldValue(f))
	}
	for _, h := range findAll(form, func(n *html.Node) bool {
		return n.DataAtom == atom.Input && strings.EqualFold(attr(n, "type"), "hidden")
	}) {
		if key := fieldKey(h); key != "" {
			values.Add(key, attr(h, "value"))
		}
	}
	if submitter != nil {
		if name := attr(submitter, "name"); name != "" {
			values.Add(name, attr(submitter, "value"))
		}
	}

	var req *retryablehttp.Request
	switch {
	case method == http.MethodGet:
		action.RawQuery = values.Encode()
		req, err = retryablehttp.NewRequestWithContext(ctx, http.MethodGet, action.String(), nil)
	case len(files) > 0:
		body, contentType, merr := multipartBody(values, files)
		if merr != nil {
			return merr
		}
		req, err = retryablehttp.NewRequestWithContext(ctx, method, action.String(), body)
		if err == nil {
			req.Header.Set("Content-Type", contentType)
		}
	default:
		req, err = retryablehttp.NewRequestWithContext(ctx, method, action.String(), []byte(values.Encode()))
		if err == nil {
			req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		}
	}
	if err != nil {
		return fmt.Errorf("building request: %w", err)
	}
	return s.load(req)
}

func valueOr(v, fallback string) string {
	if v == "" {
		return fallback
	}
	return v
}

func multipartBody(values url.Values, files map[string]string) ([]byte, string, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for key, vs := range values {
		for _, v := range vs {
			if err := w.WriteField(key, v); err != nil {
				return nil, "", fmt.Errorf("writing form field: %w", err)
			}
		}
	}
	for key, path := range files {
		content, err := os.ReadFile(path)
		if err != nil {
			return nil, "", fmt.Errorf("reading upload: %w", err)
		}
		part, err := w.CreateFormFile(key, filepath.Base(path))
		if err != nil {
			return nil, "", fmt.Errorf("writing upload: %w", err)
		}
		if _, err := part.Write(content); err != nil {
			return nil, "", fmt.Errorf("writing upload: %w", err)
		}
	}
	if err := w.Close(); err != nil {
		return nil, "", fmt.Errorf("closing form: %w", err)
	}
	return buf.Bytes(), w.FormDataContentType(), nil
}

// Snapshot writes the current page to the failure directory and returns its
// path. It is a no-op without a failure directory or a page.
func (s *Session) Snapshot(_ context.Context, name string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.pool.opts.FailureDir == "" || s.body == nil {
		return "", nil
	}
	if err := os.MkdirAll(s.pool.opts.FailureDir, 0o755); err != nil {
		return "", fmt.Errorf("creating failure directory: %w", err)
	}
	path := filepath.Join(s.pool.opts.FailureDir, SafeName(name)+".html")
	if err := os.WriteFile(path, s.body, 0o644); err != nil {
		return "", fmt.Errorf("writing snapshot: %w", err)
	}
	return path, nil
}

// Close ends the session. A failed session keeps its recording under a
// ".failed" name. Closing twice is a no-op.
func (s *Session) Close(failed bool) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	s.mu.Unlock()

	defer s.pool.release(s)
	path, err := s.rec.stop(failed)
	if path != "" {
		s.logger.Debug("recording saved", "path", path, "failed", failed)
	}
	s.client.HTTPClient.CloseIdleConnections()
	return err
}
