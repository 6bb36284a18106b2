package response

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"
	"github.com/antchfx/htmlquery"
	"github.com/bytedance/sonic"
	"github.com/saintfish/chardet"
	"golang.org/x/net/html"
	"golang.org/x/net/html/charset"
)

// Source tags which transport produced a Response.
type Source int

const (
	SourcePage Source = iota + 1
	SourceClient
)

func (s Source) String() string {
	switch s {
	case SourcePage:
		return "page"
	case SourceClient:
		return "client"
	default:
		return "unknown"
	}
}

const (
	// sniffLen bounds how much decoded text is inspected for HTML markers.
	sniffLen = 256
	// streamChunk is the copy buffer size used by WriteStream.
	streamChunk = 1024
)

// ErrConsumed is returned when the client body was already streamed out.
var ErrConsumed = errors.New("response body already consumed by WriteStream")

// Response is one HTTP result. Header is nil when a page fetch failed
// before any status was received.
type Response struct {
	URL        string
	StatusCode int
	Reason     string
	Header     http.Header
	OK         bool
	Source     Source

	page   *FetchResult
	client *http.Response
	stream bool

	mu       sync.Mutex
	consumed bool

	contentOnce sync.Once
	content     []byte
	contentErr  error

	textOnce sync.Once
	text     string
	textErr  error

	docOnce sync.Once
	doc     *goquery.Document

	nodeOnce sync.Once
	node     *html.Node

	jsonOnce sync.Once
	json     any
}

// ClientOption configures FromClient.
type ClientOption func(*Response)

// Streaming marks the response as streaming: nothing is buffered until a
// view asks for it, and WriteStream copies straight from the network.
func Streaming() ClientOption {
	return func(r *Response) { r.stream = true }
}

// FromClient builds a Response from a standalone client result. The body
// is not read here.
func FromClient(hr *http.Response, opts ...ClientOption) *Response {
	resp := &Response{
		StatusCode: hr.StatusCode,
		Reason:     reasonPhrase(hr),
		Header:     hr.Header,
		OK:         isOK(hr.StatusCode),
		Source:     SourceClient,
		client:     hr,
	}
	if hr.Request != nil && hr.Request.URL != nil {
		resp.URL = hr.Request.URL.String()
	}
	for _, opt := range opts {
		opt(resp)
	}
	return resp
}

// Streaming reports whether the response was created in streaming mode.
func (r *Response) Streaming() bool {
	return r.stream
}

func (r *Response) String() string {
	return fmt.Sprintf("%s response %d %s (%s)", r.Source, r.StatusCode, r.Reason, r.URL)
}

// Content returns the raw body bytes.
func (r *Response) Content() ([]byte, error) {
	r.contentOnce.Do(func() {
		switch {
		case r.page != nil:
			r.content = r.page.bytes()
		case r.client != nil:
			r.content, r.contentErr = r.readClientBody()
		}
	})
	return r.content, r.contentErr
}

func (r *Response) readClientBody() ([]byte, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.consumed {
		return nil, ErrConsumed
	}
	r.consumed = true

	body := r.client.Body
	if body == nil || body == http.NoBody {
		return []byte{}, nil
	}
	defer body.Close()

	data, err := io.ReadAll(body)
	if err != nil {
		return nil, fmt.Errorf("read response body from %s: %w", r.URL, err)
	}
	return data, nil
}

// Text returns the body decoded to UTF-8. The page path uses the text the
// browser already decoded; otherwise the charset comes from Content-Type,
// then from detection.
func (r *Response) Text() (string, error) {
	r.textOnce.Do(func() {
		if r.page != nil && r.page.Text != nil {
			r.text = *r.page.Text
			return
		}
		content, err := r.Content()
		if err != nil {
			r.textErr = err
			return
		}
		r.text = decodeText(content, r.Header.Get("Content-Type"))
	})
	return r.text, r.textErr
}

func decodeText(content []byte, contentType string) string {
	label := ""
	if _, params, err := mime.ParseMediaType(contentType); err == nil {
		label = params["charset"]
	}
	if label == "" && utf8.Valid(content) {
		return string(content)
	}
	if label == "" {
		label = detectCharset(content)
	}

	reader, err := charset.NewReaderLabel(label, bytes.NewReader(content))
	if err != nil {
		return strings.ToValidUTF8(string(content), "�")
	}
	decoded, err := io.ReadAll(reader)
	if err != nil {
		return strings.ToValidUTF8(string(content), "�")
	}
	return string(decoded)
}

func detectCharset(content []byte) string {
	result, err := chardet.NewTextDetector().DetectBest(content)
	if err != nil || result == nil {
		return "utf-8"
	}
	return strings.ToLower(result.Charset)
}

// IsHTML reports whether the decoded text looks like an HTML document: the
// first 256 bytes, lowercased, start with a doctype or contain <html.
func (r *Response) IsHTML() bool {
	text, err := r.Text()
	if err != nil {
		return false
	}
	return looksLikeHTML(text)
}

func looksLikeHTML(text string) bool {
	sample := text
	if len(sample) > sniffLen {
		sample = sample[:sniffLen]
	}
	sample = strings.ToLower(sample)
	return strings.HasPrefix(sample, "<!doctype html") || strings.Contains(sample, "<html")
}

// Document returns the body parsed for CSS selection, or nil when the body
// is not HTML.
func (r *Response) Document() *goquery.Document {
	r.docOnce.Do(func() {
		if !r.IsHTML() {
			return
		}
		text, _ := r.Text()
		doc, err := goquery.NewDocumentFromReader(strings.NewReader(text))
		if err == nil {
			r.doc = doc
		}
	})
	return r.doc
}

// Node returns the body parsed for XPath queries, or nil when the body is
// not HTML.
func (r *Response) Node() *html.Node {
	r.nodeOnce.Do(func() {
		if !r.IsHTML() {
			return
		}
		text, _ := r.Text()
		node, err := htmlquery.Parse(strings.NewReader(text))
		if err == nil {
			r.node = node
		}
	})
	return r.node
}

// JSON returns the structured body, or nil when the body is not valid
// JSON. Parse failures are expected for non-data responses and are not
// reported.
func (r *Response) JSON() any {
	r.jsonOnce.Do(func() {
		var raw []byte
		if r.page != nil {
			pre, ok := r.page.structured()
			if !ok {
				return
			}
			raw = pre
		} else {
			content, err := r.Content()
			if err != nil || len(content) == 0 {
				return
			}
			raw = content
		}

		var v any
		if err := sonic.Unmarshal(raw, &v); err == nil {
			r.json = v
		}
	})
	return r.json
}

// WriteStream copies the body to w in 1024-byte chunks. For a client
// response that has not been read yet the copy comes straight from the
// network and the body is not retained.
func (r *Response) WriteStream(w io.Writer) (int64, error) {
	buf := make([]byte, streamChunk)

	if r.client != nil && r.takeUnread() {
		body := r.client.Body
		if body == nil || body == http.NoBody {
			return 0, nil
		}
		defer body.Close()
		return io.CopyBuffer(onlyWriter{w}, onlyReader{body}, buf)
	}

	content, err := r.Content()
	if err != nil {
		return 0, err
	}
	return io.CopyBuffer(onlyWriter{w}, onlyReader{bytes.NewReader(content)}, buf)
}

// takeUnread claims the client body for streaming when no view has read
// it. Views called afterwards get ErrConsumed.
func (r *Response) takeUnread() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.consumed {
		return false
	}
	r.consumed = true
	return true
}

// Close releases an unread client body. It is a no-op otherwise.
func (r *Response) Close() error {
	if r.client == nil {
		return nil
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.consumed || r.client.Body == nil {
		return nil
	}
	r.consumed = true
	return r.client.Body.Close()
}

// onlyWriter and onlyReader hide ReaderFrom and WriterTo so io.CopyBuffer
// really copies through the fixed-size buffer.
type onlyWriter struct{ io.Writer }
type onlyReader struct{ io.Reader }

func isOK(status int) bool {
	return status >= 200 && status < 300
}

// reasonPhrase strips the numeric code from "404 Not Found".
func reasonPhrase(hr *http.Response) string {
	code := strconv.Itoa(hr.StatusCode)
	if reason, ok := strings.CutPrefix(hr.Status, code+" "); ok && reason != "" {
		return reason
	}
	return http.StatusText(hr.StatusCode)
}
