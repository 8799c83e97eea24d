package wordpress

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// ErrorKind classifies CMS failures.
type ErrorKind string

const (
	KindAuth      ErrorKind = "auth"
	KindStatus    ErrorKind = "status"
	KindHTML      ErrorKind = "html"
	KindTransport ErrorKind = "transport"
)

// Error is returned for every failed CMS call.
type Error struct {
	Kind       ErrorKind
	StatusCode int
	Endpoint   string
	Code       string
	Message    string
	Err        error

	termID int64
}

func (e *Error) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "wordpress %s error", e.Kind)
	if e.StatusCode != 0 {
		fmt.Fprintf(&b, " (status %d)", e.StatusCode)
	}
	if e.Endpoint != "" {
		fmt.Fprintf(&b, " at %s", e.Endpoint)
	}
	if e.Message != "" {
		b.WriteString(": ")
		b.WriteString(e.Message)
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *Error) Unwrap() error { return e.Err }

type apiError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Data    struct {
		Status int   `json:"status"`
		TermID int64 `json:"term_id"`
	} `json:"data"`
}

// classify turns a non-2xx response or an HTML body into an *Error.
func classify(endpoint string, resp *http.Response, body []byte) *Error {
	e := &Error{Kind: KindStatus, StatusCode: resp.StatusCode, Endpoint: endpoint}

	if looksLikeHTML(resp.Header.Get("Content-Type"), body) {
		e.Kind = KindHTML
		e.Message = htmlTitle(body)
		if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
			e.Kind = KindAuth
		}
		return e
	}

	var api apiError
	if err := json.Unmarshal(body, &api); err == nil {
		e.Code = api.Code
		e.Message = api.Message
		e.termID = api.Data.TermID
	} else {
		e.Message = strings.TrimSpace(string(truncate(body, 256)))
	}

	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		e.Kind = KindAuth
	}
	return e
}

func looksLikeHTML(contentType string, body []byte) bool {
	if strings.HasPrefix(strings.ToLower(contentType), "text/html") {
		return true
	}
	return bytes.HasPrefix(bytes.TrimSpace(body), []byte("<"))
}

// htmlTitle extracts the page title of an HTML error page, typically a proxy or login page.
func htmlTitle(body []byte) string {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return "unexpected HTML response"
	}
	if title := strings.TrimSpace(doc.Find("title").First().Text()); title != "" {
		return "unexpected HTML response: " + title
	}
	return "unexpected HTML response"
}

func truncate(b []byte, n int) []byte {
	if len(b) > n {
		return b[:n]
	}
	return b
}
