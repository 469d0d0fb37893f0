package gateway

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"
)

// FailurePrefix marks every normalized gateway failure.
const FailurePrefix = "GET Request Failed: "

// Kind tags the class of a failed request.
type Kind int

const (
	KindTransport Kind = iota + 1
	KindClient
	KindServer
	// KindDecode marks a 2xx response whose body could not be decoded.
	KindDecode
)

func (k Kind) String() string {
	switch k {
	case KindTransport:
		return "transport"
	case KindClient:
		return "client_error"
	case KindServer:
		return "server_error"
	case KindDecode:
		return "decode_error"
	default:
		return "unknown"
	}
}

// RequestError is the single failure shape returned by the gateway.
// Kind distinguishes transport failures from 4xx and 5xx responses; Error()
// keeps the flat "GET Request Failed: ..." view callers may match on.
type RequestError struct {
	Kind       Kind
	URL        string
	StatusCode int
	Body       []byte
	Err        error
}

func (e *RequestError) Error() string {
	if e == nil {
		return ""
	}
	if e.Kind == KindTransport {
		msg := "unknown transport error"
		if e.Err != nil {
			msg = e.Err.Error()
		}
		return FailurePrefix + msg
	}
	if e.Kind == KindDecode {
		return fmt.Sprintf("%sstatus %d: decode response: %v", FailurePrefix, e.StatusCode, e.Err)
	}
	if len(bytes.TrimSpace(e.Body)) == 0 {
		return fmt.Sprintf("%srequest failed with status code %d", FailurePrefix, e.StatusCode)
	}
	return fmt.Sprintf("%sstatus %d: %s", FailurePrefix, e.StatusCode, serializeBody(e.Body))
}

func (e *RequestError) Unwrap() error { return e.Err }

func newStatusError(url string, status int, body []byte) *RequestError {
	kind := KindClient
	if status >= 500 {
		kind = KindServer
	}
	return &RequestError{
		Kind:       kind,
		URL:        url,
		StatusCode: status,
		Body:       body,
	}
}

func newDecodeError(url string, status int, body []byte, err error) *RequestError {
	return &RequestError{Kind: KindDecode, URL: url, StatusCode: status, Body: body, Err: err}
}

func newTransportError(url string, err error) *RequestError {
	return &RequestError{Kind: KindTransport, URL: url, Err: err}
}

// serializeBody renders a JSON body compactly and anything else as a quoted JSON string.
func serializeBody(body []byte) string {
	trimmed := bytes.TrimSpace(body)
	if json.Valid(trimmed) {
		var buf bytes.Buffer
		if err := json.Compact(&buf, trimmed); err == nil {
			return buf.String()
		}
	}
	quoted, err := json.Marshal(string(trimmed))
	if err != nil {
		return string(trimmed)
	}
	return string(quoted)
}

func asRequestError(err error) (*RequestError, bool) {
	var reqErr *RequestError
	if errors.As(err, &reqErr) && reqErr != nil {
		return reqErr, true
	}
	return nil, false
}

// IsTransport reports whether err is a gateway transport failure.
func IsTransport(err error) bool {
	reqErr, ok := asRequestError(err)
	return ok && reqErr.Kind == KindTransport
}

// IsClientError reports whether err carries a 4xx response.
func IsClientError(err error) bool {
	reqErr, ok := asRequestError(err)
	return ok && reqErr.Kind == KindClient
}

// IsServerError reports whether err carries a 5xx response.
func IsServerError(err error) bool {
	reqErr, ok := asRequestError(err)
	return ok && reqErr.Kind == KindServer
}

// StatusCode returns the HTTP status attached to err, or 0.
func StatusCode(err error) int {
	if reqErr, ok := asRequestError(err); ok {
		return reqErr.StatusCode
	}
	return 0
}

// Body returns the raw response body attached to err, if any.
func Body(err error) []byte {
	if reqErr, ok := asRequestError(err); ok {
		return reqErr.Body
	}
	return nil
}

// KindOf returns the failure kind of err, or 0 when err is not a gateway error.
func KindOf(err error) Kind {
	if reqErr, ok := asRequestError(err); ok {
		return reqErr.Kind
	}
	return 0
}

func snippet(body []byte) string {
	const maxLen = 512
	s := strings.TrimSpace(string(body))
	if len(s) > maxLen {
		cut := maxLen
		for cut > 0 && !utf8.RuneStart(s[cut]) {
			cut--
		}
		return s[:cut] + "..."
	}
	if s == "" {
		return "<empty>"
	}
	return s
}
