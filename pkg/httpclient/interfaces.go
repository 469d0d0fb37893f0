package httpclient

import "context"

// Response is a minimal HTTP response contract.
type Response interface {
	Body() []byte
	StatusCode() int
	Header(name string) string
}

// Client abstracts HTTP calls so callers can inject mocks or different transports.
type Client interface {
	Get(ctx context.Context, url string, query, headers map[string]string) (Response, error)
	Execute(ctx context.Context, method, url string, headers map[string]string) (Response, error)
}
