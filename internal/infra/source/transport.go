package source

import (
	"bytes"
	"fmt"
	"io"
	"net/http"

	"feedhub/internal/domain/entity"
	"feedhub/internal/infra/httpclient"
)

// facadeTransport lets SDK clients that expect an *http.Client send their
// requests through the source's facade, so they share its breaker, limiter
// and no-redirect policy. It carries no cookies.
type facadeTransport struct {
	client *httpclient.Client
}

func (t facadeTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	var body []byte
	if req.Body != nil {
		var err error
		body, err = io.ReadAll(req.Body)
		_ = req.Body.Close()
		if err != nil {
			return nil, fmt.Errorf("read request body: %w", err)
		}
	}

	resp, err := t.client.Do(req.Context(), entity.Session{}, httpclient.Request{
		Method: req.Method,
		URL:    req.URL.String(),
		Header: req.Header,
		Body:   body,
	})
	if err != nil {
		return nil, err
	}

	return &http.Response{
		Status:        fmt.Sprintf("%d %s", resp.StatusCode, http.StatusText(resp.StatusCode)),
		StatusCode:    resp.StatusCode,
		Proto:         "HTTP/1.1",
		ProtoMajor:    1,
		ProtoMinor:    1,
		Header:        resp.Header,
		Body:          io.NopCloser(bytes.NewReader(resp.Body)),
		ContentLength: int64(len(resp.Body)),
		Request:       req,
	}, nil
}
