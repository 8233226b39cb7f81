package source

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"feedhub/internal/domain/entity"
	"feedhub/internal/infra/httpclient"
)

var fixedNow = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

func testClient(name string) *httpclient.Client {
	cfg := httpclient.DefaultConfig()
	cfg.RatePerSecond = 1000
	cfg.Burst = 100
	return httpclient.New(name, cfg)
}

func testParams(name, baseURL string) Params {
	return Params{
		Name:        name,
		BaseURL:     baseURL,
		SelfLink:    "https://feeds.example.com/" + name + ".atom",
		Client:      testClient(name),
		Credentials: entity.Credentials{Username: "alice", Password: "s3cret"},
		Now:         func() time.Time { return fixedNow },
	}
}

func newUpstream(t *testing.T, h http.Handler) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return srv
}

func sessionWith(cookies map[string]string) entity.Session {
	s := entity.NewSession(fixedNow)
	for k, v := range cookies {
		s.Cookies[k] = v
	}
	return s
}

func tokyoTime(y int, mo time.Month, d, h, mi, s int) time.Time {
	return time.Date(y, mo, d, h, mi, s, 0, tokyo)
}
