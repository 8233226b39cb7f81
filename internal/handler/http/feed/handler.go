// Package feed serves the Atom documents produced by the fetch pipeline.
//
//	GET /{source}.atom  the feed of one source
//	GET /               JSON index of the configured sources
package feed

import (
	"context"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"fmt"
	"net/http"

	"feedhub/internal/domain/entity"
	"feedhub/internal/handler/http/pathutil"
	"feedhub/internal/handler/http/respond"
	"feedhub/internal/infra/cache"
	"feedhub/internal/usecase/fetch"
)

// ContentType is the media type of every feed response.
const ContentType = "application/atom+xml; charset=utf-8"

// Service is what the handler needs from the fetch use case.
type Service interface {
	Get(ctx context.Context, name string) (cache.Document, error)
	Sources() []fetch.SourceInfo
}

// Handler serves feeds. Tokens maps a source name to the access token a
// reader must pass as ?token=; sources without an entry are public.
type Handler struct {
	Svc    Service
	Tokens map[string]string
}

// Register mounts the feed routes on mux.
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /{$}", h.Index)
	mux.HandleFunc("GET /{file}", h.Feed)
}

// Feed serves GET /{source}.atom.
func (h *Handler) Feed(w http.ResponseWriter, r *http.Request) {
	name, ok := pathutil.SourceName(r.URL.Path)
	if !ok {
		respond.SafeError(w, http.StatusNotFound, errors.New("not found"))
		return
	}

	if want, protected := h.Tokens[name]; protected {
		got := r.URL.Query().Get("token")
		if subtle.ConstantTimeCompare([]byte(got), []byte(want)) != 1 {
			respond.SafeError(w, http.StatusForbidden, errors.New("forbidden"))
			return
		}
	}

	doc, err := h.Svc.Get(r.Context(), name)
	if err != nil {
		respond.Fail(w, http.StatusInternalServerError, classify(name, err))
		return
	}

	etag := etagOf(doc.Body)
	w.Header().Set("ETag", etag)
	w.Header().Set("Cache-Control", "no-cache")
	if !doc.Updated.IsZero() {
		w.Header().Set("Last-Modified", doc.Updated.UTC().Format(http.TimeFormat))
	}
	if r.Header.Get("If-None-Match") == etag {
		w.WriteHeader(http.StatusNotModified)
		return
	}

	w.Header().Set("Content-Type", ContentType)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(doc.Body)
}

// indexEntry is one source in the index.
type indexEntry struct {
	fetch.SourceInfo
	Path      string `json:"path"`
	Protected bool   `json:"protected"`
}

// Index serves GET / with the list of sources. Tokens are never listed.
func (h *Handler) Index(w http.ResponseWriter, r *http.Request) {
	sources := h.Svc.Sources()
	out := make([]indexEntry, 0, len(sources))
	for _, s := range sources {
		_, protected := h.Tokens[s.Name]
		out = append(out, indexEntry{
			SourceInfo: s,
			Path:       "/" + s.Name + pathutil.FeedSuffix,
			Protected:  protected,
		})
	}
	respond.JSON(w, http.StatusOK, map[string]any{"sources": out})
}

// classify maps a serve failure to the response the reader gets.
// Every upstream failure is a bad gateway except a run that ran out of time.
func classify(name string, err error) error {
	switch {
	case errors.Is(err, fetch.ErrUnknownSource):
		return respond.NewAppError(http.StatusNotFound, "unknown source: "+name, err)
	case fetch.IsDeadline(err):
		return respond.NewAppError(http.StatusGatewayTimeout, "upstream timed out", err)
	}
	if kind := entity.KindOf(err); kind != nil {
		return respond.NewAppError(http.StatusBadGateway, fmt.Sprintf("upstream error: %s", entity.KindName(kind)), err)
	}
	return respond.NewAppError(http.StatusInternalServerError, "internal server error", err)
}

func etagOf(body []byte) string {
	sum := sha256.Sum256(body)
	return `"` + hex.EncodeToString(sum[:8]) + `"`
}
