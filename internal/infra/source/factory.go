package source

import (
	"fmt"
	"log/slog"
	"os"

	"feedhub/internal/config"
	"feedhub/internal/domain/entity"
	"feedhub/internal/infra/httpclient"
	"feedhub/internal/usecase/pipeline"
)

// Factory builds adapters from the sources file. Each adapter gets its own
// facade client, so sources never share a breaker or a rate limiter.
type Factory struct {
	httpConfig httpclient.Config
	getenv     func(string) string
	logger     *slog.Logger
	clientOpts []httpclient.Option
}

// FactoryOption customizes a Factory.
type FactoryOption func(*Factory)

// WithGetenv replaces os.Getenv for credential lookup.
func WithGetenv(getenv func(string) string) FactoryOption {
	return func(f *Factory) {
		f.getenv = getenv
	}
}

// WithClientOptions appends options applied to every facade client.
func WithClientOptions(opts ...httpclient.Option) FactoryOption {
	return func(f *Factory) {
		f.clientOpts = append(f.clientOpts, opts...)
	}
}

// WithFactoryLogger sets the logger handed to facade clients.
func WithFactoryLogger(logger *slog.Logger) FactoryOption {
	return func(f *Factory) {
		f.logger = logger
	}
}

// NewFactory creates a Factory whose clients use httpConfig.
func NewFactory(httpConfig httpclient.Config, opts ...FactoryOption) *Factory {
	f := &Factory{
		httpConfig: httpConfig,
		getenv:     os.Getenv,
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Build creates the adapter for one configured source.
func (f *Factory) Build(src config.Source) (pipeline.Adapter, error) {
	opts := append([]httpclient.Option{httpclient.WithLogger(f.logger)}, f.clientOpts...)
	p := Params{
		Name:        src.Name,
		BaseURL:     src.BaseURL,
		SelfLink:    src.SelfLink,
		Title:       src.Title,
		Client:      httpclient.New(src.Name, f.httpConfig, opts...),
		Credentials: src.Credentials(f.getenv),
	}

	switch src.Kind {
	case entity.KindPixiv:
		return NewPixiv(p, src.Mode)
	case entity.KindQiita:
		return NewQiita(p)
	case entity.KindGitHub:
		return NewGitHub(p, src.Endpoint)
	case entity.KindEeicWiki:
		return NewEeicWiki(p)
	case entity.KindComikeCatalog:
		return NewComikeCatalog(p, src.AuthURL)
	case entity.KindRSS:
		return NewRSS(p, src.URL)
	default:
		return nil, fmt.Errorf("source %s: unsupported kind %q", src.Name, src.Kind)
	}
}

// BuildAll creates adapters for every source, keyed by source name.
func (f *Factory) BuildAll(sources []config.Source) (map[string]pipeline.Adapter, error) {
	adapters := make(map[string]pipeline.Adapter, len(sources))
	for _, src := range sources {
		a, err := f.Build(src)
		if err != nil {
			return nil, err
		}
		adapters[src.Name] = a
	}
	return adapters, nil
}
