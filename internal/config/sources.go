// Package config loads the sources file: the list of upstream sources
// feedhub builds feeds for, with the names of the environment variables
// holding their credentials.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"

	"feedhub/internal/domain/entity"

	"gopkg.in/yaml.v3"
)

// DefaultSourcesFile is used when FEEDHUB_SOURCES_FILE is unset.
const DefaultSourcesFile = "sources.yaml"

// ErrInvalidSources is wrapped by every validation failure of the sources file.
var ErrInvalidSources = errors.New("invalid sources configuration")

// Pixiv listing modes.
const (
	ModeIllust = "illust"
	ModeNovel  = "novel"
)

// Source is one entry of the sources file.
type Source struct {
	Name string `yaml:"name"`
	Kind string `yaml:"kind"`

	// Mode selects the pixiv listing.
	Mode string `yaml:"mode,omitempty"`
	// Endpoint is the GitHub API path, e.g. /repos/owner/repo/commits.
	Endpoint string `yaml:"endpoint,omitempty"`
	// URL is the feed re-syndicated by the rss kind.
	URL string `yaml:"url,omitempty"`

	BaseURL  string `yaml:"base_url,omitempty"`
	AuthURL  string `yaml:"auth_url,omitempty"`
	SelfLink string `yaml:"self_link,omitempty"`
	Title    string `yaml:"title,omitempty"`

	// AccessTokenEnv names the variable holding the token readers must pass as ?token=.
	AccessTokenEnv string `yaml:"access_token_env,omitempty"`
	UsernameEnv    string `yaml:"username_env,omitempty"`
	PasswordEnv    string `yaml:"password_env,omitempty"`
	TokenEnv       string `yaml:"token_env,omitempty"`
}

// SourcesFile is the document layout of the sources file.
type SourcesFile struct {
	Sources []Source `yaml:"sources"`
}

// loginKinds need a username and password.
var loginKinds = map[string]bool{
	entity.KindPixiv:         true,
	entity.KindQiita:         true,
	entity.KindEeicWiki:      true,
	entity.KindComikeCatalog: true,
}

// LoadSources reads and validates the sources file at path.
func LoadSources(path string) ([]Source, error) {
	// #nosec G304 -- path comes from the operator's environment, not from requests
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read sources file: %w", err)
	}
	return ParseSources(data)
}

// ParseSources decodes and validates a sources document.
func ParseSources(data []byte) ([]Source, error) {
	var file SourcesFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse sources file: %w", err)
	}
	for i := range file.Sources {
		file.Sources[i].applyDefaults()
	}
	if err := Validate(file.Sources); err != nil {
		return nil, err
	}
	return file.Sources, nil
}

func (s *Source) applyDefaults() {
	if s.Kind == entity.KindPixiv && s.Mode == "" {
		s.Mode = ModeIllust
	}
}

// Validate checks every source and reports all problems at once.
func Validate(sources []Source) error {
	if len(sources) == 0 {
		return fmt.Errorf("%w: no sources defined", ErrInvalidSources)
	}

	var errs []error
	seen := make(map[string]bool, len(sources))
	for i, s := range sources {
		if err := s.Validate(); err != nil {
			errs = append(errs, fmt.Errorf("sources[%d]: %w", i, err))
		}
		if seen[s.Name] {
			errs = append(errs, fmt.Errorf("sources[%d]: %w: duplicate name %q", i, ErrInvalidSources, s.Name))
		}
		seen[s.Name] = true
	}
	return errors.Join(errs...)
}

// Validate checks one source.
func (s Source) Validate() error {
	desc := entity.SourceDescriptor{Name: s.Name, Kind: s.Kind}
	if err := desc.Validate(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidSources, err)
	}

	switch s.Kind {
	case entity.KindPixiv:
		if s.Mode != ModeIllust && s.Mode != ModeNovel {
			return fmt.Errorf("%w: %s: mode must be %q or %q", ErrInvalidSources, s.Name, ModeIllust, ModeNovel)
		}
	case entity.KindGitHub:
		if s.Endpoint == "" {
			return fmt.Errorf("%w: %s: endpoint is required", ErrInvalidSources, s.Name)
		}
	case entity.KindRSS:
		if err := checkURL("url", s.URL); err != nil {
			return fmt.Errorf("%w: %s: %w", ErrInvalidSources, s.Name, err)
		}
	}

	if loginKinds[s.Kind] && (s.UsernameEnv == "" || s.PasswordEnv == "") {
		return fmt.Errorf("%w: %s: username_env and password_env are required", ErrInvalidSources, s.Name)
	}

	for field, v := range map[string]string{"base_url": s.BaseURL, "auth_url": s.AuthURL, "self_link": s.SelfLink} {
		if v == "" {
			continue
		}
		if err := checkURL(field, v); err != nil {
			return fmt.Errorf("%w: %s: %w", ErrInvalidSources, s.Name, err)
		}
	}
	return nil
}

func checkURL(field, raw string) error {
	u, err := url.Parse(raw)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("%s must be an absolute http(s) URL, got %q", field, raw)
	}
	return nil
}

// Credentials resolves the credential variables of s through getenv.
func (s Source) Credentials(getenv func(string) string) entity.Credentials {
	return entity.Credentials{
		Username: lookup(getenv, s.UsernameEnv),
		Password: lookup(getenv, s.PasswordEnv),
		Token:    lookup(getenv, s.TokenEnv),
	}
}

// AccessToken resolves the reader access token, "" when the feed is public.
func (s Source) AccessToken(getenv func(string) string) string {
	return lookup(getenv, s.AccessTokenEnv)
}

func lookup(getenv func(string) string, key string) string {
	if key == "" {
		return ""
	}
	return getenv(key)
}
