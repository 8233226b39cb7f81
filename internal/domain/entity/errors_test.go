package entity

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidationError_Error(t *testing.T) {
	err := &ValidationError{Field: "link", Message: "link is required"}
	assert.Equal(t, "validation error on field 'link': link is required", err.Error())
}

func TestExtractionFailed_IsMalformedContent(t *testing.T) {
	assert.True(t, errors.Is(ErrExtractionFailed, ErrMalformedContent))
	assert.False(t, errors.Is(ErrMalformedContent, ErrExtractionFailed))
}

func TestKindOf(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want error
	}{
		{name: "nil", err: nil, want: nil},
		{name: "auth failed", err: fmt.Errorf("login: %w", ErrAuthFailed), want: ErrAuthFailed},
		{name: "auth expired", err: fmt.Errorf("redirected to login: %w", ErrAuthExpired), want: ErrAuthExpired},
		{name: "fetch failed", err: fmt.Errorf("status 500: %w", ErrFetchFailed), want: ErrFetchFailed},
		{name: "extraction failed reports malformed", err: fmt.Errorf("no title: %w", ErrExtractionFailed), want: ErrMalformedContent},
		{name: "unclassified", err: errors.New("boom"), want: nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, KindOf(tt.err))
		})
	}
}

func TestKindName(t *testing.T) {
	assert.Equal(t, "auth_failed", KindName(ErrAuthFailed))
	assert.Equal(t, "auth_expired", KindName(ErrAuthExpired))
	assert.Equal(t, "fetch_failed", KindName(ErrFetchFailed))
	assert.Equal(t, "malformed_content", KindName(ErrMalformedContent))
	assert.Equal(t, "unknown", KindName(errors.New("other")))
}

func TestSourceError(t *testing.T) {
	cause := context.DeadlineExceeded
	err := NewSourceError("pixiv", ErrFetchFailed, cause)

	assert.Equal(t, "pixiv: fetch failed: context deadline exceeded", err.Error())
	assert.True(t, errors.Is(err, ErrFetchFailed))
	assert.True(t, errors.Is(err, context.DeadlineExceeded))
	assert.False(t, errors.Is(err, ErrAuthFailed))

	var se *SourceError
	wrapped := fmt.Errorf("serve feed: %w", err)
	if assert.True(t, errors.As(wrapped, &se)) {
		assert.Equal(t, "pixiv", se.Source)
		assert.Equal(t, ErrFetchFailed, se.Kind)
	}
}

func TestSourceError_KindOnly(t *testing.T) {
	err := NewSourceError("qiita", ErrAuthFailed, ErrAuthFailed)
	assert.Nil(t, err.Err)
	assert.Equal(t, "qiita: authentication failed", err.Error())
	assert.True(t, errors.Is(err, ErrAuthFailed))
}
