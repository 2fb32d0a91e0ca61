package errors

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestErrorStringsBeginWithCategory(t *testing.T) {
	cases := []struct {
		err  error
		cat  Category
		want string
	}{
		{NewPathNotFound("remove", "/tmp/gone", nil), CategoryPathNotFound, "PathNotFound:"},
		{NewInvalidInput("query", "must not be empty"), CategoryInvalidInput, "InvalidInput:"},
		{NewIndexingAlreadyRunning("/home"), CategoryIndexingAlreadyRunning, "IndexingAlreadyRunning:"},
		{NewIndexingCancelled("/home"), CategoryIndexingCancelled, "IndexingCancelled:"},
		{NewTimeout("search", 0), CategoryTimeout, "Timeout:"},
		{NewInternal("snapshot", errors.New("boom")), CategoryInternal, "InternalError:"},
	}

	for _, tc := range cases {
		assert.True(t, strings.HasPrefix(tc.err.Error(), tc.want), "got %q", tc.err.Error())
		assert.Equal(t, tc.cat, CategoryOf(tc.err))
		assert.True(t, Is(tc.err, tc.cat))
	}
}

func TestUnwrapPreservesUnderlying(t *testing.T) {
	underlying := fs.ErrNotExist
	err := NewPathNotFound("stat", "/missing", underlying)
	require.ErrorIs(t, err, fs.ErrNotExist)

	wrapped := fmt.Errorf("outer: %w", NewInternal("lock", errors.New("poisoned")))
	assert.Equal(t, CategoryInternal, CategoryOf(wrapped))
}

func TestUnknownErrorsMapToInternal(t *testing.T) {
	assert.Equal(t, CategoryInternal, CategoryOf(errors.New("plain")))
	assert.False(t, Is(nil, CategoryInternal))
}
