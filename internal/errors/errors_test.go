package errors

import (
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFolioErrorMessage(t *testing.T) {
	cause := errors.New("unexpected EOF")
	err := NewBuildError(ErrCodeSpriteFailed, "cannot parse svg", cause).
		WithComponent("sprite").
		WithFile("bundle-svgs/logo.svg")

	msg := err.Error()
	assert.Contains(t, msg, "[ERR_SPRITE_FAILED]")
	assert.Contains(t, msg, "sprite:")
	assert.Contains(t, msg, "bundle-svgs/logo.svg")
	assert.Contains(t, msg, "cannot parse svg: unexpected EOF")
	assert.Equal(t, cause, errors.Unwrap(err))
}

func TestFolioErrorIs(t *testing.T) {
	err := fmt.Errorf("wrapped: %w", NewConfigError(ErrCodeConfigRead, "read failed", nil))

	assert.True(t, errors.Is(err, &FolioError{Type: ErrorTypeConfig, Code: ErrCodeConfigRead}))
	assert.False(t, errors.Is(err, &FolioError{Type: ErrorTypeConfig, Code: ErrCodeConfigInvalid}))
	assert.True(t, IsConfigError(err))
	assert.False(t, IsBuildError(err))
}

func TestIsRecoverable(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected bool
	}{
		{"build", NewBuildError(ErrCodeTemplateFailed, "x", nil), true},
		{"validation", NewValidationError(ErrCodeValidationFailed, "x"), true},
		{"network", NewNetworkError(ErrCodeServerStart, "x", nil), true},
		{"io", NewIOError(ErrCodeWriteFailed, "x", nil), false},
		{"config", NewConfigError(ErrCodeConfigInvalid, "x", nil), false},
		{"plain", errors.New("x"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, IsRecoverable(tt.err))
		})
	}
}

func TestWithContext(t *testing.T) {
	err := NewValidationError(ErrCodeConfigInvalid, "bad port").WithContext("port", 70000)
	require.NotNil(t, err.Context)
	assert.Equal(t, 70000, err.Context["port"])
}

func TestCollector(t *testing.T) {
	c := NewCollector()
	assert.False(t, c.HasErrors())
	assert.NoError(t, c.Err())

	c.Add(nil)
	assert.False(t, c.HasErrors())

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			c.Add(fmt.Errorf("file %d", i))
		}(i)
	}
	wg.Wait()

	assert.True(t, c.HasErrors())
	assert.Len(t, c.Errors(), 10)
	assert.Error(t, c.Err())
}
