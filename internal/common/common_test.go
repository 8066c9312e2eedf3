package common

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Veraticus/cofre/internal/service"
)

func TestErrorCode(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{NewUserError("who are you", ErrUnauthenticated), "unauthenticated"},
		{fmt.Errorf("wrapped: %w", ErrForbidden), "forbidden"},
		{NewUserError("rule not found", fmt.Errorf("rule x: %w", ErrNotFound)), "not_found"},
		{ErrInvalidInput, "invalid_input"},
		{ErrStoreBusy, "unavailable"},
		{errors.New("disk on fire"), "internal"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			assert.Equal(t, tt.want, ErrorCode(tt.err))
		})
	}
}

func TestUserError(t *testing.T) {
	err := fmt.Errorf("handler: %w", NewUserError("category is required", ErrInvalidInput))

	assert.Equal(t, "category is required", UserMessage(err))
	assert.ErrorIs(t, err, ErrInvalidInput)
	assert.Equal(t, "handler: category is required: invalid input", err.Error())

	assert.Equal(t, "internal error", UserMessage(errors.New("boom")))
	assert.Equal(t, "bare", (&UserError{UserMessage: "bare"}).Error())
}

func TestIsRetryable(t *testing.T) {
	assert.True(t, IsRetryable(fmt.Errorf("write: %w", ErrStoreBusy)))
	assert.True(t, IsRetryable(context.DeadlineExceeded))
	assert.True(t, IsRetryable(&RetryableError{Err: errors.New("flaky"), Retryable: true}))
	assert.False(t, IsRetryable(&RetryableError{Err: errors.New("fatal"), Retryable: false}))
	assert.False(t, IsRetryable(ErrNotFound))
}

func TestWithRetry(t *testing.T) {
	ctx := context.Background()
	fast := service.RetryOptions{MaxAttempts: 3, InitialDelay: time.Millisecond, MaxDelay: time.Millisecond}

	t.Run("succeeds after busy errors", func(t *testing.T) {
		calls := 0
		err := WithRetry(ctx, func() error {
			calls++
			if calls < 3 {
				return ErrStoreBusy
			}
			return nil
		}, fast)
		require.NoError(t, err)
		assert.Equal(t, 3, calls)
	})

	t.Run("gives up", func(t *testing.T) {
		calls := 0
		err := WithRetry(ctx, func() error {
			calls++
			return ErrStoreBusy
		}, fast)
		assert.ErrorIs(t, err, ErrMaxRetries)
		assert.ErrorIs(t, err, ErrStoreBusy)
		assert.Equal(t, 3, calls)
	})

	t.Run("does not retry other errors", func(t *testing.T) {
		calls := 0
		err := WithRetry(ctx, func() error {
			calls++
			return ErrInvalidInput
		}, fast)
		assert.ErrorIs(t, err, ErrInvalidInput)
		assert.Equal(t, 1, calls)
	})

	t.Run("stops on cancellation", func(t *testing.T) {
		cancelled, cancel := context.WithCancel(ctx)
		cancel()
		err := WithRetry(cancelled, func() error { return ErrStoreBusy },
			service.RetryOptions{MaxAttempts: 5, InitialDelay: time.Hour})
		assert.ErrorIs(t, err, context.Canceled)
	})
}

func TestParseLevel(t *testing.T) {
	tests := map[string]slog.Level{
		"debug": slog.LevelDebug,
		"info":  slog.LevelInfo,
		"":      slog.LevelInfo,
		"warn":  slog.LevelWarn,
		"error": slog.LevelError,
	}
	for name, want := range tests {
		got, err := ParseLevel(name)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}

	_, err := ParseLevel("loud")
	assert.ErrorIs(t, err, ErrInvalidConfig)
}

func TestSetupLoggerTo(t *testing.T) {
	previous := slog.Default()
	t.Cleanup(func() { slog.SetDefault(previous) })

	var buf bytes.Buffer
	require.NoError(t, SetupLoggerTo(&buf, slog.LevelInfo, "json"))

	LogDebug("hidden", Fields{"k": "v"})
	LogInfo("shown", Fields{"rule_id": "r1"})
	LogError(errors.New("boom"), "failed", nil)

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, `"msg":"shown"`)
	assert.Contains(t, out, `"rule_id":"r1"`)
	assert.Contains(t, out, `"error":"boom"`)

	assert.ErrorIs(t, SetupLoggerTo(&buf, slog.LevelInfo, "xml"), ErrInvalidConfig)
}
