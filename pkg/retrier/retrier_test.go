package retrier

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

var errTransient = errors.New("transient")

func TestRetrier_Do(t *testing.T) {
	t.Run("success on first attempt", func(t *testing.T) {
		r := New()
		attempts := 0
		err := r.Do(context.Background(), func(ctx context.Context, attempt int) error {
			attempts++
			return nil
		})
		assert.NoError(t, err)
		assert.Equal(t, 1, attempts)
	})

	t.Run("attempt numbers increase", func(t *testing.T) {
		r := New(WithMaxRetries(3), WithInitialInterval(time.Millisecond))
		var seen []int
		err := r.Do(context.Background(), func(ctx context.Context, attempt int) error {
			seen = append(seen, attempt)
			if attempt < 2 {
				return errTransient
			}
			return nil
		})
		assert.NoError(t, err)
		assert.Equal(t, []int{0, 1, 2}, seen)
	})

	t.Run("fail after max retries", func(t *testing.T) {
		r := New(WithMaxRetries(2))
		attempts := 0
		err := r.Do(context.Background(), func(ctx context.Context, attempt int) error {
			attempts++
			return errTransient
		})
		assert.ErrorIs(t, err, errTransient)
		assert.Equal(t, 3, attempts) // 1 initial + 2 retries
	})

	t.Run("non-retryable error stops at once", func(t *testing.T) {
		permanent := errors.New("permanent")
		r := New(WithMaxRetries(5), WithRetryIf(func(err error) bool { return errors.Is(err, errTransient) }))
		attempts := 0
		err := r.Do(context.Background(), func(ctx context.Context, attempt int) error {
			attempts++
			if attempt == 1 {
				return permanent
			}
			return errTransient
		})
		assert.ErrorIs(t, err, permanent)
		assert.Equal(t, 2, attempts)
	})

	t.Run("context cancellation", func(t *testing.T) {
		r := New(WithMaxRetries(5), WithInitialInterval(100*time.Millisecond))
		ctx, cancel := context.WithCancel(context.Background())

		attempts := 0
		err := r.Do(ctx, func(ctx context.Context, attempt int) error {
			attempts++
			if attempts == 2 {
				cancel()
			}
			return errTransient
		})
		assert.ErrorIs(t, err, context.Canceled)
		assert.Equal(t, 2, attempts)
	})
}

func TestRetrier_DoWithData(t *testing.T) {
	t.Run("success returns data", func(t *testing.T) {
		r := New()
		val, err := DoWithData(r, context.Background(), func(ctx context.Context, attempt int) (string, error) {
			return "success", nil
		})
		assert.NoError(t, err)
		assert.Equal(t, "success", val)
	})

	t.Run("fail returns error", func(t *testing.T) {
		r := New(WithMaxRetries(1))
		val, err := DoWithData(r, context.Background(), func(ctx context.Context, attempt int) (string, error) {
			return "", errTransient
		})
		assert.Error(t, err)
		assert.Empty(t, val)
	})
}
