package ratelimit

import (
	"bytes"
	"context"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewLimiter(t *testing.T) {
	tests := map[string]struct {
		bytesPerSecond int64
		expNil         bool
		expBurst       int
	}{
		"Unlimited":      {bytesPerSecond: 0, expNil: true},
		"Negative":       {bytesPerSecond: -100, expNil: true},
		"SmallUsesFloor": {bytesPerSecond: 1000, expBurst: minBurst},
		"OneSecondBurst": {bytesPerSecond: 100 << 20, expBurst: 100 << 20},
	}

	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			limiter := NewLimiter(test.bytesPerSecond)
			if test.expNil {
				assert.Nil(t, limiter)
				return
			}
			require.NotNil(t, limiter)
			assert.Equal(t, test.bytesPerSecond, limiter.BytesPerSecond())
			assert.Equal(t, test.expBurst, limiter.Burst())
		})
	}
}

func TestReader(t *testing.T) {
	ctx := context.Background()

	t.Run("NilLimiterIsPassthrough", func(t *testing.T) {
		base := strings.NewReader("content")
		assert.Same(t, base, NewReader(ctx, base, nil))
	})

	t.Run("ContentIsIntact", func(t *testing.T) {
		content := []byte("0123456789abcdef")
		reader := NewReader(ctx, bytes.NewReader(content), NewLimiter(1<<20))

		var got bytes.Buffer
		buf := make([]byte, 4)
		for {
			n, err := reader.Read(buf)
			got.Write(buf[:n])
			if err == io.EOF {
				break
			}
			require.NoError(t, err)
		}
		assert.Equal(t, content, got.Bytes())
	})

	t.Run("ReadCappedAtBurst", func(t *testing.T) {
		limiter := NewLimiter(1000)
		reader := NewReader(ctx, bytes.NewReader(make([]byte, 1<<20)), limiter)

		n, err := reader.Read(make([]byte, 1<<20))
		require.NoError(t, err)
		assert.Equal(t, limiter.Burst(), n)
	})

	t.Run("Cancelled", func(t *testing.T) {
		cancelled, cancel := context.WithCancel(ctx)
		cancel()
		reader := NewReader(cancelled, bytes.NewReader(make([]byte, 16)), NewLimiter(1<<20))

		_, err := reader.Read(make([]byte, 16))
		assert.ErrorIs(t, err, context.Canceled)
	})

	t.Run("ExhaustedBudgetWaits", func(t *testing.T) {
		limiter := NewLimiter(minBurst)
		deadline, cancel := context.WithTimeout(ctx, 50*time.Millisecond)
		defer cancel()
		reader := NewReader(deadline, bytes.NewReader(make([]byte, 2*minBurst)), limiter)

		buf := make([]byte, minBurst)
		_, err := io.ReadFull(reader, buf)
		require.NoError(t, err)

		// Refilling the bucket takes a second, well past the deadline
		_, err = reader.Read(buf)
		assert.Error(t, err)
	})

	t.Run("ReadersShareTheBudget", func(t *testing.T) {
		limiter := NewLimiter(minBurst)
		deadline, cancel := context.WithTimeout(ctx, 50*time.Millisecond)
		defer cancel()

		var (
			wg   sync.WaitGroup
			mu   sync.Mutex
			errs []error
		)
		for i := 0; i < 2; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				reader := NewReader(deadline, bytes.NewReader(make([]byte, minBurst)), limiter)
				_, err := io.ReadFull(reader, make([]byte, minBurst))
				mu.Lock()
				errs = append(errs, err)
				mu.Unlock()
			}()
		}
		wg.Wait()

		// One full burst fits in the bucket, the second reader runs out of time
		failed := 0
		for _, err := range errs {
			if err != nil {
				failed++
			}
		}
		assert.Equal(t, 1, failed)
	})
}

func BenchmarkRateLimitedRead(b *testing.B) {
	content := make([]byte, 1<<20)
	limiter := NewLimiter(100 << 20)
	ctx := context.Background()
	buf := make([]byte, 64<<10)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		reader := NewReader(ctx, bytes.NewReader(content), limiter)
		if _, err := io.CopyBuffer(io.Discard, reader, buf); err != nil {
			b.Fatal(err)
		}
	}
}
