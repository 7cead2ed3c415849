package compare

import (
	"context"
	"io/fs"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sdejongh/bulkops/pkg/storage/memfs"
)

func TestHashComparator(t *testing.T) {
	ctx := context.Background()
	c := NewHashComparator(0)
	assert.Equal(t, "hash", c.Name())

	tests := map[string]struct {
		src, dst  []byte
		expResult Result
	}{
		"Identical":      {src: []byte("same content"), dst: []byte("same content"), expResult: Same},
		"Empty":          {src: nil, dst: nil, expResult: Same},
		"SizeDiffers":    {src: []byte("abc"), dst: []byte("abcd"), expResult: Different},
		"ContentDiffers": {src: []byte("abc"), dst: []byte("abd"), expResult: Different},
	}

	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			m := memfs.New()
			m.WriteFile("/src", test.src)
			m.WriteFile("/dst", test.dst)

			cmp, err := c.Compare(ctx, m, "/src", "/dst")
			require.NoError(t, err)
			assert.Equal(t, test.expResult, cmp.Result)
			if test.expResult == Same {
				assert.NoError(t, cmp.Err())
			} else {
				assert.ErrorIs(t, cmp.Err(), ErrMismatch)
			}
		})
	}

	t.Run("LargerThanBuffer", func(t *testing.T) {
		data := make([]byte, 3*4096+17)
		for i := range data {
			data[i] = byte(i)
		}
		changed := append([]byte(nil), data...)
		changed[len(changed)-1]++

		m := memfs.New()
		m.WriteFile("/src", data)
		m.WriteFile("/same", data)
		m.WriteFile("/changed", changed)

		cmp, err := c.Compare(ctx, m, "/src", "/same")
		require.NoError(t, err)
		assert.Equal(t, Same, cmp.Result)

		cmp, err = c.Compare(ctx, m, "/src", "/changed")
		require.NoError(t, err)
		assert.Equal(t, Different, cmp.Result)
		assert.Equal(t, "file hashes differ", cmp.Reason)
	})

	t.Run("ReadError", func(t *testing.T) {
		m := memfs.New()
		m.WriteFile("/src", []byte("x"))
		m.WriteFile("/dst", []byte("x"))
		m.FailOn(memfs.OpOpen, "/dst", fs.ErrPermission)

		_, err := c.Compare(ctx, m, "/src", "/dst")
		assert.ErrorIs(t, err, fs.ErrPermission)
	})

	t.Run("Cancelled", func(t *testing.T) {
		m := memfs.New()
		m.WriteFile("/src", []byte("x"))
		m.WriteFile("/dst", []byte("x"))
		cancelled, cancel := context.WithCancel(ctx)
		cancel()

		_, err := c.Compare(cancelled, m, "/src", "/dst")
		assert.ErrorIs(t, err, context.Canceled)
	})
}
