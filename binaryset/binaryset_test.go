package binaryset

import (
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/hupe1980/vecmod/blobstore"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSet_AppendOwnership(t *testing.T) {
	s := New()

	buf := []byte{1, 2, 3}
	s.Append("owned", buf)
	s.AppendRef("ref", buf)
	buf[0] = 9

	owned, ok := s.Get("owned")
	require.True(t, ok)
	assert.True(t, owned.Owned)
	assert.Equal(t, []byte{1, 2, 3}, owned.Data)

	ref, ok := s.Get("ref")
	require.True(t, ok)
	assert.False(t, ref.Owned)
	assert.Equal(t, []byte{9, 2, 3}, ref.Data)

	assert.Equal(t, []string{"owned", "ref"}, s.Keys())
	assert.Equal(t, 2, s.Len())
	assert.Equal(t, int64(6), s.Size())
}

func TestSet_ReplaceAndRemove(t *testing.T) {
	s := New()
	s.Append("a", []byte("one"))
	s.Append("a", []byte("three"))

	b, ok := s.Get("a")
	require.True(t, ok)
	assert.Equal(t, "three", string(b.Data))
	assert.Equal(t, 1, s.Len())

	s.Remove("a")
	assert.False(t, s.Has("a"))
	_, ok = s.Get("a")
	assert.False(t, ok)
}

func TestSet_Clone(t *testing.T) {
	buf := []byte("shared")
	s := New()
	s.AppendRef("x", buf)

	c := s.Clone()
	buf[0] = 'S'

	b, _ := c.Get("x")
	assert.True(t, b.Owned)
	assert.Equal(t, "shared", string(b.Data))
}

func sampleSet() *Set {
	s := New()
	s.Append("meta", []byte(`{"num_vectors":3,"dim":2,"metric_type":"L2"}`))
	s.Append("vectors", bytes.Repeat([]byte{0, 0, 128, 63}, 512))
	s.Append("empty", nil)
	return s
}

func TestEncodeDecode(t *testing.T) {
	for _, c := range []Compression{CompressionNone, CompressionLZ4, CompressionZSTD} {
		t.Run(c.String(), func(t *testing.T) {
			in := sampleSet()

			data, err := Marshal(in, WithCompression(c))
			require.NoError(t, err)

			out, err := Decode(data)
			require.NoError(t, err)
			require.Equal(t, in.Keys(), out.Keys())

			for _, k := range in.Keys() {
				want, _ := in.Get(k)
				got, _ := out.Get(k)
				assert.Equal(t, len(want.Data), len(got.Data), k)
				assert.True(t, bytes.Equal(want.Data, got.Data), k)
			}
		})
	}
}

func TestEncode_CompressionShrinks(t *testing.T) {
	s := sampleSet()

	raw, err := Marshal(s)
	require.NoError(t, err)
	packed, err := Marshal(s, WithCompression(CompressionZSTD))
	require.NoError(t, err)

	assert.Less(t, len(packed), len(raw))
}

func TestDecode_ZeroCopy(t *testing.T) {
	data, err := Marshal(sampleSet())
	require.NoError(t, err)

	ref, err := Decode(data)
	require.NoError(t, err)
	b, _ := ref.Get("meta")
	assert.False(t, b.Owned)

	cp, err := Decode(data, WithCopy())
	require.NoError(t, err)
	b, _ = cp.Get("meta")
	assert.True(t, b.Owned)
}

func TestDecode_Errors(t *testing.T) {
	data, err := Marshal(sampleSet())
	require.NoError(t, err)

	t.Run("BadMagic", func(t *testing.T) {
		bad := bytes.Clone(data)
		bad[0] = 'X'
		_, err := Decode(bad)
		assert.ErrorIs(t, err, ErrInvalidMagic)
	})

	t.Run("BadVersion", func(t *testing.T) {
		bad := bytes.Clone(data)
		bad[4] = 99
		_, err := Decode(bad)
		assert.ErrorIs(t, err, ErrUnsupportedVersion)
	})

	t.Run("Truncated", func(t *testing.T) {
		_, err := Decode(data[:len(data)-3])
		assert.ErrorIs(t, err, ErrCorrupt)

		_, err = Decode(data[:5])
		assert.ErrorIs(t, err, ErrCorrupt)
	})

	t.Run("TrailingBytes", func(t *testing.T) {
		_, err := Decode(append(bytes.Clone(data), 0))
		assert.ErrorIs(t, err, ErrCorrupt)
	})

	t.Run("Checksum", func(t *testing.T) {
		bad := bytes.Clone(data)
		bad[len(bad)-1] ^= 0xFF
		_, err := Decode(bad)

		var mismatch *ChecksumMismatchError
		require.True(t, errors.As(err, &mismatch))
		assert.Equal(t, "vectors", mismatch.Key)
		assert.ErrorIs(t, err, ErrCorrupt)
	})
}

// container builds a one-blob container with the given declared lengths.
func container(c Compression, rawLen uint64, stored []byte) []byte {
	buf := make([]byte, headerSize, headerSize+entryFixedSize+1+len(stored))
	binary.LittleEndian.PutUint32(buf[0:], MagicNumber)
	binary.LittleEndian.PutUint16(buf[4:], Version)
	buf[6] = byte(c)
	binary.LittleEndian.PutUint32(buf[8:], 1)

	buf = binary.LittleEndian.AppendUint16(buf, 1)
	buf = append(buf, 'v')
	buf = binary.LittleEndian.AppendUint64(buf, rawLen)
	buf = binary.LittleEndian.AppendUint64(buf, uint64(len(stored)))
	buf = binary.LittleEndian.AppendUint32(buf, 0)
	return append(buf, stored...)
}

func TestDecode_OversizedRawLength(t *testing.T) {
	for _, c := range []Compression{CompressionLZ4, CompressionZSTD} {
		t.Run(c.String(), func(t *testing.T) {
			data := container(c, 1<<30, []byte{0x28, 0xb5, 0x2f, 0xfd, 0, 0, 0})

			var before, after runtime.MemStats
			runtime.ReadMemStats(&before)
			_, err := Decode(data)
			runtime.ReadMemStats(&after)

			assert.ErrorIs(t, err, ErrCorrupt)
			assert.Less(t, after.TotalAlloc-before.TotalAlloc, uint64(1<<20))
		})
	}
}

func TestDecode_HighlyCompressible(t *testing.T) {
	s := New()
	s.Append("zeros", make([]byte, 1<<20))

	for _, c := range []Compression{CompressionLZ4, CompressionZSTD} {
		t.Run(c.String(), func(t *testing.T) {
			data, err := Marshal(s, WithCompression(c))
			require.NoError(t, err)
			require.Less(t, len(data), 1<<16)

			out, err := Decode(data)
			require.NoError(t, err)
			b, ok := out.Get("zeros")
			require.True(t, ok)
			assert.Len(t, b.Data, 1<<20)
		})
	}
}

func TestRead(t *testing.T) {
	data, err := Marshal(sampleSet(), WithCompression(CompressionLZ4))
	require.NoError(t, err)

	s, err := Read(bytes.NewReader(data))
	require.NoError(t, err)
	assert.Equal(t, []string{"empty", "meta", "vectors"}, s.Keys())
}

func TestParseCompression(t *testing.T) {
	for name, want := range map[string]Compression{"": CompressionNone, "none": CompressionNone, "lz4": CompressionLZ4, "zstd": CompressionZSTD} {
		got, err := ParseCompression(name)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}
	_, err := ParseCompression("brotli")
	assert.Error(t, err)
}

func TestOpenFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "set.vbs")
	require.NoError(t, WriteFile(path, sampleSet()))

	m, err := OpenFile(path)
	require.NoError(t, err)

	b, ok := m.Get("meta")
	require.True(t, ok)
	assert.False(t, b.Owned)
	assert.Contains(t, string(b.Data), `"dim":2`)

	// Owned copies survive the mapping.
	c := m.Clone()
	require.NoError(t, m.Close())

	b, ok = c.Get("meta")
	require.True(t, ok)
	assert.Contains(t, string(b.Data), `"dim":2`)
}

func TestSaveLoad(t *testing.T) {
	ctx := context.Background()
	store := blobstore.NewMemoryStore()

	require.NoError(t, Save(ctx, store, "idx.vbs", sampleSet(), WithCompression(CompressionZSTD)))

	s, err := Load(ctx, store, "idx.vbs")
	require.NoError(t, err)
	assert.Equal(t, 3, s.Len())

	_, err = Load(ctx, store, "missing.vbs")
	assert.ErrorIs(t, err, blobstore.ErrNotFound)
}
