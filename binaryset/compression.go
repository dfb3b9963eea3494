package binaryset

import (
	"errors"
	"fmt"
	"sync"

	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
)

// Compression selects the algorithm applied to blob payloads in a container.
type Compression uint8

const (
	// CompressionNone stores blobs verbatim. Only uncompressed containers can be
	// decoded zero-copy.
	CompressionNone Compression = 0
	// CompressionLZ4 uses LZ4 block compression (fast).
	CompressionLZ4 Compression = 1
	// CompressionZSTD uses ZSTD (better ratio).
	CompressionZSTD Compression = 2
)

func (c Compression) String() string {
	switch c {
	case CompressionNone:
		return "none"
	case CompressionLZ4:
		return "lz4"
	case CompressionZSTD:
		return "zstd"
	default:
		return fmt.Sprintf("unknown(%d)", uint8(c))
	}
}

// ParseCompression parses a compression name ("", "none", "lz4", "zstd").
func ParseCompression(name string) (Compression, error) {
	switch name {
	case "", "none":
		return CompressionNone, nil
	case "lz4":
		return CompressionLZ4, nil
	case "zstd":
		return CompressionZSTD, nil
	default:
		return 0, fmt.Errorf("unknown compression %q", name)
	}
}

const (
	// An LZ4 sequence expands a single input byte to at most 255 output bytes.
	lz4MaxExpansion = 255

	// Every zstd block carries a 3 byte header and decodes to at most 128 KiB.
	zstdBlockHeaderSize = 3
	zstdMaxBlockSize    = 128 << 10
)

// maxRawLen returns the largest length storedLen bytes compressed with c can
// decode to. Declared lengths above it are rejected before allocating.
func maxRawLen(storedLen uint64, c Compression) uint64 {
	switch c {
	case CompressionLZ4:
		return storedLen * lz4MaxExpansion
	case CompressionZSTD:
		return storedLen / zstdBlockHeaderSize * zstdMaxBlockSize
	default:
		return storedLen
	}
}

var (
	zstdEncoderPool sync.Pool
	zstdDecoderPool sync.Pool
)

func getZstdEncoder() *zstd.Encoder {
	if v := zstdEncoderPool.Get(); v != nil {
		return v.(*zstd.Encoder)
	}
	enc, _ := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	return enc
}

func getZstdDecoder() *zstd.Decoder {
	if v := zstdDecoderPool.Get(); v != nil {
		return v.(*zstd.Decoder)
	}
	dec, _ := zstd.NewReader(nil, zstd.WithDecoderConcurrency(1), zstd.WithDecoderMaxMemory(maxBlobSize))
	return dec
}

// compress returns the compressed form of data, or data itself when
// compression does not make it smaller.
func compress(data []byte, c Compression) ([]byte, error) {
	if c == CompressionNone || len(data) == 0 {
		return data, nil
	}

	var out []byte
	switch c {
	case CompressionLZ4:
		buf := make([]byte, lz4.CompressBlockBound(len(data)))
		n, err := lz4.CompressBlock(data, buf, nil)
		if err != nil {
			return nil, err
		}
		out = buf[:n]
	case CompressionZSTD:
		enc := getZstdEncoder()
		out = enc.EncodeAll(data, nil)
		zstdEncoderPool.Put(enc)
	default:
		return nil, fmt.Errorf("unknown compression %d", c)
	}

	if len(out) == 0 || len(out) >= len(data) {
		return data, nil
	}
	return out, nil
}

func decompress(stored []byte, rawLen int, c Compression) ([]byte, error) {
	if uint64(rawLen) > maxRawLen(uint64(len(stored)), c) {
		return nil, fmt.Errorf("declared length %d exceeds what %d %s bytes can hold", rawLen, len(stored), c)
	}
	switch c {
	case CompressionLZ4:
		out := make([]byte, rawLen)
		n, err := lz4.UncompressBlock(stored, out)
		if err != nil {
			return nil, err
		}
		if n != rawLen {
			return nil, errors.New("decompressed size mismatch")
		}
		return out, nil
	case CompressionZSTD:
		var h zstd.Header
		if err := h.Decode(stored); err != nil {
			return nil, err
		}
		if h.HasFCS && h.FrameContentSize != uint64(rawLen) {
			return nil, fmt.Errorf("frame content size %d, want %d", h.FrameContentSize, rawLen)
		}
		dec := getZstdDecoder()
		defer zstdDecoderPool.Put(dec)
		decoded, err := dec.DecodeAll(stored, make([]byte, 0, rawLen))
		if err != nil {
			return nil, err
		}
		if len(decoded) != rawLen {
			return nil, errors.New("decompressed size mismatch")
		}
		return decoded, nil
	default:
		return nil, fmt.Errorf("unknown compression %d", c)
	}
}
