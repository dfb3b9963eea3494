package binaryset

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
)

const (
	// MagicNumber identifies an encoded binary set (ASCII: "VBS1").
	MagicNumber = 0x31534256
	// Version is the current container format version.
	Version = 1

	headerSize = 12
	// upper bound for a single decoded blob
	maxBlobSize = 1 << 36
	// entry fixed part: name length, raw length, stored length, crc
	entryFixedSize = 2 + 8 + 8 + 4
)

var (
	ErrInvalidMagic       = errors.New("invalid magic number")
	ErrUnsupportedVersion = errors.New("unsupported version")
	ErrCorrupt            = errors.New("corrupt binary set")
)

type encodeOptions struct {
	compression Compression
}

// EncodeOption configures Encode.
type EncodeOption func(*encodeOptions)

// WithCompression compresses blob payloads with c.
func WithCompression(c Compression) EncodeOption {
	return func(o *encodeOptions) {
		o.compression = c
	}
}

type decodeOptions struct {
	copy bool
}

// DecodeOption configures Decode.
type DecodeOption func(*decodeOptions)

// WithCopy makes Decode copy every blob so the result does not reference the
// input buffer.
func WithCopy() DecodeOption {
	return func(o *decodeOptions) {
		o.copy = true
	}
}

// Encode writes s to w in container format. Blobs are written in key order.
//
// Layout (little endian):
//
//	header: magic u32 | version u16 | compression u8 | reserved u8 | count u32
//	blob:   name_len u16 | name | raw_len u64 | stored_len u64 | crc32(raw) u32 | stored bytes
//
// A blob whose stored length equals its raw length is stored uncompressed.
func Encode(w io.Writer, s *Set, optFns ...EncodeOption) error {
	opts := encodeOptions{compression: CompressionNone}
	for _, fn := range optFns {
		fn(&opts)
	}
	if opts.compression > CompressionZSTD {
		return fmt.Errorf("unknown compression %d", opts.compression)
	}
	if s.Len() > math.MaxUint32 {
		return fmt.Errorf("too many blobs: %d", s.Len())
	}

	bw := bufio.NewWriter(w)

	var hdr [headerSize]byte
	binary.LittleEndian.PutUint32(hdr[0:], MagicNumber)
	binary.LittleEndian.PutUint16(hdr[4:], Version)
	hdr[6] = byte(opts.compression)
	binary.LittleEndian.PutUint32(hdr[8:], uint32(s.Len()))
	if _, err := bw.Write(hdr[:]); err != nil {
		return err
	}

	for _, key := range s.Keys() {
		b, _ := s.Get(key)
		if len(key) > math.MaxUint16 {
			return fmt.Errorf("blob name too long: %d bytes", len(key))
		}

		stored, err := compress(b.Data, opts.compression)
		if err != nil {
			return fmt.Errorf("compress blob %q: %w", key, err)
		}

		var fixed [entryFixedSize]byte
		binary.LittleEndian.PutUint16(fixed[0:], uint16(len(key)))
		if _, err := bw.Write(fixed[:2]); err != nil {
			return err
		}
		if _, err := bw.WriteString(key); err != nil {
			return err
		}
		binary.LittleEndian.PutUint64(fixed[2:], uint64(len(b.Data)))
		binary.LittleEndian.PutUint64(fixed[10:], uint64(len(stored)))
		binary.LittleEndian.PutUint32(fixed[18:], Checksum(b.Data))
		if _, err := bw.Write(fixed[2:]); err != nil {
			return err
		}
		if _, err := bw.Write(stored); err != nil {
			return err
		}
	}

	return bw.Flush()
}

// Marshal encodes s into a new byte slice.
func Marshal(s *Set, optFns ...EncodeOption) ([]byte, error) {
	var buf bytes.Buffer
	if err := Encode(&buf, s, optFns...); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Decode parses a container produced by Encode.
//
// Blobs of an uncompressed container reference data directly (Owned ==
// false) unless WithCopy is given; data must then stay unchanged while the
// Set is in use. Decompressed blobs are always owned.
func Decode(data []byte, optFns ...DecodeOption) (*Set, error) {
	var opts decodeOptions
	for _, fn := range optFns {
		fn(&opts)
	}

	if len(data) < headerSize {
		return nil, fmt.Errorf("%w: header truncated", ErrCorrupt)
	}
	if magic := binary.LittleEndian.Uint32(data[0:]); magic != MagicNumber {
		return nil, fmt.Errorf("%w: got 0x%08x", ErrInvalidMagic, magic)
	}
	if v := binary.LittleEndian.Uint16(data[4:]); v != Version {
		return nil, fmt.Errorf("%w: %d", ErrUnsupportedVersion, v)
	}
	compression := Compression(data[6])
	if compression > CompressionZSTD {
		return nil, fmt.Errorf("%w: unknown compression %d", ErrCorrupt, compression)
	}
	count := binary.LittleEndian.Uint32(data[8:])

	s := New()
	off := headerSize
	for i := uint32(0); i < count; i++ {
		if len(data)-off < 2 {
			return nil, fmt.Errorf("%w: blob %d truncated", ErrCorrupt, i)
		}
		nameLen := int(binary.LittleEndian.Uint16(data[off:]))
		off += 2
		if len(data)-off < nameLen+entryFixedSize-2 {
			return nil, fmt.Errorf("%w: blob %d truncated", ErrCorrupt, i)
		}
		name := string(data[off : off+nameLen])
		off += nameLen

		rawLen := binary.LittleEndian.Uint64(data[off:])
		storedLen := binary.LittleEndian.Uint64(data[off+8:])
		sum := binary.LittleEndian.Uint32(data[off+16:])
		off += entryFixedSize - 2

		if storedLen > uint64(len(data)-off) || rawLen > maxBlobSize {
			return nil, fmt.Errorf("%w: blob %q truncated", ErrCorrupt, name)
		}
		stored := data[off : off+int(storedLen) : off+int(storedLen)]
		off += int(storedLen)

		if s.Has(name) {
			return nil, fmt.Errorf("%w: duplicate blob %q", ErrCorrupt, name)
		}

		var raw []byte
		owned := false
		if storedLen == rawLen {
			raw = stored
		} else {
			if compression == CompressionNone {
				return nil, fmt.Errorf("%w: blob %q length mismatch", ErrCorrupt, name)
			}
			var err error
			raw, err = decompress(stored, int(rawLen), compression)
			if err != nil {
				return nil, fmt.Errorf("%w: blob %q: %w", ErrCorrupt, name, err)
			}
			owned = true
		}

		if actual := Checksum(raw); actual != sum {
			return nil, &ChecksumMismatchError{Key: name, Expected: sum, Actual: actual}
		}

		switch {
		case owned:
			s.put(&Blob{Name: name, Data: raw, Owned: true})
		case opts.copy:
			s.Append(name, raw)
		default:
			s.AppendRef(name, raw)
		}
	}

	if off != len(data) {
		return nil, fmt.Errorf("%w: %d trailing bytes", ErrCorrupt, len(data)-off)
	}
	return s, nil
}

// Read decodes a container from r. The result owns all of its blobs.
func Read(r io.Reader) (*Set, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	return Decode(data)
}
