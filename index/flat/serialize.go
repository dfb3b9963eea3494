package flat

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/hupe1980/vecmod/binaryset"
	"github.com/hupe1980/vecmod/codec"
	"github.com/hupe1980/vecmod/distance"
	"github.com/hupe1980/vecmod/index"
)

// Blob keys written by Serialize.
const (
	MetaKey    = "meta"
	VectorsKey = "vectors"

	formatVersion = 1
)

type meta struct {
	Codec      string `json:"codec,omitempty"`
	NumVectors int64  `json:"num_vectors"`
	Dim        int64  `json:"dim"`
	MetricType string `json:"metric_type"`
	Version    int    `json:"version"`
}

// Serialize writes the index state into a new binary set.
func (f *Flat) Serialize(index.Config) (*binaryset.Set, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if !f.built {
		return nil, index.ErrNotBuilt
	}

	m, err := f.opts.Codec.Marshal(meta{
		Codec:      f.opts.Codec.Name(),
		NumVectors: int64(f.count),
		Dim:        int64(f.dim),
		MetricType: f.metric.String(),
		Version:    formatVersion,
	})
	if err != nil {
		return nil, fmt.Errorf("encode meta: %w", err)
	}

	set := binaryset.New()
	set.Append(MetaKey, m)
	if f.count > 0 {
		set.Append(VectorsKey, encodeFloats(f.vectors))
	}
	return set, nil
}

// Deserialize replaces the index state with the contents of set.
// The vectors are copied, so set may reference a memory mapping.
func (f *Flat) Deserialize(set *binaryset.Set, _ index.Config) error {
	if set == nil {
		return fmt.Errorf("%w: nil binary set", index.ErrInvalidArgument)
	}

	mb, ok := set.Get(MetaKey)
	if !ok {
		return &index.MissingBlobError{Key: MetaKey}
	}
	m, err := decodeMeta(mb.Data)
	if err != nil {
		return err
	}
	if m.NumVectors < 0 || m.Dim < 0 || m.Dim > MaxDim || (m.NumVectors > 0 && m.Dim == 0) {
		return fmt.Errorf("%w: invalid meta shape count=%d dim=%d", index.ErrInvalidArgument, m.NumVectors, m.Dim)
	}
	metric, err := distance.ParseMetric(m.MetricType)
	if err != nil {
		return fmt.Errorf("%w: %w", index.ErrInvalidArgument, err)
	}
	score, err := distance.Score(metric)
	if err != nil {
		return fmt.Errorf("%w: %w", index.ErrInvalidArgument, err)
	}

	var vectors []float32
	if m.NumVectors > 0 {
		vb, ok := set.Get(VectorsKey)
		if !ok {
			return &index.MissingBlobError{Key: VectorsKey}
		}
		// Compare by division: count x dim x 4 may overflow for a hostile count.
		rowBytes := m.Dim * 4
		if n := int64(len(vb.Data)); n%rowBytes != 0 || n/rowBytes != m.NumVectors {
			return fmt.Errorf("%w: vectors blob has %d bytes, want %d rows of %d", index.ErrInvalidArgument, n, m.NumVectors, rowBytes)
		}
		vectors = decodeFloats(vb.Data)
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	f.vectors = vectors
	f.count = int(m.NumVectors)
	f.dim = int(m.Dim)
	f.metric = metric
	f.score = score
	f.built = true
	return nil
}

// decodeMeta reads the codec name with the default codec, then decodes the
// record with the codec that wrote it. Blobs without a name predate it and
// use the default.
func decodeMeta(data []byte) (meta, error) {
	var head struct {
		Codec string `json:"codec"`
	}
	if err := codec.Default.Unmarshal(data, &head); err != nil {
		return meta{}, fmt.Errorf("%w: decode meta: %w", index.ErrInvalidArgument, err)
	}

	c := codec.Default
	if head.Codec != "" {
		var ok bool
		if c, ok = codec.ByName(head.Codec); !ok {
			return meta{}, fmt.Errorf("%w: unknown meta codec %q", index.ErrInvalidArgument, head.Codec)
		}
	}

	var m meta
	if err := c.Unmarshal(data, &m); err != nil {
		return meta{}, fmt.Errorf("%w: decode meta: %w", index.ErrInvalidArgument, err)
	}
	return m, nil
}

func encodeFloats(v []float32) []byte {
	out := make([]byte, len(v)*4)
	for i, x := range v {
		binary.LittleEndian.PutUint32(out[i*4:], math.Float32bits(x))
	}
	return out
}

func decodeFloats(b []byte) []float32 {
	out := make([]float32, len(b)/4)
	for i := range out {
		out[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[i*4:]))
	}
	return out
}
