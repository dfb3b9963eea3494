package vecmod

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/hupe1980/vecmod/binaryset"
	"github.com/hupe1980/vecmod/blobstore"
	"github.com/hupe1980/vecmod/dataset"
	"github.com/hupe1980/vecmod/index"
	"github.com/hupe1980/vecmod/index/flat"
	"github.com/hupe1980/vecmod/loader"
	"github.com/hupe1980/vecmod/observability"
	"github.com/hupe1980/vecmod/plugin/simplevector"
	"github.com/hupe1980/vecmod/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRuntime(t *testing.T, optFns ...Option) (*Runtime, string) {
	t.Helper()
	dir := t.TempDir()
	opener := loader.NewStaticOpener()
	opener.AddExports("simplevector.so", simplevector.Exports())
	require.NoError(t, os.WriteFile(filepath.Join(dir, "simplevector.so"), nil, 0o644))

	reg := index.NewRegistry()
	require.NoError(t, reg.Register(flat.TypeName, func() (index.Index, error) { return flat.New(), nil }, flat.Features().Capabilities()))

	optFns = append([]Option{
		WithRegistry(reg),
		WithLoaderOptions(loader.WithOpener(opener)),
	}, optFns...)
	return New(optFns...), dir
}

func TestRuntime_BuiltinAndModuleTypes(t *testing.T) {
	obs := &observability.Basic{}
	rt, dir := newRuntime(t, WithObserver(obs))
	ctx := context.Background()

	require.NoError(t, rt.Initialize(ctx, dir))
	assert.Equal(t, []string{"FLAT", "PLUGIN_SimpleVector"}, rt.Types())

	data := dataset.FromVectors(3, 2, []float32{0, 0, 1, 0, 5, 5})
	for _, typeName := range rt.Types() {
		t.Run(typeName, func(t *testing.T) {
			idx, err := rt.Create(typeName)
			require.NoError(t, err)
			defer idx.Close()

			require.NoError(t, idx.Build(ctx, data, index.Config{index.KeyDim: 2}))
			res, err := idx.Search(ctx, dataset.FromVectors(1, 2, []float32{0, 0}), index.Config{index.KeyK: 2}, nil)
			require.NoError(t, err)
			assert.Equal(t, []int64{0, 1}, res.IDs)
			assert.Equal(t, []float32{0, 1}, res.Distances)
		})
	}

	stats := obs.Stats()
	assert.Equal(t, int64(1), stats.LoadCount)
	assert.Equal(t, int64(1), stats.RegisterCount)

	require.NoError(t, rt.Close(ctx))
	assert.Empty(t, rt.Loader().Descriptors())
}

func TestRuntime_UnknownType(t *testing.T) {
	rt, _ := newRuntime(t)
	_, err := rt.Create("HNSW_GPU")
	require.ErrorIs(t, err, index.ErrInvalidArgument)
	assert.Contains(t, err.Error(), "HNSW_GPU")
}

func TestRuntime_SaveLoad(t *testing.T) {
	for _, c := range []binaryset.Compression{binaryset.CompressionNone, binaryset.CompressionLZ4, binaryset.CompressionZSTD} {
		t.Run(c.String(), func(t *testing.T) {
			rt, _ := newRuntime(t, WithCompression(c))
			ctx := context.Background()
			store := blobstore.NewLocalStore(t.TempDir())

			rng := testutil.NewRNG(5)
			data := rng.DataSet(40, 4)

			idx, err := rt.Create(flat.TypeName)
			require.NoError(t, err)
			require.NoError(t, idx.Build(ctx, data, nil))
			require.NoError(t, rt.Save(ctx, store, "idx/flat.bin", idx))

			loaded, err := rt.Load(ctx, store, "idx/flat.bin", flat.TypeName, nil)
			require.NoError(t, err)
			assert.Equal(t, int64(40), loaded.Count())
			assert.Equal(t, int64(4), loaded.Dim())

			queries := rng.DataSet(3, 4)
			want, err := idx.Search(ctx, queries, nil, nil)
			require.NoError(t, err)
			got, err := loaded.Search(ctx, queries, nil, nil)
			require.NoError(t, err)
			assert.Equal(t, want.IDs, got.IDs)
			assert.Equal(t, want.Distances, got.Distances)
		})
	}
}

func TestRuntime_LoadErrors(t *testing.T) {
	rt, _ := newRuntime(t)
	ctx := context.Background()
	store := blobstore.NewMemoryStore()

	_, err := rt.Load(ctx, store, "missing", flat.TypeName, nil)
	assert.ErrorIs(t, err, blobstore.ErrNotFound)

	set := binaryset.New()
	set.Append("vectors", []byte{0, 0, 0, 0})
	require.NoError(t, binaryset.Save(ctx, store, "nometa", set))

	_, err = rt.Load(ctx, store, "nometa", flat.TypeName, nil)
	var mb *index.MissingBlobError
	assert.ErrorAs(t, err, &mb)
}

func TestRuntime_SaveUnbuilt(t *testing.T) {
	rt, _ := newRuntime(t)
	idx, err := rt.Create(flat.TypeName)
	require.NoError(t, err)

	err = rt.Save(context.Background(), blobstore.NewMemoryStore(), "x", idx)
	assert.ErrorIs(t, err, index.ErrNotBuilt)
}

func TestRuntime_Closed(t *testing.T) {
	rt, dir := newRuntime(t)
	ctx := context.Background()

	require.NoError(t, rt.Close(ctx))
	require.NoError(t, rt.Close(ctx))

	_, err := rt.Create(flat.TypeName)
	assert.ErrorIs(t, err, ErrClosed)
	assert.ErrorIs(t, rt.Initialize(ctx, dir), ErrClosed)
}

func TestDefault(t *testing.T) {
	rt := Default()
	assert.Same(t, rt, Default())
	assert.Contains(t, rt.Types(), flat.TypeName)
	require.NoError(t, Shutdown(context.Background()))
}
