package loader

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/hupe1980/vecmod/index"
	"github.com/hupe1980/vecmod/index/flat"
	"github.com/hupe1980/vecmod/observability"
	"github.com/hupe1980/vecmod/plugin"
	"github.com/hupe1980/vecmod/plugin/simplevector"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testFactory struct {
	name string
}

func (f *testFactory) CreateIndex() (index.Index, error) { return flat.New(), nil }
func (f *testFactory) CreateConfig() plugin.Config       { return flat.Schema{} }
func (f *testFactory) Descriptor() plugin.Descriptor {
	return plugin.Descriptor{Name: f.name, Version: "0.1.0", APIVersion: plugin.APIVersion}
}

type testLifecycle struct {
	loads, unloads, upgrades atomic.Int32
	err                      error
}

func (l *testLifecycle) OnLoad() error   { l.loads.Add(1); return l.err }
func (l *testLifecycle) OnUnload() error { l.unloads.Add(1); return l.err }
func (l *testLifecycle) OnUpgrade(from, to uint32) error {
	l.upgrades.Add(1)
	return l.err
}

// testModule builds the exports of an in-process module and counts factory
// destruction.
type testModule struct {
	name      string
	version   uint32
	lifecycle *testLifecycle
	destroyed atomic.Int32
}

func newTestModule(name string) *testModule {
	return &testModule{name: name, version: plugin.APIVersion, lifecycle: &testLifecycle{}}
}

func (m *testModule) exports() plugin.Exports {
	return plugin.Exports{
		APIVersion:     func() uint32 { return m.version },
		CreateFactory:  func() plugin.Factory { return &testFactory{name: m.name} },
		DestroyFactory: func(plugin.Factory) { m.destroyed.Add(1) },
		Lifecycle:      func() plugin.Lifecycle { return m.lifecycle },
	}
}

// setup returns a loader over a StaticOpener and a directory containing a
// placeholder file for every module file name.
func setup(t *testing.T, modules map[string]Symbols, optFns ...Option) (*Loader, string) {
	t.Helper()
	dir := t.TempDir()
	opener := NewStaticOpener()
	for file, syms := range modules {
		opener.Add(file, syms)
		require.NoError(t, os.WriteFile(filepath.Join(dir, file), nil, 0o644))
	}
	return New(append([]Option{WithOpener(opener)}, optFns...)...), dir
}

func TestLoadOne(t *testing.T) {
	mod := newTestModule("alpha")
	l, dir := setup(t, map[string]Symbols{"alpha.so": SymbolsOf(mod.exports())})
	ctx := context.Background()

	desc, err := l.LoadOne(ctx, filepath.Join(dir, "alpha.so"))
	require.NoError(t, err)
	assert.Equal(t, "alpha", desc.Name)
	assert.Equal(t, int32(1), mod.lifecycle.loads.Load())

	f, ok := l.Factory("alpha")
	require.True(t, ok)
	assert.Equal(t, "alpha", f.Descriptor().Name)
	assert.Equal(t, []plugin.Descriptor{desc}, l.Descriptors())

	mods := l.Modules()
	require.Len(t, mods, 1)
	assert.True(t, mods[0].HasLifecycle)
	assert.NotEqual(t, [16]byte{}, [16]byte(mods[0].LoadID))
	assert.Equal(t, filepath.Join(dir, "alpha.so"), mods[0].Path)

	_, err = l.LoadOne(ctx, filepath.Join(dir, "alpha.so"))
	assert.ErrorIs(t, err, ErrAlreadyLoaded)
}

func TestLoadOne_DuplicateName(t *testing.T) {
	first, second := newTestModule("dup"), newTestModule("dup")
	l, dir := setup(t, map[string]Symbols{
		"a.so": SymbolsOf(first.exports()),
		"b.so": SymbolsOf(second.exports()),
	})
	ctx := context.Background()

	_, err := l.LoadOne(ctx, filepath.Join(dir, "a.so"))
	require.NoError(t, err)

	_, err = l.LoadOne(ctx, filepath.Join(dir, "b.so"))
	assert.ErrorIs(t, err, ErrAlreadyLoaded)
	assert.Equal(t, int32(1), second.destroyed.Load())
	assert.Equal(t, int32(1), second.lifecycle.loads.Load())
	assert.Equal(t, int32(1), second.lifecycle.unloads.Load())
	assert.Zero(t, first.lifecycle.unloads.Load())
	assert.Len(t, l.Modules(), 1)
}

func TestLoadOne_OpenFailure(t *testing.T) {
	l := New(WithOpener(OpenerFunc(func(path string) (Library, error) {
		return nil, errors.New("invalid ELF header")
	})))

	_, err := l.LoadOne(context.Background(), "/nowhere/bad.so")
	require.ErrorIs(t, err, ErrLoad)
	assert.Contains(t, err.Error(), "invalid ELF header")
	assert.Empty(t, l.Descriptors())
}

func TestLoadOne_AbiMismatch(t *testing.T) {
	mod := newTestModule("old")
	mod.version = plugin.APIVersion + 1
	l, dir := setup(t, map[string]Symbols{"old.so": SymbolsOf(mod.exports())})

	_, err := l.LoadOne(context.Background(), filepath.Join(dir, "old.so"))
	require.ErrorIs(t, err, ErrAbiMismatch)

	var abi *AbiMismatchError
	require.True(t, errors.As(err, &abi))
	assert.Equal(t, plugin.APIVersion, abi.Expected)
	assert.Equal(t, plugin.APIVersion+1, abi.Actual)

	assert.Empty(t, l.Descriptors())
	assert.Equal(t, int32(0), mod.lifecycle.loads.Load())
}

func TestLoadOne_AbiCheckedFirst(t *testing.T) {
	var created atomic.Bool
	syms := Symbols{
		plugin.SymbolAPIVersion: plugin.APIVersionFunc(func() uint32 { return 99 }),
		plugin.SymbolCreateFactory: plugin.CreateFactoryFunc(func() plugin.Factory {
			created.Store(true)
			return &testFactory{name: "x"}
		}),
	}
	l, dir := setup(t, map[string]Symbols{"x.so": syms})

	_, err := l.LoadOne(context.Background(), filepath.Join(dir, "x.so"))
	assert.ErrorIs(t, err, ErrAbiMismatch)
	assert.False(t, created.Load())
}

func TestLoadOne_MissingExports(t *testing.T) {
	mod := newTestModule("m")
	full := SymbolsOf(mod.exports())

	for _, symbol := range []string{plugin.SymbolAPIVersion, plugin.SymbolCreateFactory, plugin.SymbolDestroyFactory} {
		t.Run(symbol, func(t *testing.T) {
			syms := Symbols{}
			for k, v := range full {
				if k != symbol {
					syms[k] = v
				}
			}
			l, dir := setup(t, map[string]Symbols{"m.so": syms})

			_, err := l.LoadOne(context.Background(), filepath.Join(dir, "m.so"))
			assert.ErrorIs(t, err, ErrMissingExport)
			assert.Contains(t, err.Error(), symbol)

			_, ok := l.Factory("m")
			assert.False(t, ok)
		})
	}
}

func TestLoadOne_WrongSignature(t *testing.T) {
	mod := newTestModule("m")
	syms := SymbolsOf(mod.exports())
	syms[plugin.SymbolAPIVersion] = func() int { return 1 }

	l, dir := setup(t, map[string]Symbols{"m.so": syms})
	_, err := l.LoadOne(context.Background(), filepath.Join(dir, "m.so"))
	assert.ErrorIs(t, err, ErrMissingExport)
}

func TestLoadOne_VariableExports(t *testing.T) {
	mod := newTestModule("vars")
	e := mod.exports()
	syms := Symbols{
		plugin.SymbolAPIVersion:     &e.APIVersion,
		plugin.SymbolCreateFactory:  &e.CreateFactory,
		plugin.SymbolDestroyFactory: &e.DestroyFactory,
	}

	l, dir := setup(t, map[string]Symbols{"vars.so": syms})
	_, err := l.LoadOne(context.Background(), filepath.Join(dir, "vars.so"))
	require.NoError(t, err)
	assert.False(t, l.Modules()[0].HasLifecycle)
}

func TestLoadOne_NilFactory(t *testing.T) {
	mod := newTestModule("nil")
	e := mod.exports()
	e.CreateFactory = func() plugin.Factory { return nil }

	l, dir := setup(t, map[string]Symbols{"nil.so": SymbolsOf(e)})
	_, err := l.LoadOne(context.Background(), filepath.Join(dir, "nil.so"))
	assert.ErrorIs(t, err, ErrFactoryCreateFailed)
	assert.Empty(t, l.Descriptors())
}

func TestLoadOne_Panic(t *testing.T) {
	mod := newTestModule("boom")
	e := mod.exports()
	e.Lifecycle = func() plugin.Lifecycle { panic("corrupted module state") }

	l, dir := setup(t, map[string]Symbols{"boom.so": SymbolsOf(e)})
	_, err := l.LoadOne(context.Background(), filepath.Join(dir, "boom.so"))
	require.ErrorIs(t, err, ErrLoadException)

	var pe *PanicError
	require.True(t, errors.As(err, &pe))
	assert.Equal(t, "corrupted module state", pe.Value)
	assert.NotEmpty(t, pe.Stack)

	assert.Equal(t, int32(1), mod.destroyed.Load())
	assert.Empty(t, l.Descriptors())
}

func TestLoadOne_HookFailureIsAdvisory(t *testing.T) {
	mod := newTestModule("grumpy")
	mod.lifecycle.err = errors.New("not today")
	l, dir := setup(t, map[string]Symbols{"grumpy.so": SymbolsOf(mod.exports())})
	ctx := context.Background()

	_, err := l.LoadOne(ctx, filepath.Join(dir, "grumpy.so"))
	require.NoError(t, err)
	require.NoError(t, l.UnloadOne(ctx, "grumpy"))
	assert.Equal(t, int32(1), mod.lifecycle.unloads.Load())
}

func TestLoadDirectory(t *testing.T) {
	good, bad := newTestModule("good"), newTestModule("bad")
	bad.version = 0

	l, dir := setup(t, map[string]Symbols{
		"good.so": SymbolsOf(good.exports()),
		"bad.so":  SymbolsOf(bad.exports()),
	})
	require.NoError(t, os.WriteFile(filepath.Join(dir, "README.txt"), []byte("ignored"), 0o644))
	require.NoError(t, os.Mkdir(filepath.Join(dir, "nested.so"), 0o755))

	loaded, err := l.LoadDirectory(context.Background(), dir)
	require.NoError(t, err)
	require.Len(t, loaded, 1)
	assert.Equal(t, "good", loaded[0].Name)

	// a second scan finds nothing new
	loaded, err = l.LoadDirectory(context.Background(), dir)
	require.NoError(t, err)
	assert.Empty(t, loaded)

	_, err = l.LoadDirectory(context.Background(), filepath.Join(dir, "missing"))
	assert.Error(t, err)
}

func TestLoadDirectory_Extensions(t *testing.T) {
	mod := newTestModule("ext")
	l, dir := setup(t, map[string]Symbols{"ext.plug": SymbolsOf(mod.exports())}, WithExtensions(".plug"))

	loaded, err := l.LoadDirectory(context.Background(), dir)
	require.NoError(t, err)
	assert.Len(t, loaded, 1)
}

func TestUnloadOne(t *testing.T) {
	mod := newTestModule("alpha")
	l, dir := setup(t, map[string]Symbols{"alpha.so": SymbolsOf(mod.exports())})
	ctx := context.Background()

	_, err := l.LoadOne(ctx, filepath.Join(dir, "alpha.so"))
	require.NoError(t, err)

	require.NoError(t, l.UnloadOne(ctx, "alpha"))
	assert.ErrorIs(t, l.UnloadOne(ctx, "alpha"), ErrNotFound)

	_, ok := l.Factory("alpha")
	assert.False(t, ok)
	assert.Equal(t, int32(1), mod.destroyed.Load())
	assert.Equal(t, int32(1), mod.lifecycle.unloads.Load())

	// the path may be loaded again
	_, err = l.LoadOne(ctx, filepath.Join(dir, "alpha.so"))
	require.NoError(t, err)
}

func TestLeases(t *testing.T) {
	mod := newTestModule("pinned")
	l, dir := setup(t, map[string]Symbols{"pinned.so": SymbolsOf(mod.exports())})
	ctx := context.Background()

	_, err := l.LoadOne(ctx, filepath.Join(dir, "pinned.so"))
	require.NoError(t, err)

	lease, err := l.Acquire("pinned")
	require.NoError(t, err)
	assert.Equal(t, int64(1), l.Modules()[0].Leases)

	f, err := lease.Factory()
	require.NoError(t, err)
	assert.Equal(t, "pinned", f.Descriptor().Name)

	assert.ErrorIs(t, l.UnloadOne(ctx, "pinned"), ErrModuleInUse)
	assert.ErrorIs(t, l.UnloadAll(ctx), ErrModuleInUse)
	assert.True(t, l.IsLoaded("pinned"))

	lease.Release()
	lease.Release()
	_, err = lease.Factory()
	assert.ErrorIs(t, err, ErrLeaseReleased)

	require.NoError(t, l.UnloadOne(ctx, "pinned"))

	_, err = l.Acquire("pinned")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestUnloadAll(t *testing.T) {
	a, b := newTestModule("a"), newTestModule("b")
	obs := &observability.Basic{}
	l, dir := setup(t, map[string]Symbols{
		"a.so": SymbolsOf(a.exports()),
		"b.so": SymbolsOf(b.exports()),
	}, WithObserver(obs))
	ctx := context.Background()

	_, err := l.LoadDirectory(ctx, dir)
	require.NoError(t, err)
	require.NoError(t, l.UnloadAll(ctx))

	assert.Empty(t, l.Descriptors())
	assert.Equal(t, int32(1), a.destroyed.Load())
	assert.Equal(t, int32(1), b.destroyed.Load())

	stats := obs.Stats()
	assert.Equal(t, int64(2), stats.LoadCount)
	assert.Equal(t, int64(2), stats.UnloadCount)
	assert.Equal(t, int64(0), stats.UnloadErrors)
}

func TestUpgrade(t *testing.T) {
	mod := newTestModule("up")
	l, dir := setup(t, map[string]Symbols{"up.so": SymbolsOf(mod.exports())})
	ctx := context.Background()

	_, err := l.LoadOne(ctx, filepath.Join(dir, "up.so"))
	require.NoError(t, err)

	require.NoError(t, l.Upgrade(ctx, "up", 1, 2))
	assert.Equal(t, int32(1), mod.lifecycle.upgrades.Load())

	mod.lifecycle.err = errors.New("cannot migrate")
	assert.Error(t, l.Upgrade(ctx, "up", 2, 3))

	assert.ErrorIs(t, l.Upgrade(ctx, "nope", 1, 2), ErrNotFound)
}

func TestSimpleVectorModule(t *testing.T) {
	l, dir := setup(t, map[string]Symbols{"simplevector.so": SymbolsOf(simplevector.Exports())})
	ctx := context.Background()

	loaded, err := l.LoadDirectory(ctx, dir)
	require.NoError(t, err)
	require.Len(t, loaded, 1)
	assert.Equal(t, simplevector.Name, loaded[0].Name)

	f, ok := l.Factory(simplevector.Name)
	require.True(t, ok)
	idx, err := f.CreateIndex()
	require.NoError(t, err)
	assert.Equal(t, simplevector.Name, idx.Type())
	require.NoError(t, idx.Close())

	require.NoError(t, l.UnloadAll(ctx))
}

func TestConcurrentQueries(t *testing.T) {
	mod := newTestModule("c")
	l, dir := setup(t, map[string]Symbols{"c.so": SymbolsOf(mod.exports())})
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			_, _ = l.LoadOne(ctx, filepath.Join(dir, "c.so"))
			_ = l.UnloadOne(ctx, "c")
		}()
		go func() {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				if f, ok := l.Factory("c"); ok {
					assert.NotNil(t, f)
				}
				_ = l.Descriptors()
			}
		}()
	}
	wg.Wait()
}
