// Package vecmod hosts vector index implementations, both built in and
// loaded at run time from modules.
//
// # Quick Start
//
//	rt := vecmod.New(vecmod.WithLogger(logging.NewText(slog.LevelInfo)))
//	defer rt.Close(ctx)
//
//	// load every module in ./plugins and expose it as PLUGIN_<name>
//	_ = rt.Initialize(ctx, "./plugins")
//
//	idx, _ := rt.Create("FLAT")
//	_ = idx.Build(ctx, dataset.FromVectors(n, dim, data), index.Config{"metric_type": "L2"})
//	res, _ := idx.Search(ctx, queries, index.Config{"k": 10}, nil)
//
// # Persistence
//
// Index state travels as a binary set, a container of named blobs stored
// through a blobstore.Store:
//
//	store := blobstore.NewLocalStore("./data")
//	_ = rt.Save(ctx, store, "products.idx", idx)
//	idx2, _ := rt.Load(ctx, store, "products.idx", "FLAT", nil)
//
// # Modules
//
// A module is a Go plugin exporting the entry points described in package
// plugin. See cmd/simplevector-plugin for a complete example.
package vecmod
