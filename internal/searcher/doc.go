// Package searcher answers "which gateway exports this symbol" from recorded
// run history.
//
// Lookups always target the latest run recorded for a root, so the answer
// reflects the stubs produced by the most recent scan rather than the current
// contents of the tree.
//
// # Basic Usage
//
//	s := searcher.New(store, 256)
//
//	resp, err := s.FindSymbol(ctx, "/path/to/project", "Model")
//	if err != nil {
//	    return err
//	}
//
//	for _, m := range resp.Matches {
//	    fmt.Printf("%s -> %s\n", m.InitPath, m.StubPath)
//	}
//
// # Caching
//
// Results are cached in an LRU keyed by run ID and symbol name. A new run
// gets a new ID, so stale entries simply stop being requested and age out.
package searcher
