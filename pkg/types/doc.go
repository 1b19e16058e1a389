// Package types provides shared type definitions for gatestub.
//
// These types describe the data that flows through the stub pipeline:
//
//	scanner -> processor -> classifier -> writer
//
// # Gateways
//
// GatewayFile identifies a candidate aggregator file (by default a package's
// __init__.py) that builds its public namespace at import time:
//
//	gw := types.GatewayFile{
//	    Path:    "/repo/pkg/__init__.py",
//	    Dir:     "/repo/pkg",
//	    RelPath: "pkg/__init__.py",
//	}
//
// ModuleList is the ordered list of sibling module names a gateway aggregates,
// and SymbolSet is the set of names it ends up exporting.
//
// # Source model
//
// Module is the lowered form of a parsed Python file. It keeps only what the
// stub pipeline looks at: assignments, augmented assignments, and the control
// flow statements that end a gateway's static preamble.
//
//	mod.Walk(func(st types.Stmt) bool {
//	    if st.Kind == types.StmtAssign && st.Binds("__all__") {
//	        names := st.Value.Strings()
//	        ...
//	    }
//	    return true
//	})
//
// # Results
//
// StubResult is produced once per gateway and classified into one of three
// buckets (create, overwrite, unchanged). Buckets groups them and sorts them by
// stub path so reports are deterministic.
package types
