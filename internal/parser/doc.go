// Package parser turns Python source files into the lowered statement model
// used by the stub pipeline.
//
// Files are parsed with tree-sitter (github.com/smacker/go-tree-sitter) and
// never executed or imported. The concrete syntax tree is reduced to
// types.Module, which keeps only what gateway analysis reads: assignments,
// augmented assignments, and the compound statements around them.
//
// # Basic Usage
//
//	p := parser.New()
//	mod, err := p.ParseFile(ctx, "/path/to/pkg/__init__.py")
//	if errors.Is(err, parser.ErrUnparseable) {
//	    // syntax error, bad encoding, or file too large
//	}
//
//	mod.Walk(func(st types.Stmt) bool {
//	    fmt.Println(st.Kind, st.Targets)
//	    return true
//	})
//
// # Source Decoding
//
// A UTF-8 byte order mark is stripped and a PEP 263 coding declaration on
// the first or second line is honoured through golang.org/x/text. Text that
// cannot be decoded is reported as unparseable.
//
// # Error Handling
//
// A tree containing any ERROR or MISSING node is rejected as a whole. There
// are no partial results: gateway analysis over a half-parsed file could
// invent or lose exports. Every such failure is marked with ErrUnparseable so
// callers can tell it apart from I/O errors reading the file.
//
// # Concurrency
//
// A Parser is safe for concurrent use. Each call creates its own tree-sitter
// parser instance.
package parser
