// Package storage provides SQLite-based persistence for stub run history.
//
// Every gatestub run over a root can be recorded: when it ran, how many
// stubs landed in each bucket, whether the changes were applied, and for
// each stub the gateway it describes, a SHA-256 of its body and the symbol
// names it exports. The history backs `gatestub history`, `gatestub which`
// and the MCP status and lookup tools.
//
// # Database Schema
//
// Tables:
//   - runs: one row per recorded run of a root
//   - stubs: one row per stub result of a run
//   - stub_symbols: exported names of each stub (indexed by name)
//   - schema_version: applied migrations
//
// # Basic Usage
//
//	db, err := storage.NewSQLiteStorage("~/.gatestub/history.db")
//	if err != nil {
//	    return err
//	}
//	defer db.Close()
//
//	run, err := storage.RecordRun(ctx, db, root, report.StartedAt, report.FinishedAt, buckets, applied)
//	stubs, err := db.FindStubsBySymbol(ctx, run.ID, "Model")
//
// # Build Modes
//
// The default build uses the pure Go driver (modernc.org/sqlite). Building
// with the sqlite_cgo tag switches to github.com/mattn/go-sqlite3:
//
//	CGO_ENABLED=1 go build -tags sqlite_cgo ./...
//
// # Migrations
//
// Schema changes are applied in semantic version order on open; see
// ApplyMigrations.
package storage
