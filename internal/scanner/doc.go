// Package scanner discovers candidate gateway files below a directory.
//
// The walk is depth first in directory order. Ignore patterns prune whole
// subtrees before they are read, submodule directories are skipped, and each
// file named like the gateway must contain every configured indicator
// substring to be reported:
//
//	s, err := scanner.New(scanner.Options{
//	    Ignore:     []string{".venv", "build/"},
//	    Indicators: []string{"import_module(", "globals()"},
//	}, logger)
//	gateways := s.Scan(root)
//
// Patterns are matched against paths relative to the scan root. ScanFrom
// walks a directory below the root with the root's anchoring.
//
// Files are deduplicated by their symlink-resolved path, but a reported
// GatewayFile keeps the path it was found under, so its stub and siblings
// stay next to it.
//
// Directories that cannot be read are logged and treated as empty.
package scanner
