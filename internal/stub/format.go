package stub

import (
	"fmt"
	"sort"
	"strings"
)

// Ext is the extension of generated stub files
const Ext = ".pyi"

const preamble = `"""Type stub for the dynamic gateway package %s.

Generated by gatestub from the modules this package re-exports at import time.
"""

from typing import Any

`

// Render returns the canonical stub body for names. Names are sorted here;
// duplicates are rendered once.
func Render(names []string, pkg string) string {
	sorted := dedupeSorted(names)

	var b strings.Builder
	fmt.Fprintf(&b, preamble, pkg)

	if len(sorted) == 0 {
		b.WriteString("# No symbols found\n\n__all__ = []\n")
		return b.String()
	}

	for _, name := range sorted {
		b.WriteString(name)
		b.WriteString(": Any\n")
	}
	b.WriteString("\n__all__ = [\n")
	for _, name := range sorted {
		b.WriteString("    ")
		b.WriteString(quote(name))
		b.WriteString(",\n")
	}
	b.WriteString("]\n")
	return b.String()
}

// StubPath returns the stub path for a source path
func StubPath(sourcePath string) string {
	ext := ""
	if i := strings.LastIndexByte(sourcePath, '.'); i > strings.LastIndexAny(sourcePath, `/\`) {
		ext = sourcePath[i:]
	}
	return strings.TrimSuffix(sourcePath, ext) + Ext
}

func quote(name string) string {
	r := strings.NewReplacer(`\`, `\\`, `"`, `\"`)
	return `"` + r.Replace(name) + `"`
}

func dedupeSorted(names []string) []string {
	out := make([]string, len(names))
	copy(out, names)
	sort.Strings(out)

	n := 0
	for i, name := range out {
		if i > 0 && name == out[n-1] {
			continue
		}
		out[n] = name
		n++
	}
	return out[:n]
}
