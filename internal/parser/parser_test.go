package parser

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshills/gatestub/pkg/types"
)

func parse(t *testing.T, src string) *types.Module {
	t.Helper()
	mod, err := New().ParseSource(context.Background(), "test.py", []byte(src))
	require.NoError(t, err)
	return mod
}

func TestNew(t *testing.T) {
	p := New()
	assert.NotNil(t, p)
	assert.NotNil(t, p.lang)
	assert.Equal(t, DefaultMaxFileSize, p.maxFileSize)

	p = New(WithMaxFileSize(1024))
	assert.Equal(t, int64(1024), p.maxFileSize)
}

func TestParseFile_Gateway(t *testing.T) {
	tmpDir := t.TempDir()
	path := filepath.Join(tmpDir, "__init__.py")
	content := `"""Package docstring."""
from importlib import import_module

modules_to_export = ["a", "b"]
VERSION = "1.0"

for name in modules_to_export:
    mod = import_module("." + name, __name__)
    globals().update({k: getattr(mod, k) for k in mod.__all__})
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	mod, err := New().ParseFile(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, path, mod.Path)
	require.Len(t, mod.Body, 5)

	assert.Equal(t, types.StmtOther, mod.Body[0].Kind)
	assert.Equal(t, types.StmtOther, mod.Body[1].Kind)

	list := mod.Body[2]
	assert.Equal(t, types.StmtAssign, list.Kind)
	assert.Equal(t, []string{"modules_to_export"}, list.Targets)
	assert.Equal(t, types.ExprList, list.Value.Kind)
	assert.Equal(t, []string{"a", "b"}, list.Value.Strings())
	assert.Equal(t, 4, list.Line)

	assert.Equal(t, types.StmtAssign, mod.Body[3].Kind)
	assert.Equal(t, "1.0", mod.Body[3].Value.Value)

	loop := mod.Body[4]
	assert.Equal(t, types.StmtLoop, loop.Kind)
	require.Len(t, loop.Body, 2)
	assert.Equal(t, []string{"mod"}, loop.Body[0].Targets)
}

func TestParseFile_Missing(t *testing.T) {
	_, err := New().ParseFile(context.Background(), filepath.Join(t.TempDir(), "nope.py"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, fs.ErrNotExist))
	assert.False(t, errors.Is(err, ErrUnparseable))
}

func TestParseFile_TooLarge(t *testing.T) {
	path := filepath.Join(t.TempDir(), "big.py")
	require.NoError(t, os.WriteFile(path, []byte("X = 1\n"), 0644))

	_, err := New(WithMaxFileSize(3)).ParseFile(context.Background(), path)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrUnparseable))
}

func TestParseSource_SyntaxError(t *testing.T) {
	tests := []struct {
		name string
		src  string
	}{
		{"unclosed list", "__all__ = ['a', 'b'\n"},
		{"bad def", "def (:\n    pass\n"},
		{"stray operator", "X = = 1\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New().ParseSource(context.Background(), "bad.py", []byte(tt.src))
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrUnparseable))
		})
	}
}

func TestParseSource_Empty(t *testing.T) {
	mod := parse(t, "")
	assert.Empty(t, mod.Body)
}

func TestParseSource_Assignments(t *testing.T) {
	mod := parse(t, `A = B = ["x"]
C: int = 3
D += ("y", "z")
obj.attr = "ignored"
e, f = 1, 2
T = "p", "q"
P = ("only")
`)
	require.Len(t, mod.Body, 7)

	chained := mod.Body[0]
	assert.Equal(t, []string{"A", "B"}, chained.Targets)
	assert.Equal(t, []string{"x"}, chained.Value.Strings())
	assert.False(t, chained.Annotated)

	annotated := mod.Body[1]
	assert.Equal(t, types.StmtAssign, annotated.Kind)
	assert.True(t, annotated.Annotated)
	assert.Equal(t, []string{"C"}, annotated.Targets)

	aug := mod.Body[2]
	assert.Equal(t, types.StmtAugAssign, aug.Kind)
	assert.Equal(t, "+=", aug.Op)
	assert.Equal(t, types.ExprTuple, aug.Value.Kind)
	assert.Equal(t, []string{"y", "z"}, aug.Value.Strings())

	assert.Equal(t, types.StmtAssign, mod.Body[3].Kind)
	assert.Empty(t, mod.Body[3].Targets)
	assert.Empty(t, mod.Body[4].Targets)

	bare := mod.Body[5]
	assert.Equal(t, types.ExprTuple, bare.Value.Kind)
	assert.Equal(t, []string{"p", "q"}, bare.Value.Strings())

	paren := mod.Body[6]
	assert.Equal(t, types.ExprString, paren.Value.Kind)
	assert.Equal(t, "only", paren.Value.Value)
}

func TestParseSource_CompoundStatements(t *testing.T) {
	mod := parse(t, `if TYPE_CHECKING:
    A = 1
elif OTHER:
    B = 2
else:
    C = 3

try:
    D = 4
except ImportError:
    E = 5
finally:
    F = 6

with ctx():
    G = 7

while False:
    H = 8

def f():
    INNER = 1

class K:
    ATTR = 1
`)
	require.Len(t, mod.Body, 6)

	assert.Equal(t, types.StmtConditional, mod.Body[0].Kind)
	assert.Equal(t, []string{"A"}, mod.Body[0].Body[0].Targets)
	assert.Len(t, mod.Body[0].Body, 3)

	assert.Equal(t, types.StmtBlock, mod.Body[1].Kind)
	assert.Len(t, mod.Body[1].Body, 3)

	assert.Equal(t, types.StmtBlock, mod.Body[2].Kind)
	assert.Len(t, mod.Body[2].Body, 1)

	assert.Equal(t, types.StmtLoop, mod.Body[3].Kind)

	assert.Equal(t, types.StmtDefinition, mod.Body[4].Kind)
	assert.Empty(t, mod.Body[4].Body)
	assert.Equal(t, types.StmtDefinition, mod.Body[5].Kind)
}

func TestParseSource_StringValues(t *testing.T) {
	mod := parse(t, `A = "plain"
B = 'single'
C = r"raw\n"
D = "esc\tape"
E = "con" "cat"
F = f"{x}"
G = b"bytes"
H = """triple"""
I = u"unicode"
`)
	values := make(map[string]types.Expr)
	for _, st := range mod.Body {
		values[st.Targets[0]] = st.Value
	}

	assert.Equal(t, "plain", values["A"].Value)
	assert.Equal(t, "single", values["B"].Value)
	assert.Equal(t, `raw\n`, values["C"].Value)
	assert.Equal(t, "esc\tape", values["D"].Value)
	assert.Equal(t, "concat", values["E"].Value)
	assert.Equal(t, types.ExprOther, values["F"].Kind)
	assert.Equal(t, types.ExprOther, values["G"].Kind)
	assert.Equal(t, "triple", values["H"].Value)
	assert.Equal(t, "unicode", values["I"].Value)
}

func TestParseSource_ListWithNonStrings(t *testing.T) {
	mod := parse(t, `__all__ = ["a", name, 3, "b", f"{c}"]`)
	require.Len(t, mod.Body, 1)
	assert.Equal(t, []string{"a", "b"}, mod.Body[0].Value.Strings())
	assert.Len(t, mod.Body[0].Value.Elts, 5)
}

func TestParseSource_Encoding(t *testing.T) {
	src := append([]byte("# -*- coding: latin-1 -*-\nNAME = '"), 0xE9)
	src = append(src, []byte("'\n")...)

	mod, err := New().ParseSource(context.Background(), "enc.py", src)
	require.NoError(t, err)
	require.Len(t, mod.Body, 1)
	assert.Equal(t, "é", mod.Body[0].Value.Value)
}

func TestParseSource_InvalidUTF8(t *testing.T) {
	src := []byte("NAME = '\xff\xfe'\n")
	_, err := New().ParseSource(context.Background(), "bad.py", src)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrUnparseable))
}

func TestParseSource_BOM(t *testing.T) {
	src := append([]byte{0xEF, 0xBB, 0xBF}, []byte("X = 'y'\n")...)
	mod, err := New().ParseSource(context.Background(), "bom.py", src)
	require.NoError(t, err)
	require.Len(t, mod.Body, 1)
	assert.Equal(t, []string{"X"}, mod.Body[0].Targets)
}

func TestModuleWalk_BreadthFirst(t *testing.T) {
	mod := parse(t, `if a:
    if b:
        __all__ = ["deep"]
__all__ = ["top"]
try:
    __all__ = ["middle"]
except Exception:
    pass
`)
	var order []string
	mod.Walk(func(st types.Stmt) bool {
		if st.Binds("__all__") {
			order = append(order, st.Value.Strings()...)
		}
		return true
	})
	assert.Equal(t, []string{"top", "middle", "deep"}, order)
}
