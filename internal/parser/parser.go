package parser

import (
	"context"
	"os"

	"github.com/cockroachdb/errors"
	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/python"

	"github.com/dshills/gatestub/pkg/types"
)

// DefaultMaxFileSize is the largest file the parser accepts (10MB)
const DefaultMaxFileSize int64 = 10 * 1024 * 1024

// ErrUnparseable marks source that cannot be turned into a module: syntax
// errors, undecodable text, or files over the size limit.
var ErrUnparseable = errors.New("unparseable source")

// Parser parses Python source files into types.Module
type Parser struct {
	lang        *sitter.Language
	maxFileSize int64
}

// Option configures a Parser
type Option func(*Parser)

// WithMaxFileSize sets the maximum file size the parser will accept
func WithMaxFileSize(bytes int64) Option {
	return func(p *Parser) {
		if bytes > 0 {
			p.maxFileSize = bytes
		}
	}
}

// New creates a new Parser instance
func New(opts ...Option) *Parser {
	p := &Parser{
		lang:        python.GetLanguage(),
		maxFileSize: DefaultMaxFileSize,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// ParseFile reads and parses the file at path. Read failures are returned as
// is (os.IsNotExist works on them); everything else is marked ErrUnparseable.
func (p *Parser) ParseFile(ctx context.Context, path string) (*types.Module, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, errors.Wrap(err, "failed to stat file")
	}
	if info.Size() > p.maxFileSize {
		return nil, errors.Mark(
			errors.Newf("file size %d exceeds limit %d", info.Size(), p.maxFileSize),
			ErrUnparseable,
		)
	}

	content, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read file")
	}
	return p.ParseSource(ctx, path, content)
}

// ParseSource parses raw file content. path is only recorded on the module.
func (p *Parser) ParseSource(ctx context.Context, path string, content []byte) (*types.Module, error) {
	if int64(len(content)) > p.maxFileSize {
		return nil, errors.Mark(
			errors.Newf("size %d exceeds limit %d", len(content), p.maxFileSize),
			ErrUnparseable,
		)
	}

	text, err := Decode(content)
	if err != nil {
		return nil, errors.Mark(err, ErrUnparseable)
	}
	src := []byte(text)

	// New instance per call: sitter.Parser is not safe for concurrent use
	sp := sitter.NewParser()
	sp.SetLanguage(p.lang)

	tree, err := sp.ParseCtx(ctx, nil, src)
	if err != nil {
		return nil, errors.Wrap(err, "tree-sitter parse failed")
	}
	defer tree.Close()

	root := tree.RootNode()
	if root == nil {
		return nil, errors.Mark(errors.New("empty syntax tree"), ErrUnparseable)
	}
	if root.HasError() {
		line := firstErrorLine(root)
		return nil, errors.Mark(errors.Newf("syntax error near line %d", line), ErrUnparseable)
	}

	return &types.Module{
		Path: path,
		Body: lowerBlock(root, src),
	}, nil
}

// firstErrorLine returns the 1-based line of the first ERROR or MISSING node
func firstErrorLine(n *sitter.Node) int {
	if n.Type() == "ERROR" || n.IsMissing() {
		return int(n.StartPoint().Row) + 1
	}
	for i := 0; i < int(n.ChildCount()); i++ {
		child := n.Child(i)
		if child == nil || (!child.HasError() && !child.IsMissing()) {
			continue
		}
		return firstErrorLine(child)
	}
	return int(n.StartPoint().Row) + 1
}
