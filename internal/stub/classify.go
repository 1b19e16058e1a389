package stub

import (
	"io/fs"
	"os"
	"strings"
	"unicode/utf8"

	"github.com/cockroachdb/errors"
	"go.uber.org/zap"

	"github.com/dshills/gatestub/pkg/types"
)

// HeaderPrefix starts the optional provenance line of a stub
const HeaderPrefix = "# Path:"

// Reader looks up existing stub content. It returns an error satisfying
// errors.Is(err, fs.ErrNotExist) when there is no stub.
type Reader interface {
	ReadStub(path string) ([]byte, error)
}

// FSReader reads stubs from the local filesystem
type FSReader struct{}

// ReadStub implements Reader
func (FSReader) ReadStub(path string) ([]byte, error) {
	return os.ReadFile(path)
}

// Classifier buckets stub results against existing stubs
type Classifier struct {
	reader Reader
	logger *zap.Logger
}

// NewClassifier creates a Classifier. A nil reader reads from disk and a nil
// logger discards output.
func NewClassifier(reader Reader, logger *zap.Logger) *Classifier {
	if reader == nil {
		reader = FSReader{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Classifier{reader: reader, logger: logger}
}

// Classify sets the bucket of r, and the existing header when r overwrites a
// stub that has one
func (c *Classifier) Classify(r types.StubResult) types.StubResult {
	r.Bucket = ""
	r.ExistingHeader = ""

	data, err := c.reader.ReadStub(r.StubPath)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			r.Bucket = types.BucketCreate
			return r
		}
		c.logger.Warn("failed to read existing stub, overwriting",
			zap.String("path", r.StubPath),
			zap.Error(err))
		r.Bucket = types.BucketOverwrite
		return r
	}

	if !utf8.Valid(data) {
		c.logger.Warn("existing stub is not valid UTF-8, overwriting",
			zap.String("path", r.StubPath))
		r.Bucket = types.BucketOverwrite
		return r
	}

	header, body := SplitHeader(string(data))
	if strings.TrimSpace(body) == strings.TrimSpace(r.Body) {
		r.Bucket = types.BucketUnchanged
		return r
	}

	r.Bucket = types.BucketOverwrite
	r.ExistingHeader = header
	return r
}

// SplitHeader separates a provenance header line from the rest of a stub.
// header is "" when the first line is not a header.
func SplitHeader(text string) (header, body string) {
	if !strings.HasPrefix(text, HeaderPrefix) {
		return "", text
	}
	line, rest, found := strings.Cut(text, "\n")
	if !found {
		rest = ""
	}
	return strings.TrimRight(line, "\r"), rest
}
