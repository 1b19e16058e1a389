package parser

import (
	"bytes"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/cockroachdb/errors"
	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/htmlindex"
	"golang.org/x/text/encoding/ianaindex"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// codingCookie matches a PEP 263 source encoding declaration
var codingCookie = regexp.MustCompile(`^[ \t\f]*#.*?coding[:=][ \t]*([-\w.]+)`)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// Python codec aliases that the IANA and WHATWG indexes spell differently
var codecAliases = map[string]string{
	"utf8":      "utf-8",
	"u8":        "utf-8",
	"utf":       "utf-8",
	"utf-8-sig": "utf-8",
	"cp65001":   "utf-8",
	"latin-1":   "iso-8859-1",
	"latin1":    "iso-8859-1",
	"l1":        "iso-8859-1",
	"iso8859-1": "iso-8859-1",
	"8859":      "iso-8859-1",
	"ascii":     "us-ascii",
	"646":       "us-ascii",
}

// Decode converts raw Python source to UTF-8 text. It strips a UTF-8 BOM and
// honours a coding declaration on line 1 or 2; without one the source must
// be valid UTF-8.
func Decode(src []byte) (string, error) {
	hasBOM := bytes.HasPrefix(src, utf8BOM)
	name := declaredEncoding(src)

	if name == "" || name == "utf-8" {
		if !utf8.Valid(src) {
			return "", errors.New("source is not valid UTF-8")
		}
		out, _, err := transform.Bytes(unicode.UTF8BOM.NewDecoder(), src)
		if err != nil {
			return "", errors.Wrap(err, "failed to strip byte order mark")
		}
		return string(out), nil
	}

	if hasBOM {
		return "", errors.Newf("byte order mark conflicts with declared encoding %q", name)
	}

	enc, err := lookupEncoding(name)
	if err != nil {
		return "", err
	}
	out, _, err := transform.Bytes(enc.NewDecoder(), src)
	if err != nil {
		return "", errors.Wrapf(err, "failed to decode source as %s", name)
	}
	if !utf8.Valid(out) {
		return "", errors.Newf("decoding as %s produced invalid text", name)
	}
	return string(out), nil
}

// declaredEncoding returns the normalized encoding named by a coding cookie,
// or "" when there is none. The second line only counts when the first line
// is blank or a comment.
func declaredEncoding(src []byte) string {
	src = bytes.TrimPrefix(src, utf8BOM)
	lines := bytes.SplitN(src, []byte("\n"), 3)

	for i, line := range lines {
		if i > 1 {
			break
		}
		if m := codingCookie.FindSubmatch(line); m != nil {
			return normalizeCodec(string(m[1]))
		}
		trimmed := bytes.TrimSpace(line)
		if len(trimmed) > 0 && trimmed[0] != '#' {
			break
		}
	}
	return ""
}

func normalizeCodec(name string) string {
	name = strings.ToLower(strings.ReplaceAll(name, "_", "-"))
	if alias, ok := codecAliases[name]; ok {
		return alias
	}
	if strings.HasPrefix(name, "utf-8-") {
		return "utf-8"
	}
	return name
}

// lookupEncoding resolves a codec name, preferring IANA names over the
// WHATWG index (which folds latin-1 into windows-1252).
func lookupEncoding(name string) (encoding.Encoding, error) {
	if enc, err := ianaindex.IANA.Encoding(name); err == nil && enc != nil {
		return enc, nil
	}
	if enc, err := htmlindex.Get(name); err == nil {
		return enc, nil
	}
	return nil, errors.Newf("unknown source encoding %q", name)
}
