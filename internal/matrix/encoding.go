package matrix

import (
	"fmt"
	"io"
	"strings"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/htmlindex"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// DefaultEncoding is UTF-8 with a byte order mark, which spreadsheet
// applications need to detect UTF-8 in CSV files.
const DefaultEncoding = "utf-8-sig"

// LookupEncoding resolves an encoding name. "utf-8-sig" writes a BOM, "utf-8"
// does not; any other WHATWG label (windows-1252, shift_jis, utf-16le, ...) is
// accepted.
func LookupEncoding(name string) (encoding.Encoding, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", DefaultEncoding, "utf8-sig", "utf-8-bom":
		return unicode.UTF8BOM, nil
	case "utf-8", "utf8":
		return unicode.UTF8, nil
	}

	enc, err := htmlindex.Get(name)
	if err != nil {
		return nil, fmt.Errorf("unsupported encoding %q: %w", name, err)
	}
	return enc, nil
}

// decodeReader wraps r to decode from enc. A leading BOM is honored and
// stripped regardless of enc.
func decodeReader(r io.Reader, enc encoding.Encoding) io.Reader {
	return transform.NewReader(r, unicode.BOMOverride(enc.NewDecoder()))
}

// encodeWriter wraps w to encode to enc. The returned writer must be closed
// to flush buffered output.
func encodeWriter(w io.Writer, enc encoding.Encoding) io.WriteCloser {
	return transform.NewWriter(w, enc.NewEncoder())
}
