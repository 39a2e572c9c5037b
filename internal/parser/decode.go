package parser

import (
	"bytes"
	"fmt"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"
)

// Encoding is a candidate text encoding for a history file.
type Encoding string

const (
	EncodingUTF8   Encoding = "utf-8"
	EncodingCP1252 Encoding = "cp1252"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// Decode converts raw file bytes to text, trying each encoding in order.
// The result has no byte-order mark and uses \n line endings.
func Decode(raw []byte, encodings []Encoding) (string, Encoding, error) {
	raw = bytes.TrimPrefix(raw, utf8BOM)
	for _, enc := range encodings {
		var text string
		switch enc {
		case EncodingUTF8:
			if !utf8.Valid(raw) {
				continue
			}
			text = string(raw)
		case EncodingCP1252:
			out, err := charmap.Windows1252.NewDecoder().Bytes(raw)
			if err != nil {
				continue
			}
			text = string(out)
		default:
			return "", "", fmt.Errorf("unsupported encoding %q", enc)
		}
		return normalizeNewlines(text), enc, nil
	}
	return "", "", fmt.Errorf("%w: no candidate encoding decodes the file", ErrUnrecognizedFormat)
}

func normalizeNewlines(s string) string {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	return strings.ReplaceAll(s, "\r", "\n")
}
