package notation

import (
	"fmt"
	"strings"

	"golang.org/x/text/encoding/japanese"
	"golang.org/x/text/transform"
)

const (
	EncodingUTF8     = "utf8"
	EncodingShiftJIS = "sjis"
)

// Encode prepares a KIF transcript for download and returns the charset label
// for Content-Type. The sjis form also switches to CRLF line endings.
func Encode(kif, encoding string) ([]byte, string, error) {
	switch strings.ToLower(strings.TrimSpace(encoding)) {
	case "", EncodingUTF8, "utf-8":
		return []byte(kif + "\n"), "utf-8", nil
	case EncodingShiftJIS, "shift_jis", "shift-jis":
		text := strings.ReplaceAll(kif, "\n", "\r\n") + "\r\n"
		out, _, err := transform.Bytes(japanese.ShiftJIS.NewEncoder(), []byte(text))
		if err != nil {
			return nil, "", fmt.Errorf("encode kif as shift_jis: %w", err)
		}
		return out, "Shift_JIS", nil
	default:
		return nil, "", fmt.Errorf("unsupported kif encoding %q", encoding)
	}
}
