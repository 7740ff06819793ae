package watchlist

import (
	"bytes"
	"strconv"
	"strings"

	"github.com/halcyonpay/amlscreen/internal/fetcher"
)

// decodeXML unmarshals a feed document, retrying once on a sanitized copy
// when the first pass fails. Several feeds intermittently ship a BOM or
// control bytes the XML decoder rejects.
func decodeXML(data []byte, v any) error {
	if err := fetcher.NewXMLDecoder(bytes.NewReader(data)).Decode(v); err == nil {
		return nil
	}
	return fetcher.NewXMLDecoder(bytes.NewReader(fetcher.SanitizeXML(data))).Decode(v)
}

// joinClean joins the non-blank values with sep, trimming each.
func joinClean(values []string, sep string) string {
	var out []string
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return strings.Join(out, sep)
}

// atoiSafe parses a decimal integer, returning 0 for anything unparseable
// or negative.
func atoiSafe(s string) int {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil || n < 0 {
		return 0
	}
	return n
}
