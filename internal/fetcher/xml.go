package fetcher

import (
	"bytes"
	"context"
	"encoding/xml"
	"io"

	"github.com/rotisserie/eris"
	"golang.org/x/text/encoding/htmlindex"
)

// StreamXML decodes XML elements matching the given local name and sends
// them to a channel. The type parameter T must be a struct with appropriate
// xml tags. Both channels are closed when processing completes.
func StreamXML[T any](ctx context.Context, r io.Reader, elementName string) (<-chan T, <-chan error) {
	outCh := make(chan T, 64)
	errCh := make(chan error, 1)

	go func() {
		defer close(outCh)
		defer close(errCh)

		decoder := NewXMLDecoder(r)

		for {
			if ctx.Err() != nil {
				errCh <- eris.Wrap(ctx.Err(), "fetcher: xml context cancelled")
				return
			}

			tok, err := decoder.Token()
			if err == io.EOF {
				return
			}
			if err != nil {
				errCh <- eris.Wrap(err, "fetcher: xml read token")
				return
			}

			se, ok := tok.(xml.StartElement)
			if !ok {
				continue
			}

			if se.Name.Local != elementName {
				continue
			}

			var item T
			if err := decoder.DecodeElement(&item, &se); err != nil {
				errCh <- eris.Wrap(err, "fetcher: xml decode element")
				return
			}

			select {
			case outCh <- item:
			case <-ctx.Done():
				errCh <- eris.Wrap(ctx.Err(), "fetcher: xml context cancelled")
				return
			}
		}
	}()

	return outCh, errCh
}

// NewXMLDecoder returns a decoder that understands the charsets the feeds
// declare (some publish ISO-8859-1 or windows-1252 headers).
func NewXMLDecoder(r io.Reader) *xml.Decoder {
	decoder := xml.NewDecoder(r)
	decoder.CharsetReader = func(charset string, input io.Reader) (io.Reader, error) {
		enc, err := htmlindex.Get(charset)
		if err != nil {
			return nil, eris.Wrapf(err, "fetcher: unsupported charset %q", charset)
		}
		return enc.NewDecoder().Reader(input), nil
	}
	return decoder
}

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// SanitizeXML strips a UTF-8 byte order mark and the control bytes that are
// illegal in XML 1.0 (everything below 0x20 except tab, LF and CR). Feeds
// occasionally ship such bytes and the decoder rejects the document; callers
// retry extraction once on the sanitized copy.
func SanitizeXML(data []byte) []byte {
	data = bytes.TrimPrefix(data, utf8BOM)

	clean := make([]byte, 0, len(data))
	for _, b := range data {
		if b < 0x20 && b != '\t' && b != '\n' && b != '\r' {
			continue
		}
		clean = append(clean, b)
	}
	return clean
}
