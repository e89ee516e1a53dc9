package dataset

import (
	"bufio"
	"bytes"
	"io"
	"unicode/utf8"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// SanitizingReader strips a leading UTF-8 BOM and replaces invalid UTF-8
// bytes with '?' as data streams through. Spreadsheet exports from Windows
// tools routinely carry both defects.
type SanitizingReader struct {
	br         *bufio.Reader
	bomChecked bool
}

// NewSanitizingReader wraps r.
func NewSanitizingReader(r io.Reader) *SanitizingReader {
	return &SanitizingReader{br: bufio.NewReader(r)}
}

// Read implements io.Reader.
func (s *SanitizingReader) Read(p []byte) (int, error) {
	if !s.bomChecked {
		s.bomChecked = true
		head, err := s.br.Peek(len(utf8BOM))
		if err != nil && err != io.EOF {
			return 0, err
		}
		if bytes.Equal(head, utf8BOM) {
			if _, err := s.br.Discard(len(utf8BOM)); err != nil {
				return 0, err
			}
		}
	}

	n := 0
	for n < len(p) {
		b, err := s.br.ReadByte()
		if err != nil {
			if n > 0 && err == io.EOF {
				return n, nil
			}
			return n, err
		}
		if b < utf8.RuneSelf {
			p[n] = b
			n++
			continue
		}

		if err := s.br.UnreadByte(); err != nil {
			return n, err
		}
		r, size, err := s.br.ReadRune()
		if err != nil {
			return n, err
		}
		if r == utf8.RuneError && size == 1 {
			p[n] = '?'
			n++
			continue
		}
		if n+size > len(p) {
			// Put the rune back for the next call.
			if err := s.br.UnreadRune(); err != nil {
				return n, err
			}
			if n == 0 {
				// p is smaller than one rune; degrade rather than stall.
				p[0] = '?'
				_, _, _ = s.br.ReadRune()
				return 1, nil
			}
			return n, nil
		}
		utf8.EncodeRune(p[n:], r)
		n += size
	}
	return n, nil
}
