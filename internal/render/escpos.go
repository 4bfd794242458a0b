package render

import (
	"bytes"
	"strings"
	"unicode/utf8"
)

// ESC/POS control bytes
const (
	esc = 0x1B
	gs  = 0x1D
	lf  = 0x0A
)

const (
	alignLeft   = 0
	alignCenter = 1
)

// escposDocument accumulates an ESC/POS byte stream for a fixed character width
type escposDocument struct {
	buf   bytes.Buffer
	width int
}

func newESCPOSDocument(width int) *escposDocument {
	d := &escposDocument{width: width}
	d.buf.Write([]byte{esc, '@'})
	return d
}

func (d *escposDocument) align(a byte) *escposDocument {
	d.buf.Write([]byte{esc, 'a', a})
	return d
}

func (d *escposDocument) bold(on bool) *escposDocument {
	var b byte
	if on {
		b = 1
	}
	d.buf.Write([]byte{esc, 'E', b})
	return d
}

func (d *escposDocument) text(s string) *escposDocument {
	for _, line := range wrap(toASCII(s), d.width) {
		d.buf.WriteString(line)
		d.buf.WriteByte(lf)
	}
	return d
}

func (d *escposDocument) separator(char byte) *escposDocument {
	d.buf.Write(bytes.Repeat([]byte{char}, d.width))
	d.buf.WriteByte(lf)
	return d
}

// keyValue prints key on the left and value flush right. A key too long for the
// line is truncated so the value always fits.
func (d *escposDocument) keyValue(key, value string) *escposDocument {
	key, value = toASCII(key), toASCII(value)
	room := d.width - len(value) - 1
	if room < 1 {
		room = 1
	}
	if len(key) > room {
		key = key[:room]
	}
	d.buf.WriteString(key)
	d.buf.WriteString(strings.Repeat(" ", maxInt(1, d.width-len(key)-len(value))))
	d.buf.WriteString(value)
	d.buf.WriteByte(lf)
	return d
}

func (d *escposDocument) feed(n int) *escposDocument {
	for i := 0; i < n; i++ {
		d.buf.WriteByte(lf)
	}
	return d
}

func (d *escposDocument) cut() *escposDocument {
	d.buf.Write([]byte{gs, 'V', 0x01})
	return d
}

func (d *escposDocument) bytes() []byte {
	return d.buf.Bytes()
}

// toASCII replaces characters the printer code page cannot show
func toASCII(s string) string {
	if isASCII(s) {
		return s
	}
	var b strings.Builder
	for _, r := range s {
		switch {
		case r < utf8.RuneSelf:
			b.WriteRune(r)
		case strings.ContainsRune("àâä", r):
			b.WriteByte('a')
		case strings.ContainsRune("éèêë", r):
			b.WriteByte('e')
		case strings.ContainsRune("îï", r):
			b.WriteByte('i')
		case strings.ContainsRune("ôö", r):
			b.WriteByte('o')
		case strings.ContainsRune("ùûü", r):
			b.WriteByte('u')
		case r == 'ç':
			b.WriteByte('c')
		case strings.ContainsRune("ÀÂÄ", r):
			b.WriteByte('A')
		case strings.ContainsRune("ÉÈÊË", r):
			b.WriteByte('E')
		case r == 'Ç':
			b.WriteByte('C')
		default:
			b.WriteByte('?')
		}
	}
	return b.String()
}

func isASCII(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] >= utf8.RuneSelf {
			return false
		}
	}
	return true
}

// wrap breaks s into lines of at most width bytes, preferring spaces
func wrap(s string, width int) []string {
	if s == "" {
		return []string{""}
	}
	var lines []string
	for len(s) > width {
		cut := strings.LastIndexByte(s[:width+1], ' ')
		if cut <= 0 {
			cut = width
		}
		lines = append(lines, strings.TrimRight(s[:cut], " "))
		s = strings.TrimLeft(s[cut:], " ")
	}
	return append(lines, s)
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
