package parser

import "bytes"

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// Frame strips a leading UTF-8 byte order mark, then one trailing '\n',
// then one trailing '\r' from a raw line. consumed is always the length of
// raw so the caller can advance its reader even when the line ends up empty.
func Frame(raw []byte) (line []byte, consumed int) {
	consumed = len(raw)
	line = raw
	if bytes.HasPrefix(line, utf8BOM) {
		line = line[len(utf8BOM):]
	}
	if n := len(line); n > 0 && line[n-1] == '\n' {
		line = line[:n-1]
	}
	if n := len(line); n > 0 && line[n-1] == '\r' {
		line = line[:n-1]
	}
	return line, consumed
}
