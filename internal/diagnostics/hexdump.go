package diagnostics

import (
	"strings"

	"github.com/rs/zerolog"

	"github.com/coreman2200/ledhal/internal/pixel"
)

// BytesPerLine is the width of one hex dump line.
const BytesPerLine = 10

// FormatLine renders b as space separated "0x.." groups.
func FormatLine(b []byte) string {
	const hex = "0123456789abcdef"
	var sb strings.Builder
	sb.Grow(len(b) * 5)
	for i, c := range b {
		if i > 0 {
			sb.WriteByte(' ')
		}
		sb.WriteString("0x")
		sb.WriteByte(hex[c>>4])
		sb.WriteByte(hex[c&0x0f])
	}
	return sb.String()
}

// Enabled reports whether l emits debug events.
func Enabled(l *zerolog.Logger) bool {
	return l != nil && l.GetLevel() <= zerolog.DebugLevel && zerolog.GlobalLevel() <= zerolog.DebugLevel
}

// HexDump logs the bytes of v at debug level, BytesPerLine per line, the
// last line holding the remainder. It returns the number of lines logged,
// 0 when debug is off or v is empty.
func HexDump(l *zerolog.Logger, v pixel.View) int {
	if !Enabled(l) || v.Len() == 0 {
		return 0
	}
	buf := make([]byte, v.Len())
	v.CopyTo(buf)

	l.Debug().Int("bytes", len(buf)).Msg("greyscale buffer")
	lines := 0
	for off := 0; off < len(buf); off += BytesPerLine {
		end := off + BytesPerLine
		if end > len(buf) {
			end = len(buf)
		}
		l.Debug().Int("offset", off).Msg(FormatLine(buf[off:end]))
		lines++
	}
	return lines
}
