package format

import (
	"fmt"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// printer groups digits the same way on every host, whatever the locale.
var printer = message.NewPrinter(language.English)

// FormatCount renders n with thousands separators, e.g. "451,584".
func FormatCount(n int64) string {
	return printer.Sprintf("%d", n)
}

// FormatBytes renders a byte count with a binary unit, e.g. "3.4 MiB".
func FormatBytes(b uint64) string {
	const unit = 1024
	if b < unit {
		return fmt.Sprintf("%d B", b)
	}
	div, exp := uint64(unit), 0
	for n := b / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(b)/float64(div), "KMGTPE"[exp])
}
