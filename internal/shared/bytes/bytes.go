package bytes

import "fmt"

const (
	kb = 1024
	mb = kb * 1024
	gb = mb * 1024
)

// FmtMem renders a byte count for log lines, e.g. "3MB 512KB".
func FmtMem(n int64) string {
	if n < 0 {
		return "-" + FmtMem(-n)
	}
	switch {
	case n >= gb:
		return fmt.Sprintf("%dGB %dMB", n/gb, n%gb/mb)
	case n >= mb:
		return fmt.Sprintf("%dMB %dKB", n/mb, n%mb/kb)
	case n >= kb:
		return fmt.Sprintf("%dKB %dB", n/kb, n%kb)
	default:
		return fmt.Sprintf("%dB", n)
	}
}
