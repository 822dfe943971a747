package utils

import "fmt"

// FormatBytes renders a byte count the way the document listing expects,
// e.g. "2.4 MB". Sizes below 1 KB are reported in whole bytes.
func FormatBytes(size int64) string {
	const unit = 1024
	if size < unit {
		return fmt.Sprintf("%d B", size)
	}
	div, exp := int64(unit), 0
	for n := size / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(size)/float64(div), "KMGTPE"[exp])
}
