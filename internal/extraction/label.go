package extraction

import (
	"crypto/md5"
	"encoding/hex"
	"time"
)

// RunLabel derives the human-readable run directory name: the first six hex
// digits of the source's MD5 followed by the start time.
func RunLabel(source string, at time.Time) string {
	sum := md5.Sum([]byte(source))
	return hex.EncodeToString(sum[:])[:6] + "-" + at.Format("20060102-150405")
}
