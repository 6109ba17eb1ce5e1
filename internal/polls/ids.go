package polls

import (
	"math/rand/v2"
	"strconv"
	"strings"
	"time"
)

const (
	userPrefix = "user"
	pollPrefix = "poll"
	votePrefix = "vote"

	suffixLen = 9
	base36    = "0123456789abcdefghijklmnopqrstuvwxyz"
)

// NewID returns "<prefix>_<unix millis>_<random base36>". The suffix is not
// cryptographically random.
func NewID(prefix string, now time.Time) string {
	var b strings.Builder
	b.Grow(len(prefix) + 1 + 13 + 1 + suffixLen)
	b.WriteString(prefix)
	b.WriteByte('_')
	b.WriteString(strconv.FormatInt(now.UnixMilli(), 10))
	b.WriteByte('_')
	for i := 0; i < suffixLen; i++ {
		b.WriteByte(base36[rand.IntN(len(base36))])
	}
	return b.String()
}
