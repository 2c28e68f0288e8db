package invoice

import (
	"fmt"
	"math/rand/v2"
	"strings"
	"time"
)

// Numberer produces invoice numbers of the form PREFIX/YYMM/NNNN.
type Numberer struct {
	Prefix string
	// Rand returns a value in [0, n). Defaults to math/rand/v2.
	Rand func(n int) int
}

// Next returns a number for an invoice issued at t.
func (n Numberer) Next(t time.Time) string {
	prefix := strings.TrimSpace(n.Prefix)
	if prefix == "" {
		prefix = "INV"
	}
	r := n.Rand
	if r == nil {
		r = rand.IntN
	}
	return fmt.Sprintf("%s/%s/%04d", prefix, t.Format("0601"), r(10000))
}
