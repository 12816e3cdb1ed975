package brackets

import "github.com/bracketforge/bracketforge/models"

// FoldOrder arranges entries already sorted strongest-first into classic
// tournament seed order: s1, sn, s2, sn-1, ... so that consecutive pairing
// by the builder yields 1-vs-n, 2-vs-(n-1), and so on.
func FoldOrder(sorted []*models.Entry) []*models.Entry {
	n := len(sorted)
	if n < 2 {
		return sorted
	}
	out := make([]*models.Entry, 0, n)
	for i := 0; i < (n+1)/2; i++ {
		out = append(out, sorted[i])
		if j := n - 1 - i; j > i {
			out = append(out, sorted[j])
		}
	}
	return out
}
