package pipeline

import "strings"

// naturalLess compares two file names case-insensitively, treating digit
// runs as numbers so that page2 sorts before page10.
func naturalLess(a, b string) bool {
	la, lb := strings.ToLower(a), strings.ToLower(b)
	ai, bi := 0, 0
	for ai < len(la) && bi < len(lb) {
		ca, cb := la[ai], lb[bi]
		if isDigit(ca) && isDigit(cb) {
			as, bs := ai, bi
			for ai < len(la) && isDigit(la[ai]) {
				ai++
			}
			for bi < len(lb) && isDigit(lb[bi]) {
				bi++
			}
			na := strings.TrimLeft(la[as:ai], "0")
			nb := strings.TrimLeft(lb[bs:bi], "0")
			if len(na) != len(nb) {
				return len(na) < len(nb)
			}
			if na != nb {
				return na < nb
			}
			continue
		}
		if ca != cb {
			return ca < cb
		}
		ai++
		bi++
	}
	return len(la)-ai < len(lb)-bi
}

func isDigit(c byte) bool {
	return c >= '0' && c <= '9'
}
