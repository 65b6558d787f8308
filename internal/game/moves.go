package game

// HasPossibleMoves reports whether another match can still be made among the
// unresolved cards. An unresolved wildcard always can; otherwise some regular
// label must have at least two unresolved cards. Advisory only.
func HasPossibleMoves(cards []Card) bool {
	counts := make(map[string]int)
	for _, c := range cards {
		if c.Resolved {
			continue
		}
		switch c.Kind {
		case KindWildcard:
			return true
		case KindRegular:
			counts[c.Label]++
		}
	}
	for _, n := range counts {
		if n >= 2 {
			return true
		}
	}
	return false
}
