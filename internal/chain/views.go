// internal/chain/views.go
package chain

// Progress is the completed fraction of a round, capped at 1.
func Progress(length, players int) float64 {
	if players < 0 {
		players = 0
	}
	f := float64(length) / float64(players+1)
	if f > 1 {
		return 1
	}
	return f
}

// IsDrawingTurn reports whether a chain of the given length expects a drawing next.
func IsDrawingTurn(length int) bool {
	return length%2 == 1
}
