package temperature

import (
	"sort"
	"time"
)

const (
	// DefaultLimit replaces any requested limit outside (0, MaxLimit].
	DefaultLimit = 10
	MaxLimit     = 100
)

// ClampLimit returns n when it is in (0, MaxLimit], DefaultLimit otherwise.
func ClampLimit(n int) int {
	if n <= 0 || n > MaxLimit {
		return DefaultLimit
	}
	return n
}

// NormalizeRange orders the two bounds ascending.
func NormalizeRange(start, end time.Time) (time.Time, time.Time) {
	if start.After(end) {
		return end, start
	}
	return start, end
}

// Leaderboard ranks records in two stages: it keeps the single best reading
// per city as records are offered, and Top orders those winners globally.
// Records without an average temperature never rank.
type Leaderboard struct {
	best map[string]Record
}

// NewLeaderboard returns an empty Leaderboard.
func NewLeaderboard() *Leaderboard {
	return &Leaderboard{best: make(map[string]Record)}
}

// Offer considers r for its city's rank-1 slot.
func (l *Leaderboard) Offer(r Record) {
	if r.AvgTemperature == nil {
		return
	}
	cur, ok := l.best[r.City]
	if !ok || outranks(r, cur) {
		l.best[r.City] = r
	}
}

// Len returns the number of cities holding a winner.
func (l *Leaderboard) Len() int {
	return len(l.best)
}

// Top returns at most n city winners, hottest first. Equal temperatures are
// ordered by most recent date, then by city name.
func (l *Leaderboard) Top(n int) []Record {
	winners := make([]Record, 0, len(l.best))
	for _, r := range l.best {
		winners = append(winners, r)
	}

	sort.Slice(winners, func(i, j int) bool {
		a, b := winners[i], winners[j]
		if outranks(a, b) {
			return true
		}
		if outranks(b, a) {
			return false
		}
		return a.City < b.City
	})

	if n < 0 {
		n = 0
	}
	if len(winners) > n {
		winners = winners[:n]
	}
	return winners
}

// outranks orders by temperature descending, then date descending.
func outranks(a, b Record) bool {
	ta, tb := *a.AvgTemperature, *b.AvgTemperature
	if ta != tb {
		return ta > tb
	}
	return a.Date.After(b.Date)
}
