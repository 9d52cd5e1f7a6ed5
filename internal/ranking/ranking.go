// Package ranking selects the best and worst performers of a result set.
package ranking

import (
	"sort"

	"github.com/Pittuba/dash-mercado/pkg/contracts/domain"
)

// DefaultN is the list length when the caller does not choose one.
const DefaultN = 5

// Top returns the n largest values in descending order. Missing values are
// removed first; ties keep their input order.
func Top(results []domain.InstrumentValue, n int) []domain.InstrumentValue {
	return rank(results, n, func(a, b float64) bool { return a > b })
}

// Bottom returns the n smallest values in ascending order.
func Bottom(results []domain.InstrumentValue, n int) []domain.InstrumentValue {
	return rank(results, n, func(a, b float64) bool { return a < b })
}

func rank(results []domain.InstrumentValue, n int, less func(a, b float64) bool) []domain.InstrumentValue {
	if n <= 0 {
		n = DefaultN
	}
	present := make([]domain.InstrumentValue, 0, len(results))
	for _, r := range results {
		if r.Value.Valid {
			present = append(present, r)
		}
	}
	sort.SliceStable(present, func(i, j int) bool {
		return less(present[i].Value.Float, present[j].Value.Float)
	})
	if len(present) > n {
		present = present[:n]
	}
	return present
}
