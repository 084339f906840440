package toolexecutor

import "fmt"

// corroborate runs compute up to budget times and returns the first value
// reproduced by a later attempt. It also returns how many attempts ran.
func corroborate(budget int, compute func(attempt int) float64) (float64, int, error) {
	seen := make([]float64, 0, budget)

	for attempt := 1; attempt <= budget; attempt++ {
		v := compute(attempt)
		for _, prev := range seen {
			if prev == v {
				return v, attempt, nil
			}
		}
		seen = append(seen, v)
	}

	return 0, budget, fmt.Errorf("%w: no two of %d attempts agreed (%v)", ErrVerificationExhausted, budget, seen)
}
