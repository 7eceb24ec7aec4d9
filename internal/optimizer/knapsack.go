package optimizer

// Knapsack selects the subset of items with maximum total Value whose
// EffortUnits sum to at most capacity. Items are returned in input order.
//
// dp[i][w] is the best value using the first i items within budget w. An item
// is taken only when that is strictly better, so during backtracking
// dp[i][w] > dp[i-1][w] holds exactly when item i was taken. Both sides come
// from the same summation order, so the comparison needs no epsilon. Ties
// therefore prefer leaving an item out.
//
// O(n * capacity) time and space; the table is never reused across calls.
// Negative weights are treated as zero.
func Knapsack(items []ScoredTask, capacity int) []ScoredTask {
	n := len(items)
	if capacity <= 0 || n == 0 {
		return nil
	}

	weight := func(i int) int {
		if w := items[i].EffortUnits; w > 0 {
			return w
		}
		return 0
	}

	dp := make([][]float64, n+1)
	for i := range dp {
		dp[i] = make([]float64, capacity+1)
	}

	for i := 1; i <= n; i++ {
		wt := weight(i - 1)
		v := items[i-1].Value
		for w := 0; w <= capacity; w++ {
			dp[i][w] = dp[i-1][w]
			if wt <= w {
				if take := dp[i-1][w-wt] + v; take > dp[i][w] {
					dp[i][w] = take
				}
			}
		}
	}

	taken := make([]bool, n)
	w := capacity
	for i := n; i > 0; i-- {
		if dp[i][w] > dp[i-1][w] {
			taken[i-1] = true
			w -= weight(i - 1)
		}
	}

	var selected []ScoredTask
	for i, ok := range taken {
		if ok {
			selected = append(selected, items[i])
		}
	}
	return selected
}
