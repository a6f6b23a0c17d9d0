package domain

import "sort"

func sortStable(trades []TradeRecord, less func(a, b *TradeRecord) bool) {
	sort.SliceStable(trades, func(i, j int) bool {
		return less(&trades[i], &trades[j])
	})
}
