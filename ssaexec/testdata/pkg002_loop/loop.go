package main

// BmcCheckSumTo panics once the running total overflows past a small
// ceiling, giving the unroller a back edge to cross.
func BmcCheckSumTo(n int32) int32 {
	var total int32
	var i int32
	for i = 0; i < n; i++ {
		total += i
		if total > 1000000 {
			panic("overflow")
		}
	}
	return total
}
