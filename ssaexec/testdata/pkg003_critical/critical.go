package main

// BmcCheckMerge has an if with no else: the false edge jumps directly into
// the block the then-branch also falls through to, making entry->merge a
// critical edge (entry has another successor, merge has another
// predecessor).
func BmcCheckMerge(a, b int32) int32 {
	x := a
	if a > b {
		x = b
	}
	if x < 0 {
		panic("negative")
	}
	return x
}
