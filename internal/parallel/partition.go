package parallel

import "fmt"

// Partition splits list into k contiguous chunks. Every chunk has size
// ceil(len/k) except a possibly smaller final portion; once the list is
// exhausted the remaining chunks are empty, so the result always has
// exactly k entries whose concatenation is the input with no gaps or
// repeats.
func Partition[T any](list []T, k int) ([][]T, error) {
	if k < 1 {
		return nil, fmt.Errorf("parallel: chunk count %d, need at least 1", k)
	}
	size := (len(list) + k - 1) / k
	out := make([][]T, k)
	for i := 0; i < k; i++ {
		lo := i * size
		if lo > len(list) {
			lo = len(list)
		}
		hi := lo + size
		if hi > len(list) {
			hi = len(list)
		}
		out[i] = list[lo:hi]
	}
	return out, nil
}
