// Package parallel is the fork-join substrate of the hull builder.
//
// Every helper splits its input into one contiguous chunk per worker, runs the chunks on
// their own goroutines and joins before returning, so the call is a barrier. A worker
// count of 1 (or an input smaller than minGrain) runs inline on the calling goroutine.
package parallel

import (
	"runtime"
	"slices"
	"sync"

	"golang.org/x/sync/errgroup"
)

// minGrain is the input size under which splitting costs more than it saves.
const minGrain = 512

// Workers is the default worker count.
var Workers = runtime.GOMAXPROCS(0)

func init() {
	if Workers <= 0 {
		Workers = 1
	}
}

func chunks(workers, n int) (int, int) {
	if workers < 1 {
		workers = 1
	}
	if n < minGrain {
		workers = 1
	}
	n = max(n, 1)
	workers = min(workers, n)
	chunkSize := (n + workers - 1) / workers
	return (n + chunkSize - 1) / chunkSize, chunkSize
}

// For calls fn once per chunk of [0, n).
func For(workers, n int, fn func(start, end int)) {
	if n <= 0 {
		return
	}
	workersCount, chunkSize := chunks(workers, n)
	if workersCount == 1 {
		fn(0, n)
		return
	}

	var wg sync.WaitGroup
	for workerID := 0; workerID < workersCount; workerID++ {
		start, end := workerID*chunkSize, min((workerID+1)*chunkSize, n)
		if start >= end {
			break
		}
		wg.Add(1)
		go func(start, end int) {
			defer wg.Done()
			fn(start, end)
		}(start, end)
	}
	wg.Wait()
}

// ForEach calls fn for every index of [0, n), regardless of minGrain. It is meant for
// small sets of heavy items, such as one apex per facet.
func ForEach(workers, n int, fn func(i int)) {
	if n <= 0 {
		return
	}
	workers = min(max(workers, 1), n)
	if workers == 1 {
		for i := 0; i < n; i++ {
			fn(i)
		}
		return
	}
	chunkSize := (n + workers - 1) / workers

	var wg sync.WaitGroup
	for workerID := 0; workerID < workers; workerID++ {
		start, end := workerID*chunkSize, min((workerID+1)*chunkSize, n)
		if start >= end {
			break
		}
		wg.Add(1)
		go func(start, end int) {
			defer wg.Done()
			for i := start; i < end; i++ {
				fn(i)
			}
		}(start, end)
	}
	wg.Wait()
}

// ForErr is For for fallible work: the first error is returned once every chunk has
// stopped.
func ForErr(workers, n int, fn func(start, end int) error) error {
	if n <= 0 {
		return nil
	}
	workersCount, chunkSize := chunks(workers, n)
	if workersCount == 1 {
		return fn(0, n)
	}

	var g errgroup.Group
	for workerID := 0; workerID < workersCount; workerID++ {
		start, end := workerID*chunkSize, min((workerID+1)*chunkSize, n)
		if start >= end {
			break
		}
		g.Go(func() error {
			return fn(start, end)
		})
	}
	return g.Wait()
}

// Map applies fn to every element, preserving order.
func Map[T, R any](workers int, data []T, fn func(T) R) []R {
	out := make([]R, len(data))
	For(workers, len(data), func(start, end int) {
		for i := start; i < end; i++ {
			out[i] = fn(data[i])
		}
	})
	return out
}

// Scan replaces data with its exclusive prefix sum and returns the total.
func Scan(workers int, data []int) int {
	n := len(data)
	workersCount, chunkSize := chunks(workers, n)
	if workersCount == 1 {
		total := 0
		for i, v := range data {
			data[i] = total
			total += v
		}
		return total
	}

	sums := make([]int, workersCount)
	For(workers, n, func(start, end int) {
		s := 0
		for i := start; i < end; i++ {
			s += data[i]
		}
		sums[start/chunkSize] = s
	})
	total := 0
	for i, s := range sums {
		sums[i] = total
		total += s
	}
	For(workers, n, func(start, end int) {
		acc := sums[start/chunkSize]
		for i := start; i < end; i++ {
			v := data[i]
			data[i] = acc
			acc += v
		}
	})
	return total
}

// Sort sorts data stably: chunks are sorted concurrently, then merged pairwise.
func Sort[T any](workers int, data []T, cmp func(a, b T) int) {
	n := len(data)
	workersCount, chunkSize := chunks(workers, n)
	if workersCount == 1 {
		slices.SortStableFunc(data, cmp)
		return
	}

	For(workers, n, func(start, end int) {
		slices.SortStableFunc(data[start:end], cmp)
	})

	src, dst := data, make([]T, n)
	for width := chunkSize; width < n; width *= 2 {
		pairs := (n + 2*width - 1) / (2 * width)
		ForEach(workers, pairs, func(p int) {
			lo := p * 2 * width
			mid := min(lo+width, n)
			hi := min(lo+2*width, n)
			merge(dst[lo:hi], src[lo:mid], src[mid:hi], cmp)
		})
		src, dst = dst, src
	}
	if &src[0] != &data[0] {
		copy(data, src)
	}
}

func merge[T any](out, left, right []T, cmp func(a, b T) int) {
	i, j, k := 0, 0, 0
	for i < len(left) && j < len(right) {
		if cmp(right[j], left[i]) < 0 {
			out[k] = right[j]
			j++
		} else {
			out[k] = left[i]
			i++
		}
		k++
	}
	k += copy(out[k:], left[i:])
	copy(out[k:], right[j:])
}

// MaxIndex returns the index of the largest element under less, or -1 for empty data.
// Among equal maxima the first one wins.
func MaxIndex[T any](workers int, data []T, less func(a, b T) bool) int {
	n := len(data)
	if n == 0 {
		return -1
	}
	workersCount, chunkSize := chunks(workers, n)
	best := make([]int, workersCount)
	For(workers, n, func(start, end int) {
		m := start
		for i := start + 1; i < end; i++ {
			if less(data[m], data[i]) {
				m = i
			}
		}
		best[start/chunkSize] = m
	})

	m := best[0]
	for _, i := range best[1:] {
		if less(data[m], data[i]) {
			m = i
		}
	}
	return m
}
