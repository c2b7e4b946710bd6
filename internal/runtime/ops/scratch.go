package ops

import "sync"

// scratchPools holds im2col buffers in power-of-two size classes from 2^10
// to 2^26 floats.
var scratchPools [17]sync.Pool

// getScratch returns a zeroed buffer of n floats. Return it with putScratch.
func getScratch(n int) []float32 {
	cls := scratchClass(n)

	size := 1 << (cls + 10)
	if size < n {
		return make([]float32, n)
	}

	if v := scratchPools[cls].Get(); v != nil {
		if buf, ok := v.([]float32); ok {
			buf = buf[:n]
			clear(buf)

			return buf
		}
	}

	return make([]float32, size)[:n]
}

func putScratch(buf []float32) {
	c := cap(buf)

	cls := scratchClass(c)
	if 1<<(cls+10) < c {
		return
	}

	scratchPools[cls].Put(buf[:c])
}

func scratchClass(n int) int {
	if n <= 1<<10 {
		return 0
	}

	bits := 0
	for v := n - 1; v > 0; v >>= 1 {
		bits++
	}

	return min(max(bits-10, 0), 16)
}

func dot(a, b []float32) float32 {
	var sum float32
	for i := range a {
		sum += a[i] * b[i]
	}

	return sum
}
