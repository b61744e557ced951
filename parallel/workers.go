package parallel

import "runtime"

import "github.com/klauspost/cpuid/v2"

// Workers reports how many goroutines a batched kernel should use.
// It prefers the logical core count detected by cpuid and falls back to GOMAXPROCS.
func Workers() int {
	n := cpuid.CPU.LogicalCores
	if p := runtime.GOMAXPROCS(0); n <= 0 || n > p {
		n = p
	}
	if n < 1 {
		n = 1
	}
	return n
}

// Vectorized reports whether the CPU supports AVX2 and FMA3.
// Row kernels use it to pick a wider unrolled dot product.
func Vectorized() bool {
	return cpuid.CPU.Supports(cpuid.AVX2, cpuid.FMA3)
}

// Describe returns a one line summary of the detected CPU.
func Describe() string {
	return cpuid.CPU.BrandName
}
