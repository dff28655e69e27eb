// Package resource samples process resource utilisation around a single
// agent execution, normalised to the 0-1 range used by core.ResourceUsage.
package resource

import (
	"runtime"
	"runtime/metrics"

	"github.com/hupe1980/docmesh/core"
)

// Sampler starts a measurement and returns the function that ends it.
type Sampler func() (stop func() core.ResourceUsage)

const (
	cpuUser  = "/cpu/classes/user:cpu-seconds"
	cpuTotal = "/cpu/classes/total:cpu-seconds"
)

// Start is the default Sampler.
//
// CPU is the share of available CPU time (GOMAXPROCS x wall time) spent in
// user Go code while the measurement ran. Memory is the fraction of memory
// obtained from the OS that live heap objects occupy at stop. Network is not
// observable from the runtime and stays 0.
func Start() func() core.ResourceUsage {
	user0, total0 := readCPU()
	return func() core.ResourceUsage {
		user1, total1 := readCPU()
		return core.ResourceUsage{
			CPU:    ratio(user1-user0, total1-total0),
			Memory: memory(),
		}
	}
}

// None is a Sampler that always reports a zero snapshot.
func None() func() core.ResourceUsage {
	return func() core.ResourceUsage { return core.ResourceUsage{} }
}

func readCPU() (user, total float64) {
	samples := []metrics.Sample{{Name: cpuUser}, {Name: cpuTotal}}
	metrics.Read(samples)
	return float64Value(samples[0]), float64Value(samples[1])
}

func float64Value(s metrics.Sample) float64 {
	if s.Value.Kind() != metrics.KindFloat64 {
		return 0
	}
	return s.Value.Float64()
}

func memory() float64 {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	return ratio(float64(m.HeapAlloc), float64(m.Sys))
}

// ratio returns part/whole clamped to [0, 1]; 0 when whole is not positive.
func ratio(part, whole float64) float64 {
	if whole <= 0 || part <= 0 {
		return 0
	}
	if r := part / whole; r < 1 {
		return r
	}
	return 1
}
