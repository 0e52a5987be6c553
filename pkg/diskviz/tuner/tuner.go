// Package tuner derives the scanner's worker count from the host.
package tuner

import "runtime"

// minWorkers keeps at least one worker reading while another waits on IO.
const minWorkers = 2

// SystemResources describes the host.
type SystemResources struct {
	// CPUCores is the number of logical CPUs usable by the process.
	CPUCores int
}

// Detect reports the logical CPUs available to the process, honoring the
// scheduler affinity mask.
func Detect() SystemResources {
	return SystemResources{CPUCores: runtime.NumCPU()}
}

// Workers returns the worker pool size. A positive configured count is used
// as-is; anything else selects max(2, CPUCores).
func Workers(resources SystemResources, configured int) int {
	if configured > 0 {
		return configured
	}
	return max(resources.CPUCores, minWorkers)
}

// DefaultWorkers returns the pool size for an unconfigured scan on this host.
func DefaultWorkers() int {
	return Workers(Detect(), 0)
}
