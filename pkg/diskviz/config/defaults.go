// Package config provides configuration management for diskviz.
package config

// Default configuration values for diskviz.
const (
	// DefaultWorkers selects the worker count from the hardware. Any
	// positive value overrides it.
	DefaultWorkers = 0

	// DefaultMetric is the size metric reports and treemaps are drawn with.
	DefaultMetric = "allocated"

	// DefaultFormat is the report format of the scan command.
	DefaultFormat = "pretty"

	// DefaultTop is the number of children listed per directory.
	DefaultTop = 20

	// DefaultDepth is the number of directory levels a report descends.
	DefaultDepth = 1

	// DefaultRetention is the number of snapshots kept per scanned path.
	DefaultRetention = 10

	// DefaultLogMaxSize is the log size that triggers rotation.
	DefaultLogMaxSize = "10MiB"

	// DefaultLogMaxBackups is the number of rotated log files kept.
	DefaultLogMaxBackups = 3
)

// DefaultExclusions contains glob patterns excluded from every scan.
var DefaultExclusions = []string{}
