package scanner

import (
	"github.com/jamesainslie/diskviz/pkg/diskviz/tuner"
	"github.com/jamesainslie/diskviz/pkg/diskviz/types"
)

// normalizeOptions resolves the worker count against the host.
func normalizeOptions(opts types.ScanOptions) types.ScanOptions {
	opts.ConcurrentWorkers = tuner.Workers(tuner.Detect(), opts.ConcurrentWorkers)
	return opts
}
