package types

import (
	"fmt"
	"strings"
)

// SizeMetric selects which ScanMetrics counter drives sorting and layout.
type SizeMetric uint8

const (
	// MetricAllocated selects AllocatedBytes.
	MetricAllocated SizeMetric = iota

	// MetricLogical selects LogicalBytes.
	MetricLogical
)

// String returns the metric name.
func (m SizeMetric) String() string {
	if m == MetricLogical {
		return "logical"
	}
	return "allocated"
}

// Select returns the counter this metric refers to.
func (m SizeMetric) Select(metrics ScanMetrics) uint64 {
	if m == MetricLogical {
		return metrics.LogicalBytes
	}
	return metrics.AllocatedBytes
}

// ParseSizeMetric parses "logical" or "allocated" (case-insensitive).
func ParseSizeMetric(s string) (SizeMetric, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "logical":
		return MetricLogical, nil
	case "allocated", "":
		return MetricAllocated, nil
	default:
		return MetricAllocated, fmt.Errorf("unknown size metric %q (want logical or allocated)", s)
	}
}
