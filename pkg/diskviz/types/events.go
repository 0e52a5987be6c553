package types

// Event is a value published by the scanner while it runs.
// The concrete types are ProgressEvent, NodeDiscoveredEvent,
// DirectoryCompletedEvent and ErrorEvent.
type Event interface {
	isEvent()
}

// EventFunc receives scan events. The scanner calls it from every worker
// goroutine, so implementations must be safe for concurrent use.
type EventFunc func(Event)

// ProgressEvent carries a counter snapshot. One is published per increment.
type ProgressEvent struct {
	Progress ScanProgress
}

func (ProgressEvent) isEvent() {}

// NodeDiscoveredEvent is published when an entry is inserted into the tree.
// Node has no children attached.
type NodeDiscoveredEvent struct {
	Node ScanNode
}

func (NodeDiscoveredEvent) isEvent() {}

// DirectoryCompletedEvent is published once all direct children of a
// directory have been discovered. Descendant subtrees may still be scanning.
type DirectoryCompletedEvent struct {
	Node ScanNode
}

func (DirectoryCompletedEvent) isEvent() {}

// ErrorEvent is published when a directory cannot be read.
type ErrorEvent struct {
	Err ScanError
}

func (ErrorEvent) isEvent() {}
