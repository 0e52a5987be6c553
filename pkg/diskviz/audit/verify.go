// Package audit checks scan trees: Verify checks a tree's internal
// consistency and Compare recomputes directory totals from the filesystem.
package audit

import (
	"fmt"
	"path/filepath"

	"github.com/jamesainslie/diskviz/pkg/diskviz/types"
)

// Rule names a tree invariant.
type Rule string

// Tree invariants checked by Verify.
const (
	// RuleAggregate: a node with children carries the sum of their metrics.
	RuleAggregate Rule = "aggregate"

	// RuleEmptyDirectory: a directory without children has zero metrics.
	RuleEmptyDirectory Rule = "empty-directory"

	// RuleChildCount: ChildCount equals the number of children.
	RuleChildCount Rule = "child-count"

	// RuleKindCounts: per-kind counts match the kinds of the children.
	RuleKindCounts Rule = "kind-counts"

	// RulePath: a child's path is its parent's path joined with its name.
	RulePath Rule = "path"
)

// Violation is one node breaking one rule.
type Violation struct {
	Path string `json:"path"`
	Rule Rule   `json:"rule"`
	Want string `json:"want"`
	Got  string `json:"got"`
}

func (v Violation) String() string {
	return fmt.Sprintf("%s: %s: want %s, got %s", v.Path, v.Rule, v.Want, v.Got)
}

// Verify walks root and returns every invariant violation, parents before
// children. A tree produced by a completed scan yields none.
func Verify(root types.ScanNode) []Violation {
	var out []Violation
	root.Walk(func(n *types.ScanNode, _ int) bool {
		out = append(out, verifyNode(n)...)
		return true
	})
	return out
}

func verifyNode(n *types.ScanNode) []Violation {
	var out []Violation
	add := func(rule Rule, want, got any) {
		out = append(out, Violation{
			Path: n.Path,
			Rule: rule,
			Want: fmt.Sprint(want),
			Got:  fmt.Sprint(got),
		})
	}

	if n.ChildCount != len(n.Children) {
		add(RuleChildCount, len(n.Children), n.ChildCount)
	}

	var sum types.ScanMetrics
	var kinds [4]int
	for i := range n.Children {
		c := &n.Children[i]
		sum.Add(c.Metrics)
		if int(c.Kind) < len(kinds) {
			kinds[c.Kind]++
		}
		if want := filepath.Join(n.Path, c.Name); c.Path != want {
			out = append(out, Violation{Path: c.Path, Rule: RulePath, Want: want, Got: c.Path})
		}
	}

	got := [4]int{n.FileCount, n.DirCount, n.SymlinkCount, n.OtherCount}
	if len(n.Children) > 0 && got != kinds {
		add(RuleKindCounts, formatKinds(kinds), formatKinds(got))
	}

	switch {
	case len(n.Children) > 0 && n.Metrics != sum:
		add(RuleAggregate, formatMetrics(sum), formatMetrics(n.Metrics))
	case len(n.Children) == 0 && n.Kind == types.KindDirectory && !n.Metrics.IsZero():
		add(RuleEmptyDirectory, formatMetrics(types.ScanMetrics{}), formatMetrics(n.Metrics))
	}

	return out
}

func formatMetrics(m types.ScanMetrics) string {
	return fmt.Sprintf("logical=%d allocated=%d", m.LogicalBytes, m.AllocatedBytes)
}

func formatKinds(k [4]int) string {
	return fmt.Sprintf("files=%d dirs=%d symlinks=%d other=%d", k[0], k[1], k[2], k[3])
}
