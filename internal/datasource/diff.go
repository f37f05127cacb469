package datasource

import (
	"fmt"
	"sort"
	"strings"

	"github.com/vanderheijden86/jointscope/pkg/model"
)

// SourceDiff represents differences between two data sources
type SourceDiff struct {
	SourceA string
	SourceB string
	// MissingInA contains object paths present in B but not in A
	MissingInA []string
	// MissingInB contains object paths present in A but not in B
	MissingInB []string
	// ValueMismatch contains fields whose values differ
	ValueMismatch []ValueDifference
	CountA        int
	CountB        int
}

// ValueDifference is one field with different values in two sources.
type ValueDifference struct {
	Path   string `json:"path"`
	ValueA string `json:"value_a"`
	ValueB string `json:"value_b"`
}

// HasInconsistencies returns true if there are any differences between sources
func (d SourceDiff) HasInconsistencies() bool {
	return len(d.MissingInA) > 0 || len(d.MissingInB) > 0 || len(d.ValueMismatch) > 0
}

// Summary returns a human-readable summary of the differences
func (d SourceDiff) Summary() string {
	if !d.HasInconsistencies() {
		return fmt.Sprintf("Sources match (%d objects each)", d.CountA)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Inconsistencies found between %s and %s:\n", d.SourceA, d.SourceB)
	if d.CountA != d.CountB {
		fmt.Fprintf(&b, "  - Count mismatch: %d vs %d\n", d.CountA, d.CountB)
	}
	writeList := func(header string, items []string) {
		if len(items) == 0 {
			return
		}
		fmt.Fprintf(&b, header, len(items))
		if len(items) <= 5 {
			for _, it := range items {
				fmt.Fprintf(&b, "    - %s\n", it)
			}
		}
	}
	writeList(fmt.Sprintf("  - %%d objects in %s but not %s\n", d.SourceB, d.SourceA), d.MissingInA)
	writeList(fmt.Sprintf("  - %%d objects in %s but not %s\n", d.SourceA, d.SourceB), d.MissingInB)
	if len(d.ValueMismatch) > 0 {
		fmt.Fprintf(&b, "  - %d fields with different values\n", len(d.ValueMismatch))
		if len(d.ValueMismatch) <= 5 {
			for _, m := range d.ValueMismatch {
				fmt.Fprintf(&b, "    - %s: %q vs %q\n", m.Path, m.ValueA, m.ValueB)
			}
		}
	}
	return b.String()
}

// DiffOptions configures the diff operation
type DiffOptions struct {
	// MaxDifferences limits the number of differences tracked (0 = unlimited)
	MaxDifferences int
}

func DefaultDiffOptions() DiffOptions {
	return DiffOptions{MaxDifferences: 100}
}

// snapshot maps every object path to its value ("" for managers and nodes).
func snapshot(ms []*model.Manager) map[string]string {
	out := make(map[string]string)
	for _, m := range ms {
		out[m.ObjectPath()] = ""
		m.Walk(func(n *model.Node) bool {
			out[n.ObjectPath()] = ""
			for _, f := range n.Fields() {
				out[f.ObjectPath()] = f.Value()
			}
			return true
		})
	}
	return out
}

// DetectInconsistencies compares two manager sets by object path and field value.
func DetectInconsistencies(a, b []*model.Manager, sourceA, sourceB string, opts DiffOptions) SourceDiff {
	diff := SourceDiff{SourceA: sourceA, SourceB: sourceB}
	mapA, mapB := snapshot(a), snapshot(b)
	diff.CountA, diff.CountB = len(mapA), len(mapB)

	room := func(n int) bool { return opts.MaxDifferences == 0 || n < opts.MaxDifferences }
	for _, path := range sortedKeys(mapA) {
		if _, ok := mapB[path]; !ok && room(len(diff.MissingInB)) {
			diff.MissingInB = append(diff.MissingInB, path)
		}
	}
	for _, path := range sortedKeys(mapB) {
		vb := mapB[path]
		va, ok := mapA[path]
		switch {
		case !ok:
			if room(len(diff.MissingInA)) {
				diff.MissingInA = append(diff.MissingInA, path)
			}
		case va != vb:
			if room(len(diff.ValueMismatch)) {
				diff.ValueMismatch = append(diff.ValueMismatch, ValueDifference{Path: path, ValueA: va, ValueB: vb})
			}
		}
	}
	return diff
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// CompareSources loads and compares two data sources
func CompareSources(sourceA, sourceB DataSource, opts DiffOptions) (*SourceDiff, error) {
	a, err := LoadFromSource(sourceA)
	if err != nil {
		return nil, fmt.Errorf("failed to load source A (%s): %w", sourceA.Path, err)
	}
	b, err := LoadFromSource(sourceB)
	if err != nil {
		return nil, fmt.Errorf("failed to load source B (%s): %w", sourceB.Path, err)
	}
	diff := DetectInconsistencies(a, b, sourceA.Path, sourceB.Path, opts)
	return &diff, nil
}

// InconsistencyReport collects the differences between every pair of valid sources.
type InconsistencyReport struct {
	Sources              []DataSource
	Diffs                []SourceDiff
	TotalInconsistencies int
	// HasValueMismatches is set when some field value differs
	HasValueMismatches bool
}

// GenerateInconsistencyReport compares each valid source with every other
// valid source. Sources that fail to load are skipped.
func GenerateInconsistencyReport(sources []DataSource, opts DiffOptions) *InconsistencyReport {
	report := &InconsistencyReport{Sources: sources}
	for i := 0; i < len(sources); i++ {
		if !sources[i].Valid {
			continue
		}
		for j := i + 1; j < len(sources); j++ {
			if !sources[j].Valid {
				continue
			}
			diff, err := CompareSources(sources[i], sources[j], opts)
			if err != nil || !diff.HasInconsistencies() {
				continue
			}
			report.Diffs = append(report.Diffs, *diff)
			report.TotalInconsistencies += len(diff.MissingInA) + len(diff.MissingInB) + len(diff.ValueMismatch)
			if len(diff.ValueMismatch) > 0 {
				report.HasValueMismatches = true
			}
		}
	}
	return report
}
