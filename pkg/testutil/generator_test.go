package testutil

import "testing"

func TestGenerator_Deterministic(t *testing.T) {
	a := New(DefaultConfig()).Managers()
	b := New(DefaultConfig()).Managers()

	if len(a) != len(b) {
		t.Fatalf("manager counts differ: %d vs %d", len(a), len(b))
	}
	for i := range a {
		if a[i].Name != b[i].Name {
			t.Errorf("manager %d: %s vs %s", i, a[i].Name, b[i].Name)
		}
	}
	if CountNodes(a) != CountNodes(b) {
		t.Errorf("node counts differ: %d vs %d", CountNodes(a), CountNodes(b))
	}
}

func TestGenerator_Shape(t *testing.T) {
	cfg := DefaultConfig()
	ms := New(cfg).Managers()
	// fragments + nodes + nodes*subnodes at depth 1
	perManager := cfg.FragmentsPerManager + cfg.NodesPerManager + cfg.NodesPerManager*cfg.SubNodesPerNode
	if got := CountNodes(ms); got != cfg.Managers*perManager {
		t.Errorf("expected %d nodes, got %d", cfg.Managers*perManager, got)
	}
	reg := New(cfg).Registry()
	if reg.Len() != cfg.Managers {
		t.Errorf("expected %d managers registered, got %d", cfg.Managers, reg.Len())
	}
}
