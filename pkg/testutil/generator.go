// Package testutil provides deterministic fixture registries and forest
// assertions shared by the package tests.
package testutil

import (
	"fmt"
	"math/rand"
	"strings"
	"time"

	"github.com/vanderheijden86/jointscope/pkg/model"
)

// GeneratorConfig controls registry generation.
type GeneratorConfig struct {
	Seed                int64 // 0 = use current time
	Managers            int
	NodesPerManager     int
	FragmentsPerManager int
	SubNodesPerNode     int
	SubNodeDepth        int
	FieldsPerNode       int
	// AdvancedRatio is the share of fields flagged advanced-display (hidden).
	AdvancedRatio float64
	Words         []string
}

// DefaultConfig returns a small, deterministic configuration.
func DefaultConfig() GeneratorConfig {
	return GeneratorConfig{
		Seed:                42,
		Managers:            2,
		NodesPerManager:     3,
		FragmentsPerManager: 1,
		SubNodesPerNode:     2,
		SubNodeDepth:        1,
		FieldsPerNode:       2,
		AdvancedRatio:       0.2,
		Words:               []string{"hello", "goodbye", "alpha", "beta", "gamma", "speaker", "line"},
	}
}

// Generator builds fixture registries.
type Generator struct {
	cfg GeneratorConfig
	rng *rand.Rand
}

func New(cfg GeneratorConfig) *Generator {
	seed := cfg.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	if len(cfg.Words) == 0 {
		cfg.Words = DefaultConfig().Words
	}
	return &Generator{cfg: cfg, rng: rand.New(rand.NewSource(seed))}
}

var kinds = []model.FieldKind{model.KindString, model.KindName, model.KindText, model.KindInt, model.KindBool}

// name produces "<prefix>_<n>" with a random amount of zero padding so the
// numeric-suffix comparator gets exercised.
func (g *Generator) name(prefix string, n int) string {
	pad := g.rng.Intn(3)
	return fmt.Sprintf("%s_%s%d", prefix, strings.Repeat("0", pad), n)
}

func (g *Generator) fields(n *model.Node) {
	for i := 0; i < g.cfg.FieldsPerNode; i++ {
		kind := kinds[g.rng.Intn(len(kinds))]
		flags := model.FlagEdit
		if g.rng.Float64() < g.cfg.AdvancedRatio {
			flags |= model.FlagAdvancedDisplay
		}
		value := g.cfg.Words[g.rng.Intn(len(g.cfg.Words))]
		switch kind {
		case model.KindInt:
			value = fmt.Sprint(g.rng.Intn(100))
		case model.KindBool:
			value = fmt.Sprint(g.rng.Intn(2) == 1)
		}
		n.AddField(model.NewField(fmt.Sprintf("Field_%d", i), kind, flags, value))
	}
}

func (g *Generator) subNodes(parent *model.Node, depth int) {
	if depth >= g.cfg.SubNodeDepth {
		return
	}
	for i := 0; i < g.cfg.SubNodesPerNode; i++ {
		child := parent.AddFragment(model.NewNode(g.name("Sub", i), "SubFragment"))
		g.fields(child)
		g.subNodes(child, depth+1)
	}
}

// Managers generates detached managers.
func (g *Generator) Managers() []*model.Manager {
	out := make([]*model.Manager, 0, g.cfg.Managers)
	for mi := 0; mi < g.cfg.Managers; mi++ {
		m := model.NewManager(g.name("Manager", mi), "DialogueManager")
		for i := 0; i < g.cfg.FragmentsPerManager; i++ {
			f := m.AddFragment(model.NewNode(g.name("Frag", i), "ManagerFragment"))
			g.fields(f)
		}
		for i := 0; i < g.cfg.NodesPerManager; i++ {
			n := m.AddNode(model.NewNode(g.name("Node", i), "DialogueNode"))
			g.fields(n)
			g.subNodes(n, 0)
		}
		out = append(out, m)
	}
	return out
}

// Registry generates managers and registers them in a new registry.
func (g *Generator) Registry() *model.Registry {
	reg := model.NewRegistry()
	for _, m := range g.Managers() {
		reg.Add(m)
	}
	return reg
}

// CountNodes returns the number of nodes (including fragments) in ms.
func CountNodes(ms []*model.Manager) int {
	total := 0
	for _, m := range ms {
		m.Walk(func(*model.Node) bool {
			total++
			return true
		})
	}
	return total
}
