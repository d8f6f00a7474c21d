package engine

import (
	"testing"

	"github.com/shaiso/Maestro/internal/domain"
)

func TestBuildGraph_SimpleChain(t *testing.T) {
	plan := &domain.Plan{
		Steps: []domain.Step{
			{ID: "A", Capability: domain.CapabilityWeb},
			{ID: "B", Capability: domain.CapabilityFile, Need: []string{"A"}},
			{ID: "C", Capability: domain.CapabilityCoder, Need: []string{"B"}},
		},
	}

	g, err := BuildGraph(plan)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if g.Size() != 3 {
		t.Errorf("expected 3 nodes, got %d", g.Size())
	}

	// Проверяем корневые узлы
	if len(g.Roots) != 1 {
		t.Fatalf("expected 1 root node, got %d", len(g.Roots))
	}
	if g.Roots[0].ID != "A" {
		t.Errorf("expected root node A, got %s", g.Roots[0].ID)
	}

	// Проверяем зависимости
	nodeB := g.Node("B")
	if len(nodeB.DependsOn) != 1 || nodeB.DependsOn[0].ID != "A" {
		t.Error("node B should depend on A")
	}

	nodeA := g.Node("A")
	if len(nodeA.Dependents) != 1 || nodeA.Dependents[0].ID != "B" {
		t.Error("node A should have dependent B")
	}
}

func TestBuildGraph_Diamond(t *testing.T) {
	// A → B → D
	// A → C → D
	plan := &domain.Plan{
		Steps: []domain.Step{
			{ID: "A", Capability: domain.CapabilityWeb},
			{ID: "B", Capability: domain.CapabilityWeb, Need: []string{"A"}},
			{ID: "C", Capability: domain.CapabilityWeb, Need: []string{"A"}},
			{ID: "D", Capability: domain.CapabilityWeb, Need: []string{"B", "C"}},
		},
	}

	g, err := BuildGraph(plan)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// Проверяем inDegree
	if g.Node("A").InDegree != 0 {
		t.Error("A should have inDegree 0")
	}
	if g.Node("B").InDegree != 1 {
		t.Error("B should have inDegree 1")
	}
	if g.Node("C").InDegree != 1 {
		t.Error("C should have inDegree 1")
	}
	if g.Node("D").InDegree != 2 {
		t.Error("D should have inDegree 2")
	}

	// У A два зависимых
	if len(g.Node("A").Dependents) != 2 {
		t.Errorf("A should have 2 dependents, got %d", len(g.Node("A").Dependents))
	}
}

func TestBuildGraph_DuplicateNeedCountedOnce(t *testing.T) {
	plan := &domain.Plan{
		Steps: []domain.Step{
			{ID: "A", Capability: domain.CapabilityWeb},
			{ID: "B", Capability: domain.CapabilityWeb, Need: []string{"A", "A"}},
		},
	}

	g, err := BuildGraph(plan)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// Дубликат в need не должен удваивать inDegree
	if g.Node("B").InDegree != 1 {
		t.Errorf("B should have inDegree 1, got %d", g.Node("B").InDegree)
	}
}

func TestBuildGraph_AllRoots(t *testing.T) {
	plan := &domain.Plan{
		Steps: []domain.Step{
			{ID: "A", Capability: domain.CapabilityWeb},
			{ID: "B", Capability: domain.CapabilityFile},
			{ID: "C", Capability: domain.CapabilityCasual},
		},
	}

	g, err := BuildGraph(plan)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(g.Roots) != 3 {
		t.Errorf("expected 3 root nodes, got %d", len(g.Roots))
	}
}

func TestBuildGraph_Deterministic(t *testing.T) {
	plan := &domain.Plan{
		Steps: []domain.Step{
			{ID: "A", Capability: domain.CapabilityWeb},
			{ID: "B", Capability: domain.CapabilityWeb, Need: []string{"A"}},
		},
	}

	// Граф пересобирается из плана без побочных эффектов
	g1, err := BuildGraph(plan)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	g2, err := BuildGraph(plan)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if g1.Size() != g2.Size() {
		t.Error("rebuild should produce the same graph")
	}
	if g1.Node("B").InDegree != g2.Node("B").InDegree {
		t.Error("rebuild should produce the same in-degrees")
	}
}
