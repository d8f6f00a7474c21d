package engine

import (
	"fmt"

	"github.com/shaiso/Maestro/internal/domain"
)

// Node — узел в графе зависимостей.
type Node struct {
	// Step — определение шага из плана.
	Step *domain.Step

	// ID — идентификатор узла (совпадает со Step.ID).
	ID string

	// InDegree — количество входящих рёбер (неудовлетворённых зависимостей).
	InDegree int

	// DependsOn — узлы, от которых зависит этот узел.
	DependsOn []*Node

	// Dependents — узлы, которые зависят от этого узла
	// (уведомляются при завершении).
	Dependents []*Node
}

// Graph — граф зависимостей шагов плана.
//
// Граф строится один раз из валидного плана и структурно не мутирует
// в ходе выполнения — планировщик меняет только статусы шагов.
// Построение детерминировано и без побочных эффектов: граф можно
// пересобрать из плана в любой момент.
type Graph struct {
	// Nodes — все узлы графа (stepID → Node).
	Nodes map[string]*Node

	// Roots — узлы без зависимостей (начальное множество ready).
	Roots []*Node
}

// BuildGraph строит граф зависимостей из плана.
//
// Для каждого шага вычисляется in-degree и обратный список смежности.
// План предполагается прошедшим Validate; несвязанная зависимость
// здесь — ошибка программирования, а не пользовательских данных.
func BuildGraph(plan *domain.Plan) (*Graph, error) {
	g := &Graph{
		Nodes: make(map[string]*Node, len(plan.Steps)),
	}

	// Первый проход: создаём все узлы
	for i := range plan.Steps {
		step := &plan.Steps[i]
		g.Nodes[step.ID] = &Node{
			Step: step,
			ID:   step.ID,
		}
	}

	// Второй проход: связываем узлы по зависимостям
	for i := range plan.Steps {
		step := &plan.Steps[i]
		node := g.Nodes[step.ID]

		for _, depID := range step.Need {
			dep, exists := g.Nodes[depID]
			if !exists {
				return nil, fmt.Errorf("step %s: %w: %s", step.ID, ErrMissingDependency, depID)
			}
			addEdge(dep, node)
		}
	}

	// Находим корневые узлы
	for i := range plan.Steps {
		node := g.Nodes[plan.Steps[i].ID]
		if node.InDegree == 0 {
			g.Roots = append(g.Roots, node)
		}
	}

	return g, nil
}

// addEdge добавляет ребро между узлами.
// Дубликаты в need не должны дважды увеличивать InDegree.
func addEdge(from, to *Node) {
	for _, dep := range to.DependsOn {
		if dep.ID == from.ID {
			return // уже связаны
		}
	}
	from.Dependents = append(from.Dependents, to)
	to.DependsOn = append(to.DependsOn, from)
	to.InDegree++
}

// Node возвращает узел по ID.
func (g *Graph) Node(id string) *Node {
	return g.Nodes[id]
}

// Size возвращает количество узлов в графе.
func (g *Graph) Size() int {
	return len(g.Nodes)
}
