// Package render_graph orders the render passes of a frame as a directed acyclic graph of labelled nodes.
package render_graph

import (
	"errors"
	"fmt"
	"slices"
	"sync"

	"github.com/Carmen-Shannon/oxy-postfx/common"
	"github.com/Carmen-Shannon/oxy-postfx/engine/ecs"
	"github.com/yohamta/donburi"
)

var (
	// ErrNodeExists is returned when a label is added twice to one graph.
	ErrNodeExists = errors.New("render graph: node already exists")
	// ErrNodeNotFound is returned when an edge names a node the graph does not contain.
	ErrNodeNotFound = errors.New("render graph: node not found")
	// ErrCycle is returned when the edges do not form a DAG.
	ErrCycle = errors.New("render graph: cycle")
	// ErrSubGraphExists is returned when a sub-graph label is added twice.
	ErrSubGraphExists = errors.New("render graph: sub-graph already exists")
)

type renderGraph struct {
	mu sync.Mutex

	label     GraphLabel
	labels    []Label
	nodes     map[Label]Node
	edges     map[Label][]Label
	subGraphs map[GraphLabel]RenderGraph

	order []Label
	dirty bool
}

// RenderGraph holds nodes, the ordering edges between them, and named sub-graphs.
type RenderGraph interface {
	// Label returns the graph's label.
	Label() GraphLabel

	// AddNode adds node under label.
	//
	// Parameters:
	//   - label: the node's unique label
	//   - node: the node
	//
	// Returns:
	//   - error: ErrNodeExists if label is taken
	AddNode(label Label, node Node) error

	// Node returns the node registered under label.
	Node(label Label) (Node, bool)

	// AddNodeEdge makes to run after from.
	//
	// Returns:
	//   - error: ErrNodeNotFound if either node is missing
	AddNodeEdge(from, to Label) error

	// AddNodeEdges chains labels so each runs after the one before it.
	AddNodeEdges(labels ...Label) error

	// AddSubGraph registers g under label.
	//
	// Returns:
	//   - error: ErrSubGraphExists if label is taken
	AddSubGraph(label GraphLabel, g RenderGraph) error

	// SubGraph returns the sub-graph registered under label.
	SubGraph(label GraphLabel) (RenderGraph, bool)

	// Order returns the node labels in execution order. Among nodes whose dependencies are met,
	// the one added first runs first.
	//
	// Returns:
	//   - []Label: the execution order
	//   - error: ErrCycle if the edges contain a cycle
	Order() ([]Label, error)

	// Run executes every node in order for view.
	//
	// Parameters:
	//   - render: the frame's render context
	//   - world: the render world
	//   - view: the render-world view entity
	//
	// Returns:
	//   - error: the first node error, wrapped with the node's label
	Run(render *RenderContext, world *ecs.World, view donburi.Entity) error
}

var _ RenderGraph = &renderGraph{}

// NewRenderGraph creates an empty graph.
//
// Parameters:
//   - label: the graph's label
//
// Returns:
//   - RenderGraph: the graph
func NewRenderGraph(label GraphLabel) RenderGraph {
	return &renderGraph{
		label:     label,
		nodes:     make(map[Label]Node),
		edges:     make(map[Label][]Label),
		subGraphs: make(map[GraphLabel]RenderGraph),
	}
}

func (g *renderGraph) Label() GraphLabel {
	return g.label
}

func (g *renderGraph) AddNode(label Label, node Node) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if _, ok := g.nodes[label]; ok {
		return fmt.Errorf("%w: %s in %s", ErrNodeExists, label, g.label)
	}
	g.nodes[label] = node
	g.labels = append(g.labels, label)
	g.dirty = true
	return nil
}

func (g *renderGraph) Node(label Label) (Node, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	n, ok := g.nodes[label]
	return n, ok
}

func (g *renderGraph) AddNodeEdge(from, to Label) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	for _, l := range []Label{from, to} {
		if _, ok := g.nodes[l]; !ok {
			return fmt.Errorf("%w: %s in %s", ErrNodeNotFound, l, g.label)
		}
	}
	if slices.Contains(g.edges[from], to) {
		return nil
	}
	g.edges[from] = append(g.edges[from], to)
	g.dirty = true
	return nil
}

func (g *renderGraph) AddNodeEdges(labels ...Label) error {
	for i := 1; i < len(labels); i++ {
		if err := g.AddNodeEdge(labels[i-1], labels[i]); err != nil {
			return err
		}
	}
	return nil
}

func (g *renderGraph) AddSubGraph(label GraphLabel, sub RenderGraph) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if _, ok := g.subGraphs[label]; ok {
		return fmt.Errorf("%w: %s", ErrSubGraphExists, label)
	}
	g.subGraphs[label] = sub
	return nil
}

func (g *renderGraph) SubGraph(label GraphLabel) (RenderGraph, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	sub, ok := g.subGraphs[label]
	return sub, ok
}

func (g *renderGraph) Order() ([]Label, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.sorted()
}

// sorted runs Kahn's algorithm, always picking the earliest-added ready node. The result is cached until the graph changes.
func (g *renderGraph) sorted() ([]Label, error) {
	if !g.dirty && g.order != nil {
		return g.order, nil
	}
	indegree := make(map[Label]int, len(g.labels))
	for _, targets := range g.edges {
		for _, to := range targets {
			indegree[to]++
		}
	}
	order := make([]Label, 0, len(g.labels))
	done := make(map[Label]bool, len(g.labels))
	for len(order) < len(g.labels) {
		next := -1
		for i, l := range g.labels {
			if !done[l] && indegree[l] == 0 {
				next = i
				break
			}
		}
		if next < 0 {
			var stuck []Label
			for _, l := range g.labels {
				if !done[l] {
					stuck = append(stuck, l)
				}
			}
			return nil, fmt.Errorf("%w in %s among %v", ErrCycle, g.label, stuck)
		}
		l := g.labels[next]
		done[l] = true
		order = append(order, l)
		for _, to := range g.edges[l] {
			indegree[to]--
		}
	}
	g.order, g.dirty = order, false
	return order, nil
}

func (g *renderGraph) Run(render *RenderContext, world *ecs.World, view donburi.Entity) error {
	g.mu.Lock()
	order, err := g.sorted()
	nodes := make([]Node, len(order))
	for i, l := range order {
		nodes[i] = g.nodes[l]
	}
	g.mu.Unlock()
	if err != nil {
		return err
	}

	ctx := &Context{graph: g.label, view: view}
	for i, node := range nodes {
		ctx.node = order[i]
		if err := node.Run(ctx, render, world); err != nil {
			common.Logger().Error("render graph node failed", "graph", g.label, "node", order[i], "error", err)
			return fmt.Errorf("node %s: %w", order[i], err)
		}
	}
	return nil
}
