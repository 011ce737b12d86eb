package render_graph

import (
	"github.com/Carmen-Shannon/oxy-postfx/engine/ecs"
	"github.com/yohamta/donburi"
)

// Label names a node within a graph. Labels are compared by value, so any two nodes with the same
// label in one graph are the same node.
type Label string

// GraphLabel names a sub-graph.
type GraphLabel string

// Node is one step of a render graph. Run is called once per view per frame, in graph order.
type Node interface {
	// Run records the node's commands for the current view.
	//
	// Parameters:
	//   - graph: the graph invocation, carrying the view entity
	//   - render: the frame's render context
	//   - world: the render world
	//
	// Returns:
	//   - error: a non-nil error aborts the rest of the graph for this view
	Run(graph *Context, render *RenderContext, world *ecs.World) error
}

// NodeFunc adapts a function to the Node interface.
type NodeFunc func(graph *Context, render *RenderContext, world *ecs.World) error

func (f NodeFunc) Run(graph *Context, render *RenderContext, world *ecs.World) error {
	return f(graph, render, world)
}

// EmptyNode does nothing. It marks a position in the graph other nodes order themselves against.
type EmptyNode struct{}

func (EmptyNode) Run(*Context, *RenderContext, *ecs.World) error {
	return nil
}

// Context describes a single graph invocation.
type Context struct {
	graph GraphLabel
	view  donburi.Entity
	node  Label
}

// Graph returns the label of the running graph.
func (c *Context) Graph() GraphLabel {
	return c.graph
}

// ViewEntity returns the render-world entity of the view the graph runs for.
func (c *Context) ViewEntity() donburi.Entity {
	return c.view
}

// Node returns the label of the running node.
func (c *Context) Node() Label {
	return c.node
}
