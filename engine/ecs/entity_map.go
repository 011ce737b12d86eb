package ecs

import (
	"github.com/yohamta/donburi"
)

// MainEntity is attached to render-world entities and names the main-world entity they were extracted from.
type MainEntity struct {
	Entity donburi.Entity
}

// EntityMap pairs main-world entities with the render-world entities extracted from them during one frame.
type EntityMap struct {
	toRender map[donburi.Entity]donburi.Entity
}

func newEntityMap() *EntityMap {
	return &EntityMap{toRender: make(map[donburi.Entity]donburi.Entity)}
}

// Lookup returns the render entity extracted from main, if any.
//
// Returns:
//   - donburi.Entity: the render entity
//   - bool: false if main has not been extracted this frame
func (m *EntityMap) Lookup(main donburi.Entity) (donburi.Entity, bool) {
	e, ok := m.toRender[main]
	return e, ok
}

// Len returns the number of mapped entities.
func (m *EntityMap) Len() int {
	return len(m.toRender)
}

// RenderEntity returns the render-world entity for main-world entity main, spawning it with a
// MainEntity component on first use this frame. Extraction systems call it so that every piece
// of data extracted from one main entity lands on the same render entity regardless of system order.
//
// Parameters:
//   - render: the render world
//   - main: the main-world entity
//
// Returns:
//   - donburi.Entity: the render-world entity
func RenderEntity(render *World, main donburi.Entity) donburi.Entity {
	if e, ok := render.entities.Lookup(main); ok {
		return e
	}
	e := render.Spawn()
	Insert(render, e, MainEntity{Entity: main})
	render.entities.toRender[main] = e
	return e
}
