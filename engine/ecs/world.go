// Package ecs wraps a donburi world with typed resources and the small set of helpers the
// engine needs to move data between the main world and the render world.
package ecs

import (
	"fmt"
	"reflect"
	"sync"

	"github.com/yohamta/donburi"
)

// resourceKey identifies a resource by its Go type and an optional name, so that several
// plugins can store values of the same type side by side.
type resourceKey struct {
	typ  reflect.Type
	name string
}

// spawned tags every entity created through Spawn. donburi entities need at least one
// component, and the tag keeps an entity alive after its last user component is removed.
var spawned = donburi.NewTag("ecs.spawned")

// World is an entity store plus a set of singleton resources.
// Entities live in the embedded donburi world; resources are keyed by type and name.
type World struct {
	donburi.World

	mu        sync.RWMutex
	resources map[resourceKey]any
	entities  *EntityMap
}

// NewWorld creates an empty World.
//
// Returns:
//   - *World: the new world
func NewWorld() *World {
	return &World{
		World:     donburi.NewWorld(),
		resources: make(map[resourceKey]any),
		entities:  newEntityMap(),
	}
}

// Spawn creates an entity carrying only the spawned tag. Components are attached with Insert.
//
// Returns:
//   - donburi.Entity: the new entity
func (w *World) Spawn() donburi.Entity {
	return w.Create(spawned)
}

// ClearEntities drops every entity while keeping resources. The render world calls this at the
// end of each frame so that extracted data never outlives the frame it was extracted for.
func (w *World) ClearEntities() {
	w.World = donburi.NewWorld()
	w.entities = newEntityMap()
}

// EntityMap returns the main-to-render entity mapping of this world.
//
// Returns:
//   - *EntityMap: the mapping, reset by ClearEntities
func (w *World) EntityMap() *EntityMap {
	return w.entities
}

// InsertResource stores v as the unnamed resource of type T, replacing any previous value.
//
// Parameters:
//   - w: the world to store into
//   - v: the resource value
func InsertResource[T any](w *World, v T) {
	InsertNamedResource(w, "", v)
}

// InsertNamedResource stores v as the resource of type T under name.
//
// Parameters:
//   - w: the world to store into
//   - name: distinguishes several resources of the same type
//   - v: the resource value
func InsertNamedResource[T any](w *World, name string, v T) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.resources[resourceKey{typ: reflect.TypeFor[T](), name: name}] = v
}

// Resource returns the unnamed resource of type T.
//
// Returns:
//   - T: the resource, or the zero value
//   - bool: false if the resource was never inserted
func Resource[T any](w *World) (T, bool) {
	return NamedResource[T](w, "")
}

// NamedResource returns the resource of type T stored under name.
//
// Returns:
//   - T: the resource, or the zero value
//   - bool: false if no such resource exists
func NamedResource[T any](w *World, name string) (T, bool) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	v, ok := w.resources[resourceKey{typ: reflect.TypeFor[T](), name: name}]
	if !ok {
		var zero T
		return zero, false
	}
	return v.(T), true
}

// MustResource returns the unnamed resource of type T and panics if it is missing.
// Use it only for resources a plugin inserts during Build.
func MustResource[T any](w *World) T {
	v, ok := Resource[T](w)
	if !ok {
		panic(fmt.Sprintf("ecs: resource %s does not exist", reflect.TypeFor[T]()))
	}
	return v
}

// RemoveResource deletes the unnamed resource of type T if present.
func RemoveResource[T any](w *World) {
	w.mu.Lock()
	defer w.mu.Unlock()
	delete(w.resources, resourceKey{typ: reflect.TypeFor[T]()})
}
