package ecs

import (
	"reflect"
	"sync"

	"github.com/yohamta/donburi"
)

var (
	componentMu    sync.Mutex
	componentTypes = make(map[reflect.Type]any)
)

// Component returns the donburi component type for T. Every call with the same T returns the
// same component type, so packages can refer to a component by its Go type alone.
//
// Returns:
//   - *donburi.ComponentType[T]: the component type registered for T
func Component[T any]() *donburi.ComponentType[T] {
	key := reflect.TypeFor[T]()
	componentMu.Lock()
	defer componentMu.Unlock()
	if c, ok := componentTypes[key]; ok {
		return c.(*donburi.ComponentType[T])
	}
	c := donburi.NewComponentType[T]()
	componentTypes[key] = c
	return c
}

// Insert sets the T component of entity e to v, adding the component if needed.
// An entity holds at most one component of each type.
//
// Parameters:
//   - w: the world owning the entity
//   - e: the entity
//   - v: the component value, copied into the world
func Insert[T any](w *World, e donburi.Entity, v T) {
	ct := Component[T]()
	entry := w.Entry(e)
	if !entry.HasComponent(ct) {
		entry.AddComponent(ct)
	}
	ct.SetValue(entry, v)
}

// Get returns a pointer to the T component of entity e.
//
// Returns:
//   - *T: the stored component, valid until the entity's components change
//   - bool: false if the entity is gone or has no T
func Get[T any](w *World, e donburi.Entity) (*T, bool) {
	if !w.Valid(e) {
		return nil, false
	}
	ct := Component[T]()
	entry := w.Entry(e)
	if !entry.HasComponent(ct) {
		return nil, false
	}
	return ct.Get(entry), true
}

// Has reports whether entity e carries a T component.
func Has[T any](w *World, e donburi.Entity) bool {
	_, ok := Get[T](w, e)
	return ok
}

// Remove detaches the T component from e if present.
func Remove[T any](w *World, e donburi.Entity) {
	if !w.Valid(e) {
		return
	}
	ct := Component[T]()
	entry := w.Entry(e)
	if entry.HasComponent(ct) {
		entry.RemoveComponent(ct)
	}
}

// Each calls fn for every entity with a T component. The entity list is collected before fn
// runs, so fn may add or remove components.
//
// Parameters:
//   - w: the world to scan
//   - fn: receives each entity and a copy of its T value
func Each[T any](w *World, fn func(e donburi.Entity, v T)) {
	ct := Component[T]()
	type item struct {
		e donburi.Entity
		v T
	}
	var items []item
	ct.Each(w.World, func(entry *donburi.Entry) {
		items = append(items, item{e: entry.Entity(), v: ct.GetValue(entry)})
	})
	for _, it := range items {
		fn(it.e, it.v)
	}
}

// Count returns the number of entities carrying a T component.
func Count[T any](w *World) int {
	n := 0
	Component[T]().Each(w.World, func(*donburi.Entry) { n++ })
	return n
}
