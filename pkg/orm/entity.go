// pkg/orm/entity.go
package orm

import (
	"fmt"
	"reflect"
	"strings"
	"sync"
)

// Descriptor is the static per-type metadata of a persisted entity.
type Descriptor struct {
	Table string // storage table name, never empty once registered
}

// TableNamer can be implemented by an entity instead of registering it.
// TableName must not depend on the receiver's contents; it is called on the zero value.
type TableNamer interface {
	TableName() string
}

// Registry maps entity types to their descriptors. Descriptors are immutable once set.
type Registry struct {
	mu     sync.RWMutex
	byType map[reflect.Type]Descriptor
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{byType: make(map[reflect.Type]Descriptor)}
}

// Register binds T to table. An empty table defaults to the lowercased type name.
// Registering T again is a no-op with the same table and an error with a different one.
func Register[T any](r *Registry, table string) error {
	return r.register(entityType[T](), table)
}

// MustRegister is like Register but panics on error. Intended for startup code.
func MustRegister[T any](r *Registry, table string) {
	if err := Register[T](r, table); err != nil {
		panic(err)
	}
}

func (r *Registry) register(t reflect.Type, table string) error {
	if t.Kind() != reflect.Struct {
		return fmt.Errorf("orm: cannot register %s: entity must be a struct", t)
	}
	if table == "" {
		table = strings.ToLower(t.Name())
	}
	if table == "" {
		return fmt.Errorf("orm: cannot register anonymous type %s without a table name", t)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if existing, ok := r.byType[t]; ok {
		if existing.Table != table {
			return fmt.Errorf("orm: %s already registered with table %q", t, existing.Table)
		}
		return nil
	}
	r.byType[t] = Descriptor{Table: table}
	return nil
}

// Lookup returns the registered descriptor for t.
func (r *Registry) Lookup(t reflect.Type) (Descriptor, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	d, ok := r.byType[t]
	return d, ok
}

// Describe resolves the descriptor of T: the registry first, then TableNamer.
func Describe[T any](r *Registry) (Descriptor, error) {
	t := entityType[T]()
	if r != nil {
		if d, ok := r.Lookup(t); ok {
			return d, nil
		}
	}
	var zero T
	if tn, ok := any(zero).(TableNamer); ok {
		if name := tn.TableName(); name != "" {
			return Descriptor{Table: name}, nil
		}
	}
	if tn, ok := any(&zero).(TableNamer); ok {
		if name := tn.TableName(); name != "" {
			return Descriptor{Table: name}, nil
		}
	}
	return Descriptor{}, fmt.Errorf("%w: %s", ErrNotRegistered, t)
}

func entityType[T any]() reflect.Type {
	return reflect.TypeOf((*T)(nil)).Elem()
}
