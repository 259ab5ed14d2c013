package runtime

import (
	"lumen/internal/span"
	"sort"
)

// Slot holds one binding.
type Slot struct {
	Value    Value
	Constant bool
}

// Environment represents a variable scope with a parent chain.
type Environment struct {
	bindings map[string]*Slot
	parent   *Environment
}

// NewEnvironment creates a new environment with an optional parent scope.
func NewEnvironment(parent *Environment) *Environment {
	return &Environment{
		bindings: make(map[string]*Slot),
		parent:   parent,
	}
}

// Parent returns the enclosing scope, or nil for the root.
func (e *Environment) Parent() *Environment {
	return e.parent
}

// Has reports whether name is bound in this scope (parents are not checked).
func (e *Environment) Has(name string) bool {
	_, ok := e.bindings[name]
	return ok
}

// Names returns this scope's own binding names, sorted.
func (e *Environment) Names() []string {
	names := make([]string, 0, len(e.bindings))
	for name := range e.bindings {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// DeclareVar creates a binding in this scope. Shadowing an outer binding is
// allowed; redeclaring one in the same scope is not.
func (e *Environment) DeclareVar(name string, value Value, constant bool, s span.Span) error {
	if _, exists := e.bindings[name]; exists {
		return runtimeErr(DuplicateBinding, s, "'%s' is already declared in this scope", name)
	}
	e.bindings[name] = &Slot{Value: value, Constant: constant}
	return nil
}

// AssignVar replaces the value of the innermost binding for name and returns
// the stored value. Undeclared names are never created implicitly.
func (e *Environment) AssignVar(name string, value Value, s span.Span) (Value, error) {
	slot := e.resolve(name)
	if slot == nil {
		return nil, runtimeErr(UnresolvedIdentifier, s, "cannot assign to undeclared variable '%s'", name)
	}
	if slot.Constant {
		return nil, runtimeErr(ConstantReassignment, s, "cannot assign to constant '%s'", name)
	}
	slot.Value = value
	return value, nil
}

// LookupVar returns the value of the innermost binding for name.
func (e *Environment) LookupVar(name string, s span.Span) (Value, error) {
	slot := e.resolve(name)
	if slot == nil {
		return nil, runtimeErr(UnresolvedIdentifier, s, "'%s' is not defined", name)
	}
	return slot.Value, nil
}

func (e *Environment) resolve(name string) *Slot {
	for env := e; env != nil; env = env.parent {
		if slot, ok := env.bindings[name]; ok {
			return slot
		}
	}
	return nil
}
