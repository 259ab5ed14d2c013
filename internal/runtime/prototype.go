package runtime

import "sort"

// Prototype is an immutable record of built-in methods for one value kind,
// linked to a single parent.
type Prototype struct {
	Name    string
	methods map[string]*StaticFuncVal
	parent  *Prototype
}

// Built-in prototypes. Every kind-specific prototype inherits from TopProto.
var (
	TopProto     *Prototype
	ObjectProto  *Prototype
	NumberProto  *Prototype
	BooleanProto *Prototype
	ArrayProto   *Prototype
	StringProto  *Prototype
)

// The tables are filled in init rather than in var initializers: the method
// bodies reach back into the value types, which would form an initialization
// cycle.
func init() {
	TopProto = newPrototype("Top", nil, topMethods)
	ObjectProto = newPrototype("Object", TopProto, objectMethods)
	NumberProto = newPrototype("Number", TopProto, numberMethods)
	BooleanProto = newPrototype("Boolean", TopProto, booleanMethods)
	ArrayProto = newPrototype("Array", TopProto, arrayMethods)
	StringProto = newPrototype("String", TopProto, stringMethods)
}

func newPrototype(name string, parent *Prototype, methods map[string]StaticFn) *Prototype {
	p := &Prototype{Name: name, parent: parent, methods: make(map[string]*StaticFuncVal, len(methods))}
	for methodName, fn := range methods {
		p.methods[methodName] = NewStatic(methodName, fn)
	}
	return p
}

// Parent returns the next link in the chain, or nil.
func (p *Prototype) Parent() *Prototype {
	return p.parent
}

// Own returns the unbound method stored directly on this prototype.
func (p *Prototype) Own(name string) (*StaticFuncVal, bool) {
	m, ok := p.methods[name]
	return m, ok
}

// Names returns this prototype's own method names, sorted.
func (p *Prototype) Names() []string {
	names := make([]string, 0, len(p.methods))
	for name := range p.methods {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Resolve walks the chain from proto and returns the first method named name,
// bound to receiver. Only each link's own entries are consulted. The result is
// Undefined when no link defines name.
func Resolve(proto *Prototype, name string, receiver Value) Value {
	for p := proto; p != nil; p = p.parent {
		if m, ok := p.methods[name]; ok {
			return m.Bind(receiver)
		}
	}
	return Undefined
}
