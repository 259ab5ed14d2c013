package runtime

import (
	"lumen/internal/ast"
	"math"
)

// memberRef is the resolved (object, property, value) triple of a member
// expression. Exactly one of key or index is meaningful, as told by isIndex.
type memberRef struct {
	object  Value
	key     string
	index   float64
	isIndex bool
	value   Value
}

// property renders the property for error messages.
func (r memberRef) property() string {
	if r.isIndex {
		return formatNumber(r.index)
	}
	return r.key
}

// supportsMembers reports whether values of v's kind can appear on the left
// of a member expression.
func supportsMembers(v Value) bool {
	switch v.(type) {
	case *ObjectVal, *ArrayVal, StringVal, NumberVal, BoolVal, *FuncVal:
		return true
	}
	return false
}

// resolveMember evaluates the object and property of n and retrieves the
// current value.
func (i *Interpreter) resolveMember(n *ast.MemberExpr, env *Environment) (memberRef, error) {
	obj, err := i.Evaluate(n.Object, env)
	if err != nil {
		return memberRef{}, err
	}
	if !supportsMembers(obj) {
		return memberRef{}, runtimeErr(InvalidMemberAccessTarget, n.Span, "cannot access members of %s", obj.Kind())
	}

	ref := memberRef{object: obj}
	if !n.Computed {
		ident, ok := n.Property.(*ast.Identifier)
		if !ok {
			return memberRef{}, fault(n.Span, "non-computed member property must be an identifier, got %T", n.Property)
		}
		ref.key = ident.Name
	} else {
		prop, err := i.Evaluate(n.Property, env)
		if err != nil {
			return memberRef{}, err
		}
		switch p := prop.(type) {
		case StringVal:
			ref.key = string(p)
		case NumberVal:
			ref.index = float64(p)
			ref.isIndex = true
		default:
			return memberRef{}, runtimeErr(InvalidPropertyType, n.Property.GetSpan(), "property must be a string or number, got %s", prop.Kind())
		}
	}

	if ref.isIndex {
		switch o := obj.(type) {
		case StringVal:
			ref.value = Undefined
			if ch, ok := charAt(string(o), ref.index); ok {
				ref.value = StringVal(ch)
			}
		case *ArrayVal:
			ref.value = Undefined
			if idx, ok := arrayIndex(ref.index); ok && idx < len(o.Elements) {
				ref.value = o.Elements[idx]
			}
		default:
			return memberRef{}, runtimeErr(IndexAccessUnsupported, n.Span, "cannot index a value of type %s", obj.Kind())
		}
		return ref, nil
	}

	if o, ok := obj.(*ObjectVal); ok {
		if val, ok := o.Get(ref.key); ok {
			ref.value = val
			return ref, nil
		}
	}
	ref.value = Resolve(obj.Proto(), ref.key, obj)
	return ref, nil
}

// maxArrayLength bounds how far an index assignment may grow an array.
const maxArrayLength = 1 << 24

// arrayIndex converts f into a slice index when it is a non-negative integer
// below maxArrayLength.
func arrayIndex(f float64) (int, bool) {
	if f < 0 || f != math.Trunc(f) || f >= maxArrayLength {
		return 0, false
	}
	return int(f), true
}

// checkAssignable rejects member targets that cannot hold properties.
func checkAssignable(ref memberRef, n *ast.MemberExpr) error {
	switch ref.object.(type) {
	case *ObjectVal, *ArrayVal:
		return nil
	}
	return runtimeErr(InvalidAssignmentTarget, n.Span, "cannot assign to a member of %s", ref.object.Kind())
}

// assignMember stores val through a resolved reference. Arrays grow to fit an
// index past the end, padding with undefined.
func assignMember(ref memberRef, val Value, n *ast.MemberExpr) error {
	switch o := ref.object.(type) {
	case *ObjectVal:
		o.Set(ref.key, val)
		return nil
	case *ArrayVal:
		if !ref.isIndex {
			return runtimeErr(ArrayPropertyAssignmentForbidden, n.Span, "cannot assign named property '%s' on an array", ref.key)
		}
		idx, ok := arrayIndex(ref.index)
		if !ok && ref.index >= maxArrayLength {
			return runtimeErr(InvalidPropertyType, n.Span, "array index %s exceeds the maximum length %d", ref.property(), maxArrayLength)
		}
		if !ok {
			return runtimeErr(InvalidPropertyType, n.Span, "array index must be a non-negative integer, got %s", ref.property())
		}
		for len(o.Elements) <= idx {
			o.Elements = append(o.Elements, Undefined)
		}
		o.Elements[idx] = val
		return nil
	default:
		return runtimeErr(InvalidAssignmentTarget, n.Span, "cannot assign to a member of %s", ref.object.Kind())
	}
}
