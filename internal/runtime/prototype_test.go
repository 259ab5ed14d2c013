package runtime

import (
	"lumen/internal/span"
	"testing"

	"github.com/go-test/deep"
)

func TestPrototypeChainShape(t *testing.T) {
	if TopProto.Parent() != nil {
		t.Error("Top prototype must terminate the chain")
	}
	for _, p := range []*Prototype{ObjectProto, NumberProto, BooleanProto, ArrayProto, StringProto} {
		if p.Parent() != TopProto {
			t.Errorf("%s prototype parent = %v, want Top", p.Name, p.Parent())
		}
	}
}

func TestValuePrototypeLinks(t *testing.T) {
	tests := []struct {
		v    Value
		want *Prototype
	}{
		{NumberVal(1), NumberProto},
		{StringVal("s"), StringProto},
		{BoolVal(true), BooleanProto},
		{NewObject(nil), ObjectProto},
		{NewArray(), ArrayProto},
		{NewFunction("f", nil, nil, nil), TopProto},
		{Null, nil},
		{Undefined, nil},
		{NewNative("n", nil), nil},
		{NewStatic("s", nil), nil},
	}
	for _, tt := range tests {
		if got := tt.v.Proto(); got != tt.want {
			t.Errorf("%s: Proto() = %v, want %v", tt.v.Kind(), got, tt.want)
		}
	}
}

func TestResolveBindsReceiver(t *testing.T) {
	recv := NewArray(NumberVal(1), NumberVal(2))
	got := Resolve(ArrayProto, "length", recv)
	fn, ok := got.(*StaticFuncVal)
	if !ok {
		t.Fatalf("Resolve returned %T, want *StaticFuncVal", got)
	}
	if fn.Receiver != Value(recv) {
		t.Error("resolved method is not bound to the receiver")
	}
	n, err := fn.Fn(fn.Receiver, span.Position{})
	if err != nil {
		t.Fatal(err)
	}
	if n != NumberVal(2) {
		t.Errorf("length() = %v, want 2", n)
	}

	own, _ := ArrayProto.Own("length")
	if own.Receiver != nil {
		t.Error("Resolve mutated the prototype record")
	}
}

func TestResolveWalksToTop(t *testing.T) {
	got := Resolve(NumberProto, "valueOf", NumberVal(3))
	if _, ok := got.(*StaticFuncVal); !ok {
		t.Fatalf("valueOf not inherited from Top, got %v", got)
	}
}

func TestResolveOwnKindShadows(t *testing.T) {
	fn := Resolve(BooleanProto, "toString", BoolVal(false)).(*StaticFuncVal)
	own, _ := BooleanProto.Own("toString")
	top, _ := TopProto.Own("toString")
	// The bound copy shares the body of the Boolean entry, not Top's.
	if fn.Name != own.Name {
		t.Errorf("resolved %q", fn.Name)
	}
	if _, err := own.Fn(NumberVal(1), span.Position{}); err == nil {
		t.Error("Boolean toString should reject non-boolean receivers")
	}
	if _, err := top.Fn(NumberVal(1), span.Position{}); err != nil {
		t.Errorf("Top toString accepts any receiver: %v", err)
	}
	if _, err := fn.Fn(NumberVal(1), span.Position{}); err == nil {
		t.Error("resolved toString is Top's, expected Boolean's")
	}
}

func TestResolveMisses(t *testing.T) {
	for _, name := range []string{"nope", "constructor", "__proto__", "hasOwnProperty", ""} {
		if got := Resolve(StringProto, name, StringVal("s")); got != Undefined {
			t.Errorf("Resolve(%q) = %v, want undefined", name, got)
		}
	}
	if got := Resolve(nil, "toString", Null); got != Undefined {
		t.Errorf("Resolve(nil) = %v, want undefined", got)
	}
}

func TestPrototypeNames(t *testing.T) {
	if diff := deep.Equal(TopProto.Names(), []string{"toString", "valueOf"}); diff != nil {
		t.Error(diff)
	}
	if diff := deep.Equal(ObjectProto.Names(), []string{"has", "keys", "length", "values"}); diff != nil {
		t.Error(diff)
	}
}
