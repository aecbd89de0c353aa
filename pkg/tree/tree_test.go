package tree

import (
	"encoding/json"
	"testing"
)

func TestObjectOrder(t *testing.T) {
	obj := NewObject(
		M("b", Int(1)),
		M("a", Int(2)),
		M("b", Int(3)),
	)

	keys := obj.Keys()
	if len(keys) != 2 || keys[0] != "b" || keys[1] != "a" {
		t.Fatalf("unexpected key order: %v", keys)
	}
	v, _ := obj.Get("b")
	if n, _ := v.AsNumber(); n != "3" {
		t.Errorf("expected last value to win, got %v", v)
	}

	data, err := json.Marshal(FromObject(obj))
	if err != nil {
		t.Fatalf("marshal failed: %v", err)
	}
	if string(data) != `{"b":3,"a":2}` {
		t.Errorf("unexpected json: %s", data)
	}
}

func TestAccessorsAreCopies(t *testing.T) {
	arr := Array(String("x"), String("y"))
	items, ok := arr.AsArray()
	if !ok {
		t.Fatal("expected array")
	}
	items[0] = String("mutated")

	first, _ := arr.Index(0)
	if s, _ := first.AsString(); s != "x" {
		t.Errorf("array was mutated through accessor: %v", arr)
	}
}

func TestFromAny(t *testing.T) {
	v, err := FromAny(map[string]any{
		"z":    "last",
		"a":    []any{1, 2.5, true, nil},
		"nest": map[string]any{"k": json.Number("12345678901234567890")},
	})
	if err != nil {
		t.Fatalf("FromAny failed: %v", err)
	}

	obj, ok := v.AsObject()
	if !ok {
		t.Fatalf("expected object, got %s", v.Kind())
	}
	if keys := obj.Keys(); keys[0] != "a" || keys[2] != "z" {
		t.Errorf("expected sorted keys, got %v", keys)
	}

	nest, _ := obj.Get("nest")
	nestObj, _ := nest.AsObject()
	big, _ := nestObj.Get("k")
	if n, _ := big.AsNumber(); n != "12345678901234567890" {
		t.Errorf("number precision lost: %v", n)
	}

	if _, err := FromAny(struct{}{}); err == nil {
		t.Error("expected error for unsupported type")
	}
}

func TestEqual(t *testing.T) {
	a := Obj(M("x", Int(1)), M("y", Array(String("a"), Null())))
	b := Obj(M("y", Array(String("a"), Null())), M("x", Int(1)))
	c := Obj(M("x", Int(1)), M("y", Array(Null(), String("a"))))

	if !Equal(a, b) {
		t.Error("objects with different key order should be equal")
	}
	if Equal(a, c) {
		t.Error("arrays with different order should not be equal")
	}
	if Equal(String("1"), Int(1)) {
		t.Error("values of different kinds should not be equal")
	}
}

func TestAnyRoundTrip(t *testing.T) {
	v := Obj(M("name", String("Alice")), M("tags", Array(Bool(true))))
	back, err := FromAny(v.Any())
	if err != nil {
		t.Fatalf("FromAny failed: %v", err)
	}
	if !Equal(v, back) {
		t.Errorf("round trip mismatch: %v vs %v", v, back)
	}
}
