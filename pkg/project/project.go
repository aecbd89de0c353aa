// Package project defines the open contract through which domain types are
// built from normalized nodes.
//
// A type takes part by giving its pointer a ProjectNode method. The engine
// never enumerates projectable types: callers name the type they want and the
// engine calls its constructor with the node it produced.
//
//	type Person struct{ Name string }
//
//	func (p *Person) ProjectNode(n *node.Node) error {
//		name, err := project.String(n, "http://xmlns.com/foaf/0.1/name")
//		if err != nil {
//			return err
//		}
//		p.Name = name
//		return nil
//	}
//
//	person, err := project.Project[Person](n)
package project

import (
	"errors"
	"fmt"
	"reflect"

	"github.com/aretw0/govmeta/pkg/core"
	"github.com/aretw0/govmeta/pkg/node"
)

// Projectable is implemented by pointers to types that can be built from a node.
type Projectable interface {
	ProjectNode(n *node.Node) error
}

// Target constrains PT to be *T and Projectable, so that Project can
// allocate a T and fill it in place.
type Target[T any] interface {
	*T
	Projectable
}

// Project builds a T from n. On failure the zero T is returned together with a
// *core.ProjectionError naming the offending meaning.
func Project[T any, PT Target[T]](n *node.Node) (T, error) {
	var out T
	if n == nil {
		return out, &core.ProjectionError{Type: typeName[T](), Reason: core.ReasonMissing, Meaning: "node"}
	}
	if err := PT(&out).ProjectNode(n); err != nil {
		var zero T
		return zero, attribute[T](err)
	}
	return out, nil
}

// Func adapts a plain function into a projection, for types the caller does
// not own and therefore cannot give a ProjectNode method.
type Func[T any] func(n *node.Node) (T, error)

// Project runs f with the same error contract as Project.
func (f Func[T]) Project(n *node.Node) (T, error) {
	var zero T
	if n == nil {
		return zero, &core.ProjectionError{Type: typeName[T](), Reason: core.ReasonMissing, Meaning: "node"}
	}
	v, err := f(n)
	if err != nil {
		return zero, attribute[T](err)
	}
	return v, nil
}

// attribute stamps the projected type on a failure, wrapping errors that
// are not projection errors yet.
func attribute[T any](err error) error {
	var pe *core.ProjectionError
	if !errors.As(err, &pe) {
		return &core.ProjectionError{Type: typeName[T](), Reason: core.ReasonInvalid, Err: err}
	}
	if pe.Type == "" {
		pe.Type = typeName[T]()
	}
	return err
}

func typeName[T any]() string {
	t := reflect.TypeOf((*T)(nil)).Elem()
	if t.Name() == "" {
		return t.String()
	}
	if t.PkgPath() == "" {
		return t.Name()
	}
	return fmt.Sprintf("%s.%s", pkgName(t.PkgPath()), t.Name())
}

func pkgName(path string) string {
	for i := len(path) - 1; i >= 0; i-- {
		if path[i] == '/' {
			return path[i+1:]
		}
	}
	return path
}
