package client

import (
	"context"

	"github.com/aretw0/govmeta/pkg/anchor"
	"github.com/aretw0/govmeta/pkg/core"
	"github.com/aretw0/govmeta/pkg/node"
	"github.com/aretw0/govmeta/pkg/project"
)

// Document is a typed view of a loaded metadata document.
type Document[T any] struct {
	Location string
	Hash     string // blake2b-256 of the fetched bytes
	Node     *node.Node
	Data     T
}

// Load fetches the document at location and projects it onto T.
// On failure the zero T is returned with a *core.LoadError.
func Load[T any, PT project.Target[T]](ctx context.Context, c *Client, location string) (T, error) {
	doc, err := load(ctx, c, location, "", project.Project[T, PT])
	return doc.Data, err
}

// LoadWith is Load for types projected by a plain function.
func LoadWith[T any](ctx context.Context, c *Client, location string, f project.Func[T]) (T, error) {
	doc, err := load(ctx, c, location, "", f.Project)
	return doc.Data, err
}

// LoadAnchored loads a.URL and projects it onto T after checking the fetched
// bytes against a.DataHash. A mismatch fails at the verify stage with
// anchor.ErrHashMismatch.
func LoadAnchored[T any, PT project.Target[T]](ctx context.Context, c *Client, a anchor.Anchor) (T, error) {
	if a.DataHash == "" {
		var zero T
		return zero, &core.LoadError{Stage: core.StageVerify, Location: a.URL, Err: anchor.ErrInvalidHash}
	}
	doc, err := load(ctx, c, a.URL, a.DataHash, project.Project[T, PT])
	return doc.Data, err
}

// LoadDocument is Load keeping the node and the hash of the fetched bytes.
func LoadDocument[T any, PT project.Target[T]](ctx context.Context, c *Client, location string) (Document[T], error) {
	return load(ctx, c, location, "", project.Project[T, PT])
}

func load[T any](ctx context.Context, c *Client, location, hash string, projectFn func(*node.Node) (T, error)) (Document[T], error) {
	p := c.begin(location)
	res, err := p.execute(ctx, hash, stageNormalize)
	if err != nil {
		p.finish(err)
		return Document[T]{}, err
	}

	p.enter(core.StageProject)
	v, err := projectFn(res.node)
	if err != nil {
		err = p.fail(err)
		p.finish(err)
		return Document[T]{}, err
	}
	p.finish(nil)

	return Document[T]{
		Location: location,
		Hash:     anchor.Hash(res.data),
		Node:     res.node,
		Data:     v,
	}, nil
}

func verify(data []byte, hash string) error {
	return anchor.Verify(data, hash)
}
