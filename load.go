package govmeta

import (
	"context"

	"github.com/aretw0/govmeta/pkg/anchor"
	"github.com/aretw0/govmeta/pkg/client"
	"github.com/aretw0/govmeta/pkg/project"
)

// Document is a typed view of a loaded metadata document.
type Document[T any] = client.Document[T]

// Load fetches the document at location and projects it onto T.
func Load[T any, PT project.Target[T]](ctx context.Context, e *Engine, location string) (T, error) {
	return client.Load[T, PT](ctx, e.Client, location)
}

// LoadWith is Load for types projected by a plain function.
func LoadWith[T any](ctx context.Context, e *Engine, location string, f project.Func[T]) (T, error) {
	return client.LoadWith(ctx, e.Client, location, f)
}

// LoadAnchored loads a.URL after checking it against a.DataHash.
func LoadAnchored[T any, PT project.Target[T]](ctx context.Context, e *Engine, a anchor.Anchor) (T, error) {
	return client.LoadAnchored[T, PT](ctx, e.Client, a)
}

// LoadDocument is Load keeping the node and the hash of the fetched bytes.
func LoadDocument[T any, PT project.Target[T]](ctx context.Context, e *Engine, location string) (Document[T], error) {
	return client.LoadDocument[T, PT](ctx, e.Client, location)
}
