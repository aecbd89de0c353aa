// Package govmeta is the Composition Root of the governance metadata engine.
//
// It turns JSON-LD style documents into typed Go values. A document names its
// vocabulary through a context (inline definitions, remote references or a
// mix of both); the engine resolves that context, rewrites every key to the
// IRI it stands for, and hands the resulting node to the type the caller asked
// for.
//
// Features:
//
//   - **Context resolution**: inline, nested and remote contexts merged left to
//     right, with cycle detection and parallel prefetch of sibling references.
//   - **Strict normalization**: keys the vocabulary cannot map are rejected
//     instead of being dropped.
//   - **Open projection**: any type whose pointer has a ProjectNode method can
//     be loaded, without changes to the engine (see pkg/project).
//   - **Transports**: HTTP(S), IPFS through a gateway, local files, preloaded
//     documents.
//   - **Context cache**: in memory or in Redis, invalidated by a file watcher
//     for local vocabularies.
//   - **Anchors**: blake2b-256 verification of documents referenced on chain.
//
// Usage:
//
//	engine, err := govmeta.New(ctx,
//		govmeta.WithTimeout(10*time.Second),
//		govmeta.WithLogger(logger),
//	)
//	defer engine.Close(ctx)
//
//	doc, err := govmeta.Load[cip100.Document](ctx, engine, "ipfs://bafy.../metadata.jsonld")
package govmeta
