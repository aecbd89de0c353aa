package core

import "context"

// Purpose tells a Fetcher why a location is being retrieved.
type Purpose string

const (
	PurposeDocument Purpose = "document"
	PurposeContext  Purpose = "context"
)

type contextKey string

// purposeKey is the context key carrying the fetch Purpose.
const purposeKey contextKey = "fetch_purpose"

// WithPurpose annotates ctx with the reason for the next fetch.
func WithPurpose(ctx context.Context, p Purpose) context.Context {
	return context.WithValue(ctx, purposeKey, p)
}

// PurposeFrom returns the fetch purpose carried by ctx, defaulting to PurposeDocument.
func PurposeFrom(ctx context.Context) Purpose {
	if p, ok := ctx.Value(purposeKey).(Purpose); ok && p != "" {
		return p
	}
	return PurposeDocument
}

const originKey contextKey = "document_origin"

// WithOrigin records the location of the document being processed.
// Contexts embedded in that document are confined according to it.
func WithOrigin(ctx context.Context, location string) context.Context {
	return context.WithValue(ctx, originKey, location)
}

// OriginFrom returns the document location carried by ctx, empty when unknown.
func OriginFrom(ctx context.Context) string {
	origin, _ := ctx.Value(originKey).(string)
	return origin
}
