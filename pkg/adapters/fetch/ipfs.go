package fetch

import (
	"context"
	"fmt"
	"strings"

	"github.com/aretw0/govmeta/pkg/core"
)

// DefaultGateway is the public IPFS HTTP gateway.
const DefaultGateway = "https://ipfs.io"

// IPFS fetches ipfs:// locations through an HTTP gateway.
type IPFS struct {
	gateway string
	http    core.Fetcher
}

// NewIPFS creates an IPFS fetcher. An empty gateway selects DefaultGateway.
func NewIPFS(gateway string, http core.Fetcher) *IPFS {
	if gateway == "" {
		gateway = DefaultGateway
	}
	return &IPFS{gateway: strings.TrimRight(gateway, "/"), http: http}
}

// GatewayURL rewrites ipfs://<cid>/<path> into <gateway>/ipfs/<cid>/<path>.
func (f *IPFS) GatewayURL(location string) (string, error) {
	rest, ok := strings.CutPrefix(location, "ipfs://")
	if !ok {
		return "", fmt.Errorf("%w: %s is not an ipfs location", core.ErrUnreachable, location)
	}
	rest = strings.TrimPrefix(rest, "ipfs/")
	if rest == "" || strings.HasPrefix(rest, "/") {
		return "", fmt.Errorf("%w: %s has no content identifier", core.ErrUnreachable, location)
	}
	return f.gateway + "/ipfs/" + rest, nil
}

// Fetch implements core.Fetcher.
func (f *IPFS) Fetch(ctx context.Context, location string) ([]byte, error) {
	u, err := f.GatewayURL(location)
	if err != nil {
		return nil, err
	}
	return f.http.Fetch(ctx, u)
}
