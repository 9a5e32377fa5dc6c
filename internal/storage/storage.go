package storage

import "context"

// Client resolves a post's media reference into a local file path that the
// upload flows can hand to the browser or the API engine. References are
// either paths inside the media directory or http(s) URLs fetched on
// demand.
type Client interface {
	EnsureLocal(ctx context.Context, mediaRef string) (string, error)
}
