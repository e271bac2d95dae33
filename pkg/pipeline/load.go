package pipeline

import (
	"bytes"
	"context"

	"github.com/matzehuels/ontograph/pkg/cache"
	"github.com/matzehuels/ontograph/pkg/ontology"
)

// Load reads the snapshot selected by opts without caching.
func Load(ctx context.Context, opts Options) (*ontology.Snapshot, error) {
	if err := opts.ValidateForLoad(); err != nil {
		return nil, err
	}
	switch {
	case opts.Snapshot != nil:
		return opts.Snapshot, nil
	case opts.Path != "":
		return ontology.ReadFile(opts.Path)
	default:
		return opts.Source.Load(ctx, opts.Name)
	}
}

// HashSnapshot returns the content hash of s, the cache identity of every
// layout computed from it.
func HashSnapshot(s *ontology.Snapshot) (string, error) {
	var buf bytes.Buffer
	if err := ontology.WriteJSON(s, &buf); err != nil {
		return "", err
	}
	return cache.Hash(buf.Bytes()), nil
}
