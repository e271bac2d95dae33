// Package source defines where snapshots come from.
//
// Two sources exist: [file] reads snapshot documents from disk and can watch
// them for changes, and [mongo] reads snapshot documents stored in a MongoDB
// collection. Both return *ontology.Snapshot values that are never mutated
// afterwards; a changed document yields a new pointer, which is what makes a
// viewer session rebuild its model.
package source

import (
	"context"

	"github.com/matzehuels/ontograph/pkg/ontology"
)

// Source loads snapshots by name.
type Source interface {
	// Kind names the source in cache keys and logs ("file", "mongo").
	Kind() string

	// Load returns the snapshot called name. A missing snapshot is an
	// error with code SNAPSHOT_NOT_FOUND or FILE_NOT_FOUND.
	Load(ctx context.Context, name string) (*ontology.Snapshot, error)
}

// Func adapts a function to a Source.
type Func struct {
	KindName string
	LoadFunc func(ctx context.Context, name string) (*ontology.Snapshot, error)
}

// Kind implements Source.
func (f Func) Kind() string { return f.KindName }

// Load implements Source.
func (f Func) Load(ctx context.Context, name string) (*ontology.Snapshot, error) {
	return f.LoadFunc(ctx, name)
}
