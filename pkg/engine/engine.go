// Package engine invokes the underlying image build engine.
package engine

import "context"

//go:generate mockgen -source=engine.go -destination=mock_engine.go -package=engine

// Engine builds an image from a context directory whose build descriptor has
// already been written, returning the ID of the produced image. The engine is
// a black box: stepcache hands it a descriptor and a tag and reads back an
// image ID.
type Engine interface {
	Build(ctx context.Context, contextDir, dockerfile, tag string) (string, error)
}
