package expander

import "context"

//go:generate mockgen -package mockexpander -source=interface.go -destination=mock/mockexpander.go *
type Expander interface {
	// Expand resolves raw to the final location reached by its redirect chain.
	Expand(ctx context.Context, raw string) (string, error)
}
