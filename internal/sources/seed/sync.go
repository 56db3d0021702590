package seed

import (
	"context"
	"fmt"

	redisstore "github.com/MrSnakeDoc/jumpgate/internal/store/redis"
)

// Writer persists mapped documents.
type Writer interface {
	SaveFixtures(ctx context.Context, seed redisstore.Seed) error
}

// Stats counts what a Sync wrote.
type Stats struct {
	Services     int
	Routes       int
	Applications int
	Accounts     int
	Groups       int
	Sessions     int
}

// Sync loads the seed file, maps it and writes it to the store. Documents
// already in the store and absent from the file are left alone.
func Sync(ctx context.Context, loader *Loader, mapper *Mapper, w Writer) (Stats, error) {
	f, err := loader.Load()
	if err != nil {
		return Stats{}, err
	}

	seed, err := mapper.Map(f)
	if err != nil {
		return Stats{}, fmt.Errorf("invalid seed file %s: %w", loader.Path(), err)
	}

	if err := w.SaveFixtures(ctx, seed); err != nil {
		return Stats{}, err
	}

	stats := Stats{
		Services:     len(seed.Services),
		Applications: len(seed.Applications),
		Accounts:     len(seed.Accounts),
		Groups:       len(seed.Groups),
		Sessions:     len(seed.Sessions),
	}
	for _, svc := range seed.Services {
		stats.Routes += len(svc.Routes)
	}
	return stats, nil
}
