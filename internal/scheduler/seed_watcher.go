package scheduler

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/MrSnakeDoc/jumpgate/internal/logger"
	"github.com/MrSnakeDoc/jumpgate/internal/sources/seed"
)

const seedDebounce = 100 * time.Millisecond

// SeedWatcher writes the seed file into the store on start and whenever the
// file changes, then asks the route reloader for a rebuild.
type SeedWatcher struct {
	loader  *seed.Loader
	mapper  *seed.Mapper
	writer  seed.Writer
	trigger chan<- struct{}
	logger  logger.Logger
	path    string
	watcher *fsnotify.Watcher
	wg      sync.WaitGroup
	stopCh  chan struct{}
}

// NewSeedWatcher creates a new seed watcher
func NewSeedWatcher(
	seedFile string,
	writer seed.Writer,
	trigger chan<- struct{},
	log logger.Logger,
) (*SeedWatcher, error) {
	path, err := filepath.Abs(seedFile)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve seed path: %w", err)
	}

	return &SeedWatcher{
		loader:  seed.NewLoader(path),
		mapper:  seed.NewMapper(),
		writer:  writer,
		trigger: trigger,
		logger:  log.With(logger.String("seed_file", path)),
		path:    path,
		stopCh:  make(chan struct{}),
	}, nil
}

// Start seeds once, then watches the file's directory so that editors
// replacing the file by rename are seen too.
func (sw *SeedWatcher) Start(ctx context.Context) error {
	if err := sw.Apply(ctx); err != nil {
		return fmt.Errorf("initial seed failed: %w", err)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	if err := watcher.Add(filepath.Dir(sw.path)); err != nil {
		_ = watcher.Close()
		return fmt.Errorf("failed to watch seed directory: %w", err)
	}
	sw.watcher = watcher

	sw.wg.Add(1)
	go sw.watchLoop(ctx)
	return nil
}

// Stop stops watching and waits for the loop to exit
func (sw *SeedWatcher) Stop() {
	close(sw.stopCh)
	if sw.watcher != nil {
		_ = sw.watcher.Close()
	}
	sw.wg.Wait()
}

// Apply writes the seed file to the store and requests a rebuild.
func (sw *SeedWatcher) Apply(ctx context.Context) error {
	stats, err := seed.Sync(ctx, sw.loader, sw.mapper, sw.writer)
	if err != nil {
		return err
	}

	sw.logger.Info("seed applied",
		logger.Int("services", stats.Services),
		logger.Int("routes", stats.Routes),
		logger.Int("applications", stats.Applications),
		logger.Int("accounts", stats.Accounts),
		logger.Int("groups", stats.Groups),
		logger.Int("sessions", stats.Sessions))

	// A pending request already covers this one.
	select {
	case sw.trigger <- struct{}{}:
	default:
	}
	return nil
}

// watchLoop owns the debounce timer, so an apply never outlives Stop.
func (sw *SeedWatcher) watchLoop(ctx context.Context) {
	defer sw.wg.Done()

	var debounce *time.Timer
	var fire <-chan time.Time
	defer func() {
		if debounce != nil {
			debounce.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case <-sw.stopCh:
			return
		case <-fire:
			fire = nil
			if err := sw.Apply(ctx); err != nil {
				sw.logger.Error("failed to apply seed file", logger.Error(err))
			}
		case event, ok := <-sw.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != sw.path {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
				continue
			}

			if debounce == nil {
				debounce = time.NewTimer(seedDebounce)
			} else {
				debounce.Reset(seedDebounce)
			}
			fire = debounce.C
		case err, ok := <-sw.watcher.Errors:
			if !ok {
				return
			}
			sw.logger.Warn("seed watcher error", logger.Error(err))
		}
	}
}
