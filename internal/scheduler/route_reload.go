package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/MrSnakeDoc/jumpgate/internal/domain"
	"github.com/MrSnakeDoc/jumpgate/internal/gateway"
	"github.com/MrSnakeDoc/jumpgate/internal/index"
	"github.com/MrSnakeDoc/jumpgate/internal/logger"
)

// ServiceSource lists every registered service.
type ServiceSource interface {
	GetAllServices(ctx context.Context) ([]*domain.Service, error)
}

// RouteReloader keeps the route table in step with the services declared in
// the store. It rebuilds only when the route structure changed; flag changes
// are picked up by the pipeline on each request.
type RouteReloader struct {
	source        ServiceSource
	builder       *gateway.Builder
	table         *gateway.Table
	index         *index.MemoryIndex
	metrics       *gateway.Metrics
	logger        logger.Logger
	interval      time.Duration
	stopCh        chan struct{}
	manualTrigger chan struct{}
}

// NewRouteReloader creates a new route reloader
func NewRouteReloader(
	source ServiceSource,
	builder *gateway.Builder,
	table *gateway.Table,
	idx *index.MemoryIndex,
	metrics *gateway.Metrics,
	log logger.Logger,
	interval time.Duration,
	manualTrigger chan struct{},
) *RouteReloader {
	return &RouteReloader{
		source:        source,
		builder:       builder,
		table:         table,
		index:         idx,
		metrics:       metrics,
		logger:        log,
		interval:      interval,
		stopCh:        make(chan struct{}),
		manualTrigger: manualTrigger,
	}
}

// Start builds the first table, then resyncs on every tick and on manual
// trigger until Stop or ctx is done.
func (rr *RouteReloader) Start(ctx context.Context) error {
	if err := rr.Reload(ctx, true); err != nil {
		return fmt.Errorf("initial route table build failed: %w", err)
	}

	ticker := time.NewTicker(rr.interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				if err := rr.Reload(ctx, false); err != nil {
					rr.logger.Error("failed to resync route table",
						logger.Error(err))
				}
			case <-rr.manualTrigger:
				rr.logger.Info("manual route table rebuild triggered")
				if err := rr.Reload(ctx, true); err != nil {
					rr.logger.Error("failed to rebuild route table",
						logger.Error(err))
				}
			case <-rr.stopCh:
				return
			case <-ctx.Done():
				return
			}
		}
	}()

	return nil
}

// Stop stops the reloader
func (rr *RouteReloader) Stop() {
	close(rr.stopCh)
}

// Reload reads every service and swaps in a new table when the structure
// signature moved, or unconditionally when force is set. On any error the
// current table stays in place.
func (rr *RouteReloader) Reload(ctx context.Context, force bool) error {
	services, err := rr.source.GetAllServices(ctx)
	if err != nil {
		err = fmt.Errorf("failed to load services: %w", err)
		rr.index.MarkFailed(err)
		return err
	}

	signature := gateway.Signature(services)
	if !force && !rr.index.GetLastReload().IsZero() && signature == rr.index.Signature() {
		rr.index.MarkChecked()
		rr.logger.Debug("route structure unchanged",
			logger.Uint64("signature", signature))
		return nil
	}

	handler, mounted, err := rr.builder.Build(services)
	rr.metrics.ObserveRebuild(mounted, err)
	if err != nil {
		rr.index.MarkFailed(err)
		return err
	}

	rr.table.Swap(handler, mounted)
	rr.index.Update(services, signature, mounted)

	rr.logger.Info("route table rebuilt",
		logger.Int("services", len(services)),
		logger.Int("routes", mounted),
		logger.Uint64("signature", signature))

	return nil
}
