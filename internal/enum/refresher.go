package enum

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"datagate/internal/configcache"
)

// Global flag leaves controlling the enum subsystem.
const (
	leafEnable          = "EnableEnumService"
	leafFailOnLoad      = "FailOnEnumLoadFailure"
	leafRefreshInterval = "EnumRefreshIntervalSeconds"
)

const defaultRefreshSeconds = 300

// Refresher drives the periodic reload of the enum registry. Flags
// under the Globals subtree decide whether the subsystem runs at all
// and how strict the initial load is.
type Refresher struct {
	client      *Client
	registry    *Registry
	cache       *configcache.Cache
	globalsPath string
	logger      *zap.Logger

	// OnRefresh is invoked after every refresh attempt, for metrics.
	OnRefresh func(err error)
}

// NewRefresher wires a refresher over the client and registry.
func NewRefresher(client *Client, registry *Registry, cache *configcache.Cache, globalsPath string, logger *zap.Logger) *Refresher {
	return &Refresher{
		client:      client,
		registry:    registry,
		cache:       cache,
		globalsPath: globalsPath,
		logger:      logger,
	}
}

// Enabled reports whether the enum subsystem is switched on.
func (r *Refresher) Enabled() bool {
	return r.cache.GetBool(r.globalsPath+"/"+leafEnable, true)
}

// Initialize performs the first load. A failure is fatal when
// FailOnEnumLoadFailure is set (the default); otherwise the service
// starts with an empty registry and catches up on the next tick.
func (r *Refresher) Initialize(ctx context.Context) error {
	if !r.Enabled() {
		r.logger.Info("enum service disabled, skipping initial load")
		return nil
	}
	if err := r.refresh(ctx); err != nil {
		if r.cache.GetBool(r.globalsPath+"/"+leafFailOnLoad, true) {
			return fmt.Errorf("initial enum load failed: %w", err)
		}
		r.logger.Warn("initial enum load failed, continuing with empty registry", zap.Error(err))
	}
	return nil
}

// Start runs the refresh loop until ctx is done.
func (r *Refresher) Start(ctx context.Context) {
	if !r.Enabled() {
		return
	}
	go func() {
		for {
			interval := r.interval()
			select {
			case <-ctx.Done():
				return
			case <-time.After(interval):
			}
			if !r.Enabled() {
				continue
			}
			if err := r.refresh(ctx); err != nil {
				r.logger.Warn("enum refresh failed", zap.Error(err))
			}
		}
	}()
}

func (r *Refresher) interval() time.Duration {
	seconds := r.cache.GetLong(r.globalsPath+"/"+leafRefreshInterval, defaultRefreshSeconds)
	if seconds <= 0 {
		seconds = defaultRefreshSeconds
	}
	return time.Duration(seconds) * time.Second
}

func (r *Refresher) refresh(ctx context.Context) error {
	enums, err := r.client.FetchAll(ctx)
	if r.OnRefresh != nil {
		r.OnRefresh(err)
	}
	if err != nil {
		return err
	}
	r.registry.Replace(enums)
	r.logger.Info("enum registry refreshed", zap.Int("enums", len(enums)))
	return nil
}
