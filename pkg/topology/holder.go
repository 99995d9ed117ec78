package topology

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/busline/busline/pkg/ctdf"
	"github.com/rs/zerolog/log"
)

// RouteLoader fetches every persisted route used to build a new Index
type RouteLoader func(ctx context.Context) ([]*ctdf.Route, error)

// Holder keeps the current Index snapshot. Snapshots are swapped wholesale so readers always
// see a consistent view.
type Holder struct {
	current atomic.Pointer[Index]

	// OnRefresh, when set, is told about every refresh attempt
	OnRefresh func(index *Index, err error)
}

func NewHolder(initial *Index) *Holder {
	holder := &Holder{}
	holder.Store(initial)

	return holder
}

func (h *Holder) Current() *Index {
	index := h.current.Load()
	if index == nil {
		return emptyIndex()
	}

	return index
}

func (h *Holder) Store(index *Index) {
	if index == nil {
		index = emptyIndex()
	}

	h.current.Store(index)
}

// Refresh builds a new Index from the loader and swaps it in. The previous snapshot is kept
// when loading or building fails.
func (h *Holder) Refresh(ctx context.Context, loader RouteLoader) error {
	index, err := h.build(ctx, loader)
	if h.OnRefresh != nil {
		h.OnRefresh(index, err)
	}
	if err != nil {
		return err
	}

	h.Store(index)

	log.Debug().Int("routes", index.RouteCount()).Msg("Route topology refreshed")

	return nil
}

func (h *Holder) build(ctx context.Context, loader RouteLoader) (*Index, error) {
	routes, err := loader(ctx)
	if err != nil {
		return nil, err
	}

	return Build(routes)
}

func (h *Holder) RunRefresher(ctx context.Context, interval time.Duration, loader RouteLoader) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := h.Refresh(ctx, loader); err != nil {
				log.Error().Err(err).Msg("Failed to refresh route topology")
			}
		}
	}
}
