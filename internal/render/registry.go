// Package render turns notification events into displayable push
// content. One renderer is registered per notification-plugin type;
// unknown types fall back to a default renderer.
package render

import (
	"context"
	"sync"

	"github.com/exo-addons/go-push-service/pkg/push"
)

// Registry routes events to the renderer registered for their plugin
// type. It satisfies push.MessageRenderer itself so the dispatcher sees
// a single renderer.
type Registry struct {
	mu        sync.RWMutex
	renderers map[string]push.MessageRenderer
	fallback  push.MessageRenderer
}

// NewRegistry creates the registry. fallback handles plugin types with
// no dedicated renderer; a nil fallback means such events render to
// nothing and their devices are skipped.
func NewRegistry(fallback push.MessageRenderer) *Registry {
	return &Registry{
		renderers: make(map[string]push.MessageRenderer),
		fallback:  fallback,
	}
}

// Register binds a renderer to a plugin type, replacing any previous
// binding.
func (r *Registry) Register(pluginID string, renderer push.MessageRenderer) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.renderers[pluginID] = renderer
}

// Render dispatches to the renderer for the event's plugin type.
func (r *Registry) Render(ctx context.Context, event push.Event) (*push.RenderedMessage, error) {
	r.mu.RLock()
	renderer, ok := r.renderers[event.PluginID]
	r.mu.RUnlock()

	if !ok {
		renderer = r.fallback
	}
	if renderer == nil {
		return nil, nil
	}
	return renderer.Render(ctx, event)
}
