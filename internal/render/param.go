package render

import (
	"context"

	"github.com/exo-addons/go-push-service/pkg/push"
)

// Parameter names the upstream notification system places on events.
const (
	ParamTitle = "title"
	ParamBody  = "body"
	ParamURL   = "url"
)

// ParamRenderer reads the display fields directly from the event
// parameters. It is the default fallback: most plugin types supply
// pre-rendered title and body.
type ParamRenderer struct{}

// NewParamRenderer creates a parameter-backed renderer.
func NewParamRenderer() *ParamRenderer {
	return &ParamRenderer{}
}

// Render maps event parameters to a message. An event carrying neither
// a title nor a body renders to nothing, which skips delivery.
func (p *ParamRenderer) Render(_ context.Context, event push.Event) (*push.RenderedMessage, error) {
	title := event.Parameters[ParamTitle]
	body := event.Parameters[ParamBody]
	if title == "" && body == "" {
		return nil, nil
	}
	return &push.RenderedMessage{
		Title: title,
		Body:  body,
		URL:   event.Parameters[ParamURL],
	}, nil
}
