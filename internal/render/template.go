package render

import (
	"context"
	"fmt"
	"strings"
	"text/template"

	"github.com/exo-addons/go-push-service/pkg/push"
)

// TemplateRenderer produces the title and body from Go text templates
// executed against the event parameters. It serves plugin types whose
// events carry raw fields rather than display-ready text.
type TemplateRenderer struct {
	title *template.Template
	body  *template.Template
	url   string
}

// NewTemplateRenderer parses the two templates. urlParam names the
// event parameter holding the target link.
func NewTemplateRenderer(titleTmpl, bodyTmpl, urlParam string) (*TemplateRenderer, error) {
	title, err := template.New("title").Option("missingkey=zero").Parse(titleTmpl)
	if err != nil {
		return nil, fmt.Errorf("failed to parse title template: %w", err)
	}
	body, err := template.New("body").Option("missingkey=zero").Parse(bodyTmpl)
	if err != nil {
		return nil, fmt.Errorf("failed to parse body template: %w", err)
	}
	return &TemplateRenderer{title: title, body: body, url: urlParam}, nil
}

// Render executes both templates against the event parameters.
func (t *TemplateRenderer) Render(_ context.Context, event push.Event) (*push.RenderedMessage, error) {
	var title, body strings.Builder
	if err := t.title.Execute(&title, event.Parameters); err != nil {
		return nil, fmt.Errorf("failed to render title for plugin %s: %w", event.PluginID, err)
	}
	if err := t.body.Execute(&body, event.Parameters); err != nil {
		return nil, fmt.Errorf("failed to render body for plugin %s: %w", event.PluginID, err)
	}
	return &push.RenderedMessage{
		Title: title.String(),
		Body:  body.String(),
		URL:   event.Parameters[t.url],
	}, nil
}
