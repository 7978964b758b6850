package push

import (
	"encoding/json"
	"fmt"
)

// Event is a push-sending order from the host notification framework.
// The core reads it only through a MessageRenderer; Parameters carry
// whatever the renderer for the plugin type needs.
type Event struct {
	ID         string            `json:"id"`
	PluginID   string            `json:"plugin_id"`
	Recipient  string            `json:"recipient"`
	Parameters map[string]string `json:"parameters,omitempty"`
}

// UnmarshalJSON validates the required fields so a malformed order is
// rejected at the pipeline boundary rather than deep in the dispatcher.
func (e *Event) UnmarshalJSON(data []byte) error {
	type alias Event
	var raw alias
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if raw.ID == "" {
		return fmt.Errorf("push event: missing id")
	}
	if raw.PluginID == "" {
		return fmt.Errorf("push event %s: missing plugin_id", raw.ID)
	}
	if raw.Recipient == "" {
		return fmt.Errorf("push event %s: missing recipient", raw.ID)
	}
	*e = Event(raw)
	return nil
}
