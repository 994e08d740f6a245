package feed

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
)

// EventTvit is the event name browsers listen for to receive new tvits.
const EventTvit = "tvit"

// Event is a single Server-Sent Event.
type Event struct {
	ID   string
	Name string
	Data string
}

type tvitPayload struct {
	ID     string `json:"id"`
	Author string `json:"author"`
	HTML   string `json:"html"`
}

// NewTvitEvent wraps the rendered message fragment of a new tvit.
func NewTvitEvent(id, author, html string) (Event, error) {
	data, err := json.Marshal(tvitPayload{ID: id, Author: author, HTML: html})
	if err != nil {
		return Event{}, fmt.Errorf("encoding tvit event: %w", err)
	}
	return Event{ID: id, Name: EventTvit, Data: string(data)}, nil
}

// WriteTo writes the event in text/event-stream framing. Multi-line data is
// split over several data fields.
func (e Event) WriteTo(w io.Writer) (int64, error) {
	var sb strings.Builder
	if e.ID != "" {
		fmt.Fprintf(&sb, "id: %s\n", e.ID)
	}
	if e.Name != "" {
		fmt.Fprintf(&sb, "event: %s\n", e.Name)
	}
	for _, line := range strings.Split(e.Data, "\n") {
		fmt.Fprintf(&sb, "data: %s\n", line)
	}
	sb.WriteString("\n")

	n, err := io.WriteString(w, sb.String())
	return int64(n), err
}
