package export

import (
	"fmt"
	"io"

	"github.com/goccy/go-json"

	"github.com/vanderheijden86/storyreel/pkg/carousel"
)

// StateDump is the document written by --dump-state.
type StateDump struct {
	Version     string         `json:"version"`
	Deck        string         `json:"deck"`
	Description string         `json:"description,omitempty"`
	Carousel    carousel.State `json:"carousel"`
	Progress    []CardProgress `json:"progress,omitempty"`
}

// CardProgress is the recorded progress of one card.
type CardProgress struct {
	Title    string `json:"title"`
	LastStep int    `json:"last_step"`
	Seen     int    `json:"seen"`
	Steps    int    `json:"steps"`
}

// DumpState writes d as indented JSON.
func DumpState(w io.Writer, d StateDump) error {
	data, err := json.MarshalIndent(d, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling state: %w", err)
	}
	data = append(data, '\n')
	if _, err := w.Write(data); err != nil {
		return fmt.Errorf("writing state: %w", err)
	}
	return nil
}
