package manifest

import (
	"encoding/json"
	"fmt"
)

// Listener is a callback function that receives events while an entry is
// applied.
type Listener func(fmt.Stringer)

func jsonString(v any) string {
	b, _ := json.Marshal(map[string]any{
		fmt.Sprintf("%T", v): v,
	})
	return string(b)
}

// EventEntryLoadSuccess is emitted when an entry file is successfully loaded.
type EventEntryLoadSuccess struct {
	Path string `json:"path,omitempty"`
}

func (e EventEntryLoadSuccess) String() string { return jsonString(e) }

// EventFieldDefaulted is emitted when a field missing from the entry file
// gets its value from the changelog or the defaults.
type EventFieldDefaulted struct {
	Field string `json:"field,omitempty"`
	Value string `json:"value,omitempty"`
}

func (e EventFieldDefaulted) String() string { return jsonString(e) }

// EventBlockAdded is emitted when the new block is added to the changelog.
type EventBlockAdded struct {
	FilePath      string   `json:"file_path,omitempty"`
	Package       string   `json:"package,omitempty"`
	Version       string   `json:"version,omitempty"`
	Distributions []string `json:"distributions,omitempty"`
	Lines         int      `json:"lines,omitempty"`
}

func (e EventBlockAdded) String() string { return jsonString(e) }
