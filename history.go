package taskloop

import (
	"encoding/json"

	"github.com/m-mizutani/goerr/v2"
)

const (
	HistoryVersion = 1
)

// History is an ordered conversation. The orchestrator keeps one History per
// run and seeds every phase session with a copy of it.
type History struct {
	Version  int       `json:"version"`
	Messages []Message `json:"messages"`
}

// NewHistory returns an empty history holding the given messages.
func NewHistory(messages ...Message) *History {
	return &History{
		Version:  HistoryVersion,
		Messages: append([]Message{}, messages...),
	}
}

// UnmarshalJSON implements json.Unmarshaler with version validation.
func (x *History) UnmarshalJSON(data []byte) error {
	type historyAlias History
	var h historyAlias
	if err := json.Unmarshal(data, &h); err != nil {
		return err
	}

	if h.Version != HistoryVersion {
		return goerr.New("unsupported history version",
			goerr.V("got", h.Version),
			goerr.V("want", HistoryVersion),
		)
	}

	*x = History(h)
	return nil
}

func (x *History) Len() int {
	if x == nil {
		return 0
	}
	return len(x.Messages)
}

// Append adds messages to the end of the history.
func (x *History) Append(messages ...Message) {
	x.Messages = append(x.Messages, messages...)
}

// Last returns the last message, or false if the history is empty.
func (x *History) Last() (Message, bool) {
	if x.Len() == 0 {
		return Message{}, false
	}
	return x.Messages[len(x.Messages)-1], true
}

// Clone returns a deep copy of the history.
func (x *History) Clone() *History {
	if x == nil {
		return nil
	}

	// JSON round trip keeps tool call arguments from being shared.
	data, err := json.Marshal(x)
	if err != nil {
		return &History{Version: x.Version}
	}

	var clone History
	if err := json.Unmarshal(data, &clone); err != nil {
		return &History{Version: x.Version}
	}

	return &clone
}
