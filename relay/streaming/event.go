package streaming

import (
	"github.com/gptbots-qa/agent-tester/relay/execmode"
	"github.com/gptbots-qa/agent-tester/relay/model"
)

type EventType string

const (
	EventConnected EventType = "connected"
	EventProgress  EventType = "progress"
	EventResult    EventType = "result"
	EventComplete  EventType = "complete"
	EventError     EventType = "error"
)

// Terminal reports whether no event may follow this one.
func (t EventType) Terminal() bool {
	return t == EventComplete || t == EventError
}

// Stats are the running figures carried by result events.
type Stats struct {
	Current     int     `json:"current"`
	Total       int     `json:"total"`
	PassedCount int     `json:"passed_count"`
	FailedCount int     `json:"failed_count"`
	SuccessRate float64 `json:"success_rate"`
	TotalTokens int64   `json:"total_tokens"`
	TotalCost   float64 `json:"total_cost"`
}

// Event is one message of a run's progress stream. Fields irrelevant to Type are omitted.
type Event struct {
	Type  EventType `json:"type"`
	RunID string    `json:"run_id,omitempty"`

	// connected
	AgentName string        `json:"agent_name,omitempty"`
	Mode      execmode.Mode `json:"execution_mode,omitempty"`

	// progress
	Index      *int   `json:"index,omitempty"`
	Current    int    `json:"current,omitempty"`
	Total      int    `json:"total,omitempty"`
	Question   string `json:"question,omitempty"`
	BatchStart *int   `json:"batch_start,omitempty"`
	BatchSize  int    `json:"batch_size,omitempty"`

	// result
	Result *model.TestResult `json:"result,omitempty"`
	Stats  *Stats            `json:"stats,omitempty"`

	// complete
	HistoryID int                   `json:"history_id,omitempty"`
	Status    model.RunStatus       `json:"status,omitempty"`
	Summary   *model.TestRunSummary `json:"summary,omitempty"`

	// error
	Message   string `json:"message,omitempty"`
	ErrorKind string `json:"error_kind,omitempty"`
}

// Publisher receives the events of exactly one run, in order, from one goroutine.
type Publisher interface {
	Publish(Event)
}

// PublisherFunc adapts a function to Publisher.
type PublisherFunc func(Event)

func (f PublisherFunc) Publish(ev Event) { f(ev) }

// Discard drops every event.
var Discard Publisher = PublisherFunc(func(Event) {})

// Tee forwards each event to every publisher in order.
func Tee(publishers ...Publisher) Publisher {
	return PublisherFunc(func(ev Event) {
		for _, p := range publishers {
			if p != nil {
				p.Publish(ev)
			}
		}
	})
}

// PreviewLimit caps the question text carried by progress events.
const PreviewLimit = 100

// Preview shortens text to PreviewLimit runes.
func Preview(text string) string {
	runes := []rune(text)
	if len(runes) <= PreviewLimit {
		return text
	}
	return string(runes[:PreviewLimit]) + "..."
}

func IntPtr(v int) *int { return &v }
