package report

import (
	"encoding/json"

	"github.com/Laisky/errors/v2"

	"github.com/gptbots-qa/agent-tester/relay/model"
)

// Document is the structured report. Decoding it back yields the run's summary
// and results unchanged.
type Document struct {
	Metadata model.RunMetadata    `json:"metadata"`
	Summary  model.TestRunSummary `json:"summary"`
	Results  []model.TestResult   `json:"results"`
}

func renderJSON(summary model.TestRunSummary, results []model.TestResult, md model.RunMetadata) ([]byte, error) {
	if results == nil {
		results = []model.TestResult{}
	}
	data, err := json.MarshalIndent(Document{Metadata: md, Summary: summary, Results: results}, "", "  ")
	if err != nil {
		return nil, errors.Wrap(err, "marshal report")
	}
	return data, nil
}

// DecodeDocument parses a structured report.
func DecodeDocument(data []byte) (*Document, error) {
	doc := new(Document)
	if err := json.Unmarshal(data, doc); err != nil {
		return nil, errors.Wrap(err, "decode report")
	}
	return doc, nil
}
