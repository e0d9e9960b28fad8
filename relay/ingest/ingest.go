package ingest

import (
	"bytes"
	"encoding/csv"
	"io"
	"path/filepath"
	"strings"

	"github.com/Laisky/errors/v2"
	"github.com/xuri/excelize/v2"

	"github.com/gptbots-qa/agent-tester/relay/model"
)

const (
	InputColumn           = "input"
	ReferenceOutputColumn = "reference_output"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// Ingestor turns an uploaded sheet into ordered questions.
type Ingestor struct {
	// MaxQuestions rejects larger datasets; zero means no limit.
	MaxQuestions int
}

// Parse reads filename's content with no question limit.
func Parse(filename string, r io.Reader) ([]model.TestQuestion, error) {
	return (&Ingestor{}).Parse(filename, r)
}

// Parse reads the first sheet of an xlsx file, or a csv file when filename ends in .csv.
// The first row is the header. Rows with a blank input cell are skipped.
func (in *Ingestor) Parse(filename string, r io.Reader) ([]model.TestQuestion, error) {
	var (
		rows [][]string
		err  error
	)
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".csv":
		rows, err = readCSV(r)
	default:
		rows, err = readXLSX(r)
	}
	if err != nil {
		return nil, &model.IngestionError{Kind: model.IngestionUnreadable, Err: err}
	}

	questions, err := questionsFromRows(rows)
	if err != nil {
		return nil, err
	}
	if in.MaxQuestions > 0 && len(questions) > in.MaxQuestions {
		return nil, model.NewIngestionError(model.IngestionTooLarge,
			"%d questions exceed the limit of %d", len(questions), in.MaxQuestions)
	}
	return questions, nil
}

func readXLSX(r io.Reader) ([][]string, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, errors.Wrap(err, "open xlsx")
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, nil
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, errors.Wrapf(err, "read sheet %q", sheets[0])
	}
	return rows, nil
}

func readCSV(r io.Reader) ([][]string, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, errors.Wrap(err, "read csv")
	}

	reader := csv.NewReader(bytes.NewReader(bytes.TrimPrefix(raw, utf8BOM)))
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true
	rows, err := reader.ReadAll()
	if err != nil {
		return nil, errors.Wrap(err, "parse csv")
	}
	return rows, nil
}

// questionsFromRows applies the header rules to raw rows.
func questionsFromRows(rows [][]string) ([]model.TestQuestion, error) {
	if len(rows) == 0 {
		return nil, model.NewIngestionError(model.IngestionEmptyDataset, "sheet has no rows")
	}

	inputCol, refCol := -1, -1
	for i, header := range rows[0] {
		header = strings.TrimSpace(header)
		switch {
		case inputCol < 0 && strings.EqualFold(header, InputColumn):
			inputCol = i
		case refCol < 0 && strings.EqualFold(header, ReferenceOutputColumn):
			refCol = i
		}
	}
	if inputCol < 0 {
		return nil, model.NewIngestionError(model.IngestionNoInputColumn,
			"header row has no %q column", InputColumn)
	}

	questions := make([]model.TestQuestion, 0, len(rows)-1)
	for _, row := range rows[1:] {
		text := strings.TrimSpace(cell(row, inputCol))
		if text == "" {
			continue
		}
		questions = append(questions, model.TestQuestion{
			Index:           len(questions),
			Text:            text,
			ReferenceOutput: strings.TrimSpace(cell(row, refCol)),
		})
	}

	if len(questions) == 0 {
		return nil, model.NewIngestionError(model.IngestionEmptyDataset, "no non-empty %q cells", InputColumn)
	}
	return questions, nil
}

// cell returns "" for a missing column or a short row.
func cell(row []string, col int) string {
	if col < 0 || col >= len(row) {
		return ""
	}
	return row[col]
}
