package ingest

import (
	"bytes"
	"strings"
	"testing"

	"github.com/Laisky/errors/v2"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/gptbots-qa/agent-tester/relay/model"
)

func buildXLSX(t *testing.T, rows [][]any) *bytes.Buffer {
	t.Helper()

	f := excelize.NewFile()
	defer f.Close()
	sheet := f.GetSheetName(0)
	for i, row := range rows {
		cellName, err := excelize.CoordinatesToCellName(1, i+1)
		require.NoError(t, err)
		require.NoError(t, f.SetSheetRow(sheet, cellName, &row))
	}

	buf, err := f.WriteToBuffer()
	require.NoError(t, err)
	return buf
}

func requireIngestionKind(t *testing.T, err error, kind model.IngestionErrorKind) {
	t.Helper()
	var ingestErr *model.IngestionError
	require.True(t, errors.As(err, &ingestErr), "expected IngestionError, got %v", err)
	require.Equal(t, kind, ingestErr.Kind)
}

func TestParseXLSX(t *testing.T) {
	buf := buildXLSX(t, [][]any{
		{"No", "INPUT", "Reference_Output"},
		{1, "  What is 2+2?  ", "4"},
		{2, "   ", "ignored"},
		{3, "Capital of France?"},
		{4, "", ""},
		{5, "Largest planet?", " Jupiter "},
	})

	questions, err := Parse("questions.xlsx", buf)
	require.NoError(t, err)
	require.Equal(t, []model.TestQuestion{
		{Index: 0, Text: "What is 2+2?", ReferenceOutput: "4"},
		{Index: 1, Text: "Capital of France?", ReferenceOutput: ""},
		{Index: 2, Text: "Largest planet?", ReferenceOutput: "Jupiter"},
	}, questions)
}

func TestParseBlankRowAndTextRow(t *testing.T) {
	buf := buildXLSX(t, [][]any{
		{"input"},
		{""},
		{"hello"},
	})

	questions, err := Parse("q.xlsx", buf)
	require.NoError(t, err)
	require.Len(t, questions, 1)
	require.Equal(t, "hello", questions[0].Text)
	require.Empty(t, questions[0].ReferenceOutput)
}

func TestParseNoInputColumn(t *testing.T) {
	buf := buildXLSX(t, [][]any{
		{"question", "answer"},
		{"What is 2+2?", "4"},
	})

	_, err := Parse("q.xlsx", buf)
	requireIngestionKind(t, err, model.IngestionNoInputColumn)
}

func TestParseEmptyDataset(t *testing.T) {
	buf := buildXLSX(t, [][]any{
		{"input", "reference_output"},
		{" ", "orphan reference"},
	})

	_, err := Parse("q.xlsx", buf)
	requireIngestionKind(t, err, model.IngestionEmptyDataset)

	_, err = Parse("q.xlsx", buildXLSX(t, nil))
	requireIngestionKind(t, err, model.IngestionEmptyDataset)
}

func TestParseUnreadable(t *testing.T) {
	_, err := Parse("q.xlsx", strings.NewReader("definitely not a zip archive"))
	requireIngestionKind(t, err, model.IngestionUnreadable)
}

func TestParseCSV(t *testing.T) {
	content := "\xEF\xBB\xBFid,Input,reference_output\n1,\"Hello, agent\",hi\n2,,\n3,Bye\n"

	questions, err := Parse("Questions.CSV", strings.NewReader(content))
	require.NoError(t, err)
	require.Equal(t, []model.TestQuestion{
		{Index: 0, Text: "Hello, agent", ReferenceOutput: "hi"},
		{Index: 1, Text: "Bye", ReferenceOutput: ""},
	}, questions)
}

func TestParseMaxQuestions(t *testing.T) {
	in := &Ingestor{MaxQuestions: 1}
	_, err := in.Parse("q.csv", strings.NewReader("input\na\nb\n"))
	requireIngestionKind(t, err, model.IngestionTooLarge)
}
