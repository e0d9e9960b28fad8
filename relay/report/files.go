package report

import (
	"os"
	"path/filepath"

	"github.com/Laisky/errors/v2"

	"github.com/gptbots-qa/agent-tester/relay/model"
)

// Extension maps a download format to its file extension.
var Extension = map[string]string{
	FormatExcel:    "xlsx",
	FormatMarkdown: "md",
	FormatJSON:     "json",
}

const (
	FormatExcel    = "excel"
	FormatMarkdown = "markdown"
	FormatJSON     = "json"
)

// ContentType maps a download format to its MIME type.
var ContentType = map[string]string{
	FormatExcel:    "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
	FormatMarkdown: "text/markdown; charset=utf-8",
	FormatJSON:     "application/json",
}

// Artifact returns the bytes of format from bundle.
func Artifact(bundle model.ReportBundle, format string) ([]byte, bool) {
	switch format {
	case FormatExcel:
		return bundle.Excel, true
	case FormatMarkdown:
		return bundle.Markdown, true
	case FormatJSON:
		return bundle.JSON, true
	default:
		return nil, false
	}
}

// WriteFiles stores the bundle under dir as <stem>.xlsx, <stem>.md and <stem>.json.
func WriteFiles(dir, stem string, bundle model.ReportBundle) ([]string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, errors.Wrapf(err, "create report dir %s", dir)
	}

	var paths []string
	for _, format := range []string{FormatExcel, FormatMarkdown, FormatJSON} {
		data, _ := Artifact(bundle, format)
		path := filepath.Join(dir, stem+"."+Extension[format])
		if err := os.WriteFile(path, data, 0o644); err != nil {
			return paths, errors.Wrapf(err, "write %s", path)
		}
		paths = append(paths, path)
	}
	return paths, nil
}
