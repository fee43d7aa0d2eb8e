package format

import (
	"fmt"
	"io"

	"github.com/oleg-kozlyuk-grafana/go-diffcover/internal/coverage"
)

// Formatter formats coverage analysis results for output.
type Formatter interface {
	Format(result *coverage.Result, w io.Writer) error
	// Extension is the file extension used when the report is stored.
	Extension() string
	// ContentType is the MIME type used when the report is stored.
	ContentType() string
}

// Names lists the supported format names.
var Names = []string{"Text", "Markdown", "GitHubAnnotations", "JSON"}

// New creates a formatter based on the specified format type.
// Supported formats: "Text", "Markdown", "GitHubAnnotations", "JSON"
func New(format string) (Formatter, error) {
	switch format {
	case "Text":
		return &TextFormatter{}, nil
	case "Markdown":
		return &MarkdownFormatter{}, nil
	case "GitHubAnnotations":
		return &GitHubAnnotationsFormatter{}, nil
	case "JSON":
		return &JSONFormatter{}, nil
	default:
		return nil, fmt.Errorf("unknown format: %s (supported: Text, Markdown, GitHubAnnotations, JSON)", format)
	}
}

// ContentTypeFor returns the MIME type of stored reports with extension ext.
func ContentTypeFor(ext string) string {
	for _, name := range Names {
		f, _ := New(name)
		if f.Extension() == ext {
			return f.ContentType()
		}
	}
	return "application/octet-stream"
}
