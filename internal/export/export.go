// Package export renders a finished transcript to a standalone HTML page.
// Assistant turns are markdown; user turns are plain text.
package export

import (
	"fmt"
	"html"
	"io"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"

	"rag-console/internal/models"
)

var md = goldmark.New(goldmark.WithExtensions(extension.GFM))

const pageHeader = `<!DOCTYPE html>
<html>
<head><meta charset="utf-8"><title>Conversation transcript</title></head>
<body>
`

const pageFooter = `</body>
</html>
`

// RenderHTML writes the transcript to w. Pending and streaming turns are
// skipped; a transcript is only exportable once its exchanges settled.
func RenderHTML(turns []models.Turn, w io.Writer) error {
	if _, err := io.WriteString(w, pageHeader); err != nil {
		return err
	}
	for _, t := range turns {
		if t.Status != models.TurnComplete && t.Status != models.TurnFailed {
			continue
		}
		if _, err := fmt.Fprintf(w, "<section class=%q>\n", string(t.Role)); err != nil {
			return err
		}
		if t.Role == models.RoleAssistant {
			if err := md.Convert([]byte(t.Content), w); err != nil {
				return fmt.Errorf("failed to render markdown: %v", err)
			}
		} else {
			if _, err := fmt.Fprintf(w, "<p>%s</p>\n", html.EscapeString(t.Content)); err != nil {
				return err
			}
		}
		if len(t.Sources) > 0 {
			sources := html.EscapeString(strings.Join(t.Sources, ", "))
			if _, err := fmt.Fprintf(w, "<p><em>Sources: %s</em></p>\n", sources); err != nil {
				return err
			}
		}
		if _, err := io.WriteString(w, "</section>\n"); err != nil {
			return err
		}
	}
	_, err := io.WriteString(w, pageFooter)
	return err
}
