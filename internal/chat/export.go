package chat

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// DefaultExportFilename is the name offered for downloaded transcripts.
const DefaultExportFilename = "gemini_chat.txt"

// ExportTurns renders turns as "<Role>: <text>" entries separated by a blank line.
func ExportTurns(turns []Turn) string {
	if len(turns) == 0 {
		return ""
	}
	caser := cases.Title(language.English)
	parts := make([]string, 0, len(turns))
	for _, t := range turns {
		parts = append(parts, caser.String(string(t.Role))+": "+t.Text)
	}
	return strings.Join(parts, "\n\n")
}
