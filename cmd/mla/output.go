package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/mlanthology/anthology/internal/catalog"
)

// Constants for output formatting.
const (
	ListTitleMaxLen = 60 // Used in list command output
	TextWrapWidth   = 60 // Standard text wrap width
)

// outputJSON writes a value as formatted JSON to stdout.
func outputJSON(v interface{}) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// outputError writes an error message to stderr and returns the exit code.
func outputError(code int, format string, args ...interface{}) int {
	fmt.Fprintf(os.Stderr, "error: "+format+"\n", args...)
	return code
}

// exitWithError outputs an error in the appropriate format (human or JSON) and exits.
func exitWithError(code int, format string, args ...interface{}) {
	msg := fmt.Sprintf(format, args...)
	if humanOutput {
		fmt.Fprintf(os.Stderr, "error: %s\n", msg)
	} else {
		outputJSON(ErrorResponse{Error: msg})
	}
	os.Exit(code)
}

// ErrorResponse is a JSON error response.
type ErrorResponse struct {
	Error string `json:"error"`
}

// StatusResponse is a generic response for commands that return status.
type StatusResponse struct {
	Status string `json:"status"`
	Path   string `json:"path,omitempty"`
}

// truncateString truncates a string to maxLen, adding "..." if truncated.
func truncateString(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen-3] + "..."
}

// wrapText wraps text to the specified width with indentation on subsequent lines.
func wrapText(text string, width int, indent string) string {
	if len(text) <= width {
		return text
	}

	var lines []string
	words := strings.Fields(text)
	currentLine := ""

	for _, word := range words {
		if currentLine == "" {
			currentLine = word
		} else if len(currentLine)+1+len(word) <= width {
			currentLine += " " + word
		} else {
			lines = append(lines, currentLine)
			currentLine = word
		}
	}
	if currentLine != "" {
		lines = append(lines, currentLine)
	}

	return strings.Join(lines, "\n"+indent)
}

// formatCredits formats author credits with "et al." past maxCount.
func formatCredits(credits []catalog.Credit, maxCount int) string {
	if len(credits) == 0 {
		return ""
	}

	var names []string
	for i, c := range credits {
		if i >= maxCount {
			names = append(names, "et al.")
			break
		}
		names = append(names, c.Display())
	}
	return strings.Join(names, ", ")
}

// printPaperDetail renders one paper for human output.
func printPaperDetail(p *catalog.Paper) {
	fmt.Println(p.Key)
	fmt.Println(strings.Repeat("═", 70))
	fmt.Println()

	fmt.Printf("Title:    %s\n", wrapText(p.Title, TextWrapWidth, "          "))
	fmt.Println()

	if len(p.Authors) > 0 {
		fmt.Printf("Authors:  %s\n", wrapText(formatCredits(p.Authors, len(p.Authors)), TextWrapWidth, "          "))
		fmt.Println()
	}

	if p.VenueName != "" {
		fmt.Printf("Venue:    %s (%s)\n", p.VenueName, p.Venue)
	} else {
		fmt.Printf("Venue:    %s\n", p.Venue)
	}
	if p.Year > 0 {
		fmt.Printf("Year:     %d\n", p.Year)
	}
	if p.DOI != "" {
		fmt.Printf("DOI:      %s\n", p.DOI)
	}
	if p.ArXivID != "" {
		fmt.Printf("arXiv:    %s\n", p.ArXivID)
	}
	if p.PDFURL != "" {
		fmt.Printf("PDF:      %s\n", p.PDFURL)
	}
	if p.CodeURL != "" {
		fmt.Printf("Code:     %s\n", p.CodeURL)
	}

	if len(p.Sources) > 0 {
		var srcs []string
		for _, s := range p.Sources {
			srcs = append(srcs, s.Source)
		}
		fmt.Printf("Sources:  %s\n", strings.Join(srcs, ", "))
	}

	if p.Abstract != "" {
		fmt.Println()
		fmt.Println("Abstract:")
		fmt.Printf("  %s\n", wrapText(p.Abstract, 68, "  "))
	}
}
