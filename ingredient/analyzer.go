// Package ingredient turns free text, usually the model's reading of an
// attached photo, into a flat list of ingredient names.
package ingredient

import (
	"log/slog"
	"regexp"
	"strings"
)

// Source records where an analysis came from.
type Source string

const (
	SourceText  Source = "text"
	SourceImage Source = "image"
)

const (
	textConfidence  = 1.0
	imageConfidence = 0.85
)

// delimiters covers ASCII and full-width list punctuation.
var delimiters = regexp.MustCompile(`[,，、;；\n]+`)

// Request is the input to Analyze. HasImage is set when the turn carried a
// photo; Text is then the model's description of it.
type Request struct {
	Text     string
	HasImage bool
}

// Analysis is the result of Analyze.
type Analysis struct {
	Ingredients []string `json:"ingredients"`
	Confidence  float64  `json:"confidence"`
	Source      Source   `json:"source"`
}

// Analyze splits req.Text into ingredient names. With no text it returns an
// empty list, even when an image is present: the analyzer never guesses.
func Analyze(req Request) Analysis {
	out := Analysis{
		Ingredients: Split(req.Text),
		Confidence:  textConfidence,
		Source:      SourceText,
	}
	if req.HasImage {
		out.Confidence = imageConfidence
		out.Source = SourceImage
	}

	slog.Info("INGREDIENTS: Analysis complete",
		"source", out.Source,
		"count", len(out.Ingredients),
		"confidence", out.Confidence)
	return out
}

// Split breaks s on list delimiters and returns the trimmed, non-empty parts
// in order.
func Split(s string) []string {
	out := make([]string, 0)
	for _, part := range delimiters.Split(s, -1) {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
