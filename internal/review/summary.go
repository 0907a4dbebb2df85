package review

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"golang.org/x/text/unicode/norm"

	"github.com/voicebot/codexreview/internal/model"
)

// MaxSummaryLength is the summary limit in characters, not counting the "..." suffix.
const MaxSummaryLength = 240

// minBreakIndex is the earliest space a truncated summary may break at
const minBreakIndex = 80

// DefaultFallbackSummary is used when a task has neither name nor description
const DefaultFallbackSummary = "Task received and queued for Codex review."

var (
	codeBlockPattern     = regexp.MustCompile("(?s)```.*?```")
	lineBreakPattern     = regexp.MustCompile(`[\r\n\t]+`)
	repeatedSpacePattern = regexp.MustCompile(`[\s\p{Z}]{2,}`)
	summaryLabelPattern  = regexp.MustCompile(`(?i)^[\s\p{Z}]*summary[\s\p{Z}]*[:-][\s\p{Z}]*`)

	jsonFenceOpen  = regexp.MustCompile("(?i)^```json\\s*")
	plainFenceOpen = regexp.MustCompile("^```\\s*")
	fenceClose     = regexp.MustCompile("```$")
)

// NormalizeSummary flattens text to a single line of at most
// MaxSummaryLength characters plus "...".
func NormalizeSummary(raw string) string {
	cleaned := norm.NFC.String(raw)
	cleaned = codeBlockPattern.ReplaceAllString(cleaned, " ")
	cleaned = lineBreakPattern.ReplaceAllString(cleaned, " ")
	cleaned = repeatedSpacePattern.ReplaceAllString(cleaned, " ")
	cleaned = summaryLabelPattern.ReplaceAllString(cleaned, "")
	cleaned = strings.TrimSpace(cleaned)

	runes := []rune(cleaned)
	if len(runes) <= MaxSummaryLength {
		return cleaned
	}

	sliced := runes[:MaxSummaryLength+1]
	if lastSpace := lastIndexRune(sliced, ' '); lastSpace >= minBreakIndex {
		return strings.TrimSpace(string(sliced[:lastSpace])) + "..."
	}
	return strings.TrimSpace(string(runes[:MaxSummaryLength])) + "..."
}

func lastIndexRune(runes []rune, r rune) int {
	for i := len(runes) - 1; i >= 0; i-- {
		if runes[i] == r {
			return i
		}
	}
	return -1
}

// ExtractSummary pulls the summary out of the agent's final message. JSON
// payloads, optionally fenced, yield their summary or message field; other
// output yields its last non-blank line.
func ExtractSummary(raw string) string {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return ""
	}

	candidates := []string{
		trimmed,
		strings.TrimSpace(fenceClose.ReplaceAllString(jsonFenceOpen.ReplaceAllString(trimmed, ""), "")),
		strings.TrimSpace(fenceClose.ReplaceAllString(plainFenceOpen.ReplaceAllString(trimmed, ""), "")),
	}
	for _, candidate := range candidates {
		if candidate == "" {
			continue
		}
		var parsed any
		if err := json.Unmarshal([]byte(candidate), &parsed); err != nil {
			continue
		}
		switch v := parsed.(type) {
		case string:
			return v
		case map[string]any:
			if summary := stringify(v["summary"]); summary != "" {
				return summary
			}
			if message := stringify(v["message"]); message != "" {
				return message
			}
		}
	}

	lines := strings.Split(trimmed, "\n")
	for i := len(lines) - 1; i >= 0; i-- {
		if line := strings.TrimSpace(lines[i]); line != "" {
			return line
		}
	}
	return ""
}

func stringify(v any) string {
	switch s := v.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(s)
	default:
		return strings.TrimSpace(fmt.Sprint(s))
	}
}

// FallbackSummary builds a summary from the task's own fields. It never
// returns an empty string.
func FallbackSummary(task *model.Task) string {
	title := strings.TrimSpace(task.Name)
	description := strings.TrimSpace(task.Description)

	var summary string
	switch {
	case title != "" && description != "":
		summary = NormalizeSummary(title + ": " + description)
	case description != "":
		summary = NormalizeSummary(description)
	case title != "":
		summary = NormalizeSummary(title)
	}
	if summary == "" {
		return DefaultFallbackSummary
	}
	return summary
}
