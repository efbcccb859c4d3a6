package entities

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"golang.org/x/mod/semver"
)

const (
	// MetadataEnvelopeVersion is written on every envelope line.
	MetadataEnvelopeVersion = "v1"

	metadataEnvelopePrefix = "SEO-Metadata-"

	metadataKeyElement     = "element"
	metadataKeyDescription = "description"
)

// envelopePattern matches the final line of a structured commit message.
var envelopePattern = regexp.MustCompile(`^SEO-Metadata-(v[0-9]+(?:\.[0-9]+){0,2}): (.*)$`)

var summaryTemplates = map[ChangeType]string{
	ChangeTypeMetaTag:           "Updated meta tags in %s",
	ChangeTypeImageOptimization: "Optimized images in %s",
	ChangeTypeHeaderStructure:   "Fixed heading structure in %s",
	ChangeTypeSchemaMarkup:      "Added structured data to %s",
	ChangeTypeRobotsTxt:         "Updated robots.txt rules in %s",
	ChangeTypePerformance:       "Improved performance of %s",
	ChangeTypeSecurity:          "Applied security hardening to %s",
}

const genericSummaryTemplate = "Applied SEO change to %s"

// ChangeSummary renders the one-line human summary for a change. The result only depends
// on its arguments, e.g. "Updated meta tags in index.html (title)".
func ChangeSummary(changeType ChangeType, filePath string, metadata map[string]any) string {
	template, ok := summaryTemplates[changeType]
	if !ok {
		template = genericSummaryTemplate
	}
	summary := fmt.Sprintf(template, filePath)
	if element := elementLabel(metadata[metadataKeyElement]); element != "" {
		summary += " (" + element + ")"
	}
	return summary
}

// ChangeDescription returns the optional free-text description carried in the metadata.
func ChangeDescription(metadata map[string]any) string {
	if text, ok := metadata[metadataKeyDescription].(string); ok {
		return strings.TrimSpace(text)
	}
	return ""
}

func elementLabel(value any) string {
	switch v := value.(type) {
	case string:
		return strings.TrimSpace(v)
	case []string:
		return strings.Join(v, ", ")
	case []any:
		parts := make([]string, 0, len(v))
		for _, item := range v {
			parts = append(parts, fmt.Sprint(item))
		}
		return strings.Join(parts, ", ")
	}
	return ""
}

// FormatCommitMessage joins the summary, an optional description and the metadata
// envelope line. Map keys are emitted sorted, so equal inputs give equal messages.
func FormatCommitMessage(summary, description string, metadata map[string]any) (string, error) {
	message := firstLine(summary)
	if description = strings.TrimSpace(description); description != "" {
		message += "\n\n" + description
	}
	return AppendMetadataEnvelope(message, metadata)
}

// AppendMetadataEnvelope adds the versioned metadata line to a human-written message.
func AppendMetadataEnvelope(message string, metadata map[string]any) (string, error) {
	if metadata == nil {
		metadata = map[string]any{}
	}
	payload, err := json.Marshal(metadata)
	if err != nil {
		return "", fmt.Errorf("failed to encode commit metadata: %w", err)
	}

	var b strings.Builder
	b.WriteString(strings.TrimRight(message, "\n "))
	b.WriteString("\n\n")
	b.WriteString(metadataEnvelopePrefix)
	b.WriteString(MetadataEnvelopeVersion)
	b.WriteString(": ")
	b.Write(payload)
	return b.String(), nil
}

// ParseCommitMessage splits a commit message into summary, description and metadata.
// Only the last non-empty line is considered as envelope, so marker text appearing in the
// body is kept as description. A missing, unknown or malformed envelope yields empty metadata.
func ParseCommitMessage(message string) (string, string, map[string]any) {
	lines := strings.Split(strings.TrimRight(strings.ReplaceAll(message, "\r\n", "\n"), "\n "), "\n")
	summary := strings.TrimSpace(lines[0])
	rest := lines[1:]

	metadata := map[string]any{}
	if n := len(rest); n > 0 {
		if match := envelopePattern.FindStringSubmatch(strings.TrimSpace(rest[n-1])); match != nil {
			rest = rest[:n-1]
			metadata = decodeEnvelope(match[1], match[2])
		}
	}

	return summary, strings.TrimSpace(strings.Join(rest, "\n")), metadata
}

func decodeEnvelope(version, payload string) map[string]any {
	metadata := map[string]any{}
	if !semver.IsValid(version) || semver.Major(version) != semver.Major(MetadataEnvelopeVersion) {
		return metadata
	}
	if err := json.Unmarshal([]byte(payload), &metadata); err != nil || metadata == nil {
		return map[string]any{}
	}
	return metadata
}

func firstLine(text string) string {
	text = strings.TrimSpace(text)
	if idx := strings.IndexByte(text, '\n'); idx >= 0 {
		return strings.TrimSpace(text[:idx])
	}
	return text
}
