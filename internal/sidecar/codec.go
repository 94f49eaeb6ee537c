package sidecar

import (
	"strconv"
	"strings"
	"time"

	"github.com/rewdy/snaption/internal/models"
)

const delimiter = "---"

// managedKeys are the front-matter keys this tool owns. Writes excise and
// re-render exactly these blocks; every other key passes through verbatim.
var managedKeys = map[string]bool{
	"photo":      true,
	"updated_at": true,
	"tags":       true,
	"labels":     true,
}

// WarningMalformedFrontMatter is set when an opening delimiter is never
// closed. The raw content is still loaded as plain notes.
const WarningMalformedFrontMatter = "Malformed front matter. Notes were loaded as plain markdown."

// Parse decodes raw sidecar content. It never fails: malformed input
// degrades to a usable document, at worst with ParseWarning set.
func Parse(raw string, photoFilename string) Document {
	normalized := strings.ReplaceAll(raw, "\r\n", "\n")
	lines := strings.Split(normalized, "\n")

	if strings.TrimSpace(lines[0]) != delimiter {
		// Legacy plain-markdown sidecar: the whole file is the notes body.
		doc := Default(photoFilename)
		doc.Notes = raw
		return doc
	}

	closing := -1
	for i := 1; i < len(lines); i++ {
		if strings.TrimSpace(lines[i]) == delimiter {
			closing = i
			break
		}
	}
	if closing < 0 {
		doc := Default(photoFilename)
		doc.Notes = raw
		doc.ParseWarning = WarningMalformedFrontMatter
		return doc
	}

	frontMatter := lines[1:closing]
	body := strings.Join(lines[closing+1:], "\n")
	body = strings.TrimPrefix(body, "\n")

	return Document{
		FrontMatterLines: frontMatter,
		Notes:            body,
		Tags:             parseTags(frontMatter),
		Labels:           parseLabels(frontMatter),
		HadFrontMatter:   true,
	}
}

// Render serializes a document. Foreign front-matter lines are kept verbatim;
// the managed blocks are excised and re-appended in fixed order.
func Render(doc Document, photoFilename string, now time.Time) []byte {
	lines := removeManagedBlocks(doc.FrontMatterLines)
	lines = append(lines, "photo: "+photoFilename)
	lines = append(lines, renderTagsBlock(doc.Tags)...)
	lines = append(lines, renderLabelsBlock(doc.Labels)...)
	lines = append(lines, "updated_at: "+now.UTC().Format(time.RFC3339))

	var b strings.Builder
	b.WriteString(delimiter)
	b.WriteByte('\n')
	b.WriteString(strings.Join(lines, "\n"))
	b.WriteByte('\n')
	b.WriteString(delimiter)
	b.WriteString("\n\n")
	b.WriteString(doc.Notes)
	return []byte(b.String())
}

// topLevelKey returns the key of a column-zero "key: ..." line, or "" for
// indented continuation lines and non key/value lines.
func topLevelKey(line string) string {
	if line == "" || line[0] == ' ' || line[0] == '\t' {
		return ""
	}
	idx := strings.Index(line, ":")
	if idx < 0 {
		return ""
	}
	return strings.TrimSpace(line[:idx])
}

// removeManagedBlocks drops every managed top-level key line along with its
// indented continuation lines, then trims trailing blank lines.
func removeManagedBlocks(lines []string) []string {
	var result []string
	current := ""

	for _, line := range lines {
		if key := topLevelKey(line); key != "" {
			current = key
			if managedKeys[key] {
				continue
			}
			result = append(result, line)
			continue
		}
		if managedKeys[current] {
			continue
		}
		result = append(result, line)
	}

	for len(result) > 0 && strings.TrimSpace(result[len(result)-1]) == "" {
		result = result[:len(result)-1]
	}
	return result
}

// blockLines collects the header line for key plus its continuation lines,
// stopping at the next top-level key.
func blockLines(key string, lines []string) []string {
	var collected []string
	inBlock := false

	for _, line := range lines {
		if top := topLevelKey(line); top != "" {
			if inBlock {
				break
			}
			if top == key {
				inBlock = true
				collected = append(collected, line)
			}
			continue
		}
		if inBlock {
			collected = append(collected, line)
		}
	}
	return collected
}

// parseTags accepts either an inline bracketed list (tags: [a, "b"]) or a
// block of "- " items.
func parseTags(lines []string) []string {
	block := blockLines("tags", lines)
	if len(block) == 0 {
		return nil
	}

	header := strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(block[0]), "tags:"))
	if strings.HasPrefix(header, "[") && strings.HasSuffix(header, "]") {
		inner := header[1 : len(header)-1]
		var tags []string
		for _, part := range strings.Split(inner, ",") {
			tag := unquote(strings.TrimSpace(part))
			if tag != "" {
				tags = append(tags, tag)
			}
		}
		return tags
	}

	var tags []string
	for _, line := range block[1:] {
		trimmed := strings.TrimSpace(line)
		if !strings.HasPrefix(trimmed, "- ") {
			continue
		}
		tag := unquote(strings.TrimSpace(trimmed[2:]))
		if tag != "" {
			tags = append(tags, tag)
		}
	}
	return tags
}

// parseLabels decodes the labels block: "- " starts an entry, nested
// "key: value" lines accumulate into it. Entries missing coordinates or
// non-empty text, or with non-numeric coordinates, are silently dropped.
func parseLabels(lines []string) []models.PointLabel {
	block := blockLines("labels", lines)
	if len(block) == 0 {
		return nil
	}

	var items []map[string]string
	current := map[string]string{}

	flush := func() {
		if len(current) > 0 {
			items = append(items, current)
			current = map[string]string{}
		}
	}

	for _, line := range block[1:] {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "- ") {
			flush()
			if key, value, ok := splitKeyValue(trimmed[2:]); ok {
				current[key] = value
			}
			continue
		}
		if key, value, ok := splitKeyValue(trimmed); ok {
			current[key] = value
		}
	}
	flush()

	var labels []models.PointLabel
	for _, item := range items {
		x, errX := strconv.ParseFloat(item["x"], 64)
		y, errY := strconv.ParseFloat(item["y"], 64)
		text := unquote(item["text"])
		if errX != nil || errY != nil || strings.TrimSpace(text) == "" {
			continue
		}
		id := item["id"]
		if id == "" {
			id = models.NewLabelID()
		}
		labels = append(labels, models.PointLabel{ID: id, X: x, Y: y, Text: text})
	}
	return labels
}

func renderTagsBlock(tags []string) []string {
	var normalized []string
	for _, tag := range tags {
		t := unquote(strings.TrimSpace(tag))
		if t != "" {
			normalized = append(normalized, t)
		}
	}
	if len(normalized) == 0 {
		return nil
	}

	lines := []string{"tags:"}
	for _, tag := range normalized {
		lines = append(lines, `  - "`+escapeQuotes(tag)+`"`)
	}
	return lines
}

func renderLabelsBlock(labels []models.PointLabel) []string {
	if len(labels) == 0 {
		return nil
	}

	lines := []string{"labels:"}
	for _, label := range labels {
		lines = append(lines,
			"  - id: "+label.ID,
			"    x: "+formatCoord(label.X),
			"    y: "+formatCoord(label.Y),
			`    text: "`+escapeQuotes(label.Text)+`"`,
		)
	}
	return lines
}

func splitKeyValue(line string) (string, string, bool) {
	idx := strings.Index(line, ":")
	if idx < 0 {
		return "", "", false
	}
	key := strings.TrimSpace(line[:idx])
	if key == "" {
		return "", "", false
	}
	return key, strings.TrimSpace(line[idx+1:]), true
}

func escapeQuotes(value string) string {
	return strings.ReplaceAll(value, `"`, `\"`)
}

func unquote(value string) string {
	if len(value) >= 2 && strings.HasPrefix(value, `"`) && strings.HasSuffix(value, `"`) {
		return strings.ReplaceAll(value[1:len(value)-1], `\"`, `"`)
	}
	return value
}

func formatCoord(v float64) string {
	return strconv.FormatFloat(v, 'f', 6, 64)
}
