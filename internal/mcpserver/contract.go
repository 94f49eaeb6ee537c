package mcpserver

// SidecarFormatContract describes the canonical annotation sidecar format
// that LLM consumers should understand when reading or writing annotations.
const SidecarFormatContract = `# Snaption Sidecar Format Contract

Every photo may have an annotation sidecar: a Markdown file in the same
directory with the same basename and a ` + "`" + `.md` + "`" + ` extension
(` + "`" + `trips/rome/a.jpg` + "`" + ` → ` + "`" + `trips/rome/a.md` + "`" + `).

## Structure

` + "```" + `markdown
---
photo: a.jpg                        # filename of the photo this sidecar annotates
tags:                               # OPTIONAL - list of free-form tags
  - "travel"
  - "golden hour"
labels:                             # OPTIONAL - point labels pinned onto the image
  - id: lbl-1a2b3c4d
    x: 0.250000                     # unit-interval coordinates, 6 decimals
    y: 0.750000
    text: "lighthouse"
updated_at: 2026-09-01T12:00:00Z    # last write time, ISO-8601 UTC
---

Free-form Markdown notes body.
` + "```" + `

## Rules

1. **Four keys are managed by Snaption:** ` + "`" + `photo` + "`" + `, ` + "`" + `tags` + "`" + `,
   ` + "`" + `labels` + "`" + `, and ` + "`" + `updated_at` + "`" + `. They are rewritten on every save.
   Any other front-matter key is preserved verbatim, wherever it appears.
2. **Tags** are rendered as double-quoted scalars; embedded double quotes are
   backslash-escaped. An empty tag list omits the ` + "`" + `tags` + "`" + ` block entirely.
3. **Labels** need ` + "`" + `x` + "`" + `, ` + "`" + `y` + "`" + `, and non-empty
   ` + "`" + `text` + "`" + `; entries missing any of these are dropped on read.
   A missing ` + "`" + `id` + "`" + ` is synthesized. Coordinates are clamped into [0,1].
4. **The body** after the closing ` + "`" + `---` + "`" + ` is plain Markdown, owned by the user.
5. **Legacy files** without front matter are read as a bare notes body; a file whose
   front matter never closes is read as raw notes with a warning.
6. **Writes are atomic.** A reader never observes a partially written sidecar.

## Tools

- ` + "`" + `read_sidecar` + "`" + ` returns the parsed document plus a content checksum.
- ` + "`" + `update_notes` + "`" + ` replaces only the notes body.
- ` + "`" + `add_label` + "`" + ` appends a point label.
- ` + "`" + `search_photos` + "`" + ` matches substrings of filename, notes, tags, and label texts.
`
