// Package textutil provides pure text helpers used by the content tools:
// slug generation, reading-time estimation, excerpt extraction, a minimal
// markdown renderer, and filename/email validation.
package textutil

import (
	"fmt"
	"regexp"
	"strings"
	"time"
)

// wordsPerMinute is the assumed average reading speed.
const wordsPerMinute = 200

// DefaultExcerptLength is the default maximum excerpt length in characters.
const DefaultExcerptLength = 160

var (
	slugInvalidRe   = regexp.MustCompile(`[^a-z0-9\s-]`)
	whitespaceRe    = regexp.MustCompile(`\s+`)
	multiHyphenRe   = regexp.MustCompile(`-+`)
	htmlTagRe       = regexp.MustCompile(`<[^>]*>`)
	mdHeaderRe      = regexp.MustCompile(`(?m)#+\s*`)
	mdEmphasisRe    = regexp.MustCompile(`\*+`)
	mdLinkRe        = regexp.MustCompile(`\[([^\]]+)\]\([^)]+\)`)
	newlinesRe      = regexp.MustCompile(`\n+`)
	emailRe         = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)
	fileInvalidRe   = regexp.MustCompile(`[^a-z0-9.-]`)
	dataURLPrefixRe = regexp.MustCompile(`(?i)^data:image/[a-z+]+;base64,`)
)

// Slug generates a URL-safe slug from a title.
func Slug(title string) string {
	s := strings.ToLower(strings.TrimSpace(title))
	s = slugInvalidRe.ReplaceAllString(s, "")
	s = whitespaceRe.ReplaceAllString(s, "-")
	s = multiHyphenRe.ReplaceAllString(s, "-")
	return strings.Trim(s, "-")
}

// ReadingTime estimates reading time in minutes for the given content.
// HTML tags are stripped before counting words; the result is at least 1.
func ReadingTime(content string) int {
	plain := htmlTagRe.ReplaceAllString(content, "")
	words := 0
	for _, w := range strings.Fields(plain) {
		if w != "" {
			words++
		}
	}

	minutes := (words + wordsPerMinute/2) / wordsPerMinute
	if minutes < 1 {
		return 1
	}
	return minutes
}

// Excerpt extracts a plain-text excerpt from markdown or HTML content,
// truncated to maxLength at a word boundary with a trailing ellipsis.
func Excerpt(content string, maxLength int) string {
	if maxLength <= 0 {
		maxLength = DefaultExcerptLength
	}

	plain := htmlTagRe.ReplaceAllString(content, "")
	plain = mdHeaderRe.ReplaceAllString(plain, "")
	plain = mdEmphasisRe.ReplaceAllString(plain, "")
	plain = mdLinkRe.ReplaceAllString(plain, "$1")
	plain = newlinesRe.ReplaceAllString(plain, " ")
	plain = strings.TrimSpace(plain)

	if len(plain) <= maxLength {
		return plain
	}

	truncated := plain[:maxLength]
	if lastSpace := strings.LastIndex(truncated, " "); lastSpace > 0 {
		truncated = truncated[:lastSpace]
	}

	return truncated + "..."
}

// markdown inline patterns, applied in order so bold+italic wins over bold.
var (
	mdH3Re         = regexp.MustCompile(`(?m)^### (.*)$`)
	mdH2Re         = regexp.MustCompile(`(?m)^## (.*)$`)
	mdH1Re         = regexp.MustCompile(`(?m)^# (.*)$`)
	mdBoldItalicRe = regexp.MustCompile(`\*\*\*(.*?)\*\*\*`)
	mdBoldRe       = regexp.MustCompile(`\*\*(.*?)\*\*`)
	mdItalicRe     = regexp.MustCompile(`\*(.*?)\*`)
	mdImageRe      = regexp.MustCompile(`!\[([^\]]*)\]\(([^)]+)\)`)
	mdAnchorRe     = regexp.MustCompile(`\[([^\]]+)\]\(([^)]+)\)`)
)

// MarkdownToHTML converts basic markdown to HTML. It covers headers, bold,
// italic, links, images, and paragraphs; anything fancier should go through a
// real renderer before reaching the store.
func MarkdownToHTML(markdown string) string {
	out := mdH3Re.ReplaceAllString(markdown, "<h3>$1</h3>")
	out = mdH2Re.ReplaceAllString(out, "<h2>$1</h2>")
	out = mdH1Re.ReplaceAllString(out, "<h1>$1</h1>")
	out = mdBoldItalicRe.ReplaceAllString(out, "<strong><em>$1</em></strong>")
	out = mdBoldRe.ReplaceAllString(out, "<strong>$1</strong>")
	out = mdImageRe.ReplaceAllString(out, `<img src="$2" alt="$1" />`)
	out = mdAnchorRe.ReplaceAllString(out, `<a href="$2">$1</a>`)
	out = mdItalicRe.ReplaceAllString(out, "<em>$1</em>")

	var sb strings.Builder
	for _, para := range strings.Split(out, "\n\n") {
		para = strings.TrimSpace(strings.ReplaceAll(para, "\n", " "))
		if para == "" {
			continue
		}
		if strings.HasPrefix(para, "<h") || strings.HasPrefix(para, "<p") ||
			strings.HasPrefix(para, "<ul") || strings.HasPrefix(para, "<ol") {
			sb.WriteString(para)
		} else {
			sb.WriteString("<p>")
			sb.WriteString(para)
			sb.WriteString("</p>")
		}
	}

	return sb.String()
}

// SanitizeFilename normalizes a filename for storage paths.
func SanitizeFilename(filename string) string {
	s := strings.ToLower(filename)
	s = fileInvalidRe.ReplaceAllString(s, "-")
	s = multiHyphenRe.ReplaceAllString(s, "-")
	return strings.Trim(s, "-")
}

// FileExtension returns the lowercase extension of a filename, without the dot.
func FileExtension(filename string) string {
	lastDot := strings.LastIndex(filename, ".")
	if lastDot <= 0 {
		return ""
	}
	return strings.ToLower(filename[lastDot+1:])
}

// mimeTypes maps known extensions to MIME types.
var mimeTypes = map[string]string{
	"jpg":  "image/jpeg",
	"jpeg": "image/jpeg",
	"png":  "image/png",
	"gif":  "image/gif",
	"webp": "image/webp",
	"svg":  "image/svg+xml",
	"pdf":  "application/pdf",
}

// MIMEType returns the MIME type for a filename based on its extension.
// Unknown extensions map to application/octet-stream.
func MIMEType(filename string) string {
	if mt, ok := mimeTypes[FileExtension(filename)]; ok {
		return mt
	}
	return "application/octet-stream"
}

// IsValidEmail reports whether the string looks like an email address.
func IsValidEmail(email string) bool {
	return emailRe.MatchString(email)
}

// StripDataURLPrefix removes a leading data:image/...;base64, prefix if present.
func StripDataURLPrefix(s string) string {
	return dataURLPrefixRe.ReplaceAllString(s, "")
}

// FormatDate formats a time as YYYY-MM-DD for display.
func FormatDate(t time.Time) string {
	return fmt.Sprintf("%04d-%02d-%02d", t.Year(), t.Month(), t.Day())
}

// SplitTags splits a comma-separated tag string into trimmed, non-empty tags.
func SplitTags(tags string) []string {
	if tags == "" {
		return nil
	}
	parts := strings.Split(tags, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if t := strings.TrimSpace(p); t != "" {
			out = append(out, t)
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}
