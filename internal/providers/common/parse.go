package common

import (
	"html"
	"regexp"
	"strconv"
	"strings"
	"time"
)

var tagPattern = regexp.MustCompile(`<[^>]+>`)

// CleanHTMLText strips markup and entity escapes from a scraped fragment and
// collapses whitespace.
func CleanHTMLText(raw string) string {
	value := strings.TrimSpace(raw)
	value = html.UnescapeString(value)
	value = tagPattern.ReplaceAllString(value, " ")
	value = strings.Join(strings.Fields(value), " ")
	return value
}

// ParseHumanSize converts a display size like "1.4 GB" or "700 MB" to bytes.
// Unknown or malformed input yields 0.
func ParseHumanSize(raw string) int64 {
	value := strings.TrimSpace(strings.ToUpper(raw))
	value = strings.ReplaceAll(value, " ", "")
	if value == "" {
		return 0
	}

	unit := ""
	number := value
	for _, suffix := range []string{"TIB", "GIB", "MIB", "KIB", "TB", "GB", "MB", "KB", "B"} {
		if strings.HasSuffix(number, suffix) {
			unit = suffix
			number = strings.TrimSuffix(number, suffix)
			break
		}
	}
	if unit == "" {
		if parsed, err := strconv.ParseInt(number, 10, 64); err == nil {
			return parsed
		}
		return 0
	}

	parsed, err := strconv.ParseFloat(strings.ReplaceAll(number, ",", "."), 64)
	if err != nil || parsed < 0 {
		return 0
	}

	multiplier := float64(1)
	switch unit {
	case "KB", "KIB":
		multiplier = 1024
	case "MB", "MIB":
		multiplier = 1024 * 1024
	case "GB", "GIB":
		multiplier = 1024 * 1024 * 1024
	case "TB", "TIB":
		multiplier = 1024 * 1024 * 1024 * 1024
	}
	return int64(parsed * multiplier)
}

// ParseInt parses a display integer such as "1,234", returning 0 on failure.
func ParseInt(raw string) int {
	cleaned := strings.ReplaceAll(strings.TrimSpace(raw), ",", "")
	value, err := strconv.Atoi(cleaned)
	if err != nil {
		return 0
	}
	return value
}

// ParseInt64 parses a display integer into int64, returning 0 on failure.
func ParseInt64(raw string) int64 {
	cleaned := strings.ReplaceAll(strings.TrimSpace(raw), ",", "")
	value, err := strconv.ParseInt(cleaned, 10, 64)
	if err != nil {
		return 0
	}
	return value
}

var dateLayouts = []string{
	time.RFC1123Z,
	time.RFC1123,
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02",
	"Jan 2, 2006",
	"02-01-2006",
}

// ParseUploadTime tries the date layouts providers commonly emit. The zero
// time means unparseable.
func ParseUploadTime(raw string) time.Time {
	value := strings.TrimSpace(raw)
	if value == "" {
		return time.Time{}
	}
	if ts, err := strconv.ParseInt(value, 10, 64); err == nil && ts > 0 {
		return time.Unix(ts, 0).UTC()
	}
	for _, layout := range dateLayouts {
		if parsed, err := time.Parse(layout, value); err == nil {
			return parsed.UTC()
		}
	}
	return time.Time{}
}
