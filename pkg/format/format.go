// Package format renders values for the console's screens and exports.
package format

import (
	"fmt"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"
)

// NotAvailable is shown for missing dates.
const NotAvailable = "N/A"

const dateLayout = "Jan 2, 2006"

var youtubeID = regexp.MustCompile(`^.*(?:youtu\.be/|v/|u/\w/|embed/|watch\?v=|&v=)([^#&?]*).*`)

// Date renders t as "Jan 2, 2006", or N/A when t is zero.
func Date(t time.Time) string {
	if t.IsZero() {
		return NotAvailable
	}
	return t.Format(dateLayout)
}

// DateTime renders t with minutes for activity feeds.
func DateTime(t time.Time) string {
	if t.IsZero() {
		return NotAvailable
	}
	return t.Format("Jan 2, 2006 3:04 PM")
}

// FileSize renders a byte count using binary units.
func FileSize(bytes int64) string {
	if bytes <= 0 {
		return "0 Bytes"
	}
	units := []string{"Bytes", "KB", "MB", "GB"}
	size := float64(bytes)
	i := 0
	for size >= 1024 && i < len(units)-1 {
		size /= 1024
		i++
	}
	out := strings.TrimRight(strings.TrimRight(fmt.Sprintf("%.2f", size), "0"), ".")
	return out + " " + units[i]
}

// Truncate shortens text to max runes followed by "...". max <= 0 means 100.
func Truncate(text string, max int) string {
	if max <= 0 {
		max = 100
	}
	if utf8.RuneCountInString(text) <= max {
		return text
	}
	runes := []rune(text)
	return string(runes[:max]) + "..."
}

// YouTubeID extracts the 11 character video id from a YouTube URL.
func YouTubeID(url string) string {
	m := youtubeID.FindStringSubmatch(url)
	if len(m) < 2 || len(m[1]) != 11 {
		return ""
	}
	return m[1]
}

// YouTubeThumbnail returns the medium thumbnail URL for a video, or "".
func YouTubeThumbnail(url string) string {
	id := YouTubeID(url)
	if id == "" {
		return ""
	}
	return "https://img.youtube.com/vi/" + id + "/mqdefault.jpg"
}

// Initials returns up to two upper-case initials of name, or "U".
func Initials(name string) string {
	initials := make([]rune, 0, 2)
	for _, part := range strings.Fields(name) {
		r, _ := utf8.DecodeRuneInString(part)
		initials = append(initials, r)
		if len(initials) == 2 {
			break
		}
	}
	if len(initials) == 0 {
		return "U"
	}
	return strings.ToUpper(string(initials))
}
