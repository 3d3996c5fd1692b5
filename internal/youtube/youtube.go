// Package youtube recognizes YouTube video links and resolves display
// metadata for them.
package youtube

import (
	"regexp"
	"strings"
)

// UnknownID is returned by IDOrUnknown when a URL carries no video id.
const UnknownID = "unknown"

// Recognized link shapes: watch, shortlink, embed and shorts.
var patterns = []*regexp.Regexp{
	regexp.MustCompile(`(?:youtube\.com/watch\?v=|youtu\.be/|youtube\.com/embed/)([^&\n?#]+)`),
	regexp.MustCompile(`youtube\.com/shorts/([^&\n?#]+)`),
}

// ExtractVideoID returns the video id embedded in rawURL, or "" when the URL
// does not match a recognized YouTube link shape.
func ExtractVideoID(rawURL string) string {
	for _, p := range patterns {
		if m := p.FindStringSubmatch(rawURL); m != nil {
			return m[1]
		}
	}
	return ""
}

// IsVideoURL reports whether rawURL matches a recognized link shape.
func IsVideoURL(rawURL string) bool {
	return ExtractVideoID(strings.TrimSpace(rawURL)) != ""
}

// IDOrUnknown is ExtractVideoID with a stable placeholder for misses.
func IDOrUnknown(rawURL string) string {
	if id := ExtractVideoID(rawURL); id != "" {
		return id
	}
	return UnknownID
}

// ThumbnailURL returns the public high-quality thumbnail for a video id.
func ThumbnailURL(videoID string) string {
	if videoID == "" || videoID == UnknownID {
		return ""
	}
	return "https://img.youtube.com/vi/" + videoID + "/hqdefault.jpg"
}
