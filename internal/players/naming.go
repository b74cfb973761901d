package players

import (
	"fmt"
	"net/url"
	"regexp"
	"strconv"
	"strings"

	"github.com/micro-nova/amplipi-hub/internal/amplipi"
)

// streamNameMarker is the prefix marker used to detect already-normalized
// stream names.
const streamNameMarker = "AmpliPi Stream"

var digitPattern = regexp.MustCompile(`\d`)

// ExtractSourceID parses a zero-based source index out of a user-facing
// label like "Source 3". Only the first digit is authoritative; labels with
// multiple digit groups are a known limitation of the naming scheme.
func ExtractSourceID(label string) (int, error) {
	digits := digitPattern.FindAllString(label, -1)
	if len(digits) == 0 {
		return 0, fmt.Errorf("no source id in %q", label)
	}
	first, err := strconv.Atoi(digits[0])
	if err != nil {
		return 0, err
	}
	return first - 1, nil
}

// ExtractStreamID pulls a stream ID out of a normalized stream name.
//
// Stream IDs come in two hardware-defined ranges: user-created streams are
// numbered from 1000 up (4 digits) and the built-in RCA inputs are 996-999
// (3 digits). The first extracted digit decides how many digits belong to
// the ID; anything else cannot be attributed. Do not generalize this without
// clarifying the controller's ID-numbering scheme.
func ExtractStreamID(label string) (int, bool) {
	digits := strings.Join(digitPattern.FindAllString(label, -1), "")
	if digits == "" {
		return 0, false
	}

	var keep int
	switch digits[0] {
	case '1':
		keep = 4
	case '9':
		keep = 3
	default:
		return 0, false
	}
	if len(digits) < keep {
		return 0, false
	}

	id, err := strconv.Atoi(digits[:keep])
	if err != nil {
		return 0, false
	}
	return id, true
}

// NormalizeStreamNames rewrites stream display names to carry the
// "AmpliPi Stream {id}: {name}" prefix. Idempotent: snapshots are re-synced
// on every poll and already-prefixed names feed back in, so names that
// contain the marker are left alone.
func NormalizeStreamNames(streams []amplipi.Stream) []amplipi.Stream {
	for i := range streams {
		if !strings.Contains(streams[i].Name, streamNameMarker) {
			streams[i].Name = fmt.Sprintf("%s %d: %s", streamNameMarker, streams[i].ID, streams[i].Name)
		}
	}
	return streams
}

// BuildImageURL resolves a possibly-relative artwork path against the web
// app base URL. Absolute URLs pass through unchanged; anything that does not
// resolve to a well-formed URL yields "" rather than a malformed link.
func BuildImageURL(basePath, imgURL string) string {
	if imgURL == "" {
		return ""
	}
	if isValidURL(imgURL) {
		return imgURL
	}

	resolved := basePath + "/" + imgURL
	if isValidURL(resolved) {
		return resolved
	}
	return ""
}

// entitySlug lowercases a display name and collapses anything outside
// [a-z0-9] into underscores, matching the entity ID convention.
func entitySlug(name string) string {
	var b strings.Builder
	b.Grow(len(name))
	lastUnderscore := false
	for _, r := range strings.ToLower(name) {
		switch {
		case (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9'):
			b.WriteRune(r)
			lastUnderscore = false
		case !lastUnderscore && b.Len() > 0:
			b.WriteByte('_')
			lastUnderscore = true
		}
	}
	return strings.TrimSuffix(b.String(), "_")
}

func isValidURL(raw string) bool {
	parsed, err := url.Parse(raw)
	if err != nil {
		return false
	}
	return (parsed.Scheme == "http" || parsed.Scheme == "https") && parsed.Host != ""
}
