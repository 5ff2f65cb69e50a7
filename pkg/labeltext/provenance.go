package labeltext

import (
	"net/url"
	"path"
	"regexp"
	"sort"
	"strconv"

	"github.com/gofiber/fiber/v2/log"
)

var timestampSegment = regexp.MustCompile(`^(\d+)\.[A-Za-z0-9]+$`)

type stampedURL struct {
	url       string
	timestamp int64
}

// SortByTimestamp orders wrapper URLs by the millisecond timestamp embedded in
// the file name of their inner `url` query parameter, oldest first. URLs that
// cannot be parsed or carry no timestamp are left out.
func SortByTimestamp(urls []string) []string {
	stamped := make([]stampedURL, 0, len(urls))
	for _, raw := range urls {
		ts, ok := EmbeddedTimestamp(raw)
		if !ok {
			log.Debugw("dropping image url without timestamp", "url", raw)
			continue
		}
		stamped = append(stamped, stampedURL{url: raw, timestamp: ts})
	}

	sort.SliceStable(stamped, func(i, j int) bool {
		return stamped[i].timestamp < stamped[j].timestamp
	})

	result := make([]string, 0, len(stamped))
	for _, s := range stamped {
		result = append(result, s.url)
	}
	return result
}

// EmbeddedTimestamp extracts the timestamp from the inner URL wrapped by raw.
// An inner value that only yields a timestamp after a second decode is
// accepted as well.
func EmbeddedTimestamp(raw string) (int64, bool) {
	outer, err := url.Parse(raw)
	if err != nil {
		return 0, false
	}

	// Query already percent-decodes the value once.
	inner := outer.Query().Get("url")
	if inner == "" {
		return 0, false
	}
	if ts, ok := fileTimestamp(inner); ok {
		return ts, true
	}
	decoded, err := url.QueryUnescape(inner)
	if err != nil || decoded == inner {
		return 0, false
	}
	return fileTimestamp(decoded)
}

func fileTimestamp(rawURL string) (int64, bool) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return 0, false
	}

	m := timestampSegment.FindStringSubmatch(path.Base(u.Path))
	if m == nil {
		return 0, false
	}
	ts, err := strconv.ParseInt(m[1], 10, 64)
	if err != nil {
		return 0, false
	}
	return ts, true
}
