package common

import (
	"net/url"
	"strings"
)

// DefaultTrackers is the tracker set appended to magnets built from a bare
// info hash.
var DefaultTrackers = []string{
	"udp://tracker.opentrackr.org:1337/announce",
	"udp://open.stealth.si:80/announce",
	"udp://tracker.torrent.eu.org:451/announce",
	"udp://exodus.desync.com:6969/announce",
}

func NormalizeInfoHash(raw string) string {
	value := strings.TrimSpace(raw)
	value = strings.TrimPrefix(strings.ToLower(value), "urn:btih:")
	return value
}

func BuildMagnet(infoHash, name string, trackers []string) string {
	hash := NormalizeInfoHash(infoHash)
	if hash == "" {
		return ""
	}
	if len(trackers) == 0 {
		trackers = DefaultTrackers
	}
	var builder strings.Builder
	builder.WriteString("magnet:?xt=urn:btih:")
	builder.WriteString(hash)
	if strings.TrimSpace(name) != "" {
		builder.WriteString("&dn=")
		builder.WriteString(url.QueryEscape(strings.TrimSpace(name)))
	}
	for _, tracker := range trackers {
		value := strings.TrimSpace(tracker)
		if value == "" {
			continue
		}
		builder.WriteString("&tr=")
		builder.WriteString(url.QueryEscape(value))
	}
	return builder.String()
}

// MagnetInfoHash extracts the info hash from a magnet URI, or returns "".
func MagnetInfoHash(magnet string) string {
	parsed, err := url.Parse(strings.TrimSpace(magnet))
	if err != nil || parsed.Scheme != "magnet" {
		return ""
	}
	for _, xt := range parsed.Query()["xt"] {
		if strings.HasPrefix(strings.ToLower(xt), "urn:btih:") {
			return NormalizeInfoHash(xt)
		}
	}
	return ""
}
