package common

import (
	"strings"
	"testing"
)

func TestNormalizeInfoHash(t *testing.T) {
	cases := []struct {
		name  string
		input string
		want  string
	}{
		{"lowercase hex", "abcdef1234567890", "abcdef1234567890"},
		{"uppercase hex", "ABCDEF1234567890", "abcdef1234567890"},
		{"with urn:btih: prefix", "urn:btih:abcdef1234567890", "abcdef1234567890"},
		{"whitespace around hash", "  abcdef1234567890  ", "abcdef1234567890"},
		{"empty", "", ""},
		{"urn:btih: only", "urn:btih:", ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := NormalizeInfoHash(tc.input)
			if got != tc.want {
				t.Errorf("NormalizeInfoHash(%q) = %q, want %q", tc.input, got, tc.want)
			}
		})
	}
}

func TestBuildMagnetBasic(t *testing.T) {
	magnet := BuildMagnet("abcdef1234567890", "Test Torrent", nil)
	if !strings.HasPrefix(magnet, "magnet:?xt=urn:btih:abcdef1234567890") {
		t.Fatalf("unexpected magnet: %s", magnet)
	}
	if !strings.Contains(magnet, "dn=Test+Torrent") {
		t.Fatalf("expected encoded name in magnet: %s", magnet)
	}
	if !strings.Contains(magnet, "&tr=") {
		t.Fatalf("expected default trackers in magnet: %s", magnet)
	}
}

func TestBuildMagnetWithTrackers(t *testing.T) {
	trackers := []string{"udp://tracker1:1337", "", "udp://tracker2:6969", "  "}
	magnet := BuildMagnet("abcdef1234567890", "Test", trackers)
	trCount := strings.Count(magnet, "&tr=")
	if trCount != 2 {
		t.Fatalf("expected 2 tracker params, got %d in: %s", trCount, magnet)
	}
}

func TestBuildMagnetEmptyInfoHash(t *testing.T) {
	if magnet := BuildMagnet("", "Test", nil); magnet != "" {
		t.Fatalf("expected empty magnet for empty hash, got: %s", magnet)
	}
}

func TestBuildMagnetWhitespaceName(t *testing.T) {
	magnet := BuildMagnet("abcdef1234567890", "   ", nil)
	if strings.Contains(magnet, "dn=") {
		t.Fatalf("expected no dn= param for whitespace-only name: %s", magnet)
	}
}

func TestBuildMagnetNormalizesHash(t *testing.T) {
	magnet := BuildMagnet("urn:btih:ABCDEF1234567890", "Test", nil)
	if strings.Contains(magnet, "urn:btih:urn:btih:") {
		t.Fatalf("double urn:btih prefix in magnet: %s", magnet)
	}
	if !strings.Contains(magnet, "urn:btih:abcdef1234567890") {
		t.Fatalf("expected normalized hash: %s", magnet)
	}
}

func TestMagnetInfoHash(t *testing.T) {
	magnet := BuildMagnet("abcdef1234567890", "Test", nil)
	if got := MagnetInfoHash(magnet); got != "abcdef1234567890" {
		t.Fatalf("MagnetInfoHash = %q, want abcdef1234567890", got)
	}
	if got := MagnetInfoHash("https://example.org/not-a-magnet"); got != "" {
		t.Fatalf("expected empty hash for non-magnet URI, got %q", got)
	}
}
