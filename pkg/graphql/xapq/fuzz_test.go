package xapq

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"
)

func FuzzParseExtensions(f *testing.F) {
	f.Add(`{"persistedQuery":{"version":1,"sha256Hash":"ABC"}}`)
	f.Add(`{"persistedQuery":null}`)
	f.Add(`{"persistedQuery":"nope"}`)
	f.Add(`{"persistedQuery":{"version":"1"}}`)
	f.Add(`{}`)

	f.Fuzz(func(t *testing.T, raw string) {
		var ext map[string]any
		if json.Unmarshal([]byte(raw), &ext) != nil {
			return
		}
		pq, err := ParseExtensions(ext)
		if err != nil {
			if !errors.Is(err, ErrMalformedExtension) {
				t.Fatalf("unexpected error type: %v", err)
			}
			return
		}
		if pq == nil {
			return
		}
		if pq.SHA256Hash == "" || pq.SHA256Hash != strings.ToLower(strings.TrimSpace(pq.SHA256Hash)) {
			t.Fatalf("hash not normalised: %q", pq.SHA256Hash)
		}
	})
}
