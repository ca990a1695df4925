package model

import (
	"encoding/json"
	"testing"
)

func TestKind_String(t *testing.T) {
	t.Parallel()

	tests := []struct {
		kind Kind
		want string
	}{
		{KindPage, "page"},
		{KindAsset, "asset"},
		{Kind(42), "unknown"},
	}
	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			t.Parallel()
			if got := tt.kind.String(); got != tt.want {
				t.Errorf("String() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestParseKind(t *testing.T) {
	t.Parallel()

	if k, err := ParseKind(" Asset "); err != nil || k != KindAsset {
		t.Errorf("ParseKind(Asset) = %v, %v", k, err)
	}
	if _, err := ParseKind("video"); err == nil {
		t.Error("expected error for unknown kind")
	}
}

func TestOutcome_JSONUsesNames(t *testing.T) {
	t.Parallel()

	data, err := json.Marshal(Outcome{URL: "https://example.com/", Kind: KindAsset, Result: ResultFailure})
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}

	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}
	if raw["kind"] != "asset" {
		t.Errorf("kind = %v, want asset", raw["kind"])
	}
	if raw["result"] != "failure" {
		t.Errorf("result = %v, want failure", raw["result"])
	}
}

func TestIsHTMLContentType(t *testing.T) {
	t.Parallel()

	tests := []struct {
		contentType string
		want        bool
	}{
		{"text/html", true},
		{"text/html; charset=utf-8", true},
		{"TEXT/HTML", true},
		{"application/xhtml+xml", true},
		{"text/css", false},
		{"image/png", false},
		{"", false},
	}
	for _, tt := range tests {
		t.Run(tt.contentType, func(t *testing.T) {
			t.Parallel()
			if got := IsHTMLContentType(tt.contentType); got != tt.want {
				t.Errorf("IsHTMLContentType(%q) = %v, want %v", tt.contentType, got, tt.want)
			}
		})
	}
}
