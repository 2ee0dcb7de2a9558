package errors

import (
	"bytes"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestNew(t *testing.T) {
	tests := []struct {
		name    string
		code    string
		wantMsg string
		wantCat Category
	}{
		{"scroll error", "S001", "Hub closed", CategoryScroll},
		{"protocol error", "P002", "Handshake failed", CategoryProtocol},
		{"manifest error", "M202", "Duplicate id on page", CategoryManifest},
		{"unknown error code", "X999", "Unknown error", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := New(tt.code)
			if err.Message != tt.wantMsg {
				t.Errorf("Message = %q, want %q", err.Message, tt.wantMsg)
			}
			if err.Category != tt.wantCat {
				t.Errorf("Category = %q, want %q", err.Category, tt.wantCat)
			}
			if err.Code != tt.code {
				t.Errorf("Code = %q, want %q", err.Code, tt.code)
			}
		})
	}
}

func TestRegistryComplete(t *testing.T) {
	for _, code := range Codes() {
		tmpl, _ := Lookup(code)
		if tmpl.Message == "" {
			t.Errorf("%s has no message", code)
		}
		if !strings.HasSuffix(tmpl.DocURL, code) {
			t.Errorf("%s DocURL = %q", code, tmpl.DocURL)
		}
	}
}

func TestErrorString(t *testing.T) {
	cause := fmt.Errorf("yaml: line 3: mapping values are not allowed")
	err := New("M201").Wrap(cause)
	err.Location = &Location{File: "site.yaml", Line: 3}

	want := "site.yaml:3: M201: Manifest parse error: yaml: line 3: mapping values are not allowed"
	if got := err.Error(); got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}
	if !stderrors.Is(err, cause) {
		t.Error("errors.Is did not find the cause")
	}
}

func TestFromError(t *testing.T) {
	if FromError(nil, "C101") != nil {
		t.Error("FromError(nil) != nil")
	}

	orig := New("M203")
	if FromError(orig, "C101") != orig {
		t.Error("FromError re-wrapped a ScrollkitError")
	}

	plain := fmt.Errorf("boom")
	wrapped := FromError(plain, "C103")
	if wrapped.Code != "C103" || wrapped.Wrapped != plain {
		t.Errorf("FromError = %+v", wrapped)
	}
}

func TestWithLocationReadsContext(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "site.yaml")
	content := "pages:\n  - path: /\n    sections:\n      - id: intro\n      - id: intro\n      - id: outro\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	err := New("M202").WithLocation(path, 5, 13).WithSuggestion("Rename one of the sections")
	if len(err.Context) != 5 {
		t.Fatalf("Context has %d lines, want 5", len(err.Context))
	}
	if err.Context[2] != "      - id: intro" {
		t.Errorf("Context[2] = %q", err.Context[2])
	}

	DisableColors()
	defer EnableColors()

	out := err.Format()
	for _, want := range []string{
		"ERROR M202: Duplicate id on page",
		"→    5 │       - id: intro",
		"Hint: Rename one of the sections",
		"Learn more: https://scrollkit.dev/docs/errors/M202",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("Format() missing %q\n%s", want, out)
		}
	}
}

func TestFormatCompact(t *testing.T) {
	err := New("P001")
	err.Location = &Location{File: "a.yaml", Line: 2, Column: 4}
	if got, want := err.FormatCompact(), "a.yaml:2:4: P001: Malformed frame"; got != want {
		t.Errorf("FormatCompact() = %q, want %q", got, want)
	}
}

func TestFormatJSON(t *testing.T) {
	err := New("C101").WithDetail("server.port must be between 1 and 65535").Wrap(fmt.Errorf("got 0"))

	var decoded map[string]any
	if jerr := json.Unmarshal([]byte(err.FormatJSON()), &decoded); jerr != nil {
		t.Fatalf("FormatJSON() is not JSON: %v", jerr)
	}
	if decoded["code"] != "C101" || decoded["cause"] != "got 0" {
		t.Errorf("FormatJSON() = %v", decoded)
	}
	if _, ok := decoded["location"]; ok {
		t.Error("location present without a Location")
	}
}

func TestFprint(t *testing.T) {
	DisableColors()
	defer EnableColors()

	var buf bytes.Buffer
	Fprint(&buf, fmt.Errorf("loading: %w", New("M204")))
	if !strings.Contains(buf.String(), "ERROR M204") {
		t.Errorf("Fprint did not format the wrapped ScrollkitError: %q", buf.String())
	}

	buf.Reset()
	Fprint(&buf, fmt.Errorf("plain"))
	if !strings.Contains(buf.String(), "ERROR: plain") {
		t.Errorf("Fprint(plain) = %q", buf.String())
	}
}

func TestWrapText(t *testing.T) {
	lines := wrapText(strings.Repeat("word ", 40), 20)
	for _, l := range lines {
		if len(l) > 20 {
			t.Errorf("line %q longer than 20", l)
		}
	}
	if wrapText("", 10) != nil {
		t.Error("wrapText(\"\") != nil")
	}
}
