package core

import (
	"strings"
	"testing"

	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/simplifiedchinese"
)

// ============================================================================
// ResolveEncoding Tests
// ============================================================================

func TestResolveEncoding_UTF8(t *testing.T) {
	tests := []struct {
		name  string
		input []byte
		want  string
	}{
		{name: "ascii", input: []byte("name,slug\nBeijing,beijing\n"), want: "name,slug\nBeijing,beijing\n"},
		{name: "chinese", input: []byte("name\n北京\n"), want: "name\n北京\n"},
		{name: "bom stripped", input: []byte("\xEF\xBB\xBFtitle\nX\n"), want: "title\nX\n"},
		{name: "indicator with cjk", input: []byte("name,note\n上海,≈ 5 km\n"), want: "name,note\n上海,≈ 5 km\n"},
		{name: "empty", input: nil, want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ResolveEncoding(tt.input)
			if got.Encoding != EncodingUTF8 {
				t.Errorf("Encoding = %q, want %q", got.Encoding, EncodingUTF8)
			}
			if got.Text != tt.want {
				t.Errorf("Text = %q, want %q", got.Text, tt.want)
			}
			if len(got.Diagnostics) != 0 {
				t.Errorf("Diagnostics = %v, want none", got.Diagnostics)
			}
		})
	}
}

func TestResolveEncoding_GB18030(t *testing.T) {
	inputs := []string{
		"name\n北京\n",
		"name,province\n成都,四川\n西安,陕西\n",
	}

	for _, in := range inputs {
		raw, err := simplifiedchinese.GB18030.NewEncoder().String(in)
		if err != nil {
			t.Fatalf("encode %q: %v", in, err)
		}

		got := ResolveEncoding([]byte(raw))
		if got.Encoding != EncodingGB18030 {
			t.Errorf("Encoding = %q, want %q", got.Encoding, EncodingGB18030)
		}
		if got.Text != in {
			t.Errorf("Text = %q, want %q", got.Text, in)
		}
		if len(got.Diagnostics) != 1 || got.Diagnostics[0].Severity != SeverityInfo {
			t.Errorf("Diagnostics = %v, want one info diagnostic", got.Diagnostics)
		}
	}
}

func TestResolveEncoding_Windows1252(t *testing.T) {
	in := "name,description\nCafé,Crème brûlée\n"
	raw, err := charmap.Windows1252.NewEncoder().String(in)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}

	got := ResolveEncoding([]byte(raw))
	if got.Encoding != EncodingWindows1252 {
		t.Fatalf("Encoding = %q, want %q", got.Encoding, EncodingWindows1252)
	}
	if got.Text != in {
		t.Errorf("Text = %q, want %q", got.Text, in)
	}
	if len(got.Diagnostics) != 1 || got.Diagnostics[0].Severity != SeverityInfo {
		t.Fatalf("Diagnostics = %v, want one info diagnostic", got.Diagnostics)
	}
	if !strings.Contains(got.Diagnostics[0].Message, "Windows-1252") {
		t.Errorf("diagnostic %q should name the encoding", got.Diagnostics[0].Message)
	}
}

func TestResolveEncoding_DiagnosticsNotShared(t *testing.T) {
	raw, err := simplifiedchinese.GB18030.NewEncoder().String("name\n北京\n")
	if err != nil {
		t.Fatalf("encode: %v", err)
	}

	first := ResolveEncoding([]byte(raw))
	first.Diagnostics[0].Message = "changed"

	second := ResolveEncoding([]byte(raw))
	if second.Diagnostics[0].Message == "changed" {
		t.Error("diagnostics slice is shared between calls")
	}
}

func TestResolveEncoding_LossyFallback(t *testing.T) {
	// 0x81 is invalid UTF-8, incomplete GB18030 and undefined in
	// Windows-1252, so no candidate accepts it.
	tests := []struct {
		name  string
		input []byte
		want  string
	}{
		{name: "single byte", input: []byte{0x81}, want: "\uFFFD"},
		{name: "inside a table", input: []byte("name\nCaf\x81\n"), want: "name\nCaf\uFFFD\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ResolveEncoding(tt.input)
			if got.Encoding != EncodingUTF8Lossy {
				t.Errorf("Encoding = %q, want %q", got.Encoding, EncodingUTF8Lossy)
			}
			if got.Text != tt.want {
				t.Errorf("Text = %q, want %q", got.Text, tt.want)
			}
			if got.Clean() {
				t.Error("Clean() = true for a lossy decode")
			}
			if len(got.Diagnostics) != 2 {
				t.Fatalf("Diagnostics = %v, want two warnings", got.Diagnostics)
			}
			for _, d := range got.Diagnostics {
				if d.Severity != SeverityWarning {
					t.Errorf("diagnostic %q has severity %q, want warning", d.Message, d.Severity)
				}
			}
			if !strings.Contains(got.Diagnostics[1].Message, "CSV UTF-8") {
				t.Errorf("second diagnostic %q should explain how to re-export", got.Diagnostics[1].Message)
			}
		})
	}
}

// ============================================================================
// Candidate acceptance Tests
// ============================================================================

func TestAcceptUTF8(t *testing.T) {
	tests := []struct {
		name string
		text string
		want bool
	}{
		{name: "plain", text: "hello", want: true},
		{name: "replacement marker", text: "caf\uFFFD", want: false},
		{name: "indicator only", text: "price ≈ 5", want: false},
		{name: "indicator with cjk", text: "≈ 北京", want: true},
		{name: "pound sign", text: "£100", want: false},
		{name: "ellipsis", text: "more…", want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := acceptUTF8(tt.text, 0); got != tt.want {
				t.Errorf("acceptUTF8(%q) = %v, want %v", tt.text, got, tt.want)
			}
		})
	}
}

func TestAcceptGB18030(t *testing.T) {
	tests := []struct {
		name string
		text string
		want bool
	}{
		{name: "cjk", text: "北京", want: true},
		{name: "no cjk", text: "beijing", want: false},
		{name: "cjk with replacement", text: "北京\uFFFD", want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := acceptGB18030(tt.text, 0); got != tt.want {
				t.Errorf("acceptGB18030(%q) = %v, want %v", tt.text, got, tt.want)
			}
		})
	}
}

func TestAcceptWindows1252(t *testing.T) {
	tests := []struct {
		name             string
		text             string
		utf8Replacements int
		want             bool
	}{
		{name: "clean", text: "café", utf8Replacements: 1, want: true},
		{name: "fewer markers than utf-8", text: "a\uFFFD", utf8Replacements: 3, want: true},
		{name: "same markers as utf-8", text: "a\uFFFD\uFFFD", utf8Replacements: 2, want: false},
		{name: "more markers than utf-8", text: "\uFFFD\uFFFD", utf8Replacements: 1, want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := acceptWindows1252(tt.text, tt.utf8Replacements); got != tt.want {
				t.Errorf("acceptWindows1252(%q, %d) = %v, want %v", tt.text, tt.utf8Replacements, got, tt.want)
			}
		})
	}
}

// ============================================================================
// decodeUTF8 Tests
// ============================================================================

func TestDecodeUTF8(t *testing.T) {
	tests := []struct {
		name  string
		input []byte
		want  string
	}{
		{name: "valid unchanged", input: []byte("hello 世界"), want: "hello 世界"},
		{name: "bom stripped", input: []byte("\xEF\xBB\xBFhello"), want: "hello"},
		{name: "invalid byte replaced", input: []byte("hello\x80world"), want: "hello\uFFFDworld"},
		{name: "truncated sequence", input: []byte{0xc3}, want: "\uFFFD"},
		{name: "latin-1 high byte", input: []byte("caf\xe9"), want: "caf\uFFFD"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := decodeUTF8(tt.input)
			if err != nil {
				t.Fatalf("decodeUTF8() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("decodeUTF8() = %q, want %q", got, tt.want)
			}
		})
	}
}
