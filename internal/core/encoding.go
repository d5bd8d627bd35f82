package core

// encoding.go resolves the text encoding of an uploaded spreadsheet export.
//
// Admins mostly export from Chinese-locale spreadsheet tools, which write
// GB18030 or Windows-1252 unless told otherwise. The resolver is a short
// ordered chain of (decode, accept) pairs evaluated against the ORIGINAL
// bytes; the first accepted candidate wins:
//
//  1. UTF-8 (lossy, BOM stripped)
//  2. GB18030
//  3. Windows-1252
//  4. fallback to the lossy UTF-8 text with warnings
//
// Every candidate re-decodes the full buffer, so a result never mixes
// characters from two encodings.

import (
	"bytes"
	"fmt"
	"log/slog"
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/simplifiedchinese"
)

const replacementChar = "\uFFFD"

// utf8BOM is the byte-order mark written by the template generator and by
// most Windows spreadsheet tools.
var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// garbledIndicators are symbols that show up when Chinese text is decoded
// with the wrong code page. Their presence without any CJK ideograph makes
// a UTF-8 decode suspect.
var garbledIndicators = []rune{'≈', '£', '◊', '…', 'Ω'}

// encodingCandidate is one step of the resolver chain.
type encodingCandidate struct {
	encoding Encoding
	decode   func(raw []byte) (string, error)
	// accept decides whether text is good enough. utf8Replacements is the
	// number of replacement markers the UTF-8 attempt produced.
	accept func(text string, utf8Replacements int) bool
	notes  []Diagnostic
}

var encodingChain = []encodingCandidate{
	{
		encoding: EncodingUTF8,
		decode:   decodeUTF8,
		accept:   acceptUTF8,
	},
	{
		encoding: EncodingGB18030,
		decode:   decodeWith(simplifiedchinese.GB18030),
		accept:   acceptGB18030,
		notes:    []Diagnostic{autoCorrectedNote(EncodingGB18030)},
	},
	{
		encoding: EncodingWindows1252,
		decode:   decodeWith(charmap.Windows1252),
		accept:   acceptWindows1252,
		notes:    []Diagnostic{autoCorrectedNote(EncodingWindows1252)},
	},
}

// ResolveEncoding picks the encoding for raw and returns the decoded text.
// It never fails: problems are reported as diagnostics, and an unusable
// decode comes back as empty text with an error diagnostic.
func ResolveEncoding(raw []byte) DecodedText {
	var (
		lossy            string
		utf8Replacements int
	)

	for i, c := range encodingChain {
		text, err := c.decode(raw)
		if err != nil {
			if i == 0 {
				return DecodedText{
					Encoding: EncodingUTF8Lossy,
					Diagnostics: []Diagnostic{{
						Severity: SeverityError,
						Message:  fmt.Sprintf("encoding error: the file could not be decoded (%v). Check that it is a valid CSV file.", err),
					}},
				}
			}
			slog.Debug("encoding candidate failed", "encoding", c.encoding, "error", err)
			continue
		}

		if i == 0 {
			lossy = text
			utf8Replacements = strings.Count(text, replacementChar)
		}

		if c.accept(text, utf8Replacements) {
			return DecodedText{
				Text:        text,
				Encoding:    c.encoding,
				Diagnostics: append([]Diagnostic(nil), c.notes...),
			}
		}
		slog.Debug("encoding candidate rejected", "encoding", c.encoding)
	}

	return DecodedText{
		Text:     lossy,
		Encoding: EncodingUTF8Lossy,
		Diagnostics: []Diagnostic{
			{
				Severity: SeverityWarning,
				Message:  "Some characters in this file could not be decoded and may appear as \uFFFD.",
			},
			{
				Severity: SeverityWarning,
				Message:  "Re-export the file as \"CSV UTF-8\" (Excel) or save it as UTF-8 from Google Sheets, Numbers or a text editor, then upload it again.",
			},
		},
	}
}

// decodeUTF8 decodes raw as UTF-8, replacing invalid sequences with U+FFFD.
func decodeUTF8(raw []byte) (string, error) {
	raw = bytes.TrimPrefix(raw, utf8BOM)
	if utf8.Valid(raw) {
		return string(raw), nil
	}

	var b strings.Builder
	b.Grow(len(raw))
	for len(raw) > 0 {
		r, size := utf8.DecodeRune(raw)
		if r == utf8.RuneError && size == 1 {
			b.WriteString(replacementChar)
		} else {
			b.WriteRune(r)
		}
		raw = raw[size:]
	}
	return b.String(), nil
}

// decodeWith returns a decoder for a legacy code page.
func decodeWith(enc encoding.Encoding) func([]byte) (string, error) {
	return func(raw []byte) (string, error) {
		out, err := enc.NewDecoder().Bytes(raw)
		if err != nil {
			return "", err
		}
		return strings.TrimPrefix(string(out), "\uFEFF"), nil
	}
}

func acceptUTF8(text string, _ int) bool {
	if strings.Contains(text, replacementChar) {
		return false
	}
	return !hasGarbledIndicators(text) || hasCJK(text)
}

func acceptGB18030(text string, _ int) bool {
	return hasCJK(text) && !strings.Contains(text, replacementChar)
}

func acceptWindows1252(text string, utf8Replacements int) bool {
	n := strings.Count(text, replacementChar)
	return n == 0 || n < utf8Replacements
}

func hasGarbledIndicators(text string) bool {
	for _, r := range garbledIndicators {
		if strings.ContainsRune(text, r) {
			return true
		}
	}
	return false
}

func hasCJK(text string) bool {
	for _, r := range text {
		if unicode.Is(unicode.Han, r) {
			return true
		}
	}
	return false
}

func autoCorrectedNote(enc Encoding) Diagnostic {
	return Diagnostic{
		Severity: SeverityInfo,
		Message: fmt.Sprintf("The file was not UTF-8; it was decoded as %s automatically. "+
			"To avoid this in future exports, save the file as \"CSV UTF-8\" or use a UTF-8-safe editor such as Google Sheets.", enc),
	}
}
