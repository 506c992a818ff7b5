// Package catalog probes gettext translation catalogs (PO and POT
// files): header metadata, entry counts, and translation statistics.
//
// The parser is read-only. Polyglot uses it to describe a catalog when
// it opens in a tab and to answer the catalog.stats command; it is not
// an editing engine.
package catalog

import (
	"strconv"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/language/display"
)

// Entry is one message in a catalog.
type Entry struct {
	// Context is the msgctxt disambiguator, empty when absent.
	Context string

	// ID is the msgid source string.
	ID string

	// PluralID is the msgid_plural source string, empty for singular
	// entries.
	PluralID string

	// Str is the msgstr translation for singular entries.
	Str string

	// Plurals holds msgstr[n] translations for plural entries, indexed
	// by n.
	Plurals []string

	// Fuzzy marks entries flagged "#, fuzzy".
	Fuzzy bool

	// Obsolete marks entries commented out with "#~".
	Obsolete bool

	// TranslatorComments holds "# " comment lines.
	TranslatorComments []string

	// ExtractedComments holds "#." comment lines from the source.
	ExtractedComments []string

	// References holds "#:" source locations.
	References []string

	// Flags holds "#," flags, fuzzy included.
	Flags []string
}

// Translated reports whether the entry carries a complete translation.
// Plural entries need every msgstr[n] filled in.
func (e *Entry) Translated() bool {
	if e.PluralID != "" {
		if len(e.Plurals) == 0 {
			return false
		}
		for _, p := range e.Plurals {
			if p == "" {
				return false
			}
		}
		return true
	}
	return e.Str != ""
}

// File is a parsed catalog.
type File struct {
	// Path is the source file path, empty when parsed from a reader.
	Path string

	// Header holds the header entry's "Key: value" fields.
	Header map[string]string

	// Entries lists every message after the header, obsolete entries
	// included.
	Entries []Entry

	// Language is the tag resolved from the Language header field,
	// language.Und when absent or unparseable.
	Language language.Tag

	// LanguageName is the English display name for Language, empty for
	// language.Und.
	LanguageName string
}

// IsPOT reports whether the catalog is a template rather than a
// translation: a .pot path or a missing Language header.
func (f *File) IsPOT() bool {
	if strings.HasSuffix(strings.ToLower(f.Path), ".pot") {
		return true
	}
	return f.Header["Language"] == ""
}

// NPlurals returns the plural-form count from the Plural-Forms header,
// or 0 when the header is absent or malformed.
func (f *File) NPlurals() int {
	forms := f.Header["Plural-Forms"]
	if forms == "" {
		return 0
	}
	for _, part := range strings.Split(forms, ";") {
		part = strings.TrimSpace(part)
		if rest, ok := strings.CutPrefix(part, "nplurals="); ok {
			n, err := strconv.Atoi(strings.TrimSpace(rest))
			if err != nil {
				return 0
			}
			return n
		}
	}
	return 0
}

// Stats summarizes translation progress over the active entries.
type Stats struct {
	Total        int
	Translated   int
	Fuzzy        int
	Untranslated int
}

// Percent returns the translated share in percent, 0 for an empty
// catalog.
func (s Stats) Percent() float64 {
	if s.Total == 0 {
		return 0
	}
	return float64(s.Translated) / float64(s.Total) * 100
}

// Stats computes translation statistics. Obsolete entries are excluded;
// fuzzy entries count as fuzzy even when a translation is present.
func (f *File) Stats() Stats {
	var s Stats
	for i := range f.Entries {
		e := &f.Entries[i]
		if e.Obsolete {
			continue
		}
		s.Total++
		switch {
		case e.Fuzzy:
			s.Fuzzy++
		case e.Translated():
			s.Translated++
		default:
			s.Untranslated++
		}
	}
	return s
}

// resolveLanguage fills Language and LanguageName from the header.
// gettext writes underscored codes (pt_BR); BCP 47 wants hyphens.
func (f *File) resolveLanguage() {
	f.Language = language.Und

	code := strings.TrimSpace(f.Header["Language"])
	if code == "" {
		return
	}

	tag, err := language.Parse(strings.ReplaceAll(code, "_", "-"))
	if err != nil {
		return
	}
	f.Language = tag
	f.LanguageName = display.English.Languages().Name(tag)
}
