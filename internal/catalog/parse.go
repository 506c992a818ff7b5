package catalog

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
)

// maxPlurals caps msgstr[n] indexes; no plural rule needs more.
const maxPlurals = 16

// target tracks which string the next continuation line appends to.
type target int

const (
	targetNone target = iota
	targetContext
	targetID
	targetPluralID
	targetStr
	targetPlural
)

type parser struct {
	file        *File
	entry       Entry
	seenMsgid   bool
	tgt         target
	pluralIndex int
	line        int
}

// Parse reads a catalog from r.
func Parse(r io.Reader) (*File, error) {
	p := &parser{file: &File{Header: map[string]string{}}}

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		p.line++
		if err := p.parseLine(scanner.Text()); err != nil {
			return nil, err
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading catalog: %w", err)
	}

	p.flush()
	p.file.resolveLanguage()
	return p.file, nil
}

// ParseFile reads the catalog at path.
func ParseFile(path string) (*File, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening catalog %s: %w", path, err)
	}
	defer f.Close()

	file, err := Parse(f)
	if err != nil {
		return nil, fmt.Errorf("parsing catalog %s: %w", path, err)
	}
	file.Path = path
	return file, nil
}

func (p *parser) parseLine(raw string) error {
	line := strings.TrimSpace(raw)
	if line == "" {
		p.flush()
		return nil
	}

	obsolete := false
	if rest, ok := strings.CutPrefix(line, "#~"); ok {
		obsolete = true
		line = strings.TrimSpace(rest)
		if line == "" {
			return nil
		}
	}

	if strings.HasPrefix(line, "#") {
		p.comment(line)
		return nil
	}
	return p.directive(line, obsolete)
}

func (p *parser) directive(line string, obsolete bool) error {
	switch {
	case strings.HasPrefix(line, "msgctxt"):
		p.flushIfComplete()
		value, err := p.unquote(line[len("msgctxt"):])
		if err != nil {
			return err
		}
		p.entry.Context = value
		p.entry.Obsolete = p.entry.Obsolete || obsolete
		p.tgt = targetContext

	case strings.HasPrefix(line, "msgid_plural"):
		value, err := p.unquote(line[len("msgid_plural"):])
		if err != nil {
			return err
		}
		p.entry.PluralID = value
		p.entry.Obsolete = p.entry.Obsolete || obsolete
		p.tgt = targetPluralID

	case strings.HasPrefix(line, "msgid"):
		p.flushIfComplete()
		value, err := p.unquote(line[len("msgid"):])
		if err != nil {
			return err
		}
		p.entry.ID = value
		p.entry.Obsolete = p.entry.Obsolete || obsolete
		p.seenMsgid = true
		p.tgt = targetID

	case strings.HasPrefix(line, "msgstr["):
		rest := line[len("msgstr["):]
		end := strings.IndexByte(rest, ']')
		if end < 0 {
			return fmt.Errorf("line %d: %w: unterminated msgstr index", p.line, ErrSyntax)
		}
		n, err := strconv.Atoi(rest[:end])
		if err != nil || n < 0 || n >= maxPlurals {
			return fmt.Errorf("line %d: %w: bad msgstr index %q", p.line, ErrSyntax, rest[:end])
		}
		value, err := p.unquote(rest[end+1:])
		if err != nil {
			return err
		}
		for len(p.entry.Plurals) <= n {
			p.entry.Plurals = append(p.entry.Plurals, "")
		}
		p.entry.Plurals[n] = value
		p.entry.Obsolete = p.entry.Obsolete || obsolete
		p.tgt = targetPlural
		p.pluralIndex = n

	case strings.HasPrefix(line, "msgstr"):
		value, err := p.unquote(line[len("msgstr"):])
		if err != nil {
			return err
		}
		p.entry.Str = value
		p.entry.Obsolete = p.entry.Obsolete || obsolete
		p.tgt = targetStr

	case strings.HasPrefix(line, `"`):
		value, err := p.unquote(line)
		if err != nil {
			return err
		}
		return p.appendTarget(value)

	default:
		return fmt.Errorf("line %d: %w: unexpected %q", p.line, ErrSyntax, line)
	}
	return nil
}

// comment attaches a comment line to the entry being built. Comments
// that follow a completed entry belong to the next one.
func (p *parser) comment(line string) {
	p.flushIfComplete()

	switch {
	case strings.HasPrefix(line, "#,"):
		for _, f := range strings.Split(line[2:], ",") {
			f = strings.TrimSpace(f)
			if f == "" {
				continue
			}
			p.entry.Flags = append(p.entry.Flags, f)
			if f == "fuzzy" {
				p.entry.Fuzzy = true
			}
		}
	case strings.HasPrefix(line, "#:"):
		p.entry.References = append(p.entry.References, strings.Fields(line[2:])...)
	case strings.HasPrefix(line, "#."):
		p.entry.ExtractedComments = append(p.entry.ExtractedComments, strings.TrimSpace(line[2:]))
	case strings.HasPrefix(line, "#|"):
		// Previous-msgid annotations are not tracked.
	default:
		p.entry.TranslatorComments = append(p.entry.TranslatorComments, strings.TrimSpace(line[1:]))
	}
}

// flushIfComplete ends the current entry when a new one starts without
// a separating blank line.
func (p *parser) flushIfComplete() {
	if p.seenMsgid && (p.tgt == targetStr || p.tgt == targetPlural) {
		p.flush()
	}
}

// flush finalizes the entry being built. The first entry with an empty
// msgid is the header; everything else is appended to Entries.
func (p *parser) flush() {
	if !p.seenMsgid {
		p.entry = Entry{}
		p.tgt = targetNone
		return
	}

	e := p.entry
	if e.ID == "" && !e.Obsolete && len(p.file.Entries) == 0 && len(p.file.Header) == 0 {
		p.parseHeader(e.Str)
	} else {
		p.file.Entries = append(p.file.Entries, e)
	}

	p.entry = Entry{}
	p.seenMsgid = false
	p.tgt = targetNone
}

// parseHeader splits the header msgstr into "Key: value" fields.
func (p *parser) parseHeader(s string) {
	for _, line := range strings.Split(s, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		key, value, ok := strings.Cut(line, ":")
		if !ok {
			continue
		}
		p.file.Header[strings.TrimSpace(key)] = strings.TrimSpace(value)
	}
}

func (p *parser) appendTarget(s string) error {
	switch p.tgt {
	case targetContext:
		p.entry.Context += s
	case targetID:
		p.entry.ID += s
	case targetPluralID:
		p.entry.PluralID += s
	case targetStr:
		p.entry.Str += s
	case targetPlural:
		p.entry.Plurals[p.pluralIndex] += s
	default:
		return fmt.Errorf("line %d: %w: continuation without keyword", p.line, ErrSyntax)
	}
	return nil
}

// unquote parses one PO quoted string. strconv.Unquote covers the
// escape sequences gettext emits.
func (p *parser) unquote(s string) (string, error) {
	s = strings.TrimSpace(s)
	if len(s) < 2 || !strings.HasPrefix(s, `"`) || !strings.HasSuffix(s, `"`) {
		return "", fmt.Errorf("line %d: %w: expected quoted string", p.line, ErrSyntax)
	}
	out, err := strconv.Unquote(s)
	if err != nil {
		return "", fmt.Errorf("line %d: %w: %v", p.line, ErrSyntax, err)
	}
	return out, nil
}
