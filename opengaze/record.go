package opengaze

import (
	"strconv"
	"strings"

	"github.com/juju/errors"
)

const RecordTag = "REC"

// IsRecord reports whether frame is a data record.
func IsRecord(frame string) bool { return strings.HasPrefix(frame, "<"+RecordTag) }

type attr struct {
	name  string
	value string
	// closing quote was missing
	broken bool
}

// Record is a scanned frame: tag name and attributes in order of appearance.
type Record struct {
	Tag   string
	attrs []attr
}

// ParseRecord never fails, it collects whatever name="value" pairs it can find.
// Bytes that do not fit the pattern are skipped.
func ParseRecord(frame string) Record {
	var r Record
	s := scanner{s: frame}
	s.skipSpace()
	if s.peek() == '<' {
		s.i++
		r.Tag = s.name()
	}
	r.attrs = make([]attr, 0, 16)
	for !s.eof() {
		s.skipSpace()
		name := s.name()
		if name == "" {
			s.i++
			continue
		}
		s.skipSpace()
		if s.peek() != '=' {
			continue
		}
		s.i++
		s.skipSpace()
		if s.peek() != '"' {
			continue
		}
		s.i++
		end := strings.IndexByte(s.s[s.i:], '"')
		if end < 0 {
			r.attrs = append(r.attrs, attr{name: name, value: s.s[s.i:], broken: true})
			break
		}
		r.attrs = append(r.attrs, attr{name: name, value: s.s[s.i : s.i+end]})
		s.i += end + 1
	}
	return r
}

// Lookup returns raw value of first attribute with given name.
func (self *Record) Lookup(name string) (string, bool) {
	for _, a := range self.attrs {
		if a.name == name {
			return a.value, true
		}
	}
	return "", false
}

func (self *Record) Len() int { return len(self.attrs) }

// Float parses first attribute with given name.
// Absent attribute: errors.IsNotFound(err), bad literal: errors.IsNotValid(err).
func (self *Record) Float(name string) (float64, error) {
	for _, a := range self.attrs {
		if a.name != name {
			continue
		}
		if a.broken {
			return 0, errors.NotValidf("attribute %s unterminated value=%q", name, a.value)
		}
		return parseNumber(name, a.value)
	}
	return 0, errors.NotFoundf("attribute %s", name)
}

// parseNumber accepts plain decimal literals only: no NaN, Inf, hex or underscores.
func parseNumber(name, s string) (float64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, errors.NotValidf("attribute %s empty value", name)
	}
	for i := 0; i < len(s); i++ {
		switch c := s[i]; {
		case c >= '0' && c <= '9':
		case c == '.' || c == '-' || c == '+' || c == 'e' || c == 'E':
		default:
			return 0, errors.NotValidf("attribute %s value=%q", name, s)
		}
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, errors.NewNotValid(err, "attribute "+name)
	}
	return f, nil
}

type scanner struct {
	s string
	i int
}

func (self *scanner) eof() bool { return self.i >= len(self.s) }

func (self *scanner) peek() byte {
	if self.eof() {
		return 0
	}
	return self.s[self.i]
}

func (self *scanner) skipSpace() {
	for !self.eof() {
		switch self.s[self.i] {
		case ' ', '\t', '\r', '\n':
			self.i++
		default:
			return
		}
	}
}

func (self *scanner) name() string {
	start := self.i
	for !self.eof() && isNameByte(self.s[self.i]) {
		self.i++
	}
	return self.s[start:self.i]
}

func isNameByte(c byte) bool {
	return c == '_' || (c >= 'A' && c <= 'Z') || (c >= 'a' && c <= 'z') || (c >= '0' && c <= '9')
}
