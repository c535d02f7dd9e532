// Package luatable decodes Lua table constructors, as embedded by the game in
// text fields, into generic Go values.
//
// The decoder works in two passes. Normalize rewrites the table syntax into
// JSON: identifier and bracketed keys become quoted keys, positional entries
// receive their implicit 1-based index as key, and trailing separators are
// dropped. Parse then decodes the JSON and turns every table whose keys are
// exactly 1..n into a sequence.
package luatable

import (
	"encoding/json"
	"fmt"
	"math"
	"slices"
	"strconv"
	"strings"
)

// DecodeError reports malformed table text. Offset is a byte offset into the
// original input. Err is set when the text is well formed but its tables do
// not have the expected shape.
type DecodeError struct {
	Offset int
	Msg    string
	Err    error
}

func (e *DecodeError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("luatable: %s: %v", e.Msg, e.Err)
	}
	return fmt.Sprintf("luatable: %s at offset %d", e.Msg, e.Offset)
}

func (e *DecodeError) Unwrap() error { return e.Err }

// Normalize isolates the outermost table of text and rewrites it into JSON.
// Anything before the first opening brace (such as a "return" statement) is
// ignored. Several top-level tables separated by commas are wrapped into one
// sequence.
func Normalize(text string) (string, error) {
	start := strings.IndexByte(text, '{')
	if start < 0 {
		return "", &DecodeError{Offset: 0, Msg: "no table found"}
	}

	s := &scanner{src: text, pos: start}
	var tables []string
	for {
		var b strings.Builder
		if err := s.table(&b); err != nil {
			return "", err
		}
		tables = append(tables, b.String())

		s.skipSpace()
		if s.eof() {
			break
		}
		if c := s.peek(); c != ',' && c != ';' {
			return "", s.errorf("unexpected %q after table", c)
		}
		s.pos++
		s.skipSpace()
		if s.eof() {
			break
		}
		if s.peek() != '{' {
			return "", s.errorf("unexpected %q after table", s.peek())
		}
	}

	if len(tables) == 1 {
		return tables[0], nil
	}
	var b strings.Builder
	b.WriteByte('{')
	for i, t := range tables {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(strconv.Quote(strconv.Itoa(i + 1)))
		b.WriteByte(':')
		b.WriteString(t)
	}
	b.WriteByte('}')
	return b.String(), nil
}

// Parse decodes table text into a tree of map[string]any, []any, string,
// json.Number, bool and nil values.
func Parse(text string) (any, error) {
	normalized, err := Normalize(text)
	if err != nil {
		return nil, err
	}

	dec := json.NewDecoder(strings.NewReader(normalized))
	dec.UseNumber()
	var tree any
	if err := dec.Decode(&tree); err != nil {
		return nil, &DecodeError{Offset: 0, Msg: "invalid table: " + err.Error()}
	}
	return sequences(tree), nil
}

// sequences replaces every map keyed exactly by 1..n with a slice.
func sequences(v any) any {
	switch node := v.(type) {
	case map[string]any:
		for k, child := range node {
			node[k] = sequences(child)
		}
		if list, ok := asSequence(node); ok {
			return list
		}
		return node
	default:
		return v
	}
}

func asSequence(m map[string]any) ([]any, bool) {
	if len(m) == 0 {
		return nil, false
	}
	indexes := make([]int, 0, len(m))
	for k := range m {
		i, err := strconv.Atoi(k)
		if err != nil || i < 1 || i > len(m) || strconv.Itoa(i) != k {
			return nil, false
		}
		indexes = append(indexes, i)
	}
	slices.Sort(indexes)
	list := make([]any, len(indexes))
	for n, i := range indexes {
		if i != n+1 {
			return nil, false
		}
		list[n] = m[strconv.Itoa(i)]
	}
	return list, true
}

type scanner struct {
	src string
	pos int
}

func (s *scanner) eof() bool  { return s.pos >= len(s.src) }
func (s *scanner) peek() byte { return s.src[s.pos] }

func (s *scanner) errorf(format string, args ...any) error {
	return &DecodeError{Offset: s.pos, Msg: fmt.Sprintf(format, args...)}
}

func (s *scanner) skipSpace() {
	for !s.eof() {
		switch s.peek() {
		case ' ', '\t', '\n', '\r', '\f', '\v':
			s.pos++
		default:
			return
		}
	}
}

func (s *scanner) table(b *strings.Builder) error {
	if s.eof() || s.peek() != '{' {
		return s.errorf("expected '{'")
	}
	s.pos++
	b.WriteByte('{')

	index := 0
	first := true
	for {
		s.skipSpace()
		if s.eof() {
			return s.errorf("unterminated table")
		}
		if s.peek() == '}' {
			s.pos++
			b.WriteByte('}')
			return nil
		}

		key, keyed, err := s.key()
		if err != nil {
			return err
		}
		if !keyed {
			index++
			key = strconv.Itoa(index)
		}
		if !first {
			b.WriteByte(',')
		}
		first = false
		b.WriteString(strconv.Quote(key))
		b.WriteByte(':')

		s.skipSpace()
		if err := s.value(b); err != nil {
			return err
		}

		s.skipSpace()
		if s.eof() {
			return s.errorf("unterminated table")
		}
		switch s.peek() {
		case ',', ';':
			s.pos++
		case '}':
		default:
			return s.errorf("expected separator, got %q", s.peek())
		}
	}
}

// key consumes "name =", "["name"] =" or "[1] =" when present. Positional
// entries leave the scanner untouched and report keyed == false.
func (s *scanner) key() (key string, keyed bool, err error) {
	c := s.peek()
	switch {
	case c == '[':
		s.pos++
		s.skipSpace()
		if s.eof() {
			return "", false, s.errorf("unterminated key")
		}
		if q := s.peek(); q == '"' || q == '\'' {
			key, err = s.str()
		} else {
			var n json.Number
			n, err = s.number()
			key = n.String()
		}
		if err != nil {
			return "", false, err
		}
		s.skipSpace()
		if s.eof() || s.peek() != ']' {
			return "", false, s.errorf("expected ']'")
		}
		s.pos++
		if err := s.assign(); err != nil {
			return "", false, err
		}
		return key, true, nil

	case isIdentStart(c):
		start := s.pos
		name := s.ident()
		s.skipSpace()
		if !s.eof() && s.peek() == '=' && !strings.HasPrefix(s.src[s.pos:], "==") {
			s.pos++
			return name, true, nil
		}
		s.pos = start
		return "", false, nil
	}
	return "", false, nil
}

func (s *scanner) assign() error {
	s.skipSpace()
	if s.eof() || s.peek() != '=' {
		return s.errorf("expected '='")
	}
	s.pos++
	return nil
}

func (s *scanner) value(b *strings.Builder) error {
	if s.eof() {
		return s.errorf("expected value")
	}
	c := s.peek()
	switch {
	case c == '{':
		return s.table(b)
	case c == '"' || c == '\'':
		v, err := s.str()
		if err != nil {
			return err
		}
		out, _ := json.Marshal(v)
		b.Write(out)
		return nil
	case c == '-' || c == '.' || isDigit(c):
		n, err := s.number()
		if err != nil {
			return err
		}
		b.WriteString(n.String())
		return nil
	case isIdentStart(c):
		start := s.pos
		switch word := s.ident(); word {
		case "true", "false":
			b.WriteString(word)
		case "nil":
			b.WriteString("null")
		default:
			s.pos = start
			return s.errorf("unexpected identifier %q", word)
		}
		return nil
	}
	return s.errorf("unexpected %q", c)
}

func (s *scanner) ident() string {
	start := s.pos
	for !s.eof() && (isIdentStart(s.peek()) || isDigit(s.peek())) {
		s.pos++
	}
	return s.src[start:s.pos]
}

// number returns the literal in a JSON compatible form. Literals that are
// already valid JSON are kept verbatim so large integers keep their precision.
func (s *scanner) number() (json.Number, error) {
	start := s.pos
	for !s.eof() {
		c := s.peek()
		if isDigit(c) || c == '.' || c == '-' || c == '+' || c == 'e' || c == 'E' ||
			c == 'x' || c == 'X' || (c >= 'a' && c <= 'f') || (c >= 'A' && c <= 'F') {
			s.pos++
			continue
		}
		break
	}
	lit := s.src[start:s.pos]
	if lit == "" {
		return "", s.errorf("expected number")
	}
	if json.Valid([]byte(lit)) {
		return json.Number(lit), nil
	}
	if strings.HasPrefix(lit, "0x") || strings.HasPrefix(lit, "0X") ||
		strings.HasPrefix(lit, "-0x") || strings.HasPrefix(lit, "-0X") {
		i, err := strconv.ParseInt(lit, 0, 64)
		if err != nil {
			return "", &DecodeError{Offset: start, Msg: fmt.Sprintf("invalid number %q", lit)}
		}
		return json.Number(strconv.FormatInt(i, 10)), nil
	}
	f, err := strconv.ParseFloat(lit, 64)
	if err != nil || math.IsInf(f, 0) || math.IsNaN(f) {
		return "", &DecodeError{Offset: start, Msg: fmt.Sprintf("invalid number %q", lit)}
	}
	return json.Number(strconv.FormatFloat(f, 'g', -1, 64)), nil
}

// str decodes a quoted string literal, resolving Lua escape sequences.
func (s *scanner) str() (string, error) {
	quote := s.peek()
	start := s.pos
	s.pos++

	var b strings.Builder
	for {
		if s.eof() {
			return "", &DecodeError{Offset: start, Msg: "unterminated string"}
		}
		c := s.peek()
		s.pos++
		switch c {
		case quote:
			return b.String(), nil
		case '\n':
			return "", &DecodeError{Offset: start, Msg: "unterminated string"}
		case '\\':
			if s.eof() {
				return "", &DecodeError{Offset: start, Msg: "unterminated string"}
			}
			e := s.peek()
			s.pos++
			switch e {
			case 'n':
				b.WriteByte('\n')
			case 't':
				b.WriteByte('\t')
			case 'r':
				b.WriteByte('\r')
			case 'a':
				b.WriteByte('\a')
			case 'b':
				b.WriteByte('\b')
			case 'f':
				b.WriteByte('\f')
			case 'v':
				b.WriteByte('\v')
			case '\\', '"', '\'', '\n':
				b.WriteByte(e)
			default:
				if !isDigit(e) {
					return "", &DecodeError{Offset: s.pos - 2, Msg: fmt.Sprintf("invalid escape \\%c", e)}
				}
				// Decimal escape, up to three digits.
				n := int(e - '0')
				for i := 0; i < 2 && !s.eof() && isDigit(s.peek()); i++ {
					n = n*10 + int(s.peek()-'0')
					s.pos++
				}
				if n > 255 {
					return "", &DecodeError{Offset: s.pos, Msg: "decimal escape too large"}
				}
				b.WriteByte(byte(n))
			}
		default:
			b.WriteByte(c)
		}
	}
}

func isDigit(c byte) bool { return c >= '0' && c <= '9' }

func isIdentStart(c byte) bool {
	return c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}
