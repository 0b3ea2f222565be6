package wire

import (
	"fmt"
	"strconv"
)

// The envelope codec renders request bodies and extracts typed fields from
// response bodies. The format is a flat record of string and unsigned-integer
// fields in a JSON-like syntax. This is intentionally not a general purpose
// JSON codec: no nesting, no arrays, and only the escapes the page server
// protocol uses. Extraction runs a token scanner over the body rather than
// searching for substrings, so a field name occurring inside another field's
// value can never match.

// EncodeGetPageRequest renders the body of a page fetch request.
// Field order is fixed: space_id, page_no, lsn.
func EncodeGetPageRequest(spaceID uint32, pageNo uint32, lsn uint64) string {
	return fmt.Sprintf(`{"space_id":%d,"page_no":%d,"lsn":%d}`, spaceID, pageNo, lsn)
}

// EncodeStreamWALRequest renders the body of a WAL stream request.
// Field order is fixed: lsn, wal_data. The payload is base64 encoded.
func EncodeStreamWALRequest(lsn uint64, walData []byte) string {
	return fmt.Sprintf(`{"lsn":%d,"wal_data":"%s"}`, lsn, Encode(walData))
}

// GetStringField extracts the string field named key from body. Lookup does
// not depend on field order or surrounding whitespace. The second return is
// false if the field is absent or is not a string.
func GetStringField(body []byte, key string) (string, bool) {
	s := scanner{body: body}
	for {
		tok, ok := s.next()
		if !ok {
			return "", false
		}
		if tok.kind != tokString || tok.str != key {
			continue
		}
		sep, ok := s.next()
		if !ok || sep.kind != tokPunct || sep.punct != ':' {
			continue
		}
		val, ok := s.next()
		if !ok || val.kind != tokString {
			return "", false
		}
		return val.str, true
	}
}

// GetUint64Field extracts the unsigned integer field named key from body.
func GetUint64Field(body []byte, key string) (uint64, bool) {
	s := scanner{body: body}
	for {
		tok, ok := s.next()
		if !ok {
			return 0, false
		}
		if tok.kind != tokString || tok.str != key {
			continue
		}
		sep, ok := s.next()
		if !ok || sep.kind != tokPunct || sep.punct != ':' {
			continue
		}
		val, ok := s.next()
		if !ok || val.kind != tokNumber {
			return 0, false
		}
		return val.num, true
	}
}

type tokenKind int

const (
	tokString tokenKind = iota
	tokNumber
	tokPunct
)

type token struct {
	kind  tokenKind
	str   string
	num   uint64
	punct byte
}

type scanner struct {
	body []byte
	pos  int
}

func (s *scanner) next() (token, bool) {
	for s.pos < len(s.body) {
		c := s.body[s.pos]
		switch {
		case c == ' ' || c == '\t' || c == '\r' || c == '\n':
			s.pos++
		case c == '"':
			s.pos++
			return s.scanString()
		case c >= '0' && c <= '9':
			return s.scanNumber()
		default:
			s.pos++
			return token{kind: tokPunct, punct: c}, true
		}
	}
	return token{}, false
}

func (s *scanner) scanString() (token, bool) {
	var out []byte
	for s.pos < len(s.body) {
		c := s.body[s.pos]
		if c == '"' {
			s.pos++
			return token{kind: tokString, str: string(out)}, true
		}
		if c == '\\' && s.pos+1 < len(s.body) {
			s.pos++
			switch s.body[s.pos] {
			case 'n':
				out = append(out, '\n')
			case 'r':
				out = append(out, '\r')
			case 't':
				out = append(out, '\t')
			default:
				out = append(out, s.body[s.pos])
			}
			s.pos++
			continue
		}
		out = append(out, c)
		s.pos++
	}
	// Unterminated string - treat what we have as the token
	return token{kind: tokString, str: string(out)}, true
}

func (s *scanner) scanNumber() (token, bool) {
	start := s.pos
	for s.pos < len(s.body) && s.body[s.pos] >= '0' && s.body[s.pos] <= '9' {
		s.pos++
	}
	num, err := strconv.ParseUint(string(s.body[start:s.pos]), 10, 64)
	if err != nil {
		// Overflowed uint64 - skip the token
		return token{kind: tokPunct, punct: s.body[start]}, true
	}
	return token{kind: tokNumber, num: num}, true
}
