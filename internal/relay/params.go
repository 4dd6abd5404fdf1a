package relay

import (
	"strings"
)

// Query parameter names understood by the relay
const (
	ParamURL   = "url"
	ParamToken = "token"
)

// Params holds the inbound parameters of a relay request.
// A nil field means the parameter was absent; an empty string means it was sent blank.
type Params struct {
	URL   *string
	Token *string
}

// ParseQuery extracts Params from a raw URL query string.
// Pairs are separated by '&' only, so a ';' inside a value is kept. Repeated keys
// collapse to their first non-blank value and blank values are treated as absent.
// Invalid percent escapes are kept literally; validation happens later.
func ParseQuery(rawQuery string) Params {
	var p Params
	for _, pair := range strings.Split(rawQuery, "&") {
		key, value, ok := strings.Cut(pair, "=")
		if !ok || value == "" {
			continue
		}

		switch unescapeLenient(key) {
		case ParamURL:
			if p.URL == nil {
				v := unescapeLenient(value)
				p.URL = &v
			}
		case ParamToken:
			if p.Token == nil {
				v := unescapeLenient(value)
				p.Token = &v
			}
		}
	}
	return p
}

// ParamsFromMap extracts Params from a platform-provided parameter map.
// Keys present with an empty value stay present.
func ParamsFromMap(m map[string]string) Params {
	var p Params
	if v, ok := m[ParamURL]; ok {
		p.URL = &v
	}
	if v, ok := m[ParamToken]; ok {
		p.Token = &v
	}
	return p
}

// URLValue returns the url parameter, or an empty string when absent
func (p Params) URLValue() string {
	if p.URL == nil {
		return ""
	}
	return *p.URL
}

// unescapeLenient decodes '+' and valid %XX escapes, copying anything else through
func unescapeLenient(s string) string {
	if !strings.ContainsAny(s, "%+") {
		return s
	}

	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		switch c := s[i]; {
		case c == '+':
			b.WriteByte(' ')
		case c == '%' && i+2 < len(s) && isHex(s[i+1]) && isHex(s[i+2]):
			b.WriteByte(unhex(s[i+1])<<4 | unhex(s[i+2]))
			i += 2
		default:
			b.WriteByte(c)
		}
	}
	return b.String()
}

func isHex(c byte) bool {
	return '0' <= c && c <= '9' || 'a' <= c && c <= 'f' || 'A' <= c && c <= 'F'
}

func unhex(c byte) byte {
	switch {
	case '0' <= c && c <= '9':
		return c - '0'
	case 'a' <= c && c <= 'f':
		return c - 'a' + 10
	default:
		return c - 'A' + 10
	}
}
