package plusd

import (
	"encoding/json"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
)

var (
	pageParametersRegex = regexp.MustCompile(`(?s)var\s+page_parameters\s*=\s*(\{.*?\})\s*;`)
	resultTokenRegex    = regexp.MustCompile(`result_token\s*=\s*["']([^"']*)["']`)
)

// ExtractPageParameters recovers the pagination state and continuation
// token embedded in the search page's inline script. A page without
// the parameters object is an error; a page without a token is not,
// the token simply comes back empty and callers stop paginating.
func ExtractPageParameters(page string) (PageParameters, string, error) {
	groups := pageParametersRegex.FindStringSubmatch(page)
	if groups == nil {
		return PageParameters{}, "", fmt.Errorf("page_parameters object not found in search page")
	}

	var raw map[string]any
	err := json.Unmarshal([]byte(jsObjectToJSON(groups[1])), &raw)
	if err != nil {
		return PageParameters{}, "", fmt.Errorf("parse page_parameters: %w", err)
	}

	params := PageParameters{
		Project:        scalarString(raw["project"]),
		Subp:           scalarString(raw["subp"]),
		QCanonical:     scalarString(raw["qcanonical"]),
		QCanonicalSeal: scalarString(raw["qcanonical_seal"]),
		Session:        scalarString(raw["s"]),
	}

	token := ""
	if groups := resultTokenRegex.FindStringSubmatch(page); groups != nil {
		token = groups[1]
	}
	return params, token, nil
}

type scanState int

const (
	scanOutside scanState = iota
	scanString
	scanBareword
)

// jsObjectToJSON rewrites a simple JavaScript object literal as JSON.
// Unquoted keys gain quotes, single quoted strings become double
// quoted, trailing commas before a closing brace are dropped. The scan
// tracks whether it is inside a string so that colons, commas and
// braces in values survive untouched.
func jsObjectToJSON(src string) string {
	var out strings.Builder
	var content strings.Builder
	// A structural comma and the whitespace after it are held back
	// until the next token shows whether a value follows or the object
	// closes. Only these held-back commas are ever dropped, commas
	// inside string values pass through in content.
	var pending strings.Builder
	state := scanOutside
	var quote byte
	escaped := false

	flushPending := func() {
		out.WriteString(pending.String())
		pending.Reset()
	}
	emitString := func() {
		text := content.String()
		if quote == '\'' {
			text = strings.ReplaceAll(text, `\'`, `'`)
			text = strings.ReplaceAll(text, `"`, `\"`)
		}
		out.WriteByte('"')
		out.WriteString(text)
		out.WriteByte('"')
	}
	emitBareword := func(i int) {
		// A bareword is a key exactly when the next non-space
		// character is a colon. Values stay verbatim so that numbers
		// and true/false parse as themselves.
		if nextNonSpace(src, i) == ':' {
			out.WriteByte('"')
			out.WriteString(content.String())
			out.WriteByte('"')
		} else {
			out.WriteString(content.String())
		}
	}

	for i := 0; i < len(src); i++ {
		ch := src[i]
		switch state {
		case scanOutside:
			switch {
			case ch == ' ' || ch == '\t' || ch == '\r' || ch == '\n':
				if pending.Len() > 0 {
					pending.WriteByte(ch)
				} else {
					out.WriteByte(ch)
				}
			case ch == ',':
				flushPending()
				pending.WriteByte(ch)
			case ch == '}':
				pending.Reset()
				out.WriteByte(ch)
			case ch == '{' || ch == ':':
				flushPending()
				out.WriteByte(ch)
			case ch == '"' || ch == '\'':
				flushPending()
				state = scanString
				quote = ch
				content.Reset()
				escaped = false
			default:
				flushPending()
				state = scanBareword
				content.Reset()
				content.WriteByte(ch)
			}

		case scanString:
			switch {
			case escaped:
				content.WriteByte(ch)
				escaped = false
			case ch == '\\':
				content.WriteByte(ch)
				escaped = true
			case ch == quote:
				emitString()
				state = scanOutside
			default:
				content.WriteByte(ch)
			}

		case scanBareword:
			if isBarewordBoundary(ch) {
				emitBareword(i)
				state = scanOutside
				i--
			} else {
				content.WriteByte(ch)
			}
		}
	}

	switch state {
	case scanString:
		// Unterminated string, emit what accumulated.
		emitString()
	case scanBareword:
		emitBareword(len(src))
	}
	flushPending()

	return out.String()
}

func isBarewordBoundary(ch byte) bool {
	switch ch {
	case ' ', '\t', '\r', '\n', '{', '}', ',', ':', '"', '\'':
		return true
	}
	return false
}

func nextNonSpace(src string, i int) byte {
	for ; i < len(src); i++ {
		switch src[i] {
		case ' ', '\t', '\r', '\n':
		default:
			return src[i]
		}
	}
	return 0
}

func scalarString(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case float64:
		if t == math.Trunc(t) {
			return strconv.FormatInt(int64(t), 10)
		}
		return strconv.FormatFloat(t, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(t)
	case nil:
		return ""
	default:
		return fmt.Sprint(t)
	}
}
