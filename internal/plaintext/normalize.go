// Package plaintext reduces arbitrary message payloads to canonical plain text.
package plaintext

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"reflect"
	"regexp"
	"strconv"
	"strings"

	"github.com/tidwall/gjson"
	"golang.org/x/net/html"
)

var excessNewlines = regexp.MustCompile(`\n{3,}`)

// Normalize coerces value to a string, strips any HTML/XML markup and collapses runs of three or more
// newlines to exactly two. It never panics; nil yields the empty string.
//
// Normalizing twice equals normalizing once for text without markup. Escaped markup is the exception:
// "x &lt;b&gt; y" normalizes to "x <b> y", which a second pass reads as a tag.
func Normalize(value any) string {
	return finish(coerce(value))
}

// NormalizeJSON is Normalize for a raw JSON payload value. Absent values and null yield the empty string.
func NormalizeJSON(value gjson.Result) string {
	return finish(coerceJSON(value))
}

func finish(s string) string {
	return excessNewlines.ReplaceAllString(StripMarkup(s), "\n\n")
}

// StripMarkup tokenizes s as HTML and returns its text content. Tags and comments are dropped and character
// references are decoded. A tag left unfinished at the end of the input (as in "i<n") is kept verbatim. If the
// tokenizer fails for any reason other than reaching the end of the input, s is returned unmodified.
func StripMarkup(s string) string {
	if !strings.ContainsAny(s, "<&") {
		return s
	}

	z := html.NewTokenizer(strings.NewReader(s))
	var b strings.Builder
	offset := 0 // bytes of s covered by complete tokens
	for {
		tt := z.Next()
		if tt == html.ErrorToken {
			if !errors.Is(z.Err(), io.EOF) {
				return s
			}
			if offset < len(s) {
				b.WriteString(s[offset:])
			}
			return b.String()
		}
		offset += len(z.Raw())
		if tt == html.TextToken {
			b.Write(z.Text())
		}
	}
}

func coerce(value any) string {
	switch v := value.(type) {
	case nil:
		return ""
	case string:
		return v
	case []string:
		return strings.Join(v, " ")
	case []any:
		parts := make([]string, len(v))
		for i, elem := range v {
			parts[i] = scalar(elem)
		}
		return strings.Join(parts, " ")
	case gjson.Result:
		return coerceJSON(v)
	case json.RawMessage:
		return coerceJSON(gjson.ParseBytes(v))
	case []byte:
		return string(v)
	}

	rv := reflect.ValueOf(value)
	if rv.Kind() == reflect.Slice || rv.Kind() == reflect.Array {
		parts := make([]string, rv.Len())
		for i := range parts {
			parts[i] = scalar(rv.Index(i).Interface())
		}
		return strings.Join(parts, " ")
	}
	return scalar(value)
}

// scalar is the string coercion applied to single values, including the elements of a sequence
func scalar(value any) string {
	switch v := value.(type) {
	case nil:
		return ""
	case string:
		return v
	case bool:
		return strconv.FormatBool(v)
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(v), 'f', -1, 32)
	case int:
		return strconv.Itoa(v)
	case int64:
		return strconv.FormatInt(v, 10)
	case gjson.Result:
		return coerceJSON(v)
	case fmt.Stringer:
		return v.String()
	}

	b, err := json.Marshal(value)
	if err != nil {
		return fmt.Sprint(value)
	}
	return string(b)
}

func coerceJSON(value gjson.Result) string {
	switch {
	case !value.Exists(), value.Type == gjson.Null:
		return ""
	case value.Type == gjson.String:
		return value.Str
	case value.IsArray():
		var parts []string
		value.ForEach(func(_, elem gjson.Result) bool {
			switch elem.Type {
			case gjson.Null:
				parts = append(parts, "")
			case gjson.String:
				parts = append(parts, elem.Str)
			default:
				parts = append(parts, elem.Raw)
			}
			return true
		})
		return strings.Join(parts, " ")
	default:
		// Numbers, booleans and objects keep their JSON spelling
		return value.Raw
	}
}
