package plaintext

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/tidwall/gjson"
)

func TestNormalize_Nil(t *testing.T) {
	assert.Equal(t, "", Normalize(nil))
}

func TestNormalize_PlainTextIsUnchanged(t *testing.T) {
	inputs := []string{
		"What is 2+2?",
		"line one\nline two\n\nline four",
		"2 < 3 and 5 > 4",
		"",
		"日本語のテキスト",
	}
	for _, in := range inputs {
		assert.Equal(t, in, Normalize(in), "input %q", in)
	}
}

func TestNormalize_StripsMarkup(t *testing.T) {
	assert.Equal(t, "Hello world", Normalize("<p>Hello <b>world</b></p>"))
	assert.Equal(t, "a & b", Normalize("a &amp; b"))
	assert.Equal(t, "kept", Normalize("<!-- dropped -->kept"))
}

func TestNormalize_KeepsUnfinishedTags(t *testing.T) {
	inputs := []string{
		"for (i = 0; i<n; i++) sum += a[i]",
		"a<b",
		"if x<y {\n\treturn\n}",
	}
	for _, in := range inputs {
		assert.Equal(t, in, Normalize(in), "input %q", in)
	}
	assert.Equal(t, "bold then a<b", Normalize("<b>bold</b> then a<b"))
	assert.Equal(t, "Use List here", Normalize("Use List<String> here"))
}

func TestNormalize_CollapsesNewlines(t *testing.T) {
	assert.Equal(t, "a\n\nb", Normalize("a\n\n\nb"))
	assert.Equal(t, "a\n\nb\n\nc", Normalize("a\n\n\n\n\n\nb\n\n\nc"))
	assert.Equal(t, "a\n\nb", Normalize("a\n\nb"))
}

func TestNormalize_CollapsesNewlinesLeftByMarkup(t *testing.T) {
	assert.Equal(t, "a\n\nb", Normalize("a\n<br>\n\nb"))
}

func TestNormalize_Sequences(t *testing.T) {
	assert.Equal(t, "a b c", Normalize([]string{"a", "b", "c"}))
	assert.Equal(t, "a 1 true", Normalize([]any{"a", float64(1), true}))
	assert.Equal(t, "x y", Normalize([2]string{"x", "y"}))
}

func TestNormalize_OtherValues(t *testing.T) {
	assert.Equal(t, "42", Normalize(42))
	assert.Equal(t, "2.5", Normalize(2.5))
	assert.Equal(t, "false", Normalize(false))
	assert.Equal(t, `{"k":"v"}`, Normalize(map[string]string{"k": "v"}))
}

func TestNormalize_Idempotent(t *testing.T) {
	inputs := []any{
		"<div>one</div>\n\n\n\n<div>two</div>",
		"plain\n\n\ntext",
		[]any{"<i>a</i>", "b"},
		nil,
	}
	for _, in := range inputs {
		once := Normalize(in)
		assert.Equal(t, once, Normalize(once), "input %v", in)
	}
}

func TestNormalize_EscapedMarkupIsNotIdempotent(t *testing.T) {
	once := Normalize("x &lt;b&gt; y")
	assert.Equal(t, "x <b> y", once)
	assert.Equal(t, "x  y", Normalize(once))
}

func TestNormalizeJSON(t *testing.T) {
	doc := gjson.Parse(`{"s":"<b>bold</b>","arr":["a",null,3],"obj":{"k":1},"n":null,"num":7}`)

	assert.Equal(t, "bold", NormalizeJSON(doc.Get("s")))
	assert.Equal(t, "a  3", NormalizeJSON(doc.Get("arr")))
	assert.Equal(t, `{"k":1}`, NormalizeJSON(doc.Get("obj")))
	assert.Equal(t, "", NormalizeJSON(doc.Get("n")))
	assert.Equal(t, "", NormalizeJSON(doc.Get("missing")))
	assert.Equal(t, "7", NormalizeJSON(doc.Get("num")))
}

func TestStripMarkup_LongInput(t *testing.T) {
	in := strings.Repeat("<p>para</p>", 1000)
	assert.Equal(t, strings.Repeat("para", 1000), StripMarkup(in))
}
