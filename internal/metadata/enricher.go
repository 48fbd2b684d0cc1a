package metadata

import (
	"bytes"
	"context"
	_ "embed"
	"errors"
	"fmt"
	"strings"
	"text/template"
	"time"

	"github.com/tidwall/gjson"
)

// DefaultTimeout bounds a single completion call when the Enricher is given no timeout
const DefaultTimeout = 30 * time.Second

// ErrInvalidResponse is reported when a completion is not a single JSON object
var ErrInvalidResponse = errors.New("completion is not a JSON object")

//go:embed prompt.tmpl
var promptTemplate string

var promptTmpl = template.Must(template.New("metadata").Parse(promptTemplate))

// Completer sends a single prompt to a language model and returns the text of its reply
type Completer interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// Enricher generates Metadata through a Completer
type Enricher struct {
	completer Completer
	timeout   time.Duration
}

func NewEnricher(completer Completer, timeout time.Duration) *Enricher {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Enricher{
		completer: completer,
		timeout:   timeout,
	}
}

// Enrich asks the completer to describe the pair. It never fails: on any error the returned Enrichment carries
// Fallback(question) and the error that caused it.
func (e *Enricher) Enrich(ctx context.Context, question, answer string) Enrichment {
	prompt, err := GeneratePrompt(question, answer)
	if err != nil {
		return Enrichment{Metadata: Fallback(question), Err: err}
	}

	callCtx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	text, err := e.complete(callCtx, prompt)
	if err != nil {
		if errors.Is(callCtx.Err(), context.DeadlineExceeded) && ctx.Err() == nil {
			err = fmt.Errorf("completion timed out after %s: %w", e.timeout, err)
		}
		return Enrichment{Metadata: Fallback(question), Err: fmt.Errorf("failed to generate metadata: %w", err)}
	}

	meta, err := ParseResponse(text, question)
	if err != nil {
		return Enrichment{Metadata: Fallback(question), Err: err}
	}
	return Enrichment{Metadata: meta}
}

// complete converts a panic in the Completer into an error
func (e *Enricher) complete(ctx context.Context, prompt string) (text string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("completer panicked: %v", r)
		}
	}()
	return e.completer.Complete(ctx, prompt)
}

// GeneratePrompt renders the metadata request for a pair
func GeneratePrompt(question, answer string) (string, error) {
	var buf bytes.Buffer
	err := promptTmpl.Execute(&buf, struct{ Question, Answer string }{question, answer})
	if err != nil {
		return "", fmt.Errorf("failed to execute prompt template: %w", err)
	}
	return buf.String(), nil
}

// ParseResponse validates a completion and coerces it into Metadata. Missing or unusable fields are replaced
// field by field: the title falls back to the start of question, topics are capped at MaxTopics and an unknown
// difficulty becomes Medium.
func ParseResponse(text, question string) (Metadata, error) {
	obj, ok := findObject(text)
	if !ok {
		return Metadata{}, fmt.Errorf("%w: %q", ErrInvalidResponse, truncate(text, 80))
	}

	meta := Metadata{
		Title:      FallbackTitle(question),
		Topics:     []string{},
		Difficulty: Medium,
	}

	if title := obj.Get("title"); title.Type == gjson.String && strings.TrimSpace(title.Str) != "" {
		meta.Title = strings.TrimSpace(title.Str)
	}

	topic := obj.Get("topic")
	switch {
	case topic.IsArray():
		for _, t := range topic.Array() {
			if len(meta.Topics) == MaxTopics {
				break
			}
			if s := strings.TrimSpace(t.String()); s != "" {
				meta.Topics = append(meta.Topics, s)
			}
		}
	case topic.Type == gjson.String && strings.TrimSpace(topic.Str) != "":
		meta.Topics = append(meta.Topics, strings.TrimSpace(topic.Str))
	}

	if d := obj.Get("difficulty"); d.Type == gjson.String {
		meta.Difficulty = ParseDifficulty(strings.TrimSpace(d.Str))
	}

	return meta, nil
}

// findObject returns the JSON object in text, trying the outermost braces when the whole text is not an object
func findObject(text string) (gjson.Result, bool) {
	text = strings.TrimSpace(text)
	if gjson.Valid(text) {
		r := gjson.Parse(text)
		return r, r.IsObject()
	}

	start := strings.IndexByte(text, '{')
	end := strings.LastIndexByte(text, '}')
	if start < 0 || end <= start {
		return gjson.Result{}, false
	}
	inner := text[start : end+1]
	if !gjson.Valid(inner) {
		return gjson.Result{}, false
	}
	r := gjson.Parse(inner)
	return r, r.IsObject()
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}
