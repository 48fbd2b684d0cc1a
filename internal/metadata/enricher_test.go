package metadata

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeCompleter struct {
	reply  string
	err    error
	block  bool
	panics bool

	prompts []string
}

func (f *fakeCompleter) Complete(ctx context.Context, prompt string) (string, error) {
	f.prompts = append(f.prompts, prompt)
	if f.panics {
		panic("boom")
	}
	if f.block {
		<-ctx.Done()
		return "", ctx.Err()
	}
	return f.reply, f.err
}

const question = "How do I cancel a long running request in Go?"

func TestEnrich_Success(t *testing.T) {
	completer := &fakeCompleter{reply: `{"title": "Request cancel", "topic": ["context", "http"], "difficulty": "★★★"}`}
	enricher := NewEnricher(completer, time.Second)

	got := enricher.Enrich(context.Background(), question, "Use context.WithCancel")

	require.NoError(t, got.Err)
	assert.Equal(t, Metadata{Title: "Request cancel", Topics: []string{"context", "http"}, Difficulty: Hard}, got.Metadata)

	require.Len(t, completer.prompts, 1)
	assert.Contains(t, completer.prompts[0], "Q:"+question)
	assert.Contains(t, completer.prompts[0], "A:Use context.WithCancel")
}

func TestEnrich_InvalidDifficultyBecomesMedium(t *testing.T) {
	completer := &fakeCompleter{reply: `{"title": "X", "topic": [], "difficulty": "hard"}`}

	got := NewEnricher(completer, time.Second).Enrich(context.Background(), question, "a")

	require.NoError(t, got.Err)
	assert.Equal(t, Medium, got.Metadata.Difficulty)
	assert.Equal(t, "X", got.Metadata.Title)
}

func TestEnrich_TopicsCapped(t *testing.T) {
	completer := &fakeCompleter{reply: `{"title": "X", "topic": ["a", "b", "c", "d", "e", "f", "g"], "difficulty": "★"}`}

	got := NewEnricher(completer, time.Second).Enrich(context.Background(), question, "a")

	require.NoError(t, got.Err)
	assert.Equal(t, []string{"a", "b", "c", "d", "e"}, got.Metadata.Topics)
}

func TestEnrich_CompleterError(t *testing.T) {
	completer := &fakeCompleter{err: errors.New("service unavailable")}

	got := NewEnricher(completer, time.Second).Enrich(context.Background(), question, "a")

	require.Error(t, got.Err)
	assert.Contains(t, got.Err.Error(), "service unavailable")
	assert.Equal(t, Fallback(question), got.Metadata)
}

func TestEnrich_NonJSONReply(t *testing.T) {
	completer := &fakeCompleter{reply: "Sure! Here is a title: Cancelling requests"}

	got := NewEnricher(completer, time.Second).Enrich(context.Background(), question, "a")

	require.ErrorIs(t, got.Err, ErrInvalidResponse)
	assert.Equal(t, "How do I cancel a lo", got.Metadata.Title)
	assert.Equal(t, Medium, got.Metadata.Difficulty)
}

func TestEnrich_Timeout(t *testing.T) {
	completer := &fakeCompleter{block: true}

	start := time.Now()
	got := NewEnricher(completer, 20*time.Millisecond).Enrich(context.Background(), question, "a")

	require.ErrorIs(t, got.Err, context.DeadlineExceeded)
	assert.Contains(t, got.Err.Error(), "timed out")
	assert.Less(t, time.Since(start), 5*time.Second)
	assert.Equal(t, Fallback(question), got.Metadata)
}

func TestEnrich_CompleterPanic(t *testing.T) {
	completer := &fakeCompleter{panics: true}

	got := NewEnricher(completer, time.Second).Enrich(context.Background(), question, "a")

	require.Error(t, got.Err)
	assert.Equal(t, Fallback(question), got.Metadata)
}

func TestNewEnricher_DefaultTimeout(t *testing.T) {
	assert.Equal(t, DefaultTimeout, NewEnricher(&fakeCompleter{}, 0).timeout)
}

func TestParseResponse(t *testing.T) {
	tests := []struct {
		name    string
		text    string
		want    Metadata
		wantErr bool
	}{
		{
			name: "complete object",
			text: `{"title": "Go maps", "topic": ["maps"], "difficulty": "★"}`,
			want: Metadata{Title: "Go maps", Topics: []string{"maps"}, Difficulty: Easy},
		},
		{
			name: "missing title",
			text: `{"topic": ["maps"], "difficulty": "★"}`,
			want: Metadata{Title: "How do I cancel a lo", Topics: []string{"maps"}, Difficulty: Easy},
		},
		{
			name: "non-string title",
			text: `{"title": 42, "difficulty": "★★★"}`,
			want: Metadata{Title: "How do I cancel a lo", Topics: []string{}, Difficulty: Hard},
		},
		{
			name: "single topic string",
			text: `{"title": "T", "topic": "concurrency"}`,
			want: Metadata{Title: "T", Topics: []string{"concurrency"}, Difficulty: Medium},
		},
		{
			name: "long title kept",
			text: `{"title": "A title that is much longer than twenty characters", "difficulty": "★★"}`,
			want: Metadata{Title: "A title that is much longer than twenty characters", Topics: []string{}, Difficulty: Medium},
		},
		{
			name: "code fence",
			text: "```json\n{\"title\": \"T\", \"difficulty\": \"★\"}\n```",
			want: Metadata{Title: "T", Topics: []string{}, Difficulty: Easy},
		},
		{
			name:    "array",
			text:    `["title"]`,
			wantErr: true,
		},
		{
			name:    "empty",
			text:    "",
			wantErr: true,
		},
		{
			name:    "truncated object",
			text:    `{"title": "T", "topic": [`,
			wantErr: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseResponse(tt.text, question)
			if tt.wantErr {
				require.ErrorIs(t, err, ErrInvalidResponse)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
