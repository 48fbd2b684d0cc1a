// Package metadata derives a short title, topics and a difficulty rating for a question/answer pair.
package metadata

import "unicode/utf8"

// Difficulty is a one to three star rating
type Difficulty string

const (
	Easy   Difficulty = "★"
	Medium Difficulty = "★★"
	Hard   Difficulty = "★★★"
)

// Difficulties lists every valid rating, easiest first
var Difficulties = []Difficulty{Easy, Medium, Hard}

// Valid reports whether d is one of the three ratings
func (d Difficulty) Valid() bool {
	switch d {
	case Easy, Medium, Hard:
		return true
	}
	return false
}

// ParseDifficulty returns s as a Difficulty, or Medium if s is not a valid rating
func ParseDifficulty(s string) Difficulty {
	if d := Difficulty(s); d.Valid() {
		return d
	}
	return Medium
}

const (
	// MaxTopics is the number of topics kept from a response
	MaxTopics = 5
	// FallbackTitleLength is the number of characters of the question used when no title could be generated
	FallbackTitleLength = 20
)

type Metadata struct {
	Title      string
	Topics     []string
	Difficulty Difficulty
}

// Enrichment is the result of enriching one pair. Metadata is always usable; Err is set when it is the fallback.
type Enrichment struct {
	Metadata Metadata
	Err      error
}

// Fallback returns the metadata used when generation fails
func Fallback(question string) Metadata {
	return Metadata{
		Title:      FallbackTitle(question),
		Topics:     []string{},
		Difficulty: Medium,
	}
}

// FallbackTitle returns the first FallbackTitleLength characters of question
func FallbackTitle(question string) string {
	if utf8.RuneCountInString(question) <= FallbackTitleLength {
		return question
	}
	return string([]rune(question)[:FallbackTitleLength])
}
