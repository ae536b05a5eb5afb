// Package transform implements the business-logic collaborator: a word and
// sentiment analysis that appends to the caller's process history.
package transform

import (
	"encoding/json"
	"math/rand/v2"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"
)

// Sentiment labels.
const (
	SentimentPositive = "positive"
	SentimentNegative = "negative"
	SentimentNeutral  = "neutral"
)

const (
	processingIDPrefix = "proc_"
	processingIDMin    = 1000
	processingIDMax    = 9999
	timestampLayout    = "2006-01-02 15:04:05"
)

var (
	positiveWords = lexicon("good", "great", "excellent", "happy", "positive", "nice", "love", "like")
	negativeWords = lexicon("bad", "terrible", "awful", "sad", "negative", "hate", "dislike")
)

func lexicon(words ...string) map[string]struct{} {
	m := make(map[string]struct{}, len(words))
	for _, w := range words {
		m[w] = struct{}{}
	}
	return m
}

// Analysis summarizes one piece of content.
type Analysis struct {
	WordCount      int    `json:"word_count"`
	CharacterCount int    `json:"character_count"`
	Sentiment      string `json:"sentiment"`
	ProcessingID   string `json:"processing_id"`
}

// HistoryEntry is appended to the process history on every run.
type HistoryEntry struct {
	Timestamp string `json:"timestamp"`
	WordCount int    `json:"word_count"`
	Sentiment string `json:"sentiment"`
}

// Result is the transform output. Prior history entries are kept verbatim.
type Result struct {
	Analysis       Analysis          `json:"analysis"`
	ProcessHistory []json.RawMessage `json:"process_history"`
}

// Analyzer computes Results. The zero value uses the wall clock and random
// processing ids.
type Analyzer struct {
	Now   func() time.Time
	NewID func() string
}

// Analyze scores content and appends a history entry to prior.
func (a Analyzer) Analyze(content string, prior []json.RawMessage) (Result, error) {
	words := strings.Fields(content)
	sentiment := Sentiment(words)

	entry, err := json.Marshal(HistoryEntry{
		Timestamp: a.now().Format(timestampLayout),
		WordCount: len(words),
		Sentiment: sentiment,
	})
	if err != nil {
		return Result{}, err
	}

	history := make([]json.RawMessage, 0, len(prior)+1)
	history = append(history, prior...)
	history = append(history, entry)

	return Result{
		Analysis: Analysis{
			WordCount:      len(words),
			CharacterCount: utf8.RuneCountInString(content),
			Sentiment:      sentiment,
			ProcessingID:   a.processingID(),
		},
		ProcessHistory: history,
	}, nil
}

// Sentiment classifies whitespace-split words against the two lexicons.
// Matching is case-insensitive and exact; punctuation is not stripped.
func Sentiment(words []string) string {
	var positive, negative int
	for _, w := range words {
		w = strings.ToLower(w)
		if _, ok := positiveWords[w]; ok {
			positive++
		}
		if _, ok := negativeWords[w]; ok {
			negative++
		}
	}

	switch {
	case positive > negative:
		return SentimentPositive
	case negative > positive:
		return SentimentNegative
	default:
		return SentimentNeutral
	}
}

func (a Analyzer) now() time.Time {
	if a.Now != nil {
		return a.Now()
	}
	return time.Now()
}

func (a Analyzer) processingID() string {
	if a.NewID != nil {
		return a.NewID()
	}
	//nolint:gosec // a display label, not a secret
	n := processingIDMin + rand.IntN(processingIDMax-processingIDMin+1)
	return processingIDPrefix + strconv.Itoa(n)
}
