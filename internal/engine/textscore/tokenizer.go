package textscore

import (
	"github.com/blevesearch/bleve/analysis/token/lowercase"
	"github.com/blevesearch/bleve/analysis/tokenizer/unicode"
)

// Tokenize splits text into normalized lowercase terms. Punctuation is
// discarded by the unicode tokenizer; whitespace runs collapse naturally.
// Two texts with identical normalized token multisets tokenize identically.
func Tokenize(text string) []string {
	stream := unicode.NewUnicodeTokenizer().Tokenize([]byte(text))
	stream = lowercase.NewLowerCaseFilter().Filter(stream)
	terms := make([]string, 0, len(stream))
	for _, tok := range stream {
		terms = append(terms, string(tok.Term))
	}
	return terms
}
