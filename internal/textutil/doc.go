// Package textutil turns short catalog text (names, descriptions, tags) into
// term-frequency fingerprints and compares them with cosine similarity.
//
// Tokenization is Unicode aware: text is NFKC-normalized and lowercased, split
// on anything that is not a letter or digit, and tokens shorter than two runes
// are dropped. A Corpus weights terms by inverse document frequency so that
// words shared by most records count for less.
package textutil
