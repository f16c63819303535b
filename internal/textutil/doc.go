// Package textutil provides token fingerprints and cosine similarity for
// title and name comparison.
//
// Fingerprints use term frequency vectors normalized for efficient comparison.
// The tokenization process lowercases text, splits on non-alphanumeric
// characters, and filters tokens shorter than 2 characters.
package textutil
