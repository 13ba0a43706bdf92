// Package normalisers holds the text normalisers that turn raw source
// records into documents ready for chunking.
//
// The policy sub-package cleans insurer policy text, drops passages that are
// unrelated to pet insurance and tags coverage, exclusion and procedure clauses.
package normalisers
