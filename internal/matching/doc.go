// Package matching scores external catalog candidates against internal
// entities. The pipeline is pure: normalization, an exact pass, a cosine
// scored pass, and a qualifier-stripping fallback, in that order, with a
// confidence tier attached to every accepted match. No I/O happens here;
// catalog clients normalize their payloads into Candidate values before
// calling in.
package matching
