// Package birfile reads `.bir.json` snapshot documents into bir files.
//
// A snapshot is what a front end hands to the analyzer: one JSON document
// per source file, carrying the resolved bodies and, optionally, the source
// text itself. When the text is embedded it becomes the FileSet content for
// the document's path, so renderers can show context lines and fixes can be
// verified against it; without it the path is registered virtual with empty
// content and positions degrade to byte offsets.
//
// The format is positional: the `pats`, `stmts` and `exprs` arrays of a body
// map element 0 to ID 1, and every cross-reference is such a 1-based number
// (0 means absent). The decoder allocates exactly one arena node per array
// element, bad kinds included, which keeps references decodable even in a
// document it rejects. Identifier fields are NFC-normalized on the way in;
// front ends disagree on the normalization of non-ASCII names and the
// analysis compares names byte-wise.
//
// Malformed JSON is returned as an error. Everything else the decoder or
// bir.Validate dislikes about a document surfaces as Doc*-coded diagnostics
// in the returned bag; a bag with errors means the file must not be
// analyzed.
package birfile
