// Package bir defines the resolved body IR the liveness analysis consumes.
//
// A bir.File holds a set of function-like bodies (fns, closures, generators)
// for one source file. Every body is a tree of expressions, statements and
// patterns stored in dense 1-based arenas; every variable reference names its
// binding by ID, every break/continue names its target node, and every
// closure lists what it captures. There is no parser and no name resolution
// here: front ends, the snapshot loader (internal/birfile) and the test
// builder produce this IR directly, and Validate checks the structural
// contract they must uphold.
//
// Conditionals do not exist as a node kind; the Builder lowers `if` to a
// two-arm match and `while` to a loop over such a match, which keeps the
// analysis core free of redundant control forms.
package bir
