// Package liveness computes which variables are live, read, written, and
// used at every flow-relevant point of each body in a bir.File, then reports
// unused variables, unused parameter values, dead stores, and unused
// captures.
//
// The work per body splits into three strictly ordered passes sharing one
// fact table:
//
//  1. an index pass assigns dense Variable and LiveNode handles by walking
//     the body tree once (irmaps.go);
//  2. a backward propagation pass threads a successor relation through the
//     tree and solves the per-(LiveNode, Variable) records to a fixed point
//     (propagate.go, rwu.go);
//  3. a forward query pass re-walks the tree read-only and emits
//     diagnostics from the solved records (checks.go).
//
// Bodies are independent: each gets fresh index tables and a fresh fact
// table. Closures interact with their enclosing body only through the
// capture list.
package liveness
