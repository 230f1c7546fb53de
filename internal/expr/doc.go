// Package expr evaluates the arithmetic and comparison expressions that appear
// in parametric L-system rules and guard conditions.
//
// The grammar is closed: numbers, variables, parentheses, the operators
// + - * / ^, comparisons < <= > >= == != (= is accepted for ==) and the
// logical operators && || !. There are no function calls and no access to
// anything outside the variable map, so evaluating untrusted rule text cannot
// execute code.
//
// Boolean results are 1 (true) and 0 (false).
package expr
