// SPDX-License-Identifier: MPL-2.0

// Package pymeta extracts package metadata from Python source without running it.
//
// The scanner understands just enough of Python's lexical structure (strings,
// comments, brackets, line continuations and indentation) to find module-level
// statements. Only assignments of plain string literals to the recognized header
// identifiers are honored:
//
//	"""Hello"""                      # module docstring -> __doc__
//	__author__ = "A"
//	__copyright__ = "2024 A"
//	__license__ = "MIT"
//	__version__ = "0.1.0"
//
// Anything computed (f-strings, concatenation, calls, imports) leaves the field
// unresolved, and nothing inside functions, classes or conditionals is considered.
package pymeta
