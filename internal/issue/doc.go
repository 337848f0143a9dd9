// SPDX-License-Identifier: MPL-2.0

// Package issue provides the user-facing errors of the metagen CLI: an
// ActionableError carrying the failed operation and recovery suggestions, and
// a catalog of Markdown guidance rendered with glamour.
package issue
