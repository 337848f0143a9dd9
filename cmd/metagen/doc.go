// SPDX-License-Identifier: MPL-2.0

// Package cmd contains the metagen CLI commands.
//
// The CLI is a thin shell over the generation pass: it loads the
// configuration and the program model, runs internal/pipeline and writes the
// resulting artifacts through internal/outcache. All rendering happens here;
// the packages below it return structured data.
package cmd
