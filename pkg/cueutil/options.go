// SPDX-License-Identifier: MPL-2.0

package cueutil

// DefaultMaxFileSize bounds the documents read by ParseAndDecode.
const DefaultMaxFileSize int64 = 5 << 20

type (
	// Option configures a parse.
	Option func(*options)

	options struct {
		filename    string
		maxFileSize int64
		concrete    bool
	}
)

func defaultOptions() options {
	return options{maxFileSize: DefaultMaxFileSize, concrete: true}
}

// WithFilename names the document in error messages.
func WithFilename(name string) Option {
	return func(o *options) { o.filename = name }
}

// WithMaxFileSize overrides DefaultMaxFileSize.
func WithMaxFileSize(n int64) Option {
	return func(o *options) { o.maxFileSize = n }
}

// WithConcrete controls whether every field must be concrete after
// unification. Documents with optional fields pass false.
func WithConcrete(concrete bool) Option {
	return func(o *options) { o.concrete = concrete }
}
