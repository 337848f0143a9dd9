// SPDX-License-Identifier: MPL-2.0

// Package discovery selects declarations of a program model through
// pluggable strategies and merges what they find into one discovered set.
//
// File organization:
//   - strategy.go: the Strategy contract, StrategyID and the Definition adapter
//   - registry.go: the explicit strategy table (Registry, BuiltinRegistry)
//   - strategies.go: built-in marker and container strategies
//   - executor.go: resolution, gating and parallel execution of strategies
//   - aggregate.go: identity-keyed merge into Discovered records and Set
package discovery
