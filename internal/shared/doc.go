// Package shared holds helpers used across packages that belong to no
// particular layer. The testutil subpackage captures slog output so tests
// can assert on what was logged.
package shared
