// Package testutil provides builders shared by package tests: canned tasks
// in every lifecycle state for seeding stores.
package testutil
