// Package domain contains the core entities of the vocabulary trainer:
// learning items with their schedule and mastery state, and the
// append-only study records. It is independent of any storage or
// delivery mechanism; scheduling and mastery transitions live in the
// schedule and mastery subpackages.
package domain
