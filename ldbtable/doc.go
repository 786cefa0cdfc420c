// Package ldbtable keeps the strategy table on disk in a LevelDB
// database, rather than in memory.
//
// It is substantially slower than the in-memory table but holds a
// constant amount of memory, so it scales to abstraction sizes that do
// not fit in RAM.
package ldbtable
