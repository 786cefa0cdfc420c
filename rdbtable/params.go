// Package rdbtable keeps the strategy table in a RocksDB database,
// rather than in memory.
//
// It mirrors ldbtable on a heavier storage engine: substantially
// slower than the in-memory table, but constant memory, suited to
// abstraction sizes that do not fit in RAM.
package rdbtable

import (
	rocksdb "github.com/tecbot/gorocksdb"
)

// Params collects the database handles a Table is opened with. Close
// destroys them; do so only after the Table itself is closed.
type Params struct {
	Path         string
	Options      *rocksdb.Options
	ReadOptions  *rocksdb.ReadOptions
	WriteOptions *rocksdb.WriteOptions
}

// DefaultParams returns create-if-missing defaults for path.
func DefaultParams(path string) Params {
	opts := rocksdb.NewDefaultOptions()
	opts.SetCreateIfMissing(true)

	return Params{
		Path:         path,
		Options:      opts,
		ReadOptions:  rocksdb.NewDefaultReadOptions(),
		WriteOptions: rocksdb.NewDefaultWriteOptions(),
	}
}

// Close destroys the option handles.
func (p Params) Close() {
	p.Options.Destroy()
	p.ReadOptions.Destroy()
	p.WriteOptions.Destroy()
}
