package rdbtable

import (
	"sync"

	"github.com/golang/glog"
	rocksdb "github.com/tecbot/gorocksdb"

	"github.com/MDS-AnGe/RTPA-Studio"
)

const numStripes = 64

// Table is a StrategyStore backed by a RocksDB database. Every update
// is a locked read-modify-write against the database, striped by key
// so that walkers touching different entries do not serialize. A
// database failure mid-update panics: the store cannot guarantee the
// accumulated sums once a write is lost.
type Table struct {
	params Params
	db     *rocksdb.DB

	stripes [numStripes]sync.Mutex
}

var _ rtpa.StrategyStore = (*Table)(nil)

// New opens (or creates) a table per params.
func New(params Params) (*Table, error) {
	db, err := rocksdb.OpenDb(params.Options, params.Path)
	if err != nil {
		return nil, err
	}

	glog.V(1).Infof("Opened RocksDB strategy table at %s", params.Path)
	return &Table{params: params, db: db}, nil
}

// Close releases the database handle. The Params handles remain the
// caller's to destroy.
func (t *Table) Close() error {
	t.db.Close()
	return nil
}

// Get returns a write-through handle for key. The entry is
// materialized in the database by its first update rather than by Get
// itself.
func (t *Table) Get(key string) rtpa.Policy {
	return &rdbPolicy{t: t, key: []byte(key)}
}

// Lookup returns a handle only when key already has an entry.
func (t *Table) Lookup(key string) (rtpa.Policy, bool) {
	result, err := t.db.Get(t.params.ReadOptions, []byte(key))
	if err != nil {
		panic(err)
	}
	defer result.Free()

	if len(result.Data()) == 0 {
		return nil, false
	}
	return &rdbPolicy{t: t, key: []byte(key)}, true
}

// Len counts the entries in the database.
func (t *Table) Len() int {
	it := t.db.NewIterator(t.params.ReadOptions)
	defer it.Close()

	n := 0
	for it.SeekToFirst(); it.Valid(); it.Next() {
		n++
	}
	if err := it.Err(); err != nil {
		panic(err)
	}
	return n
}

// ForEach visits every entry, stopping at the first error.
func (t *Table) ForEach(fn func(key string, p rtpa.Policy) error) error {
	it := t.db.NewIterator(t.params.ReadOptions)
	defer it.Close()

	for it.SeekToFirst(); it.Valid(); it.Next() {
		k := it.Key()
		key := string(k.Data())
		k.Free()

		if err := fn(key, &rdbPolicy{t: t, key: []byte(key)}); err != nil {
			return err
		}
	}
	return it.Err()
}

func (t *Table) stripe(key []byte) *sync.Mutex {
	h := uint32(2166136261)
	for _, b := range key {
		h ^= uint32(b)
		h *= 16777619
	}
	return &t.stripes[h%numStripes]
}

// load decodes the stored strategy for key, or starts a fresh one.
// Callers hold the key's stripe.
func (t *Table) load(key []byte) *rtpa.Strategy {
	result, err := t.db.Get(t.params.ReadOptions, key)
	if err != nil {
		panic(err)
	}
	defer result.Free()

	s := rtpa.NewStrategy()
	if len(result.Data()) > 0 {
		if err := s.UnmarshalBinary(result.Data()); err != nil {
			panic(err)
		}
	}
	return s
}

// save persists the strategy under key. Callers hold the key's stripe.
func (t *Table) save(key []byte, s *rtpa.Strategy) {
	buf, err := s.MarshalBinary()
	if err != nil {
		panic(err)
	}
	if err := t.db.Put(t.params.WriteOptions, key, buf); err != nil {
		panic(err)
	}
}

// rdbPolicy reads and writes one entry. Unlike an in-memory entry it
// holds no state of its own: every operation is a locked load from the
// database, so concurrent handles to the same key never lose updates.
type rdbPolicy struct {
	t   *Table
	key []byte
}

func (p *rdbPolicy) Current(classes []rtpa.ActionClass, dst []float64) {
	mu := p.t.stripe(p.key)
	mu.Lock()
	s := p.t.load(p.key)
	mu.Unlock()

	s.Current(classes, dst)
}

func (p *rdbPolicy) Update(classes []rtpa.ActionClass, regrets, weights []float64) {
	mu := p.t.stripe(p.key)
	mu.Lock()
	defer mu.Unlock()

	s := p.t.load(p.key)
	s.Update(classes, regrets, weights)
	p.t.save(p.key, s)
}

func (p *rdbPolicy) AddRegret(class rtpa.ActionClass, amount float64) {
	mu := p.t.stripe(p.key)
	mu.Lock()
	defer mu.Unlock()

	s := p.t.load(p.key)
	s.AddRegret(class, amount)
	p.t.save(p.key, s)
}

func (p *rdbPolicy) AddStrategyWeight(class rtpa.ActionClass, w float64) {
	mu := p.t.stripe(p.key)
	mu.Lock()
	defer mu.Unlock()

	s := p.t.load(p.key)
	s.AddStrategyWeight(class, w)
	p.t.save(p.key, s)
}

func (p *rdbPolicy) Average() map[rtpa.ActionClass]float64 {
	mu := p.t.stripe(p.key)
	mu.Lock()
	s := p.t.load(p.key)
	mu.Unlock()

	return s.Average()
}
