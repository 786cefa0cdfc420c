package ldbtable

import (
	"sync"

	"github.com/golang/glog"
	"github.com/syndtr/goleveldb/leveldb"
	"github.com/syndtr/goleveldb/leveldb/opt"

	"github.com/MDS-AnGe/RTPA-Studio"
)

const numStripes = 64

// Table is a StrategyStore backed by a LevelDB database. Every update
// is a locked read-modify-write against the database, striped by key
// so that walkers touching different entries do not serialize. A
// database failure mid-update panics: the store cannot guarantee the
// accumulated sums once a write is lost.
type Table struct {
	path  string
	db    *leveldb.DB
	rOpts *opt.ReadOptions
	wOpts *opt.WriteOptions

	stripes [numStripes]sync.Mutex
}

var _ rtpa.StrategyStore = (*Table)(nil)

// New opens (or creates) a table at path.
func New(path string, opts *opt.Options) (*Table, error) {
	db, err := leveldb.OpenFile(path, opts)
	if err != nil {
		return nil, err
	}

	glog.V(1).Infof("Opened LevelDB strategy table at %s", path)
	return &Table{path: path, db: db}, nil
}

// Close releases the database handle.
func (t *Table) Close() error {
	return t.db.Close()
}

// Get returns a write-through handle for key. The entry is
// materialized in the database by its first update rather than by Get
// itself.
func (t *Table) Get(key string) rtpa.Policy {
	return &ldbPolicy{t: t, key: []byte(key)}
}

// Lookup returns a handle only when key already has an entry.
func (t *Table) Lookup(key string) (rtpa.Policy, bool) {
	ok, err := t.db.Has([]byte(key), t.rOpts)
	if err != nil {
		panic(err)
	}
	if !ok {
		return nil, false
	}
	return &ldbPolicy{t: t, key: []byte(key)}, true
}

// Len counts the entries in the database.
func (t *Table) Len() int {
	iter := t.db.NewIterator(nil, t.rOpts)
	defer iter.Release()

	n := 0
	for iter.Next() {
		n++
	}
	return n
}

// ForEach visits every entry, stopping at the first error.
func (t *Table) ForEach(fn func(key string, p rtpa.Policy) error) error {
	iter := t.db.NewIterator(nil, t.rOpts)
	defer iter.Release()

	for iter.Next() {
		key := string(iter.Key())
		if err := fn(key, &ldbPolicy{t: t, key: []byte(key)}); err != nil {
			return err
		}
	}
	return iter.Error()
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
	buf, err := t.db.Get(key, t.rOpts)
	if err == leveldb.ErrNotFound {
		return rtpa.NewStrategy()
	}
	if err != nil {
		panic(err)
	}

	s := rtpa.NewStrategy()
	if err := s.UnmarshalBinary(buf); err != nil {
		panic(err)
	}
	return s
}

// save persists the strategy under key. Callers hold the key's stripe.
func (t *Table) save(key []byte, s *rtpa.Strategy) {
	buf, err := s.MarshalBinary()
	if err != nil {
		panic(err)
	}
	if err := t.db.Put(key, buf, t.wOpts); err != nil {
		panic(err)
	}
}

// ldbPolicy reads and writes one entry. Unlike an in-memory entry it
// holds no state of its own: every operation is a locked load from the
// database, so concurrent handles to the same key never lose updates.
type ldbPolicy struct {
	t   *Table
	key []byte
}

func (p *ldbPolicy) Current(classes []rtpa.ActionClass, dst []float64) {
	mu := p.t.stripe(p.key)
	mu.Lock()
	s := p.t.load(p.key)
	mu.Unlock()

	s.Current(classes, dst)
}

func (p *ldbPolicy) Update(classes []rtpa.ActionClass, regrets, weights []float64) {
	mu := p.t.stripe(p.key)
	mu.Lock()
	defer mu.Unlock()

	s := p.t.load(p.key)
	s.Update(classes, regrets, weights)
	p.t.save(p.key, s)
}

func (p *ldbPolicy) AddRegret(class rtpa.ActionClass, amount float64) {
	mu := p.t.stripe(p.key)
	mu.Lock()
	defer mu.Unlock()

	s := p.t.load(p.key)
	s.AddRegret(class, amount)
	p.t.save(p.key, s)
}

func (p *ldbPolicy) AddStrategyWeight(class rtpa.ActionClass, w float64) {
	mu := p.t.stripe(p.key)
	mu.Lock()
	defer mu.Unlock()

	s := p.t.load(p.key)
	s.AddStrategyWeight(class, w)
	p.t.save(p.key, s)
}

func (p *ldbPolicy) Average() map[rtpa.ActionClass]float64 {
	mu := p.t.stripe(p.key)
	mu.Lock()
	s := p.t.load(p.key)
	mu.Unlock()

	return s.Average()
}
