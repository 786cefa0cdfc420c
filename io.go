package rtpa

import (
	"bufio"
	"encoding/gob"
	"encoding/json"
	"io"
	"os"

	"github.com/pkg/errors"
)

// LoadTable restores a table from a snapshot previously written by
// MarshalTo. A truncated or corrupted stream reports which entry
// failed; nothing read so far is returned.
func LoadTable(r io.Reader) (*Table, error) {
	dec := gob.NewDecoder(r)

	var nEntries int64
	if err := dec.Decode(&nEntries); err != nil {
		return nil, errors.Wrap(err, "reading table size")
	}

	tbl := NewTable()
	for i := int64(0); i < nEntries; i++ {
		var key string
		if err := dec.Decode(&key); err != nil {
			return nil, errors.Wrapf(err, "reading key of entry %d/%d", i, nEntries)
		}

		var s Strategy
		if err := dec.Decode(&s); err != nil {
			return nil, errors.Wrapf(err, "reading strategy for %q", key)
		}

		tbl.put(key, &s)
	}

	return tbl, nil
}

// MarshalTo writes a point-in-time snapshot of the table to w. Entries
// created after the snapshot begins are not included.
func (t *Table) MarshalTo(w io.Writer) error {
	type entry struct {
		key string
		s   *Strategy
	}
	entries := make([]entry, 0, t.Len())
	_ = t.ForEach(func(key string, p Policy) error {
		if s, ok := p.(*Strategy); ok {
			entries = append(entries, entry{key, s})
		}
		return nil
	})

	enc := gob.NewEncoder(w)
	if err := enc.Encode(int64(len(entries))); err != nil {
		return errors.Wrap(err, "writing table size")
	}

	for _, e := range entries {
		if err := enc.Encode(e.key); err != nil {
			return errors.Wrapf(err, "writing key %q", e.key)
		}

		if err := enc.Encode(e.s); err != nil {
			return errors.Wrapf(err, "writing strategy for %q", e.key)
		}
	}

	return nil
}

// LoadTableFile restores a table from a snapshot file.
func LoadTableFile(path string) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "opening snapshot")
	}
	defer f.Close()

	return LoadTable(bufio.NewReader(f))
}

// SaveFile snapshots the table to path, replacing any existing file.
func (t *Table) SaveFile(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return errors.Wrap(err, "creating snapshot")
	}

	w := bufio.NewWriter(f)
	if err := t.MarshalTo(w); err != nil {
		f.Close()
		return err
	}
	if err := w.Flush(); err != nil {
		f.Close()
		return errors.Wrap(err, "flushing snapshot")
	}
	return errors.Wrap(f.Close(), "closing snapshot")
}

// ExportJSON writes the average strategy of every visited entry in
// store as indented JSON keyed by info-set key, for offline
// inspection. Entries with no accumulated strategy weight are omitted.
func ExportJSON(w io.Writer, store StrategyStore) error {
	out := make(map[string]map[string]float64, store.Len())
	_ = store.ForEach(func(key string, p Policy) error {
		avg := p.Average()
		if avg == nil {
			return nil
		}

		probs := make(map[string]float64, len(avg))
		for class, pr := range avg {
			probs[class.String()] = pr
		}
		out[key] = probs
		return nil
	})

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return errors.Wrap(enc.Encode(out), "writing strategy export")
}
