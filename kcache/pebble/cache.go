package pebble

import (
	"errors"
	"fmt"
	"strings"

	"github.com/cockroachdb/pebble"
	"go.uber.org/multierr"

	"github.com/birdayz/tilestreams/kcodegen"
	"github.com/birdayz/tilestreams/kserde"
)

const keyPrefix = "program/"

// Cache is a kcodegen.ProgramCache persisted in a Pebble database.
type Cache struct {
	db    *pebble.DB
	serde kserde.Serde[*kcodegen.Program]
}

var _ kcodegen.ProgramCache = (*Cache)(nil)

// Open opens or creates the cache database in dir.
func Open(dir string) (*Cache, error) {
	db, err := pebble.Open(dir, &pebble.Options{})
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", dir, err)
	}
	return &Cache{
		db:    db,
		serde: kserde.JSON[*kcodegen.Program](),
	}, nil
}

// Get returns the program compiled for fingerprint, if cached.
func (c *Cache) Get(fingerprint string) (*kcodegen.Program, bool, error) {
	v, closer, err := c.db.Get(key(fingerprint))
	if err != nil {
		if errors.Is(err, pebble.ErrNotFound) {
			return nil, false, nil
		}
		return nil, false, err
	}
	defer closer.Close()

	p, err := c.serde.Deserializer(v)
	if err != nil {
		return nil, false, fmt.Errorf("decode cached program %s: %w", fingerprint, err)
	}
	if p.Fingerprint != fingerprint {
		return nil, false, fmt.Errorf("cached program under %s has fingerprint %s", fingerprint, p.Fingerprint)
	}
	return p, true, nil
}

// Put stores p under its fingerprint.
func (c *Cache) Put(p *kcodegen.Program) error {
	if p.Fingerprint == "" {
		return errors.New("program has no fingerprint")
	}
	v, err := c.serde.Serializer(p)
	if err != nil {
		return fmt.Errorf("encode program %s: %w", p.Fingerprint, err)
	}
	return c.db.Set(key(p.Fingerprint), v, pebble.Sync)
}

// Delete removes the program cached for fingerprint. Deleting a missing
// entry is not an error.
func (c *Cache) Delete(fingerprint string) error {
	return c.db.Delete(key(fingerprint), pebble.Sync)
}

// Fingerprints lists the cached fingerprints in key order.
func (c *Cache) Fingerprints() ([]string, error) {
	iter := c.db.NewIter(&pebble.IterOptions{
		LowerBound: []byte(keyPrefix),
		UpperBound: upperBound(keyPrefix),
	})

	var out []string
	for iter.First(); iter.Valid(); iter.Next() {
		out = append(out, strings.TrimPrefix(string(iter.Key()), keyPrefix))
	}
	return out, multierr.Combine(iter.Error(), iter.Close())
}

func (c *Cache) Close() error {
	return multierr.Append(c.db.Flush(), c.db.Close())
}

func key(fingerprint string) []byte {
	return []byte(keyPrefix + fingerprint)
}

// upperBound returns the smallest key greater than every key with prefix.
func upperBound(prefix string) []byte {
	end := []byte(prefix)
	for i := len(end) - 1; i >= 0; i-- {
		end[i]++
		if end[i] != 0 {
			return end[:i+1]
		}
	}
	return nil
}
