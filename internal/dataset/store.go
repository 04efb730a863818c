// Package dataset stores schema-less records in partitions addressed by view
// URIs such as "view://users?year=2015&month=5&day=15&hour=12".
package dataset

import (
	"context"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/me/gokite/pkg/model"
)

// Store is the persistence layer for dataset partitions.
type Store interface {
	// Write replaces the partition at uri with records.
	Write(ctx context.Context, uri string, records []model.Record) error
	// Read returns the records of every partition matching uri. Keys left
	// out of uri match any value.
	Read(ctx context.Context, uri string) ([]model.Record, error)
	// Partitions lists the partitions of a dataset in key order.
	Partitions(ctx context.Context, dataset string) ([]Partition, error)

	// Lifecycle
	Close() error
	Migrate(ctx context.Context) error
}

// Partition describes one stored partition.
type Partition struct {
	ID        int64     `json:"id"`
	Dataset   string    `json:"dataset"`
	Keys      string    `json:"keys"` // canonical, sorted query
	URI       string    `json:"uri"`  // address as written
	Records   int       `json:"records"`
	WrittenAt time.Time `json:"written_at"`
}

// Address is a parsed view URI.
type Address struct {
	URI     string
	Dataset string
	Keys    url.Values
}

// ParseAddress splits a view://<dataset>?<keys> URI. Each key may appear
// once.
func ParseAddress(uri string) (Address, error) {
	u, err := url.Parse(uri)
	if err != nil {
		return Address{}, model.ResolutionError("parse address", "%v", err)
	}
	if u.Scheme != "view" && u.Scheme != "dataset" {
		return Address{}, model.ResolutionError("parse address", "unsupported scheme %q in %q", u.Scheme, uri)
	}
	name := strings.Trim(u.Host+u.Path, "/")
	if name == "" {
		return Address{}, model.ResolutionError("parse address", "no dataset in %q", uri)
	}
	keys, err := url.ParseQuery(u.RawQuery)
	if err != nil {
		return Address{}, model.ResolutionError("parse address", "query of %q: %v", uri, err)
	}
	for k, vs := range keys {
		if len(vs) != 1 {
			return Address{}, model.ResolutionError("parse address", "key %q repeated in %q", k, uri)
		}
	}
	return Address{URI: uri, Dataset: name, Keys: keys}, nil
}

// PartitionKey is the canonical, order-independent form of the keys.
func (a Address) PartitionKey() string {
	return a.Keys.Encode()
}

// Matches reports whether a partition with the given canonical keys is
// covered by a: every key in a is present there with the same value.
func (a Address) Matches(partitionKeys string) bool {
	pk, err := url.ParseQuery(partitionKeys)
	if err != nil {
		return false
	}
	for k := range a.Keys {
		if pk.Get(k) != a.Keys.Get(k) {
			return false
		}
	}
	return true
}

// sortPartitions orders partitions by their keys, comparing integer values
// numerically so hour=2 sorts before hour=10.
func sortPartitions(ps []Partition) {
	sort.SliceStable(ps, func(i, j int) bool {
		return lessKeys(ps[i].Keys, ps[j].Keys)
	})
}

func lessKeys(a, b string) bool {
	av, _ := url.ParseQuery(a)
	bv, _ := url.ParseQuery(b)
	names := make([]string, 0, len(av))
	for k := range av {
		names = append(names, k)
	}
	sort.Strings(names)
	for _, k := range names {
		x, y := av.Get(k), bv.Get(k)
		if x == y {
			continue
		}
		xi, errX := strconv.Atoi(x)
		yi, errY := strconv.Atoi(y)
		if errX == nil && errY == nil {
			return xi < yi
		}
		return x < y
	}
	return a < b
}
