// Package catalog lists and opens RADOLAN files held in a directory or an object store.
//
// Files follow the DWD naming scheme, eg raa01-rw_10000-1705041050-dwd---bin.gz for a
// composite or raa00-dx_10132-1705041050-ess---bin for a DX scan.
package catalog

import (
	"context"
	"errors"
	"io"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/jonboulle/clockwork"
)

// ErrNotFound is returned by Open for names the catalog does not hold.
var ErrNotFound = errors.New("catalog: no such file")

var namePattern = regexp.MustCompile(`^raa0\d-([a-z0-9]{2})_(\d{5})-(\d{10})-([a-z]{3})---bin(?:\.gz|\.bz2)?$`)

// nameTimeLayout is YYMMDDHHMM
const nameTimeLayout = "0601021504"

// Entry describes one file.
type Entry struct {
	Name    string    `json:"name"`
	Product string    `json:"product"`
	Site    string    `json:"site"`
	Time    time.Time `json:"time"`
	Size    int64     `json:"size"`
}

// Catalog is a source of RADOLAN files.
type Catalog interface {
	// List returns the entries of a product (all products when empty), oldest first.
	List(ctx context.Context, product string) ([]Entry, error)

	// Open returns the raw, possibly compressed, file contents.
	Open(ctx context.Context, name string) (io.ReadCloser, error)
}

// ParseName extracts product, site and time from a DWD file name.
func ParseName(name string) (Entry, bool) {
	m := namePattern.FindStringSubmatch(name)
	if m == nil {
		return Entry{}, false
	}
	t, err := time.Parse(nameTimeLayout, m[3])
	if err != nil {
		return Entry{}, false
	}
	return Entry{
		Name:    name,
		Product: strings.ToUpper(m[1]),
		Site:    m[2],
		Time:    t.UTC(),
	}, true
}

// matches reports whether an entry belongs to product, case insensitive
func matches(e Entry, product string) bool {
	return product == "" || strings.EqualFold(e.Product, product)
}

func sortEntries(entries []Entry) {
	sort.Slice(entries, func(i, j int) bool {
		if !entries[i].Time.Equal(entries[j].Time) {
			return entries[i].Time.Before(entries[j].Time)
		}
		return entries[i].Name < entries[j].Name
	})
}

// Window keeps entries with from <= Time <= to.
func Window(entries []Entry, from, to time.Time) []Entry {
	out := make([]Entry, 0, len(entries))
	for _, e := range entries {
		if e.Time.Before(from) || e.Time.After(to) {
			continue
		}
		out = append(out, e)
	}
	return out
}

// Recent keeps entries from the last since, relative to clock.
func Recent(entries []Entry, clock clockwork.Clock, since time.Duration) []Entry {
	now := clock.Now().UTC()
	return Window(entries, now.Add(-since), now)
}
