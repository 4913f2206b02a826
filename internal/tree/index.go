package tree

import (
	"fmt"
	"io"
	"log/slog"
	"sync"

	"github.com/robert-malhotra/h5view/internal/container"
)

// Index is the discovered structure of one container file. Group paths are
// computed when the index is built; dataset paths are computed per group on
// first request and kept until Reload.
type Index struct {
	src  container.Source
	file string
	log  *slog.Logger

	mu        sync.Mutex
	groups    []string
	rootAttrs []string
	datasets  map[string][]string
}

// Option configures an Index.
type Option func(*Index)

// WithLogger sets the logger used for discovery events.
func WithLogger(l *slog.Logger) Option {
	return func(ix *Index) {
		if l != nil {
			ix.log = l
		}
	}
}

// Build opens file and discovers its groups.
func Build(src container.Source, file string, opts ...Option) (*Index, error) {
	ix := &Index{
		src:  src,
		file: file,
		log:  slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, o := range opts {
		o(ix)
	}
	if err := ix.Reload(); err != nil {
		return nil, err
	}
	return ix, nil
}

// File returns the container path the index was built from.
func (ix *Index) File() string { return ix.file }

// Reload rediscovers the groups and drops every cached dataset list.
func (ix *Index) Reload() error {
	var groups, attrs []string
	err := container.With(ix.src, ix.file, func(r container.Reader) error {
		var err error
		groups, err = DiscoverGroups(r, "/")
		if err != nil {
			return err
		}
		attrs, err = r.AttributeNames("/")
		if err != nil {
			return fmt.Errorf("reading root attributes: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	ix.mu.Lock()
	ix.groups = groups
	ix.rootAttrs = attrs
	ix.datasets = make(map[string][]string)
	ix.mu.Unlock()

	ix.log.Debug("indexed container", "file", ix.file, "groups", len(groups))
	return nil
}

// Groups returns the discovered group paths, root first.
func (ix *Index) Groups() []string {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	return append([]string(nil), ix.groups...)
}

// RootAttributes returns the attribute names of the root group.
func (ix *Index) RootAttributes() []string {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	return append([]string(nil), ix.rootAttrs...)
}

// HasGroup reports whether group was discovered.
func (ix *Index) HasGroup(group string) bool {
	group = GroupPath(group)
	ix.mu.Lock()
	defer ix.mu.Unlock()
	for _, g := range ix.groups {
		if g == group {
			return true
		}
	}
	return false
}

// Datasets returns the datasets under group, discovering them on first use.
func (ix *Index) Datasets(group string) ([]string, error) {
	group = GroupPath(group)

	ix.mu.Lock()
	cached, ok := ix.datasets[group]
	ix.mu.Unlock()
	if ok {
		return append([]string(nil), cached...), nil
	}

	var found []string
	err := container.With(ix.src, ix.file, func(r container.Reader) error {
		var err error
		found, err = DiscoverDatasets(r, group)
		return err
	})
	if err != nil {
		return nil, err
	}

	ix.mu.Lock()
	ix.datasets[group] = found
	ix.mu.Unlock()

	ix.log.Debug("discovered datasets", "file", ix.file, "group", group, "datasets", len(found))
	return append([]string(nil), found...), nil
}

// AllDatasets returns every dataset in the file.
func (ix *Index) AllDatasets() ([]string, error) {
	return ix.Datasets("/")
}
