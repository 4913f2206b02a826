// Package session holds the browsing and plotting state of one user.
//
// A Session is the explicit context every interaction runs against: the files
// it opened, the selected file and group, the search value with the dataset
// list it produced, and the parameter set. Sessions never share state.
package session

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/robert-malhotra/h5view/internal/container"
	"github.com/robert-malhotra/h5view/internal/histogram"
	"github.com/robert-malhotra/h5view/internal/mask"
	"github.com/robert-malhotra/h5view/internal/params"
	"github.com/robert-malhotra/h5view/internal/pathfilter"
	"github.com/robert-malhotra/h5view/internal/tree"
)

// Settings are the tunables shared by every session of a Manager.
type Settings struct {
	// ValidityPath locates the validity mask; empty disables it.
	ValidityPath string
	Bins         int
	Search       []pathfilter.Option
	TieBreak     params.TieBreak
}

// DefaultSettings returns the settings used when none are given.
func DefaultSettings() Settings {
	return Settings{
		ValidityPath: mask.DefaultValidityPath,
		Bins:         histogram.DefaultBins,
	}
}

// File is one container opened in a session.
type File struct {
	// Path is where the container is read from.
	Path string
	// Name is the base name without extension.
	Name  string
	Index *tree.Index
}

// DisplayName returns the base name of path without its extension.
func DisplayName(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// Session is one user's state. It is safe for concurrent use.
type Session struct {
	ID string

	src      container.Source
	filter   *pathfilter.Filter
	bins     int
	log      *slog.Logger
	pipeline *mask.Pipeline

	mu            sync.Mutex
	files         []*File
	selectedFile  int
	selectedGroup int
	search        string
	datasets      []string
	filtered      []string
	params        *params.Set
}

// New returns an empty session reading containers through src.
func New(id string, src container.Source, settings Settings, log *slog.Logger) *Session {
	if log == nil {
		log = slog.Default()
	}
	log = log.With("session", id)
	pipeline := mask.New(src, mask.WithValidityPath(settings.ValidityPath), mask.WithLogger(log))
	return &Session{
		ID:            id,
		src:           src,
		filter:        pathfilter.New(settings.Search...),
		bins:          settings.Bins,
		log:           log,
		pipeline:      pipeline,
		selectedFile:  -1,
		selectedGroup: -1,
		params:        params.NewSet(pipeline, params.WithTieBreak(settings.TieBreak), params.WithLogger(log)),
	}
}

func (s *Session) index(path string) (*File, error) {
	ix, err := tree.Build(s.src, path, tree.WithLogger(s.log))
	if err != nil {
		return nil, err
	}
	return &File{Path: path, Name: DisplayName(path), Index: ix}, nil
}

// OpenFile indexes the container at path and appends it to the session's files.
func (s *Session) OpenFile(path string) (int, error) {
	f, err := s.index(path)
	if err != nil {
		return -1, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.files = append(s.files, f)
	s.log.Info("file opened", "file", path, "groups", len(f.Index.Groups()))
	return len(s.files) - 1, nil
}

// OpenFiles indexes several containers in parallel. Nothing is added unless
// every file indexes.
func (s *Session) OpenFiles(ctx context.Context, paths []string) error {
	opened := make([]*File, len(paths))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(4)
	for i, p := range paths {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			f, err := s.index(p)
			if err != nil {
				return err
			}
			opened[i] = f
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.files = append(s.files, opened...)
	s.log.Info("files opened", "count", len(opened))
	return nil
}

// Files returns the opened files in order.
func (s *Session) Files() []File {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]File, len(s.files))
	for i, f := range s.files {
		out[i] = *f
	}
	return out
}

func (s *Session) file(i int) (*File, error) {
	if i < 0 || i >= len(s.files) {
		return nil, fmt.Errorf("file %d: %w", i, ErrNoFile)
	}
	return s.files[i], nil
}

// SelectFile selects file i and drops the group selection.
func (s *Session) SelectFile(i int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := s.file(i); err != nil {
		return err
	}
	s.selectedFile = i
	s.clearGroupLocked()
	return nil
}

// Groups returns the group paths of the selected file.
func (s *Session) Groups() ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	f, err := s.selected()
	if err != nil {
		return nil, err
	}
	return f.Index.Groups(), nil
}

func (s *Session) selected() (*File, error) {
	if s.selectedFile < 0 {
		return nil, ErrNoSelection
	}
	return s.files[s.selectedFile], nil
}

// SelectGroup selects group i of the selected file. Its datasets become the
// dataset list and the search value is cleared.
func (s *Session) SelectGroup(i int) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	f, err := s.selected()
	if err != nil {
		return nil, err
	}
	groups := f.Index.Groups()
	if i < 0 || i >= len(groups) {
		return nil, fmt.Errorf("group %d: %w", i, ErrNoGroup)
	}
	datasets, err := f.Index.Datasets(groups[i])
	if err != nil {
		return nil, err
	}
	s.selectedGroup = i
	s.search = ""
	s.datasets = datasets
	s.filtered = datasets
	return append([]string(nil), datasets...), nil
}

// Search filters the dataset list of the selected group by pattern. Without a
// selected group it searches every dataset of the selected file. An empty
// pattern restores the full list. A rejected pattern leaves the state unchanged.
func (s *Session) Search(pattern string) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	f, err := s.selected()
	if err != nil {
		return nil, err
	}
	datasets := s.datasets
	if s.selectedGroup < 0 {
		if datasets, err = f.Index.AllDatasets(); err != nil {
			return nil, err
		}
	}
	filtered, err := s.filter.Apply(datasets, pattern)
	if err != nil {
		return nil, err
	}
	s.search = pattern
	s.datasets = datasets
	s.filtered = filtered
	s.log.Debug("search", "pattern", pattern, "matches", len(filtered))
	return append([]string(nil), filtered...), nil
}

// ClearGroupSelection drops the selected group and the dataset list.
func (s *Session) ClearGroupSelection() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.clearGroupLocked()
}

func (s *Session) clearGroupLocked() {
	s.selectedGroup = -1
	s.search = ""
	s.datasets = nil
	s.filtered = nil
}

// Clear drops every file, selection and parameter.
func (s *Session) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.files = nil
	s.selectedFile = -1
	s.clearGroupLocked()
	s.params.Clear()
}

// AddParameter loads dataset path of file i into the parameter set.
func (s *Session) AddParameter(file int, path string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	f, err := s.file(file)
	if err != nil {
		return -1, err
	}
	return s.params.Add(f.Path, path)
}

// ApplyFilter filters parameter i. The reference in expression is resolved
// against every dataset of the parameter's file.
func (s *Session) ApplyFilter(i int, expression string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, err := s.params.Get(i)
	if err != nil {
		return err
	}
	var available []string
	for _, f := range s.files {
		if f.Path != p.File {
			continue
		}
		if available, err = f.Index.AllDatasets(); err != nil {
			return err
		}
		break
	}
	return s.params.ApplyFilter(i, expression, available)
}

// ResetFilter drops the filter of parameter i.
func (s *Session) ResetFilter(i int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.params.ResetFilter(i)
}

// Show makes parameter i visible.
func (s *Session) Show(i int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.params.Show(i)
}

// Hide hides parameter i.
func (s *Session) Hide(i int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.params.Hide(i)
}

// RemoveParameter deletes parameter i.
func (s *Session) RemoveParameter(i int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.params.Remove(i)
}

// Parameters returns copies of every parameter.
func (s *Session) Parameters() []params.Parameter {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.params.All()
}

// Parameter returns a copy of parameter i.
func (s *Session) Parameter(i int) (params.Parameter, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.params.Get(i)
}

// Histograms summarizes the filtered arrays of the visible parameters.
func (s *Session) Histograms() []histogram.Summary {
	s.mu.Lock()
	visible := s.params.Visible()
	s.mu.Unlock()

	arrays := make([][]float64, len(visible))
	for i, p := range visible {
		arrays[i] = p.Filtered
	}
	return histogram.Summarize(arrays, s.bins)
}

// State is a snapshot of the browsing state.
type State struct {
	Files         []FileState  `json:"files"`
	SelectedFile  int          `json:"selected_file"`
	SelectedGroup int          `json:"selected_group"`
	Groups        []string     `json:"groups"`
	Search        string       `json:"search"`
	Datasets      []string     `json:"datasets"`
	Parameters    []ParamState `json:"parameters"`
}

// FileState describes one opened file.
type FileState struct {
	Path           string   `json:"path"`
	Name           string   `json:"name"`
	RootAttributes []string `json:"root_attributes"`
}

// ParamState describes one parameter without its arrays.
type ParamState struct {
	Index      int    `json:"index"`
	File       string `json:"file"`
	Path       string `json:"path"`
	Visible    bool   `json:"visible"`
	Validity   string `json:"validity"`
	Raw        int    `json:"raw"`
	Base       int    `json:"base"`
	Filtered   int    `json:"filtered"`
	Expression string `json:"expression,omitempty"`
	Reference  string `json:"reference,omitempty"`
}

// Snapshot returns the current state.
func (s *Session) Snapshot() State {
	s.mu.Lock()
	defer s.mu.Unlock()

	st := State{
		SelectedFile:  s.selectedFile,
		SelectedGroup: s.selectedGroup,
		Search:        s.search,
		Datasets:      append([]string{}, s.filtered...),
		Files:         make([]FileState, len(s.files)),
	}
	for i, f := range s.files {
		st.Files[i] = FileState{Path: f.Path, Name: f.Name, RootAttributes: f.Index.RootAttributes()}
	}
	if f, err := s.selected(); err == nil {
		st.Groups = f.Index.Groups()
	}
	for _, p := range s.params.All() {
		st.Parameters = append(st.Parameters, ParamState{
			Index:      p.Index,
			File:       p.File,
			Path:       p.Path,
			Visible:    p.Visible,
			Validity:   p.Validity.String(),
			Raw:        len(p.Raw),
			Base:       len(p.Base),
			Filtered:   len(p.Filtered),
			Expression: p.Expression,
			Reference:  p.Reference,
		})
	}
	return st
}

func (s *Session) holds(path string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, f := range s.files {
		if f.Path == path {
			return true
		}
	}
	return false
}
