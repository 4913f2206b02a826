package container

import (
	"fmt"
	"strings"
	"sync"
)

// Memory is an in-memory Source. Files are built with NewMemFile and registered
// under a name with Add. It records open and close calls so callers can check
// that every acquisition is released.
type Memory struct {
	mu     sync.Mutex
	files  map[string]*MemFile
	opens  int
	closes int
}

// NewMemory returns an empty in-memory source.
func NewMemory() *Memory {
	return &Memory{files: make(map[string]*MemFile)}
}

// Add registers f under name.
func (m *Memory) Add(name string, f *MemFile) *Memory {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.files[name] = f
	return m
}

// Open implements Source.
func (m *Memory) Open(file string) (Reader, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	f, ok := m.files[file]
	if !ok {
		return nil, fmt.Errorf("open %s: %w", file, ErrNotFound)
	}
	m.opens++
	return &memReader{src: m, file: file, f: f}, nil
}

// Handles returns the number of readers opened and not yet closed.
func (m *Memory) Handles() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.opens - m.closes
}

// Opens returns how many readers have been opened.
func (m *Memory) Opens() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.opens
}

type memNode struct {
	kind     Kind
	id       uint64
	order    []string
	children map[string]*memNode
	array    *Array
	attrs    []string
	failErr  error
}

// MemFile is an in-memory container tree.
type MemFile struct {
	root   *memNode
	nextID uint64
	noIDs  bool
}

// NewMemFile returns a container holding only the root group.
func NewMemFile() *MemFile {
	f := &MemFile{nextID: 1}
	f.root = f.newNode(KindGroup)
	return f
}

func (f *MemFile) newNode(kind Kind) *memNode {
	n := &memNode{kind: kind, id: f.nextID}
	f.nextID++
	if kind == KindGroup {
		n.children = make(map[string]*memNode)
	}
	return n
}

// WithoutIDs makes the reader report ID 0 for every node, like a backend
// that does not expose object addresses.
func (f *MemFile) WithoutIDs() *MemFile {
	f.noIDs = true
	return f
}

func (f *MemFile) idOf(n *memNode) uint64 {
	if f.noIDs {
		return 0
	}
	return n.id
}

// Group creates the group at path and any missing parents.
func (f *MemFile) Group(path string) *MemFile {
	f.ensureGroup(splitMemPath(path))
	return f
}

// Dataset stores a numeric array at path. Without a shape it is one-dimensional.
func (f *MemFile) Dataset(path string, values []float64, shape ...uint64) *MemFile {
	if len(shape) == 0 {
		shape = []uint64{uint64(len(values))}
	}
	f.put(path, KindDataset).array = &Array{
		Values: append([]float64(nil), values...),
		Shape:  shape,
	}
	return f
}

// BoolDataset stores a boolean array at path.
func (f *MemFile) BoolDataset(path string, values []bool) *MemFile {
	vals := make([]float64, len(values))
	for i, v := range values {
		if v {
			vals[i] = 1
		}
	}
	f.put(path, KindDataset).array = &Array{
		Values:  vals,
		Shape:   []uint64{uint64(len(values))},
		Boolean: true,
	}
	return f
}

// Other stores a node that is neither a group nor a dataset, such as a named datatype.
func (f *MemFile) Other(path string) *MemFile {
	f.put(path, KindOther)
	return f
}

// Attrs attaches attribute names to an existing node.
func (f *MemFile) Attrs(path string, names ...string) *MemFile {
	if n := f.lookup(splitMemPath(path)); n != nil {
		n.attrs = append(n.attrs, names...)
	}
	return f
}

// Link adds a second name at path for the existing node at target.
func (f *MemFile) Link(path, target string) *MemFile {
	t := f.lookup(splitMemPath(target))
	if t == nil {
		panic(fmt.Sprintf("memfile: link target %s does not exist", target))
	}
	parts := splitMemPath(path)
	parent := f.ensureGroup(parts[:len(parts)-1])
	parent.attach(parts[len(parts)-1], t)
	return f
}

// FailRead makes every read of the dataset at path fail with err.
func (f *MemFile) FailRead(path string, err error) *MemFile {
	if n := f.lookup(splitMemPath(path)); n != nil {
		n.failErr = err
	}
	return f
}

func (f *MemFile) put(path string, kind Kind) *memNode {
	parts := splitMemPath(path)
	if len(parts) == 0 {
		panic("memfile: cannot replace root")
	}
	parent := f.ensureGroup(parts[:len(parts)-1])
	n := f.newNode(kind)
	parent.attach(parts[len(parts)-1], n)
	return n
}

func (f *MemFile) ensureGroup(parts []string) *memNode {
	cur := f.root
	for _, name := range parts {
		next, ok := cur.children[name]
		if !ok {
			next = f.newNode(KindGroup)
			cur.attach(name, next)
		}
		if next.kind != KindGroup {
			panic(fmt.Sprintf("memfile: %s is not a group", name))
		}
		cur = next
	}
	return cur
}

func (n *memNode) attach(name string, child *memNode) {
	if _, exists := n.children[name]; !exists {
		n.order = append(n.order, name)
	}
	n.children[name] = child
}

func (f *MemFile) lookup(parts []string) *memNode {
	cur := f.root
	for _, name := range parts {
		if cur.kind != KindGroup {
			return nil
		}
		next, ok := cur.children[name]
		if !ok {
			return nil
		}
		cur = next
	}
	return cur
}

func splitMemPath(path string) []string {
	path = strings.Trim(path, "/")
	if path == "" {
		return nil
	}
	return strings.Split(path, "/")
}

type memReader struct {
	src    *Memory
	file   string
	f      *MemFile
	closed bool
}

func (r *memReader) node(path string) (*memNode, error) {
	if r.closed {
		return nil, &ReadError{File: r.file, Path: path, Err: fmt.Errorf("reader closed")}
	}
	n := r.f.lookup(splitMemPath(path))
	if n == nil {
		return nil, &ReadError{File: r.file, Path: path, Err: ErrNotFound}
	}
	return n, nil
}

func (r *memReader) Stat(path string) (Kind, uint64, error) {
	n, err := r.node(path)
	if err != nil {
		return KindOther, 0, err
	}
	return n.kind, r.f.idOf(n), nil
}

func (r *memReader) ListChildren(group string) ([]Child, error) {
	n, err := r.node(group)
	if err != nil {
		return nil, err
	}
	if n.kind != KindGroup {
		return nil, &ReadError{File: r.file, Path: group, Err: fmt.Errorf("not a group")}
	}
	children := make([]Child, len(n.order))
	for i, name := range n.order {
		c := n.children[name]
		children[i] = Child{Name: name, Kind: c.kind, ID: r.f.idOf(c)}
	}
	return children, nil
}

func (r *memReader) ReadArray(path string) (*Array, error) {
	n, err := r.node(path)
	if err != nil {
		return nil, err
	}
	if n.failErr != nil {
		return nil, &ReadError{File: r.file, Path: path, Err: n.failErr}
	}
	if n.kind != KindDataset || n.array == nil {
		return nil, &ReadError{File: r.file, Path: path, Err: fmt.Errorf("not a dataset")}
	}
	return &Array{
		Values:  append([]float64(nil), n.array.Values...),
		Shape:   append([]uint64(nil), n.array.Shape...),
		Boolean: n.array.Boolean,
	}, nil
}

func (r *memReader) AttributeNames(path string) ([]string, error) {
	n, err := r.node(path)
	if err != nil {
		return nil, err
	}
	return append([]string(nil), n.attrs...), nil
}

func (r *memReader) Close() error {
	if r.closed {
		return nil
	}
	r.closed = true
	r.src.mu.Lock()
	r.src.closes++
	r.src.mu.Unlock()
	return nil
}
