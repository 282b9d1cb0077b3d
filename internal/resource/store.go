// Package resource loads XSD schemas and XSLT stylesheets by name.
package resource

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"sort"
	"strings"
	"sync"

	"github.com/rezonia/fattura-processor/internal/model"
)

// Kind identifies a family of resources
type Kind string

const (
	KindSchema     Kind = "schema"
	KindStylesheet Kind = "stylesheet"
)

// Dir returns the directory holding resources of this kind
func (k Kind) Dir() string {
	switch k {
	case KindSchema:
		return "schemas"
	case KindStylesheet:
		return "styles"
	default:
		return string(k)
	}
}

// Ext returns the file extension for resources of this kind
func (k Kind) Ext() string {
	switch k {
	case KindSchema:
		return ".xsd"
	case KindStylesheet:
		return ".xsl"
	default:
		return ""
	}
}

// Identifier returns the store-relative identifier for a named resource,
// e.g. schemas/FatturaOrdinaria.xsd
func Identifier(kind Kind, name string) string {
	if !strings.HasSuffix(name, kind.Ext()) {
		name += kind.Ext()
	}
	return path.Join(kind.Dir(), name)
}

// Store loads resource text
type Store interface {
	// Load returns the text of the named resource, or a ResourceNotFoundError
	Load(ctx context.Context, kind Kind, name string) (string, error)

	// List returns the file names (with extension) of every resource of kind
	List(ctx context.Context, kind Kind) ([]string, error)
}

// ForSubType loads the resource of kind matching the sub-type
func ForSubType(ctx context.Context, s Store, kind Kind, subType model.SubType) (string, error) {
	name, err := subType.SchemaName()
	if err != nil {
		return "", err
	}
	return s.Load(ctx, kind, name)
}

// FSStore serves resources from a filesystem laid out as schemas/ and styles/
type FSStore struct {
	fsys fs.FS
	root string
}

// NewFSStore creates a store over fsys
func NewFSStore(fsys fs.FS) *FSStore {
	return &FSStore{fsys: fsys}
}

// NewDirStore creates a store over a directory on disk
func NewDirStore(dir string) *FSStore {
	return &FSStore{fsys: os.DirFS(dir), root: dir}
}

// Load reads the named resource
func (s *FSStore) Load(ctx context.Context, kind Kind, name string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	id := Identifier(kind, name)
	data, err := fs.ReadFile(s.fsys, id)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", model.NewResourceNotFoundError(string(kind), s.display(id), err)
		}
		return "", fmt.Errorf("failed to read %s: %w", s.display(id), err)
	}
	return string(data), nil
}

// List returns the resources of kind found in the store
func (s *FSStore) List(ctx context.Context, kind Kind) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	entries, err := fs.ReadDir(s.fsys, kind.Dir())
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return []string{}, nil
		}
		return nil, fmt.Errorf("failed to list %s: %w", s.display(kind.Dir()), err)
	}

	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() || !strings.EqualFold(path.Ext(e.Name()), kind.Ext()) {
			continue
		}
		names = append(names, e.Name())
	}
	return names, nil
}

func (s *FSStore) display(id string) string {
	if s.root == "" {
		return id
	}
	return path.Join(s.root, id)
}

// MapStore is an in-memory store keyed by identifier (schemas/X.xsd)
type MapStore struct {
	mu        sync.RWMutex
	resources map[string]string
}

// NewMapStore creates an empty in-memory store
func NewMapStore() *MapStore {
	return &MapStore{resources: make(map[string]string)}
}

// Put stores a resource
func (s *MapStore) Put(kind Kind, name, content string) {
	s.mu.Lock()
	s.resources[Identifier(kind, name)] = content
	s.mu.Unlock()
}

// Load returns the stored resource
func (s *MapStore) Load(ctx context.Context, kind Kind, name string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	id := Identifier(kind, name)
	s.mu.RLock()
	content, ok := s.resources[id]
	s.mu.RUnlock()
	if !ok {
		return "", model.NewResourceNotFoundError(string(kind), id, nil)
	}
	return content, nil
}

// List returns stored resource names of kind, sorted
func (s *MapStore) List(ctx context.Context, kind Kind) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	prefix := kind.Dir() + "/"
	s.mu.RLock()
	names := make([]string, 0)
	for id := range s.resources {
		if strings.HasPrefix(id, prefix) {
			names = append(names, strings.TrimPrefix(id, prefix))
		}
	}
	s.mu.RUnlock()
	sort.Strings(names)
	return names, nil
}
