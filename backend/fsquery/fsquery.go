// Package fsquery adapts a filesystem tree to the query gateway. All access
// goes through an io/fs filesystem rooted at the configured directory, so
// path containment is enforced structurally: a descriptor path is resolved
// relative to the root and anything escaping it is rejected before any
// syscall happens.
package fsquery

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/jatzz10/mcp-gateway/gateway"
)

// Config describes the served tree and its policy knobs.
type Config struct {
	// Root is the absolute directory all queries are contained within.
	Root string
	// MaxFileSize bounds read operations, in bytes. Checked before the
	// read is attempted.
	MaxFileSize int64
	// ExcludedDirs are directory names skipped during list/search/scan.
	ExcludedDirs []string
	// IncludeHidden controls whether dot-files appear in results.
	IncludeHidden bool
	// MaxDepth bounds the structure scan; zero means DefaultMaxDepth.
	MaxDepth int
}

// DefaultMaxFileSize is 1 MiB, matching the usual ceiling for tool-served
// file reads.
const DefaultMaxFileSize = 1 << 20

// DefaultMaxDepth bounds the metadata structure scan.
const DefaultMaxDepth = 5

// Backend implements gateway.Backend over an fs.FS.
type Backend struct {
	fsys     fs.FS
	cfg      Config
	excluded map[string]struct{}
}

var _ gateway.Backend = (*Backend)(nil)

// New serves the directory tree rooted at cfg.Root from the OS filesystem.
func New(cfg Config) (*Backend, error) {
	if cfg.Root == "" {
		return nil, fmt.Errorf("fsquery: root directory is required")
	}
	abs, err := filepath.Abs(cfg.Root)
	if err != nil {
		return nil, fmt.Errorf("fsquery: resolve root: %w", err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return nil, fmt.Errorf("fsquery: stat root: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("fsquery: root %s is not a directory", abs)
	}
	cfg.Root = abs
	return NewFromFS(os.DirFS(abs), cfg), nil
}

// NewFromFS serves an arbitrary fs.FS; tests use an in-memory filesystem.
func NewFromFS(fsys fs.FS, cfg Config) *Backend {
	if cfg.MaxFileSize <= 0 {
		cfg.MaxFileSize = DefaultMaxFileSize
	}
	if cfg.MaxDepth <= 0 {
		cfg.MaxDepth = DefaultMaxDepth
	}
	excluded := make(map[string]struct{}, len(cfg.ExcludedDirs))
	for _, dir := range cfg.ExcludedDirs {
		excluded[dir] = struct{}{}
	}
	return &Backend{fsys: fsys, cfg: cfg, excluded: excluded}
}

func (b *Backend) Kind() string { return "filesystem" }

// relPath resolves a descriptor path to a root-relative fs path. Absolute
// paths must fall inside the configured root; relative paths are taken as
// already root-relative. Any traversal outside the root is an error.
func (b *Backend) relPath(p string) (string, error) {
	if p == "" || p == "." || p == b.cfg.Root {
		return ".", nil
	}
	if strings.Contains(p, "..") {
		return "", fmt.Errorf("path %q contains a parent traversal segment", p)
	}

	rel := p
	if filepath.IsAbs(p) {
		r, err := filepath.Rel(b.cfg.Root, filepath.Clean(p))
		if err != nil || r == ".." || strings.HasPrefix(r, ".."+string(filepath.Separator)) {
			return "", fmt.Errorf("path %q is outside the served root %s", p, b.cfg.Root)
		}
		rel = r
	}

	rel = path.Clean(filepath.ToSlash(rel))
	if rel == ".." || strings.HasPrefix(rel, "../") {
		return "", fmt.Errorf("path %q is outside the served root %s", p, b.cfg.Root)
	}
	if rel == "" {
		rel = "."
	}
	return rel, nil
}

// Validate enforces the operation whitelist, path containment, required
// arguments, and the read size ceiling. Containment is a security boundary:
// any violation is rejected regardless of kind.
func (b *Backend) Validate(desc gateway.Descriptor) gateway.Verdict {
	switch desc.Kind {
	case gateway.KindList, gateway.KindSearch, gateway.KindRead, gateway.KindInfo:
	default:
		return gateway.Reject(fmt.Sprintf("operation %q is not permitted on a filesystem backend", desc.Kind))
	}

	p := desc.Target.Path
	if p == "" && (desc.Kind == gateway.KindRead || desc.Kind == gateway.KindInfo) {
		return gateway.Reject(fmt.Sprintf("%s requires a path", desc.Kind))
	}

	rel, err := b.relPath(p)
	if err != nil {
		return gateway.Reject(err.Error())
	}

	if desc.Kind == gateway.KindSearch && desc.Target.Term == "" && desc.Target.Ext == "" {
		return gateway.Reject("search requires a term or an extension filter")
	}

	// Size ceiling is checked up front so oversized reads are refused
	// before any content is touched.
	if desc.Kind == gateway.KindRead {
		if info, err := fs.Stat(b.fsys, rel); err == nil {
			if info.IsDir() {
				return gateway.Reject(fmt.Sprintf("%q is a directory, not a file", p))
			}
			if info.Size() > b.cfg.MaxFileSize {
				return gateway.Reject(fmt.Sprintf("file is %d bytes, exceeding the %d byte ceiling", info.Size(), b.cfg.MaxFileSize))
			}
		}
	}

	return gateway.Accept()
}

// Execute dispatches to the operation named by the descriptor kind.
func (b *Backend) Execute(ctx context.Context, desc gateway.Descriptor) (gateway.RawResult, error) {
	rel, err := b.relPath(desc.Target.Path)
	if err != nil {
		return nil, err
	}

	switch desc.Kind {
	case gateway.KindList:
		return b.listDirectory(rel, desc.Limit)
	case gateway.KindSearch:
		return b.searchFiles(ctx, rel, desc.Target.Term, desc.Target.Ext, desc.Limit)
	case gateway.KindRead:
		return b.readFile(rel)
	case gateway.KindInfo:
		return b.fileInfo(rel)
	default:
		return nil, fmt.Errorf("unknown filesystem operation %q", desc.Kind)
	}
}

// Normalize passes entry listings through; every operation already produces
// []*gateway.Record as its raw result.
func (b *Backend) Normalize(raw gateway.RawResult) ([]*gateway.Record, error) {
	records, ok := raw.([]*gateway.Record)
	if !ok {
		return nil, fmt.Errorf("normalize: unexpected raw result %T", raw)
	}
	return records, nil
}

func (b *Backend) skip(name string) bool {
	if _, ok := b.excluded[name]; ok {
		return true
	}
	return !b.cfg.IncludeHidden && strings.HasPrefix(name, ".")
}

func (b *Backend) listDirectory(rel string, limit int) ([]*gateway.Record, error) {
	entries, err := fs.ReadDir(b.fsys, rel)
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", rel, err)
	}

	var records []*gateway.Record
	for _, entry := range entries {
		if limit > 0 && len(records) >= limit {
			break
		}
		if b.skip(entry.Name()) {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		records = append(records, entryRecord(path.Join(rel, entry.Name()), info))
	}
	return records, nil
}

func (b *Backend) searchFiles(ctx context.Context, rel, term, ext string, limit int) ([]*gateway.Record, error) {
	var records []*gateway.Record
	err := fs.WalkDir(b.fsys, rel, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil // unreadable subtree, keep walking
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if d.IsDir() {
			if p != rel && b.skip(d.Name()) {
				return fs.SkipDir
			}
			return nil
		}
		if limit > 0 && len(records) >= limit {
			return fs.SkipAll
		}
		if b.skip(d.Name()) {
			return nil
		}
		if ext != "" && !strings.HasSuffix(d.Name(), ext) {
			return nil
		}
		if term != "" && !strings.Contains(strings.ToLower(d.Name()), strings.ToLower(term)) {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return nil
		}
		records = append(records, entryRecord(p, info))
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("search %s: %w", rel, err)
	}
	return records, nil
}

func (b *Backend) readFile(rel string) ([]*gateway.Record, error) {
	info, err := fs.Stat(b.fsys, rel)
	if err != nil {
		return nil, fmt.Errorf("stat %s: %w", rel, err)
	}
	// Validate already checked the ceiling, but the file may have grown
	// between validation and execution.
	if info.Size() > b.cfg.MaxFileSize {
		return nil, fmt.Errorf("file %s is %d bytes, exceeding the %d byte ceiling", rel, info.Size(), b.cfg.MaxFileSize)
	}

	content, err := fs.ReadFile(b.fsys, rel)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", rel, err)
	}

	rec := gateway.NewRecord()
	rec.Set("path", rel)
	rec.Set("content", string(content))
	rec.Set("size", info.Size())
	rec.Set("encoding", "utf-8")
	return []*gateway.Record{rec}, nil
}

func (b *Backend) fileInfo(rel string) ([]*gateway.Record, error) {
	info, err := fs.Stat(b.fsys, rel)
	if err != nil {
		return nil, fmt.Errorf("stat %s: %w", rel, err)
	}
	return []*gateway.Record{entryRecord(rel, info)}, nil
}

func entryRecord(p string, info fs.FileInfo) *gateway.Record {
	rec := gateway.NewRecord()
	rec.Set("name", info.Name())
	rec.Set("path", p)
	entryType := "file"
	if info.IsDir() {
		entryType = "directory"
	}
	rec.Set("type", entryType)
	rec.Set("size", info.Size())
	rec.Set("modified", info.ModTime().UTC().Format(time.RFC3339))
	rec.Set("extension", path.Ext(info.Name()))
	return rec
}
