package fsquery

import (
	"context"
	"io/fs"
	"path"
	"time"

	"github.com/jatzz10/mcp-gateway/gateway"
)

// Metadata scans the tree up to the configured depth and produces the
// directory structure plus per-extension file statistics. The file count is
// the refresh summary count.
func (b *Backend) Metadata(ctx context.Context) (gateway.Metadata, error) {
	stats := &treeStats{extensions: make(map[string]int)}
	structure, err := b.scanDir(ctx, ".", 0, stats)
	if err != nil {
		return gateway.Metadata{}, err
	}

	return gateway.Metadata{
		GeneratedAt: time.Now().UTC(),
		Count:       stats.files,
		Payload: map[string]any{
			"root":        b.cfg.Root,
			"structure":   structure,
			"total_files": stats.files,
			"total_dirs":  stats.dirs,
			"total_size":  stats.bytes,
			"extensions":  stats.extensions,
		},
	}, nil
}

type treeStats struct {
	files      int
	dirs       int
	bytes      int64
	extensions map[string]int
}

func (b *Backend) scanDir(ctx context.Context, rel string, depth int, stats *treeStats) (map[string]any, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	node := map[string]any{"type": "directory"}
	if depth >= b.cfg.MaxDepth {
		node["truncated"] = true
		return node, nil
	}

	entries, err := fs.ReadDir(b.fsys, rel)
	if err != nil {
		// Unreadable directories appear as empty nodes rather than failing
		// the whole scan.
		return node, nil
	}

	children := make(map[string]any)
	for _, entry := range entries {
		if b.skip(entry.Name()) {
			continue
		}
		childPath := path.Join(rel, entry.Name())
		if entry.IsDir() {
			stats.dirs++
			child, err := b.scanDir(ctx, childPath, depth+1, stats)
			if err != nil {
				return nil, err
			}
			children[entry.Name()] = child
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		stats.files++
		stats.bytes += info.Size()
		stats.extensions[path.Ext(entry.Name())]++
		children[entry.Name()] = map[string]any{
			"type": "file",
			"size": info.Size(),
		}
	}
	if len(children) > 0 {
		node["children"] = children
	}
	return node, nil
}

// HealthCheck verifies the root is still readable.
func (b *Backend) HealthCheck(ctx context.Context) gateway.Health {
	if _, err := fs.ReadDir(b.fsys, "."); err != nil {
		return gateway.Health{Status: "unhealthy", Detail: err.Error()}
	}
	return gateway.Health{Status: "healthy"}
}

// Close is a no-op; the backend holds no connection.
func (b *Backend) Close() error {
	return nil
}
