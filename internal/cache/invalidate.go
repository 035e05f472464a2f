package cache

import (
	"encoding/json"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

// ClearDir removes the directory and all contents, then recreates it empty.
func ClearDir(dir string) error {
	if strings.TrimSpace(dir) == "" {
		return errors.New("empty dir")
	}
	if err := os.RemoveAll(dir); err != nil {
		return err
	}
	return os.MkdirAll(dir, 0o755)
}

// PurgeByAge removes entries whose SavedAt is older than maxAge. Unreadable or
// malformed meta files are skipped.
func PurgeByAge(dir string, maxAge time.Duration) (int, error) {
	if maxAge <= 0 {
		return 0, nil
	}
	now := time.Now().UTC()
	removed := 0
	err := walkMeta(dir, func(metaPath string) {
		b, err := os.ReadFile(metaPath)
		if err != nil {
			return
		}
		var e Entry
		if err := json.Unmarshal(b, &e); err != nil {
			return
		}
		if now.Sub(e.SavedAt) <= maxAge {
			return
		}
		removed++
		removeEntry(metaPath)
	})
	return removed, err
}

// EnforceLimits evicts least recently used entries until the total body size
// is at most maxBytes and the entry count at most maxEntries. Zero disables
// the respective limit.
func EnforceLimits(dir string, maxBytes int64, maxEntries int) (int, error) {
	if maxBytes <= 0 && maxEntries <= 0 {
		return 0, nil
	}
	type item struct {
		meta  string
		size  int64
		mtime time.Time
	}
	var items []item
	var total int64
	err := walkMeta(dir, func(metaPath string) {
		info, err := os.Stat(bodyFor(metaPath))
		if err != nil {
			return
		}
		items = append(items, item{meta: metaPath, size: info.Size(), mtime: info.ModTime()})
		total += info.Size()
	})
	if err != nil {
		return 0, err
	}
	sort.Slice(items, func(i, j int) bool { return items[i].mtime.Before(items[j].mtime) })

	removed := 0
	for _, it := range items {
		overBytes := maxBytes > 0 && total > maxBytes
		overCount := maxEntries > 0 && len(items)-removed > maxEntries
		if !overBytes && !overCount {
			break
		}
		removeEntry(it.meta)
		total -= it.size
		removed++
	}
	return removed, nil
}

func walkMeta(dir string, fn func(metaPath string)) error {
	if strings.TrimSpace(dir) == "" {
		return errors.New("empty dir")
	}
	return filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return nil
			}
			return err
		}
		if d.IsDir() || !strings.HasSuffix(d.Name(), ".meta.json") {
			return nil
		}
		fn(path)
		return nil
	})
}

func bodyFor(metaPath string) string {
	return strings.TrimSuffix(metaPath, ".meta.json") + ".body"
}

func removeEntry(metaPath string) {
	_ = os.Remove(metaPath)
	_ = os.Remove(bodyFor(metaPath))
}
