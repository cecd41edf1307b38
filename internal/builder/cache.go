package builder

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// CacheFilename holds the change-detection cache inside the build directory.
const CacheFilename = "crank_cache.json"

// changeCache maps absolute file paths to the modification time last seen
// for them, in Unix nanoseconds. It is loaded when the Builder is created
// and written back only after a build has run to completion.
type changeCache struct {
	times map[string]int64
}

func loadChangeCache(buildDir string) (*changeCache, error) {
	cache := &changeCache{times: make(map[string]int64)}

	f, err := os.Open(filepath.Join(buildDir, CacheFilename))
	if err != nil {
		if os.IsNotExist(err) {
			return cache, nil // first build, nothing recorded yet
		}
		return nil, err
	}
	defer f.Close()

	var loaded map[string]int64
	if err := json.NewDecoder(bufio.NewReader(f)).Decode(&loaded); err != nil {
		return nil, fmt.Errorf("failed to read change cache: %w", err)
	}
	// recorded times never move backward
	for path, t := range loaded {
		if prev, ok := cache.times[path]; !ok || t > prev {
			cache.times[path] = t
		}
	}
	return cache, nil
}

func (c *changeCache) Save(buildDir string) error {
	f, err := os.Create(filepath.Join(buildDir, CacheFilename))
	if err != nil {
		return err
	}
	defer f.Close()

	bufw := bufio.NewWriter(f)
	defer bufw.Flush()

	enc := json.NewEncoder(bufw)
	enc.SetIndent("", "  ")
	return enc.Encode(c.times)
}

// IsUpdated reports whether path changed since it was last recorded and, if
// so, records the new modification time. The time is refreshed before the
// compile that follows runs, so a failed compile still leaves the file
// looking fresh on the next invocation.
func (c *changeCache) IsUpdated(path string) (bool, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return false, err
	}

	stat, err := os.Stat(abs)
	if err != nil {
		return false, fmt.Errorf("failed to stat %s: %w", abs, err)
	}
	mtime := stat.ModTime().UnixNano()

	if prev, ok := c.times[abs]; ok && mtime <= prev {
		return false, nil
	}
	c.times[abs] = mtime
	return true, nil
}
