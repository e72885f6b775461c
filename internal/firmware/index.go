package firmware

import (
	"os"
	"path/filepath"
	"sync"

	"github.com/elrafoon/ptnet-mgr/internal/logger"
	"github.com/elrafoon/ptnet-mgr/internal/model"
)

// Index maps HWVersion to an ordered set of firmware images keyed by
// FWVersion (spec §3, §4.2). The inner set supports "latest" by maximum key.
type Index struct {
	mu   sync.RWMutex
	byHW map[model.HWVersion]map[model.FWVersion]*MappedImage
}

// LoadIndex walks dir, memory-mapping and parsing every regular file found.
// A file that fails to parse is logged and skipped; the index never rejects
// the whole directory for one bad file (spec §4.2).
func LoadIndex(dir string) (*Index, error) {
	idx := &Index{byHW: make(map[model.HWVersion]map[model.FWVersion]*MappedImage)}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}

	for _, entry := range entries {
		if !entry.Type().IsRegular() {
			continue
		}
		path := filepath.Join(dir, entry.Name())
		img, err := OpenMapped(path)
		if err != nil {
			logger.Warn("firmware: skipping unparseable image", "path", path, "error", err)
			continue
		}
		idx.insert(img)
	}

	return idx, nil
}

func (idx *Index) insert(img *MappedImage) {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	hw := img.Header.HWVersion
	if idx.byHW[hw] == nil {
		idx.byHW[hw] = make(map[model.FWVersion]*MappedImage)
	}
	idx.byHW[hw][img.Header.FWVersion] = img
}

// Lookup returns the image for an exact (HWVersion, FWVersion) pair.
func (idx *Index) Lookup(hw model.HWVersion, fw model.FWVersion) (*MappedImage, bool) {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	group, ok := idx.byHW[hw]
	if !ok {
		return nil, false
	}
	img, ok := group[fw]
	return img, ok
}

// Latest returns the image with the maximum FWVersion for hw (spec §3).
func (idx *Index) Latest(hw model.HWVersion) (*MappedImage, bool) {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	group, ok := idx.byHW[hw]
	if !ok || len(group) == 0 {
		return nil, false
	}
	var best *MappedImage
	var bestVersion model.FWVersion
	first := true
	for v, img := range group {
		if first || bestVersion.Less(v) {
			best, bestVersion, first = img, v, false
		}
	}
	return best, true
}

// Close unmaps every image held by the index.
func (idx *Index) Close() error {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	var firstErr error
	for _, group := range idx.byHW {
		for _, img := range group {
			if err := img.Close(); err != nil && firstErr == nil {
				firstErr = err
			}
		}
	}
	return firstErr
}
