package firmware

import (
	"fmt"
	"os"

	"golang.org/x/sys/unix"

	"github.com/elrafoon/ptnet-mgr/internal/ptneterr"
)

// MappedImage is a firmware image backed by a memory-mapped file (spec
// §4.2). Close unmaps the region; after Close, Image.Payload must not be
// read.
type MappedImage struct {
	Image
	data []byte
	file *os.File
}

// OpenMapped memory-maps path and parses the firmware container found there
// (spec §4.2's "typically memory-mapped" container).
func OpenMapped(path string) (*MappedImage, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("firmware: open %s: %w: %v", path, ptneterr.ErrIO, err)
	}

	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("firmware: stat %s: %w: %v", path, ptneterr.ErrIO, err)
	}
	if info.Size() == 0 {
		f.Close()
		return nil, verifyErr(ErrHeaderMagicNotPresent)
	}

	data, err := unix.Mmap(int(f.Fd()), 0, int(info.Size()), unix.PROT_READ, unix.MAP_SHARED)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("firmware: mmap %s: %w: %v", path, ptneterr.ErrIO, err)
	}

	img, err := Parse(data)
	if err != nil {
		unix.Munmap(data)
		f.Close()
		return nil, err
	}

	return &MappedImage{Image: *img, data: data, file: f}, nil
}

// Close unmaps the backing file.
func (m *MappedImage) Close() error {
	if err := unix.Munmap(m.data); err != nil {
		return fmt.Errorf("firmware: munmap: %w: %v", ptneterr.ErrIO, err)
	}
	return m.file.Close()
}
