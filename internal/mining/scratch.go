package mining

import (
	"github.com/edsrzf/mmap-go"
	"github.com/pkg/errors"
)

// scratchBuffer is a worker's preallocated, reused solver scratch space,
// backed by an anonymous mmap region rather than a GC-scanned slice
// (spec §4.2: "re-allocation in the hot loop is forbidden"; SPEC_FULL §B.4).
type scratchBuffer struct {
	region mmap.MMap
}

func newScratchBuffer(size int) (*scratchBuffer, error) {
	region, err := mmap.MapRegion(nil, size, mmap.RDWR, mmap.ANON, 0)
	if err != nil {
		return nil, errors.Wrap(err, "mining: mmap scratch buffer")
	}
	return &scratchBuffer{region: region}, nil
}

func (s *scratchBuffer) bytes() []byte { return s.region }

func (s *scratchBuffer) close() error {
	return errors.Wrap(s.region.Unmap(), "mining: unmap scratch buffer")
}
