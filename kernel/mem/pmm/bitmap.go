// Package pmm implements the physical frame allocator: a bitmap over every
// frame from physical address 0 up to the end of the highest-addressed usable
// region reported by the bootloader, one bit per 4 KiB frame, 1 meaning
// "in use".
package pmm

import (
	"math/bits"
	"unsafe"

	"github.com/ismobaga/fangaos-sub000/kernel"
	"github.com/ismobaga/fangaos-sub000/kernel/mem"
	ksync "github.com/ismobaga/fangaos-sub000/kernel/sync"
)

// Region describes one entry of the bootloader-reported memory map that the
// allocator should treat as usable RAM.
type Region struct {
	Start  mem.PhysAddr
	Length uint64
}

const wordBits = 64

var errOutOfMemory = &kernel.Error{Module: "pmm", Message: "out of physical memory"}

// Allocator is a thread-safe bitmap physical frame allocator. The zero value
// is not usable; call Init first.
type Allocator struct {
	lock ksync.Spinlock

	bitmap     []uint64
	totalPages uint64
	freePages  uint64
}

// bitmapBytesFor returns the number of bytes required to hold a bitmap with
// one bit per frame for totalPages frames, rounded up to a whole uint64 word.
func bitmapBytesFor(totalPages uint64) uint64 {
	return ((totalPages + wordBits - 1) &^ (wordBits - 1)) >> 3
}

// Init builds the frame bitmap for the frames spanned by regions. It scans
// regions to find the highest addressed byte, sizes the bitmap accordingly,
// locates a region large enough to hold the bitmap itself, marks every frame
// reserved, then clears the bits for frames fully contained in a usable
// region, and finally re-reserves the frames the bitmap occupies.
//
// hhdmOffset is added to the chosen region's physical base to obtain the
// address the bitmap is stored at and accessed through for the lifetime of
// the kernel.
func (a *Allocator) Init(hhdmOffset uintptr, regions []Region) *kernel.Error {
	var highest uint64
	for _, r := range regions {
		if end := uint64(r.Start) + r.Length; end > highest {
			highest = end
		}
	}

	a.totalPages = (highest + uint64(mem.PageSize) - 1) >> mem.PageShift
	requiredBytes := bitmapBytesFor(a.totalPages)
	requiredPages := (requiredBytes + uint64(mem.PageSize) - 1) >> mem.PageShift

	bitmapPhys, ok := findRegionFor(regions, requiredBytes)
	if !ok {
		return &kernel.Error{Module: "pmm", Message: "no usable region large enough for frame bitmap"}
	}

	bitmapWords := requiredBytes >> 3
	bitmapAddr := hhdmOffset + uintptr(bitmapPhys)
	a.bitmap = unsafe.Slice((*uint64)(unsafe.Pointer(bitmapAddr)), bitmapWords)

	// Mark every frame reserved, then free the ones inside a usable
	// region (fully contained, page aligned).
	for i := range a.bitmap {
		a.bitmap[i] = ^uint64(0)
	}
	a.freePages = 0

	for _, r := range regions {
		start := mem.PhysAddr(r.Start).AlignUp(uintptr(mem.PageSize)).Frame()
		end := (mem.PhysAddr(uint64(r.Start) + r.Length)).AlignDown(uintptr(mem.PageSize)).Frame()
		for frame := start; frame < end; frame++ {
			a.clearBit(frame)
		}
	}

	// Re-reserve the frames occupied by the bitmap itself.
	bitmapStartFrame := mem.PhysAddr(bitmapPhys).Frame()
	for i := uint64(0); i < requiredPages; i++ {
		a.setBit(bitmapStartFrame + i)
	}

	return nil
}

// findRegionFor returns the physical base of the first region whose length
// can hold requiredBytes.
func findRegionFor(regions []Region, requiredBytes uint64) (mem.PhysAddr, bool) {
	for _, r := range regions {
		if r.Length >= requiredBytes {
			return r.Start, true
		}
	}
	return 0, false
}

func (a *Allocator) setBit(frame uint64) {
	word, mask := frame/wordBits, uint64(1)<<(frame%wordBits)
	if a.bitmap[word]&mask == 0 {
		a.bitmap[word] |= mask
		if a.freePages > 0 {
			a.freePages--
		}
	}
}

func (a *Allocator) clearBit(frame uint64) {
	word, mask := frame/wordBits, uint64(1)<<(frame%wordBits)
	if a.bitmap[word]&mask != 0 {
		a.bitmap[word] &^= mask
		a.freePages++
	}
}

// AllocFrame reserves and returns the lowest-numbered free frame. It returns
// errOutOfMemory if no frame is free; callers must handle this rather than
// panicking.
func (a *Allocator) AllocFrame() (mem.PhysAddr, *kernel.Error) {
	a.lock.Acquire()
	defer a.lock.Release()

	for word := range a.bitmap {
		if a.bitmap[word] == ^uint64(0) {
			continue
		}
		bit := bits.TrailingZeros64(^a.bitmap[word])
		frame := uint64(word)*wordBits + uint64(bit)
		a.bitmap[word] |= uint64(1) << uint(bit)
		a.freePages--
		return mem.PhysAddr(frame << mem.PageShift), nil
	}

	return 0, errOutOfMemory
}

// FreeFrame releases phys back to the pool. Freeing a frame that is already
// free is a no-op.
func (a *Allocator) FreeFrame(phys mem.PhysAddr) {
	a.lock.Acquire()
	defer a.lock.Release()

	frame := phys.Frame()
	if frame >= a.totalPages {
		return
	}
	a.clearBit(frame)
}

// TotalPages returns the number of frames tracked by the allocator.
func (a *Allocator) TotalPages() uint64 {
	a.lock.Acquire()
	defer a.lock.Release()
	return a.totalPages
}

// FreePages returns the number of currently unreserved frames.
func (a *Allocator) FreePages() uint64 {
	a.lock.Acquire()
	defer a.lock.Release()
	return a.freePages
}

// UsedPages returns the number of currently reserved frames.
func (a *Allocator) UsedPages() uint64 {
	a.lock.Acquire()
	defer a.lock.Release()
	return a.totalPages - a.freePages
}
