package fgmem

import (
	"github.com/Lint111/framealloc/memutils"
	"github.com/pkg/errors"
)

// MemoryRequirement describes what a candidate offers or what a request
// needs: a size in bytes, a minimum alignment, and a bitmask of backing
// memory types the resource is compatible with.
type MemoryRequirement struct {
	// SizeBytes is the size of the allocation in bytes
	SizeBytes int
	// Alignment is the minimum alignment of the allocation and must be a
	// power of two. 0 is treated as 1 (no alignment requirement).
	Alignment uint
	// CompatibleTypeMask is a bitmask in which each set bit represents a
	// backing memory type this resource can live in. Two resources can only
	// share storage when their masks intersect.
	CompatibleTypeMask uint32
}

func (r MemoryRequirement) Validate() error {
	if r.SizeBytes < 0 {
		return errors.Errorf("requirement size is negative: %d", r.SizeBytes)
	}
	if r.CompatibleTypeMask == 0 {
		return errors.New("requirement has an empty compatible type mask")
	}
	return memutils.CheckPow2(r.Alignment, "MemoryRequirement.Alignment")
}

// CanSatisfy reports whether storage described by r could back a new
// allocation described by request: r must be at least as large, its alignment
// must satisfy the requested alignment, and the type masks must intersect.
func (r MemoryRequirement) CanSatisfy(request MemoryRequirement) bool {
	if r.SizeBytes < request.SizeBytes {
		return false
	}
	if r.CompatibleTypeMask&request.CompatibleTypeMask == 0 {
		return false
	}
	return alignmentSatisfies(r.Alignment, request.Alignment)
}

// alignmentSatisfies reports whether storage aligned to have can be used for a
// request that needs need. For power-of-two alignments a larger alignment
// always satisfies a smaller one; the divisibility check keeps the answer
// honest if a caller ever slips in something else.
func alignmentSatisfies(have, need uint) bool {
	if need <= 1 {
		return true
	}
	if have < need {
		return false
	}
	return memutils.IsAligned(int(have), need)
}
