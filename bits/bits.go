// Package bits provides the primitive field-extraction and mask operations
// that the instruction codec and ISA catalog build on.
package bits

// Extract returns the width-bit field of v starting at bit start, shifted
// down to bit 0. Total on all inputs; compiles to a shift and a mask.
func Extract(v uint32, start, width uint) uint32 {
	return (v >> start) & Mask(0, width)
}

// Mask returns a width-bit mask of ones positioned at bit start.
func Mask(start, width uint) uint32 {
	if width >= 32 {
		// 1<<32 is a shift by the full register width, which Go leaves
		// undefined; every real caller passes width <= 21, so this only
		// guards against that UB rather than serving a real width.
		return ^uint32(0) << start
	}
	return ((uint32(1) << width) - 1) << start
}

// Range extracts the inclusive bit range [lo, hi] of v, shifted down to bit 0.
// Equivalent to Extract(v, lo, hi-lo+1).
func Range(v uint32, hi, lo uint) uint32 {
	return Extract(v, lo, hi-lo+1)
}

// SignExtend sign-extends the low `width` bits of v, treating bit
// (width-1) as the sign bit, and returns the result as a 32-bit two's
// complement value.
func SignExtend(v uint32, width uint) int32 {
	v &= Mask(0, width)
	signBit := uint32(1) << (width - 1)
	if v&signBit != 0 {
		return int32(v | ^Mask(0, width))
	}
	return int32(v)
}
