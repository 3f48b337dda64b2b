package gpu

import "github.com/zsiec/compositor/videoformat"

// StipplePattern returns the exact 128-byte (32 rows × 4 bytes = 32×32
// bits) polygon stipple mask for mode, per spec §6: a strict even/odd
// scanline mask. The upper mask sets every even row to four bytes of
// 0xFF (draw) and every odd row to four bytes of 0x00 (skip); the lower
// mask is the bitwise complement. Progressive has no stipple pattern —
// callers must call DisableStipple instead of EnableStipple for it.
func StipplePattern(mode videoformat.FieldMode) [128]byte {
	var pattern [128]byte
	for row := 0; row < 32; row++ {
		base := row * 4
		on := row%2 == 0
		if mode == videoformat.Lower {
			on = !on
		}
		var b byte
		if on {
			b = 0xFF
		}
		pattern[base+0] = b
		pattern[base+1] = b
		pattern[base+2] = b
		pattern[base+3] = b
	}
	return pattern
}
