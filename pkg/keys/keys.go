// Package keys derives the deterministic, ≥1, 64-bit index keys for the
// three compressible relations, per spec.md §3. Carried as uint64
// end-to-end (spec.md §9) to avoid the original implementation's 32/64-bit
// arithmetic mixing.
package keys

func Stock(wID, iID int32) uint64 {
	return uint64(uint32(wID))<<32 | uint64(uint32(iID))
}

func Customer(wID, dID, cID int32) uint64 {
	return uint64(uint32(wID))<<48 | uint64(uint32(dID))<<32 | uint64(uint32(cID))
}

func OrderLine(wID, dID, oID, number int32) uint64 {
	return uint64(uint32(wID))<<56 | uint64(uint32(dID))<<48 | uint64(uint32(oID))<<8 | uint64(uint32(number))
}
