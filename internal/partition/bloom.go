package partition

import (
	"math"

	"github.com/spaolacci/murmur3"
)

// bloomFilter is a membership filter over canonical record lines.
// It is not safe for concurrent use; the owning sink's lock guards it.
type bloomFilter struct {
	bits      []uint64
	numBits   uint64
	numHashes uint64
	count     uint64
	capacity  uint64
	targetFPR float64
}

// newBloomFilter sizes a filter for expectedItems at the target false
// positive rate.
func newBloomFilter(expectedItems int, targetFPR float64) *bloomFilter {
	if expectedItems <= 0 {
		expectedItems = 1024
	}
	if targetFPR <= 0 || targetFPR >= 1 {
		targetFPR = 0.01
	}

	numBits, numHashes := optimalParameters(expectedItems, targetFPR)
	numWords := (numBits + 63) / 64

	return &bloomFilter{
		bits:      make([]uint64, numWords),
		numBits:   uint64(numWords * 64),
		numHashes: uint64(numHashes),
		capacity:  uint64(expectedItems),
		targetFPR: targetFPR,
	}
}

// optimalParameters returns bit and hash counts for n items at rate p:
//   - m = -n * ln(p) / (ln(2)^2)
//   - k = (m/n) * ln(2)
func optimalParameters(expectedItems int, targetFPR float64) (numBits, numHashes int) {
	n := float64(expectedItems)
	m := -n * math.Log(targetFPR) / (math.Ln2 * math.Ln2)
	k := (m / n) * math.Ln2

	numBits = int(math.Ceil(m))
	numHashes = int(math.Ceil(k))
	if numBits < 64 {
		numBits = 64
	}
	if numHashes < 1 {
		numHashes = 1
	}
	return numBits, numHashes
}

func (bf *bloomFilter) add(item []byte) {
	h1, h2 := murmur3.Sum128(item)
	for i := uint64(0); i < bf.numHashes; i++ {
		pos := (h1 + i*h2) % bf.numBits
		bf.bits[pos/64] |= 1 << (pos % 64)
	}
	bf.count++
}

// mayContain never returns false for an added item.
func (bf *bloomFilter) mayContain(item []byte) bool {
	h1, h2 := murmur3.Sum128(item)
	for i := uint64(0); i < bf.numHashes; i++ {
		pos := (h1 + i*h2) % bf.numBits
		if bf.bits[pos/64]&(1<<(pos%64)) == 0 {
			return false
		}
	}
	return true
}

// saturated reports whether the filter holds more items than it was sized
// for, at which point the false positive rate drifts above target.
func (bf *bloomFilter) saturated() bool {
	return bf.count > bf.capacity
}

// estimatedFPR is (1 - e^(-k*n/m))^k.
func (bf *bloomFilter) estimatedFPR() float64 {
	if bf.count == 0 {
		return 0
	}
	k := float64(bf.numHashes)
	n := float64(bf.count)
	m := float64(bf.numBits)
	return math.Pow(1-math.Exp(-k*n/m), k)
}
