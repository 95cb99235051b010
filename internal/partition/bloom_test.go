package partition

import (
	"fmt"
	"testing"
)

func TestBloomFilter_NoFalseNegatives(t *testing.T) {
	bf := newBloomFilter(1000, 0.01)
	for i := 0; i < 1000; i++ {
		bf.add([]byte(fmt.Sprintf("Smith John Allan %d", i)))
	}
	for i := 0; i < 1000; i++ {
		if !bf.mayContain([]byte(fmt.Sprintf("Smith John Allan %d", i))) {
			t.Fatalf("false negative for item %d", i)
		}
	}
}

func TestBloomFilter_FalsePositiveRate(t *testing.T) {
	bf := newBloomFilter(1000, 0.01)
	for i := 0; i < 1000; i++ {
		bf.add([]byte(fmt.Sprintf("in-%d", i)))
	}

	falsePositives := 0
	const lookups = 10000
	for i := 0; i < lookups; i++ {
		if bf.mayContain([]byte(fmt.Sprintf("out-%d", i))) {
			falsePositives++
		}
	}

	// Allow generous slack over the 1% target.
	if rate := float64(falsePositives) / lookups; rate > 0.05 {
		t.Errorf("false positive rate %.4f exceeds 0.05", rate)
	}
	if est := bf.estimatedFPR(); est <= 0 || est > 0.05 {
		t.Errorf("estimated FPR %.4f out of range", est)
	}
}

func TestBloomFilter_Saturation(t *testing.T) {
	bf := newBloomFilter(4, 0.01)
	for i := 0; i < 4; i++ {
		bf.add([]byte{byte(i)})
	}
	if bf.saturated() {
		t.Error("filter at capacity should not report saturated")
	}
	bf.add([]byte{99})
	if !bf.saturated() {
		t.Error("filter over capacity should report saturated")
	}
}

func TestOptimalParameters(t *testing.T) {
	bits, hashes := optimalParameters(1000, 0.01)
	// m ≈ 9586, k ≈ 7
	if bits < 9000 || bits > 10000 {
		t.Errorf("unexpected bit count %d", bits)
	}
	if hashes != 7 {
		t.Errorf("expected 7 hashes, got %d", hashes)
	}
}
