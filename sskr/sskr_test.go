package sskr

import (
	"bytes"
	"errors"
	"testing"
)

func secretOf(n int) []byte {
	b := make([]byte, n)
	for i := range b {
		b[i] = byte(0xa0 + i)
	}
	return b
}

func TestSplitRecover_AnyThresholdSubset(t *testing.T) {
	var s Splitter
	for _, size := range []int{16, 24, 32} {
		secret := secretOf(size)
		shares, err := s.Split(secret, 3, 5)
		if err != nil {
			t.Fatalf("Split(%d): %v", size, err)
		}
		if len(shares) != 5 {
			t.Fatalf("expected 5 shares, got %d", len(shares))
		}
		subsets := [][]int{{0, 1, 2}, {2, 3, 4}, {0, 2, 4}, {4, 1, 3}, {0, 1, 2, 3, 4}}
		for _, idx := range subsets {
			var pick [][]byte
			for _, i := range idx {
				pick = append(pick, shares[i])
			}
			got, err := s.Recover(pick)
			if err != nil {
				t.Fatalf("Recover(%v): %v", idx, err)
			}
			if !bytes.Equal(got, secret) {
				t.Fatalf("Recover(%v) mismatch for %d-byte secret", idx, size)
			}
		}
	}
}

func TestRecover_BelowThreshold(t *testing.T) {
	var s Splitter
	shares, err := s.Split(secretOf(32), 3, 5)
	if err != nil {
		t.Fatalf("Split: %v", err)
	}
	_, err = s.Recover(shares[:2])
	if !errors.Is(err, ErrInsufficientShares) {
		t.Fatalf("expected ErrInsufficientShares, got %v", err)
	}
	// Duplicates do not count toward the threshold.
	_, err = s.Recover([][]byte{shares[0], shares[0], shares[1]})
	if !errors.Is(err, ErrInsufficientShares) {
		t.Fatalf("expected ErrInsufficientShares with duplicates, got %v", err)
	}
}

func TestRecover_RejectsMixedSplits(t *testing.T) {
	s := Splitter{Rand: bytes.NewReader(append([]byte{0, 1}, make([]byte, 256)...))}
	a, err := s.Split(secretOf(16), 2, 3)
	if err != nil {
		t.Fatalf("Split a: %v", err)
	}
	s2 := Splitter{Rand: bytes.NewReader(append([]byte{0, 2}, make([]byte, 256)...))}
	b, err := s2.Split(secretOf(16), 2, 3)
	if err != nil {
		t.Fatalf("Split b: %v", err)
	}
	if _, err := (Splitter{}).Recover([][]byte{a[0], b[1]}); !errors.Is(err, ErrMismatchedShares) {
		t.Fatalf("expected ErrMismatchedShares, got %v", err)
	}
}

func TestSplit_ValidatesArguments(t *testing.T) {
	var s Splitter
	cases := []struct {
		secret           []byte
		threshold, count int
		want             error
	}{
		{secretOf(15), 2, 3, ErrInvalidSecret},
		{secretOf(17), 2, 3, ErrInvalidSecret},
		{secretOf(34), 2, 3, ErrInvalidSecret},
		{secretOf(16), 0, 3, ErrInvalidThreshold},
		{secretOf(16), 4, 3, ErrInvalidThreshold},
		{secretOf(16), 2, 17, ErrInvalidThreshold},
	}
	for _, c := range cases {
		if _, err := s.Split(c.secret, c.threshold, c.count); !errors.Is(err, c.want) {
			t.Fatalf("Split(len=%d, %d of %d): got %v want %v", len(c.secret), c.threshold, c.count, err, c.want)
		}
	}
}

func TestRecover_RejectsMalformed(t *testing.T) {
	var s Splitter
	shares, err := s.Split(secretOf(16), 1, 1)
	if err != nil {
		t.Fatalf("Split: %v", err)
	}
	got, err := s.Recover(shares)
	if err != nil || !bytes.Equal(got, secretOf(16)) {
		t.Fatalf("1-of-1 recover: %v", err)
	}
	bad := append([]byte(nil), shares[0]...)
	bad[0] = 9
	if _, err := s.Recover([][]byte{bad}); !errors.Is(err, ErrMalformedShare) {
		t.Fatalf("expected ErrMalformedShare, got %v", err)
	}
	if _, err := s.Recover([][]byte{shares[0][:10]}); !errors.Is(err, ErrMalformedShare) {
		t.Fatalf("expected ErrMalformedShare for truncated share, got %v", err)
	}
}
