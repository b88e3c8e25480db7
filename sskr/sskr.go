// Package sskr splits secrets into threshold shares (Shamir's scheme over ristretto255
// scalars) and recovers them.
//
// A secret of 16 to 32 bytes (even length) is cut into 16-byte chunks, each shared
// independently with the same polynomial degree. Every share carries a header so that shares
// from different splits are never mixed:
//
//	version(1) | identifier(2) | threshold(1) | count(1) | index(1) | secretLen(1) | scalar(32)...
package sskr

import (
	"crypto/rand"
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"github.com/cloudflare/circl/group"
	"github.com/cloudflare/circl/secretsharing"
)

const (
	MinSecretSize = 16
	MaxSecretSize = 32
	MaxShares     = 16

	version    = 1
	chunkSize  = 16
	headerSize = 7
	scalarSize = 32
)

var (
	ErrInvalidSecret      = errors.New("sskr: secret must be 16 to 32 bytes of even length")
	ErrInvalidThreshold   = errors.New("sskr: threshold must be between 1 and count, count at most 16")
	ErrInsufficientShares = errors.New("sskr: not enough shares to meet the threshold")
	ErrMalformedShare     = errors.New("sskr: malformed share")
	ErrMismatchedShares   = errors.New("sskr: shares come from different splits")
)

// Splitter implements envelope.ThresholdScheme. The zero value reads randomness from
// crypto/rand.
type Splitter struct {
	// Rand supplies the split identifier. Nil means crypto/rand.
	Rand io.Reader
}

func (s Splitter) rand() io.Reader {
	if s.Rand != nil {
		return s.Rand
	}
	return rand.Reader
}

// Split returns count shares of secret, any threshold of which recover it.
func (s Splitter) Split(secret []byte, threshold, count int) ([][]byte, error) {
	if len(secret) < MinSecretSize || len(secret) > MaxSecretSize || len(secret)%2 != 0 {
		return nil, ErrInvalidSecret
	}
	if threshold < 1 || count < threshold || count > MaxShares {
		return nil, ErrInvalidThreshold
	}
	var id [2]byte
	if _, err := io.ReadFull(s.rand(), id[:]); err != nil {
		return nil, fmt.Errorf("sskr: identifier: %w", err)
	}

	chunks := (len(secret) + chunkSize - 1) / chunkSize
	out := make([][]byte, count)
	for i := range out {
		out[i] = make([]byte, headerSize, headerSize+chunks*scalarSize)
		out[i][0] = version
		copy(out[i][1:3], id[:])
		out[i][3] = byte(threshold)
		out[i][4] = byte(count)
		out[i][5] = byte(i + 1)
		out[i][6] = byte(len(secret))
	}

	for c := 0; c < chunks; c++ {
		var buf [scalarSize]byte
		end := (c + 1) * chunkSize
		if end > len(secret) {
			end = len(secret)
		}
		copy(buf[:], secret[c*chunkSize:end])
		k := group.Ristretto255.NewScalar()
		if err := k.UnmarshalBinary(buf[:]); err != nil {
			return nil, fmt.Errorf("sskr: secret chunk: %w", err)
		}
		ss := secretsharing.New(s.rand(), uint(threshold-1), k)
		for i, sh := range ss.Share(uint(count)) {
			v, err := sh.Value.MarshalBinary()
			if err != nil {
				return nil, fmt.Errorf("sskr: share value: %w", err)
			}
			out[i] = append(out[i], v...)
		}
	}
	return out, nil
}

type header struct {
	id        uint16
	threshold int
	count     int
	index     int
	secretLen int
}

func parseShare(b []byte) (header, [][]byte, error) {
	if len(b) < headerSize || b[0] != version {
		return header{}, nil, ErrMalformedShare
	}
	h := header{
		id:        binary.BigEndian.Uint16(b[1:3]),
		threshold: int(b[3]),
		count:     int(b[4]),
		index:     int(b[5]),
		secretLen: int(b[6]),
	}
	if h.threshold < 1 || h.count < h.threshold || h.index < 1 || h.index > h.count ||
		h.secretLen < MinSecretSize || h.secretLen > MaxSecretSize {
		return header{}, nil, ErrMalformedShare
	}
	chunks := (h.secretLen + chunkSize - 1) / chunkSize
	body := b[headerSize:]
	if len(body) != chunks*scalarSize {
		return header{}, nil, ErrMalformedShare
	}
	vals := make([][]byte, chunks)
	for c := range vals {
		vals[c] = body[c*scalarSize : (c+1)*scalarSize]
	}
	return h, vals, nil
}

// Recover rebuilds the secret from at least threshold distinct shares of one split.
// Duplicate shares are ignored.
func (Splitter) Recover(shares [][]byte) ([]byte, error) {
	if len(shares) == 0 {
		return nil, ErrInsufficientShares
	}
	var first header
	seen := make(map[int]bool)
	var headers []header
	var values [][][]byte
	for i, raw := range shares {
		h, vals, err := parseShare(raw)
		if err != nil {
			return nil, err
		}
		if i == 0 {
			first = h
		} else if h.id != first.id || h.threshold != first.threshold || h.count != first.count || h.secretLen != first.secretLen {
			return nil, ErrMismatchedShares
		}
		if seen[h.index] {
			continue
		}
		seen[h.index] = true
		headers = append(headers, h)
		values = append(values, vals)
	}
	if len(headers) < first.threshold {
		return nil, ErrInsufficientShares
	}

	chunks := len(values[0])
	secret := make([]byte, 0, chunks*chunkSize)
	for c := 0; c < chunks; c++ {
		ss := make([]secretsharing.Share, len(headers))
		for i, h := range headers {
			id := group.Ristretto255.NewScalar().SetUint64(uint64(h.index))
			v := group.Ristretto255.NewScalar()
			if err := v.UnmarshalBinary(values[i][c]); err != nil {
				return nil, ErrMalformedShare
			}
			ss[i] = secretsharing.Share{ID: id, Value: v}
		}
		k, err := secretsharing.Recover(uint(first.threshold-1), ss)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInsufficientShares, err)
		}
		b, err := k.MarshalBinary()
		if err != nil {
			return nil, fmt.Errorf("sskr: recovered chunk: %w", err)
		}
		secret = append(secret, b[:chunkSize]...)
	}
	return secret[:first.secretLen], nil
}
