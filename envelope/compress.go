package envelope

import (
	"github.com/klauspost/compress/zstd"
)

// maxDecompressedSize bounds the memory a single decompression may use.
const maxDecompressedSize = 64 << 20

var (
	zstdEncoder *zstd.Encoder
	zstdDecoder *zstd.Decoder
)

func init() {
	var err error
	zstdEncoder, err = zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedBestCompression))
	if err != nil {
		panic(err)
	}
	zstdDecoder, err = zstd.NewReader(nil, zstd.WithDecoderMaxMemory(maxDecompressedSize))
	if err != nil {
		panic(err)
	}
}

// Compress replaces e with a compressed placeholder of the same digest.
// Compressing an obscured envelope returns it unchanged.
func (e *Envelope) Compress() *Envelope {
	if e.IsObscured() {
		return e
	}
	return newCompressed(e.digest, zstdEncoder.EncodeAll(e.Encode(), nil))
}

// Uncompress reverses Compress. The result must hash to the stored digest.
func (e *Envelope) Uncompress() (*Envelope, error) {
	if e.kind != CaseCompressed {
		return nil, newError(KindInvalidStructure, "ENV-COMPRESS-001", "envelope is not compressed")
	}
	return inflate(e)
}

func inflate(e *Envelope) (*Envelope, error) {
	raw, err := zstdDecoder.DecodeAll(e.compressed, nil)
	if err != nil {
		return nil, wrapError(KindMalformedInput, "ENV-COMPRESS-002", "cannot decompress", err)
	}
	out, err := Decode(raw)
	if err != nil {
		return nil, err
	}
	if out.digest != e.digest {
		return nil, newError(KindDigestMismatch, "ENV-COMPRESS-003", "decompressed content does not match stored digest")
	}
	return out, nil
}

// CompressSubject compresses only the subject.
func (e *Envelope) CompressSubject() *Envelope {
	subj := e.Subject()
	c := subj.Compress()
	if c == subj {
		return e
	}
	return e.ReplaceSubject(c)
}

// UncompressSubject reverses CompressSubject.
func (e *Envelope) UncompressSubject() (*Envelope, error) {
	subj, err := e.Subject().Uncompress()
	if err != nil {
		return nil, err
	}
	return e.ReplaceSubject(subj), nil
}

// UncompressAll expands every compressed placeholder in the tree.
func (e *Envelope) UncompressAll() (*Envelope, error) {
	return e.transform(func(n *Envelope) (*Envelope, bool, error) {
		if n.kind != CaseCompressed {
			return n, false, nil
		}
		out, err := inflate(n)
		return out, true, err
	})
}
