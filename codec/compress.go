package codec

import (
	"bytes"
	"compress/flate"
	"io"

	"github.com/klauspost/compress/zstd"
	"github.com/pkg/errors"
)

// Compressor compresses and uncompresses encoded bundles.
type Compressor interface {
	Compress([]byte) ([]byte, error)
	Uncompress([]byte) ([]byte, error)
}

// Compression identifiers, recorded in the byte after the magic number.
const (
	None  byte = 0
	Zstd  byte = 1
	Flate byte = 2
)

func compressorFor(id byte) (Compressor, error) {
	switch id {
	case None:
		return noCompression{}, nil
	case Zstd:
		return ZstdCompressor{}, nil
	case Flate:
		return FlateCompressor{Level: flate.DefaultCompression}, nil
	}
	return nil, errors.Errorf("unknown compression %d", id)
}

func idOf(c Compressor) (byte, error) {
	switch c.(type) {
	case noCompression:
		return None, nil
	case ZstdCompressor:
		return Zstd, nil
	case FlateCompressor:
		return Flate, nil
	}
	return 0, errors.Errorf("unregistered compressor %T", c)
}

type noCompression struct{}

func (noCompression) Compress(inp []byte) ([]byte, error)   { return inp, nil }
func (noCompression) Uncompress(inp []byte) ([]byte, error) { return inp, nil }

// ZstdCompressor is the default Compressor.
type ZstdCompressor struct{}

func (ZstdCompressor) Compress(inp []byte) ([]byte, error) {
	enc, err := zstd.NewWriter(nil)
	if err != nil {
		return nil, errors.Wrap(err, "creating zstd encoder")
	}
	defer enc.Close()
	return enc.EncodeAll(inp, nil), nil
}

// MaxDecodedSize bounds the size of an uncompressed bundle.
var MaxDecodedSize uint64 = 1 << 30

func (ZstdCompressor) Uncompress(inp []byte) ([]byte, error) {
	dec, err := zstd.NewReader(nil, zstd.WithDecoderMaxMemory(MaxDecodedSize))
	if err != nil {
		return nil, errors.Wrap(err, "creating zstd decoder")
	}
	defer dec.Close()
	out, err := dec.DecodeAll(inp, nil)
	return out, errors.Wrap(err, "zstd-decoding")
}

// FlateCompressor compresses with DEFLATE.
type FlateCompressor struct {
	Level int
}

func (f FlateCompressor) Compress(inp []byte) ([]byte, error) {
	buf := new(bytes.Buffer)
	level := f.Level
	if level < flate.HuffmanOnly || level > flate.BestCompression {
		level = flate.DefaultCompression
	}
	w, err := flate.NewWriter(buf, level)
	if err != nil {
		return nil, errors.Wrap(err, "creating flate writer")
	}
	if _, err := w.Write(inp); err != nil {
		return nil, errors.Wrap(err, "deflating")
	}
	if err := w.Close(); err != nil {
		return nil, errors.Wrap(err, "deflating")
	}
	return buf.Bytes(), nil
}

func (FlateCompressor) Uncompress(inp []byte) ([]byte, error) {
	rr := flate.NewReader(bytes.NewReader(inp))
	defer rr.Close()
	out, err := io.ReadAll(io.LimitReader(rr, int64(MaxDecodedSize)+1))
	if err != nil {
		return nil, errors.Wrap(err, "inflating")
	}
	if uint64(len(out)) > MaxDecodedSize {
		return nil, errors.Errorf("inflated bundle exceeds %d bytes", MaxDecodedSize)
	}
	return out, nil
}
