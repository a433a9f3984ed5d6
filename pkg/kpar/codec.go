package kpar

import (
	"bytes"
	"fmt"
	"io"

	"github.com/dsnet/compress/bzip2"
	"github.com/klauspost/compress/flate"
	"github.com/klauspost/compress/zstd"
	"github.com/ulikunitz/xz"
)

// compress encodes data with the given method. Ppmd is recognized as a
// valid tag but this build carries no encoder for it.
func compress(method Method, data []byte) ([]byte, error) {
	switch method {
	case Store:
		return data, nil
	case Deflate:
		var buf bytes.Buffer
		w, err := flate.NewWriter(&buf, flate.DefaultCompression)
		if err != nil {
			return nil, err
		}
		if _, err := w.Write(data); err != nil {
			w.Close()
			return nil, err
		}
		if err := w.Close(); err != nil {
			return nil, err
		}
		return buf.Bytes(), nil
	case Bzip2:
		var buf bytes.Buffer
		w, err := bzip2.NewWriter(&buf, &bzip2.WriterConfig{Level: bzip2.DefaultCompression})
		if err != nil {
			return nil, err
		}
		if _, err := w.Write(data); err != nil {
			w.Close()
			return nil, err
		}
		if err := w.Close(); err != nil {
			return nil, err
		}
		return buf.Bytes(), nil
	case Zstd:
		enc, err := zstd.NewWriter(nil)
		if err != nil {
			return nil, err
		}
		defer enc.Close()
		return enc.EncodeAll(data, nil), nil
	case Xz:
		var buf bytes.Buffer
		w, err := xz.NewWriter(&buf)
		if err != nil {
			return nil, err
		}
		if _, err := w.Write(data); err != nil {
			w.Close()
			return nil, err
		}
		if err := w.Close(); err != nil {
			return nil, err
		}
		return buf.Bytes(), nil
	case Ppmd:
		return nil, fmt.Errorf("%s: %w", method, ErrUnsupportedCodec)
	default:
		return nil, fmt.Errorf("%s: %w", method, ErrUnsupportedCodec)
	}
}

// decompress decodes a payload, capping output at limit bytes.
func decompress(method Method, data []byte, limit uint64) ([]byte, error) {
	switch method {
	case Store:
		return data, nil
	case Deflate:
		r := flate.NewReader(bytes.NewReader(data))
		defer r.Close()
		return readAllLimited(r, limit)
	case Bzip2:
		r, err := bzip2.NewReader(bytes.NewReader(data), nil)
		if err != nil {
			return nil, err
		}
		defer r.Close()
		return readAllLimited(r, limit)
	case Zstd:
		// Stream through the size cap; DecodeAll would allocate
		// whatever the frame header claims before we could check it.
		dec, err := zstd.NewReader(bytes.NewReader(data))
		if err != nil {
			return nil, err
		}
		defer dec.Close()
		return readAllLimited(dec, limit)
	case Xz:
		r, err := xz.NewReader(bytes.NewReader(data))
		if err != nil {
			return nil, err
		}
		return readAllLimited(r, limit)
	case Ppmd:
		return nil, fmt.Errorf("%s: %w", method, ErrUnsupportedCodec)
	default:
		return nil, fmt.Errorf("%s: %w", method, ErrUnsupportedCodec)
	}
}

func readAllLimited(r io.Reader, limit uint64) ([]byte, error) {
	out, err := io.ReadAll(io.LimitReader(r, int64(limit)+1))
	if err != nil {
		return nil, err
	}
	if uint64(len(out)) > limit {
		return nil, fmt.Errorf("decompressed payload exceeds declared size %d: %w", limit, ErrCorruptArchive)
	}
	return out, nil
}
