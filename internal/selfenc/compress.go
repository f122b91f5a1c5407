package selfenc

import (
	"bytes"
	"io"

	"github.com/andybalholm/brotli"
)

// compress packs data at the deployment-wide CompressionQuality. Compressing
// empty input yields a short but well-formed brotli stream.
func compress(data []byte) ([]byte, *Error) {
	var buf bytes.Buffer
	w := brotli.NewWriterLevel(&buf, CompressionQuality)
	if _, err := w.Write(data); err != nil {
		return nil, compressionErr(err)
	}
	if err := w.Close(); err != nil {
		return nil, compressionErr(err)
	}
	return buf.Bytes(), nil
}

// decompress is the exact inverse of compress.
func decompress(data []byte) ([]byte, *Error) {
	r := brotli.NewReader(bytes.NewReader(data))
	out, err := io.ReadAll(r)
	if err != nil {
		return nil, compressionErr(err)
	}
	return out, nil
}
