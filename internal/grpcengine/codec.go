// Package grpcengine implements the gRPC wire protocol directly on top of
// HTTP/2, independent of google.golang.org/grpc's own server transport:
// length-prefixed message framing, the four gRPC call shapes (unary,
// server-streaming, client-streaming, bidirectional), trailer-carried
// status codes, and gzip/identity compression negotiation. It reuses
// google.golang.org/grpc's codes and status packages for the status model
// so error codes match the wire protocol exactly, without reusing that
// module's server-side stream machinery.
package grpcengine

import (
	"bytes"
	"compress/gzip"
	"encoding/binary"
	"fmt"
	"io"
)

const (
	// maxFrameLength bounds a single gRPC message to 4 MiB, matching
	// common default limits for unary and streaming gRPC services.
	maxFrameLength = 4 << 20

	flagCompressed = 0x1
)

// writeMessage writes one length-prefixed gRPC message frame: a 1-byte
// compression flag, a 4-byte big-endian length, and the payload. When
// compress is true payload is gzip-compressed before the length is
// computed, per the grpc-encoding negotiation in context.go.
func writeMessage(w io.Writer, compress bool, payload []byte) error {
	body := payload
	flag := byte(0)
	if compress {
		var buf bytes.Buffer
		gz := gzip.NewWriter(&buf)
		if _, err := gz.Write(payload); err != nil {
			return fmt.Errorf("grpcengine: gzip compress: %w", err)
		}
		if err := gz.Close(); err != nil {
			return fmt.Errorf("grpcengine: gzip close: %w", err)
		}
		body = buf.Bytes()
		flag = flagCompressed
	}

	var header [5]byte
	header[0] = flag
	binary.BigEndian.PutUint32(header[1:], uint32(len(body)))

	if _, err := w.Write(header[:]); err != nil {
		return fmt.Errorf("grpcengine: write frame header: %w", err)
	}
	if _, err := w.Write(body); err != nil {
		return fmt.Errorf("grpcengine: write frame payload: %w", err)
	}
	if f, ok := w.(interface{ Flush() }); ok {
		f.Flush()
	}
	return nil
}

// readMessage reads one length-prefixed gRPC message frame, transparently
// gunzipping it when the compression flag is set.
func readMessage(r io.Reader) ([]byte, error) {
	var header [5]byte
	if _, err := io.ReadFull(r, header[:]); err != nil {
		return nil, err // io.EOF propagates to callers as end-of-stream
	}

	length := binary.BigEndian.Uint32(header[1:])
	if length > maxFrameLength {
		return nil, fmt.Errorf("grpcengine: frame length %d exceeds limit %d", length, maxFrameLength)
	}

	payload := make([]byte, length)
	if _, err := io.ReadFull(r, payload); err != nil {
		return nil, fmt.Errorf("grpcengine: read frame payload: %w", err)
	}

	if header[0]&flagCompressed == 0 {
		return payload, nil
	}

	gz, err := gzip.NewReader(bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("grpcengine: gzip reader: %w", err)
	}
	defer gz.Close()
	out, err := io.ReadAll(gz)
	if err != nil {
		return nil, fmt.Errorf("grpcengine: gzip decompress: %w", err)
	}
	return out, nil
}
