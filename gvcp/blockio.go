package gvcp

import "context"

// ReadMemory reads size bytes starting at address, chunked into
// DataSizeMax-sized exchanges (spec.md §4.3). On any chunk failure the
// whole operation aborts with that chunk's error and the returned
// slice is zero-filled (invariant I4 / property P7).
func (s *Session) ReadMemory(ctx context.Context, address uint32, size int) ([]byte, error) {
	if size < 0 {
		return nil, newErr(InvalidParameter, "ReadMemory", nil)
	}
	out := make([]byte, size)
	offset := 0
	for offset < size {
		chunk := size - offset
		if chunk > DataSizeMax {
			chunk = DataSizeMax
		}
		data, err := s.readMemoryChunk(ctx, address+uint32(offset), chunk)
		if err != nil {
			for i := range out {
				out[i] = 0
			}
			return out, err
		}
		copy(out[offset:offset+chunk], data)
		offset += chunk
	}
	return out, nil
}

// WriteMemory writes buf starting at address, chunked into
// DataSizeMax-sized exchanges. The protocol has no rollback: on the
// first chunk failure the whole operation aborts and the affected
// device range must be treated by the caller as indeterminate
// (spec.md §9(c), DESIGN.md Open Question (c)).
func (s *Session) WriteMemory(ctx context.Context, address uint32, buf []byte) error {
	offset := 0
	for offset < len(buf) {
		chunk := len(buf) - offset
		if chunk > DataSizeMax {
			chunk = DataSizeMax
		}
		if err := s.writeMemoryChunk(ctx, address+uint32(offset), buf[offset:offset+chunk]); err != nil {
			return err
		}
		offset += chunk
	}
	return nil
}

// chunkCount returns ceil(size / DataSizeMax), exposed for tests
// verifying P4 (chunking identity) against a given transfer size.
func chunkCount(size int) int {
	if size <= 0 {
		return 0
	}
	return (size + DataSizeMax - 1) / DataSizeMax
}
