package semaphores

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"

	"github.com/vmihailenco/msgpack/v5"
)

// MsgpackCodec encodes protocol messages with MessagePack.
type MsgpackCodec struct{}

func (MsgpackCodec) Marshal(v interface{}) ([]byte, error) {
	return msgpack.Marshal(v)
}

func (MsgpackCodec) Unmarshal(data []byte, v interface{}) error {
	return msgpack.Unmarshal(data, v)
}

const (
	frameHeaderSize = 4
	framePoolBuf    = 4096
	// maxFrameSize bounds a single message; calls and replies are tiny.
	maxFrameSize = 1 << 20
)

// FrameTransport sends messages as a 4-byte big-endian length followed by the
// body.
type FrameTransport struct {
	r    io.Reader
	w    *bufio.Writer
	c    []io.Closer
	pool *framePool
}

// NewFrameTransport frames messages over r and w. Close closes whichever of
// them implement io.Closer.
func NewFrameTransport(r io.Reader, w io.Writer) *FrameTransport {
	ft := &FrameTransport{
		r:    r,
		w:    bufio.NewWriter(w),
		pool: newFramePool(framePoolBuf, 4),
	}
	for _, x := range []interface{}{r, w} {
		if c, ok := x.(io.Closer); ok {
			ft.c = append(ft.c, c)
		}
	}
	return ft
}

func (ft *FrameTransport) Send(data []byte) error {
	if len(data) > maxFrameSize {
		return fmt.Errorf("frame of %d bytes exceeds limit of %d", len(data), maxFrameSize)
	}
	var hdr [frameHeaderSize]byte
	binary.BigEndian.PutUint32(hdr[:], uint32(len(data)))
	if _, err := ft.w.Write(hdr[:]); err != nil {
		return err
	}
	if _, err := ft.w.Write(data); err != nil {
		return err
	}
	return ft.w.Flush()
}

func (ft *FrameTransport) Receive() ([]byte, error) {
	var hdr [frameHeaderSize]byte
	if _, err := io.ReadFull(ft.r, hdr[:]); err != nil {
		return nil, err
	}
	length := binary.BigEndian.Uint32(hdr[:])
	if length > maxFrameSize {
		return nil, fmt.Errorf("frame of %d bytes exceeds limit of %d", length, maxFrameSize)
	}

	if length > uint32(ft.pool.bufSize) {
		data := make([]byte, length)
		if _, err := io.ReadFull(ft.r, data); err != nil {
			return nil, unexpected(err)
		}
		return data, nil
	}

	buf := ft.pool.get()[:length]
	defer ft.pool.put(buf)
	if _, err := io.ReadFull(ft.r, buf); err != nil {
		return nil, unexpected(err)
	}
	data := make([]byte, length)
	copy(data, buf)
	return data, nil
}

// unexpected turns a clean EOF inside a frame body into ErrUnexpectedEOF.
func unexpected(err error) error {
	if err == io.EOF {
		return io.ErrUnexpectedEOF
	}
	return err
}

func (ft *FrameTransport) Close() error {
	var first error
	for _, c := range ft.c {
		if err := c.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}
