package util

import (
	"bytes"
	"sync"
)

// maxPooledBuffer is the largest capacity a buffer may have to go back into the pool.
const maxPooledBuffer = 4 << 20

var bytesBuffer = sync.Pool{
	New: func() interface{} { return new(bytes.Buffer) },
}

// GetBytesBuffer returns an empty buffer. Hand it back with PutBytesBuffer.
func GetBytesBuffer() *bytes.Buffer {
	buf := bytesBuffer.Get().(*bytes.Buffer)
	buf.Reset()
	return buf
}

func PutBytesBuffer(buf *bytes.Buffer) {
	if buf == nil || buf.Cap() > maxPooledBuffer {
		return
	}
	bytesBuffer.Put(buf)
}
