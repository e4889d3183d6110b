package session

import (
	"bytes"
	"context"
	"io"
)

// File is an opaque handle to an uploaded résumé. The store keeps handles by
// reference and never reads their contents.
type File interface {
	Name() string
	MediaType() string
	Size() int64
	Open(ctx context.Context) (io.ReadCloser, error)
}

// MemoryFile is a File backed by bytes already held in memory, as produced by
// a multipart upload.
type MemoryFile struct {
	name      string
	mediaType string
	data      []byte
}

func NewMemoryFile(name, mediaType string, data []byte) *MemoryFile {
	return &MemoryFile{name: name, mediaType: mediaType, data: data}
}

func (f *MemoryFile) Name() string      { return f.name }
func (f *MemoryFile) MediaType() string { return f.mediaType }
func (f *MemoryFile) Size() int64       { return int64(len(f.data)) }

func (f *MemoryFile) Open(_ context.Context) (io.ReadCloser, error) {
	return io.NopCloser(bytes.NewReader(f.data)), nil
}
