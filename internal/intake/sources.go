package intake

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"path"

	"github.com/muhammadolammi/atsresume/internal/session"
	"github.com/muhammadolammi/atsresume/internal/storage"
)

const (
	SourceUpload = "upload"
	SourceR2     = "r2"
)

// FromMultipart turns uploaded form files into in-memory handles.
func FromMultipart(headers []*multipart.FileHeader) (Batch, error) {
	batch := Batch{Source: SourceUpload}
	for _, h := range headers {
		f, err := h.Open()
		if err != nil {
			return Batch{}, fmt.Errorf("failed to open upload %s: %w", h.Filename, err)
		}
		data, err := io.ReadAll(f)
		f.Close()
		if err != nil {
			return Batch{}, fmt.Errorf("failed to read upload %s: %w", h.Filename, err)
		}
		batch.Files = append(batch.Files, session.NewMemoryFile(h.Filename, h.Header.Get("Content-Type"), data))
	}
	return batch, nil
}

// ObjectStore is the part of storage.R2 an import needs.
type ObjectStore interface {
	Stat(ctx context.Context, key string) (storage.ObjectInfo, error)
	Object(info storage.ObjectInfo) *storage.ObjectFile
}

// FromObjectStore builds lazy handles for keys. Keys that do not exist are
// reported as rejections; other storage errors abort the import.
func FromObjectStore(ctx context.Context, store ObjectStore, keys []string) (Batch, error) {
	batch := Batch{Source: SourceR2}
	for _, key := range keys {
		info, err := store.Stat(ctx, key)
		if errors.Is(err, storage.ErrObjectNotFound) {
			batch.Rejected = append(batch.Rejected, Rejection{Name: path.Base(key), Reason: ReasonNotFound, Detail: key})
			continue
		}
		if err != nil {
			return Batch{}, err
		}
		batch.Files = append(batch.Files, store.Object(info))
	}
	return batch, nil
}
