package nuxeo

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strconv"

	"github.com/spf13/afero"
)

// ErrInvalidBatch is returned when a batch operation is attempted on a
// batch that was never created server-side, or was cancelled.
var ErrInvalidBatch = errors.New("batch has no server-side id (inexistent or deleted)")

// Batch is one server-side grouping for a multi-file upload session. The
// upload index and per-index blob map are transient client bookkeeping for
// the session; they are not persisted anywhere.
type Batch struct {
	BatchID string `json:"batchId,omitempty"`
	Dropped string `json:"dropped,omitempty"`

	api       *UploadsAPI
	uploadIdx int
	blobs     map[int]*Blob
}

// UploadIndex returns the index the next upload will use.
func (b *Batch) UploadIndex() int { return b.uploadIdx }

// Blob returns the already-uploaded (or fetched) blob at a file index,
// nil when the index is unknown.
func (b *Batch) Blob(fileIdx int) *Blob {
	return b.blobs[fileIdx]
}

// Upload sends one blob through the batch.
func (b *Batch) Upload(ctx context.Context, src BlobSource) (*Blob, error) {
	if b.api == nil {
		return nil, errDetached
	}
	return b.api.Upload(ctx, b, src)
}

// UploadChunked sends one blob through the batch in fixed-size chunks.
func (b *Batch) UploadChunked(ctx context.Context, src BlobSource, chunkSize int64) (*Blob, error) {
	if b.api == nil {
		return nil, errDetached
	}
	return b.api.UploadChunked(ctx, b, src, chunkSize)
}

// Get fetches the details of one uploaded blob.
func (b *Batch) Get(ctx context.Context, fileIdx int) (*Blob, error) {
	if b.api == nil {
		return nil, errDetached
	}
	if b.BatchID == "" {
		return nil, ErrInvalidBatch
	}
	blob, err := b.api.Get(ctx, b.BatchID, fileIdx)
	if err != nil {
		return nil, err
	}
	if b.blobs == nil {
		b.blobs = map[int]*Blob{}
	}
	b.blobs[fileIdx] = blob
	return blob, nil
}

// Cancel drops the batch server-side. Cancelling a batch that was never
// created is a no-op.
func (b *Batch) Cancel(ctx context.Context) error {
	if b.BatchID == "" {
		return nil
	}
	if b.api == nil {
		return errDetached
	}
	if err := b.api.Delete(ctx, b.BatchID); err != nil {
		return err
	}
	b.BatchID = ""
	return nil
}

// Blob is the server-side record of one uploaded file: metadata only, the
// bytes live in the batch. The upload endpoint answers with loosely typed
// JSON (booleans and numbers as strings), so parsing coerces.
type Blob struct {
	Uploaded     bool
	Name         string
	UploadType   string
	Size         int64
	UploadedSize int64
	FileIdx      int
	MimeType     string

	// BatchID is stamped by the Uploads API; it is not part of the
	// server's blob payload.
	BatchID string
}

// UnmarshalJSON coerces the upload endpoint's string-typed booleans and
// numbers, ignores unknown keys, and backfills uploadedSize from size for
// fully uploaded blobs that omit it.
func (b *Blob) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	// Defaults per the wire contract: a blob echoed back without an
	// explicit uploaded flag counts as uploaded.
	b.Uploaded = true

	if v, ok := raw["uploaded"]; ok {
		b.Uploaded = coerceBool(v)
	}
	if v, ok := raw["name"]; ok {
		json.Unmarshal(v, &b.Name)
	}
	if v, ok := raw["uploadType"]; ok {
		json.Unmarshal(v, &b.UploadType)
	}
	if v, ok := raw["size"]; ok {
		b.Size = coerceInt64(v)
	}
	if v, ok := raw["uploadedSize"]; ok {
		b.UploadedSize = coerceInt64(v)
	}
	if v, ok := raw["fileIdx"]; ok {
		b.FileIdx = int(coerceInt64(v))
	}
	if v, ok := raw["mimetype"]; ok {
		json.Unmarshal(v, &b.MimeType)
	}

	if b.Uploaded && b.UploadedSize == 0 {
		b.UploadedSize = b.Size
	}
	return nil
}

// AsBatchRef returns the property value referencing this uploaded blob
// from a document (the upload-batch/upload-fileId mapping).
func (b *Blob) AsBatchRef() map[string]string {
	return map[string]string{
		"upload-batch":  b.BatchID,
		"upload-fileId": strconv.Itoa(b.FileIdx),
	}
}

func coerceBool(raw json.RawMessage) bool {
	var b bool
	if err := json.Unmarshal(raw, &b); err == nil {
		return b
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s == "true"
	}
	return false
}

func coerceInt64(raw json.RawMessage) int64 {
	var n int64
	if err := json.Unmarshal(raw, &n); err == nil {
		return n
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		parsed, _ := strconv.ParseInt(s, 10, 64)
		return parsed
	}
	return 0
}

// BlobSource is the payload side of an upload: file metadata plus a byte
// stream. The source owns any descriptor backing the stream; the Uploads
// API closes it once the transport read is over, success or failure.
type BlobSource interface {
	BlobName() string
	BlobSize() int64
	BlobMimeType() string

	// Data returns the byte stream to upload. Repeated calls on a
	// file-backed source return the same descriptor.
	Data() (io.Reader, error)

	// Close releases the stream. Must be idempotent.
	Close() error
}

// BufferBlob is in-memory content to upload.
type BufferBlob struct {
	Name     string
	MimeType string

	buf []byte
}

// NewBufferBlob wraps in-memory bytes for upload.
func NewBufferBlob(data []byte, name string) *BufferBlob {
	return &BufferBlob{
		Name:     name,
		MimeType: "application/octet-stream",
		buf:      data,
	}
}

func (b *BufferBlob) BlobName() string     { return b.Name }
func (b *BufferBlob) BlobSize() int64      { return int64(len(b.buf)) }
func (b *BufferBlob) BlobMimeType() string { return b.MimeType }

func (b *BufferBlob) Data() (io.Reader, error) { return bytes.NewReader(b.buf), nil }
func (b *BufferBlob) Close() error             { return nil }

// FileBlob represents a file as upload content. The descriptor is opened
// lazily on the first Data call and owned by the blob until Close.
type FileBlob struct {
	Path     string
	Name     string
	Size     int64
	MimeType string

	fs afero.Fs
	fd afero.File
}

// FileBlobOption customizes a FileBlob.
type FileBlobOption func(*FileBlob)

// WithFs reads the file through the given filesystem instead of the OS.
func WithFs(fs afero.Fs) FileBlobOption {
	return func(b *FileBlob) { b.fs = fs }
}

// WithBlobName overrides the upload filename (default: the path's base).
func WithBlobName(name string) FileBlobOption {
	return func(b *FileBlob) { b.Name = name }
}

// WithBlobMimeType overrides the guessed MIME type.
func WithBlobMimeType(mimeType string) FileBlobOption {
	return func(b *FileBlob) { b.MimeType = mimeType }
}

// NewFileBlob describes a file for upload, stat'ing it for its size.
func NewFileBlob(path string, opts ...FileBlobOption) (*FileBlob, error) {
	b := &FileBlob{
		Path: path,
		fs:   afero.NewOsFs(),
	}
	for _, opt := range opts {
		opt(b)
	}

	info, err := b.fs.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("failed to stat blob file: %w", err)
	}
	b.Size = info.Size()

	if b.Name == "" {
		b.Name = filepath.Base(path)
	}
	if b.MimeType == "" {
		b.MimeType = GuessMimeType(b.Name)
	}
	return b, nil
}

func (b *FileBlob) BlobName() string     { return b.Name }
func (b *FileBlob) BlobSize() int64      { return b.Size }
func (b *FileBlob) BlobMimeType() string { return b.MimeType }

// Data opens the backing file on first use and returns the descriptor.
func (b *FileBlob) Data() (io.Reader, error) {
	if b.fd == nil {
		fd, err := b.fs.Open(b.Path)
		if err != nil {
			return nil, fmt.Errorf("failed to open blob file: %w", err)
		}
		b.fd = fd
	}
	return b.fd, nil
}

// Close releases the descriptor, if one was opened. Idempotent.
func (b *FileBlob) Close() error {
	if b.fd == nil {
		return nil
	}
	fd := b.fd
	b.fd = nil
	return fd.Close()
}
