package nuxeo

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"

	"github.com/hashicorp/go-hclog"
)

// Chunked upload protocol headers.
const (
	uploadTypeHeader       = "X-Upload-Type"
	uploadChunkIndexHeader = "X-Upload-Chunk-Index"
	uploadChunkCountHeader = "X-Upload-Chunk-Count"
)

// UploadsAPI manages batch uploads: server-side blob staging areas a
// document can reference before the blobs are attached.
type UploadsAPI struct {
	endpoint
	logger hclog.Logger
}

func newUploadsAPI(c *Client) *UploadsAPI {
	return &UploadsAPI{
		endpoint: newEndpoint(c, "upload"),
		logger:   c.logger.Named("uploads"),
	}
}

// Batch creates a new upload batch server-side.
func (a *UploadsAPI) Batch(ctx context.Context) (*Batch, error) {
	var batch Batch
	if err := a.post(ctx, "", nil, &batch); err != nil {
		return nil, fmt.Errorf("failed to create upload batch: %w", err)
	}
	batch.api = a
	batch.blobs = map[int]*Blob{}
	return &batch, nil
}

// Get fetches one uploaded blob's details from a batch.
func (a *UploadsAPI) Get(ctx context.Context, batchID string, fileIdx int) (*Blob, error) {
	var blob Blob
	if err := a.get(ctx, batchID+"/"+strconv.Itoa(fileIdx), &blob); err != nil {
		return nil, err
	}
	blob.BatchID = batchID
	blob.FileIdx = fileIdx
	return &blob, nil
}

// Blobs lists every blob uploaded to a batch.
func (a *UploadsAPI) Blobs(ctx context.Context, batchID string) ([]Blob, error) {
	var blobs []Blob
	if err := a.get(ctx, batchID, &blobs); err != nil {
		return nil, err
	}
	for i := range blobs {
		blobs[i].BatchID = batchID
		blobs[i].FileIdx = i
	}
	return blobs, nil
}

// Delete drops a whole batch and its uploaded blobs.
func (a *UploadsAPI) Delete(ctx context.Context, batchID string) error {
	return a.delete(ctx, batchID)
}

// DeleteBlob removes a single uploaded blob from a batch.
func (a *UploadsAPI) DeleteBlob(ctx context.Context, batchID string, fileIdx int) error {
	return a.delete(ctx, batchID+"/"+strconv.Itoa(fileIdx))
}

// Upload sends a blob to the batch in one request. The batch's upload
// index moves forward only after the server accepted the blob, so a failed
// upload can be retried at the same index. The source is closed either
// way.
func (a *UploadsAPI) Upload(ctx context.Context, batch *Batch, src BlobSource) (*Blob, error) {
	if batch.BatchID == "" {
		src.Close()
		return nil, ErrInvalidBatch
	}

	idx := batch.uploadIdx
	blob, err := a.uploadRequest(ctx, batch.BatchID, idx, src, src.BlobSize(), nil)
	closeErr := src.Close()
	if err != nil {
		return nil, err
	}
	if closeErr != nil {
		return nil, fmt.Errorf("failed to close blob %s: %w", src.BlobName(), closeErr)
	}

	batch.uploadIdx++
	a.remember(batch, idx, blob)
	return blob, nil
}

// UploadChunked sends a blob to the batch in fixed-size chunks. A zero
// chunkSize falls back to the configured default. As with Upload, the
// index moves only once every chunk went through, and the source is
// always closed.
func (a *UploadsAPI) UploadChunked(ctx context.Context, batch *Batch, src BlobSource, chunkSize int64) (*Blob, error) {
	if batch.BatchID == "" {
		src.Close()
		return nil, ErrInvalidBatch
	}
	if chunkSize <= 0 {
		chunkSize = a.client.config.ChunkSize
	}

	idx := batch.uploadIdx
	blob, err := a.uploadChunks(ctx, batch.BatchID, idx, src, chunkSize)
	closeErr := src.Close()
	if err != nil {
		return nil, err
	}
	if closeErr != nil {
		return nil, fmt.Errorf("failed to close blob %s: %w", src.BlobName(), closeErr)
	}

	batch.uploadIdx++
	a.remember(batch, idx, blob)
	return blob, nil
}

func (a *UploadsAPI) uploadChunks(ctx context.Context, batchID string, idx int, src BlobSource, chunkSize int64) (*Blob, error) {
	size := src.BlobSize()
	chunkCount := int((size + chunkSize - 1) / chunkSize)
	if chunkCount < 1 {
		chunkCount = 1
	}

	data, err := src.Data()
	if err != nil {
		return nil, fmt.Errorf("failed to open blob %s: %w", src.BlobName(), err)
	}

	a.logger.Debug("starting chunked upload",
		"batch_id", batchID,
		"file_idx", idx,
		"chunks", chunkCount,
	)

	var blob *Blob
	for chunk := 0; chunk < chunkCount; chunk++ {
		length := chunkSize
		if remaining := size - int64(chunk)*chunkSize; remaining < length {
			length = remaining
		}

		chunkHeaders := map[string]string{
			uploadTypeHeader:       "chunked",
			uploadChunkIndexHeader: strconv.Itoa(chunk),
			uploadChunkCountHeader: strconv.Itoa(chunkCount),
		}
		blob, err = a.uploadRequest(ctx, batchID, idx,
			&limitedSource{BlobSource: src, reader: io.LimitReader(data, chunkSize)},
			length, chunkHeaders)
		if err != nil {
			return nil, fmt.Errorf("failed to upload chunk %d/%d: %w", chunk, chunkCount, err)
		}
	}
	return blob, nil
}

// limitedSource substitutes a bounded reader for the source's stream, so
// one chunk of an already-open source can go out per request.
type limitedSource struct {
	BlobSource
	reader io.Reader
}

func (s *limitedSource) Data() (io.Reader, error) { return s.reader, nil }

// uploadRequest issues one upload POST and parses the blob the server
// answers with.
func (a *UploadsAPI) uploadRequest(ctx context.Context, batchID string, idx int, src BlobSource, length int64, extra map[string]string) (*Blob, error) {
	data, err := src.Data()
	if err != nil {
		return nil, fmt.Errorf("failed to open blob %s: %w", src.BlobName(), err)
	}

	headers := map[string]string{
		"Cache-Control": "no-cache",
		"X-File-Name":   url.PathEscape(src.BlobName()),
		"X-File-Size":   strconv.FormatInt(src.BlobSize(), 10),
		"X-File-Type":   src.BlobMimeType(),
	}
	for k, v := range extra {
		headers[k] = v
	}

	resp, err := a.client.Request(ctx, http.MethodPost,
		a.url(batchID+"/"+strconv.Itoa(idx)),
		WithHeaders(headers),
		WithRawBody(data, "application/octet-stream"),
		WithContentLength(length),
	)
	if err != nil {
		return nil, err
	}

	var blob Blob
	if err := unmarshalEntity(resp.Body, &blob); err != nil {
		return nil, fmt.Errorf("failed to parse upload response: %w", err)
	}
	blob.BatchID = batchID
	blob.FileIdx = idx
	if blob.Name == "" {
		blob.Name = src.BlobName()
	}
	return &blob, nil
}

func (a *UploadsAPI) remember(batch *Batch, idx int, blob *Blob) {
	if batch.blobs == nil {
		batch.blobs = map[int]*Blob{}
	}
	batch.blobs[idx] = blob
	a.logger.Debug("uploaded blob",
		"batch_id", batch.BatchID,
		"file_idx", idx,
		"name", blob.Name,
	)
}
