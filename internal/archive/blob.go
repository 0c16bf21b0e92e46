// Package archive captures the full record of finished workflow instances
// in blob storage, keeping the live Redis store lean while preserving
// history for audit. Buckets are opened by URL through gocloud.dev, so S3,
// GCS, Azure Blob Storage, and local files all work.
package archive

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"gocloud.dev/blob"
	"gocloud.dev/gcerrors"

	_ "gocloud.dev/blob/azureblob"
	_ "gocloud.dev/blob/fileblob"
	_ "gocloud.dev/blob/gcsblob"
	_ "gocloud.dev/blob/memblob"
	_ "gocloud.dev/blob/s3blob"

	"github.com/kimhons/lumina-ai-sub002/pkg/api"
)

type (
	// Record is the archived form of a terminal workflow instance: the
	// instance itself, its full execution history, and its final context
	Record struct {
		Instance   *api.WorkflowInstance `json:"instance"`
		Executions []*api.StepExecution  `json:"executions,omitempty"`
		Context    *api.ExecutionContext `json:"context,omitempty"`
		ArchivedAt time.Time             `json:"archived_at"`
	}

	// BlobArchiver writes records to a gocloud.dev blob bucket
	BlobArchiver struct {
		bucket *blob.Bucket
		prefix string
	}
)

// ErrRecordNotFound is returned when no archive record exists for an
// instance
var ErrRecordNotFound = errors.New("archive record not found")

// NewBlobArchiver opens the bucket at the given URL for archive storage
func NewBlobArchiver(
	ctx context.Context, bucketURL, prefix string,
) (*BlobArchiver, error) {
	bucket, err := blob.OpenBucket(ctx, bucketURL)
	if err != nil {
		return nil, err
	}
	return NewBlobArchiverWithBucket(bucket, prefix), nil
}

// NewBlobArchiverWithBucket wraps an already opened bucket
func NewBlobArchiverWithBucket(
	bucket *blob.Bucket, prefix string,
) *BlobArchiver {
	return &BlobArchiver{bucket: bucket, prefix: prefix}
}

// ArchiveInstance writes the full record of a terminal instance. An
// existing record for the same instance is replaced
func (a *BlobArchiver) ArchiveInstance(
	ctx context.Context,
	inst *api.WorkflowInstance,
	execs []*api.StepExecution,
	ec *api.ExecutionContext,
) error {
	rec := &Record{
		Instance:   inst,
		Executions: execs,
		Context:    ec,
		ArchivedAt: time.Now(),
	}
	data, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	return a.bucket.WriteAll(ctx, a.keyFor(inst.ID), data, nil)
}

// Get reads the archived record of an instance
func (a *BlobArchiver) Get(
	ctx context.Context, id api.InstanceID,
) (*Record, error) {
	data, err := a.bucket.ReadAll(ctx, a.keyFor(id))
	if err != nil {
		if gcerrors.Code(err) == gcerrors.NotFound {
			return nil, ErrRecordNotFound
		}
		return nil, err
	}
	rec := new(Record)
	if err := json.Unmarshal(data, rec); err != nil {
		return nil, err
	}
	return rec, nil
}

// Delete removes an archived record. Deleting a missing record is not an
// error
func (a *BlobArchiver) Delete(ctx context.Context, id api.InstanceID) error {
	err := a.bucket.Delete(ctx, a.keyFor(id))
	if err != nil && gcerrors.Code(err) == gcerrors.NotFound {
		return nil
	}
	return err
}

// Close releases the underlying bucket
func (a *BlobArchiver) Close() error {
	return a.bucket.Close()
}

func (a *BlobArchiver) keyFor(id api.InstanceID) string {
	return a.prefix + string(id) + ".json"
}
