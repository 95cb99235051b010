// Package archive uploads the partitions touched by a run to object storage.
package archive

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"path"
	"path/filepath"

	"github.com/golang/snappy"

	"github.com/arkilian/splitter/internal/config"
	splerrors "github.com/arkilian/splitter/internal/errors"
	"github.com/arkilian/splitter/internal/partition"
	"github.com/arkilian/splitter/internal/storage"
)

// CompressedSuffix marks snappy-framed objects.
const CompressedSuffix = ".sz"

// Archiver copies partition files into object storage under
// <prefix>/<run-id>/<file>.
type Archiver struct {
	store    storage.ObjectStorage
	prefix   string
	compress bool
	logger   *log.Logger
}

// NewArchiver creates an archiver writing to store.
func NewArchiver(store storage.ObjectStorage, prefix string, compress bool, logger *log.Logger) *Archiver {
	if logger == nil {
		logger = log.Default()
	}
	return &Archiver{
		store:    store,
		prefix:   prefix,
		compress: compress,
		logger:   logger,
	}
}

// OpenStorage builds the object storage described by cfg.
func OpenStorage(ctx context.Context, cfg config.StorageConfig) (storage.ObjectStorage, error) {
	switch cfg.Type {
	case "", "local":
		store, err := storage.NewLocalStorage(cfg.Path)
		if err != nil {
			return nil, err
		}
		return store, nil
	case "s3":
		s3cfg := storage.DefaultS3Config()
		if cfg.S3.Region != "" {
			s3cfg.Region = cfg.S3.Region
		}
		s3cfg.Endpoint = cfg.S3.Endpoint
		s3cfg.UsePathStyle = cfg.S3.UsePathStyle
		store, err := storage.NewS3Storage(ctx, cfg.S3.Bucket, s3cfg)
		if err != nil {
			return nil, err
		}
		return store, nil
	default:
		return nil, fmt.Errorf("archive: unsupported storage type %q", cfg.Type)
	}
}

// Result lists what was uploaded and what failed.
type Result struct {
	Objects []string
	Errors  []error
}

// ObjectPath returns the object key used for a partition file in a run.
func (a *Archiver) ObjectPath(runID, partitionPath string) string {
	name := filepath.Base(partitionPath)
	if a.compress {
		name += CompressedSuffix
	}
	return path.Join(a.prefix, runID, name)
}

// Archive uploads every opened partition. Failures are collected per
// partition and never stop the remaining uploads.
func (a *Archiver) Archive(ctx context.Context, runID string, partitions []partition.SinkStats) *Result {
	result := &Result{}
	for _, p := range partitions {
		if !p.Opened || p.Path == "" {
			continue
		}
		objectPath := a.ObjectPath(runID, p.Path)
		if err := a.upload(ctx, p.Path, objectPath); err != nil {
			err = splerrors.NewArchiveError(splerrors.CodeUploadFailed,
				fmt.Sprintf("archive partition %q", p.Key.String()), err).
				WithDetails(map[string]interface{}{"object": objectPath})
			a.logger.Printf("archive %s: %v", runID, err)
			result.Errors = append(result.Errors, err)
			continue
		}
		result.Objects = append(result.Objects, objectPath)
	}

	a.logger.Printf("archive %s: uploaded %d partitions (%d failed)", runID, len(result.Objects), len(result.Errors))
	return result
}

func (a *Archiver) upload(ctx context.Context, localPath, objectPath string) error {
	data, err := os.ReadFile(localPath)
	if err != nil {
		return err
	}

	if a.compress {
		var buf bytes.Buffer
		w := snappy.NewBufferedWriter(&buf)
		if _, err := w.Write(data); err != nil {
			return err
		}
		if err := w.Close(); err != nil {
			return err
		}
		data = buf.Bytes()
	}

	return a.store.Put(ctx, objectPath, bytes.NewReader(data))
}

// Fetch copies an archived partition into w, decompressing when the object
// carries the snappy suffix.
func (a *Archiver) Fetch(ctx context.Context, objectPath string, w io.Writer) error {
	if path.Ext(objectPath) != CompressedSuffix {
		return a.store.Get(ctx, objectPath, w)
	}

	var buf bytes.Buffer
	if err := a.store.Get(ctx, objectPath, &buf); err != nil {
		return err
	}
	_, err := io.Copy(w, snappy.NewReader(&buf))
	return err
}

// RunPrefix returns the object prefix holding every partition of a run.
func (a *Archiver) RunPrefix(runID string) string {
	return path.Join(a.prefix, runID) + "/"
}

// Restore writes the records of every partition archived under runID to w,
// one line each, and returns the objects it read. An unknown run is an
// error.
func (a *Archiver) Restore(ctx context.Context, runID string, w io.Writer) ([]string, error) {
	objects, err := a.store.List(ctx, a.RunPrefix(runID))
	if err != nil {
		return nil, splerrors.NewArchiveError(splerrors.CodeDownloadFailed,
			fmt.Sprintf("list run %s", runID), err)
	}
	if len(objects) == 0 {
		return nil, splerrors.NewArchiveError(splerrors.CodeDownloadFailed,
			fmt.Sprintf("no archived partitions for run %s", runID), storage.ErrObjectNotFound)
	}

	for _, objectPath := range objects {
		var buf bytes.Buffer
		if err := a.Fetch(ctx, objectPath, &buf); err != nil {
			return nil, splerrors.NewArchiveError(splerrors.CodeDownloadFailed,
				fmt.Sprintf("fetch %s", objectPath), err)
		}
		// Keep partitions from running into each other.
		if buf.Len() > 0 && buf.Bytes()[buf.Len()-1] != '\n' {
			buf.WriteByte('\n')
		}
		if _, err := w.Write(buf.Bytes()); err != nil {
			return nil, err
		}
	}

	a.logger.Printf("restore %s: read %d partitions", runID, len(objects))
	return objects, nil
}
