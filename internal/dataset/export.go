package dataset

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"path"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// Uploader is the part of the S3 upload manager used by Exporter.
type Uploader interface {
	Upload(ctx context.Context, in *s3.PutObjectInput, opts ...func(*manager.Uploader)) (*manager.UploadOutput, error)
}

// NewS3Uploader builds an upload manager from the default AWS credential
// chain. A non-empty endpoint selects an S3-compatible service addressed
// path-style.
func NewS3Uploader(ctx context.Context, region, endpoint string) (*manager.Uploader, error) {
	var opts []func(*awsconfig.LoadOptions) error
	if region != "" {
		opts = append(opts, awsconfig.WithRegion(region))
	}
	cfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		if endpoint != "" {
			o.BaseEndpoint = aws.String(endpoint)
			o.UsePathStyle = true
		}
	})
	return manager.NewUploader(client), nil
}

// Exporter copies dataset partitions to S3 as JSON lines, one object per
// partition.
type Exporter struct {
	store  Store
	up     Uploader
	bucket string
	prefix string
	logger *slog.Logger
}

// NewExporter creates an exporter writing under s3://bucket/prefix.
func NewExporter(store Store, up Uploader, bucket, prefix string, logger *slog.Logger) *Exporter {
	if logger == nil {
		logger = slog.Default()
	}
	return &Exporter{
		store:  store,
		up:     up,
		bucket: bucket,
		prefix: strings.Trim(prefix, "/"),
		logger: logger.With("component", "exporter"),
	}
}

// ExportedObject is one uploaded partition.
type ExportedObject struct {
	Partition Partition `json:"partition"`
	Key       string    `json:"key"`
	Bytes     int       `json:"bytes"`
}

// ObjectKey is the object key of p under prefix, with the partition keys as
// path segments: prefix/users/day=15/hour=9.jsonl.
func ObjectKey(prefix string, p Partition) string {
	keys := strings.ReplaceAll(p.Keys, "&", "/")
	if keys == "" {
		keys = "all"
	}
	return path.Join(prefix, p.Dataset, keys+".jsonl")
}

// Export uploads every partition of dataset and returns what was written.
// It stops at the first failed upload.
func (e *Exporter) Export(ctx context.Context, dataset string) ([]ExportedObject, error) {
	parts, err := e.store.Partitions(ctx, dataset)
	if err != nil {
		return nil, err
	}

	out := make([]ExportedObject, 0, len(parts))
	for _, p := range parts {
		body, err := e.encode(ctx, p)
		if err != nil {
			return out, err
		}
		key := ObjectKey(e.prefix, p)
		_, err = e.up.Upload(ctx, &s3.PutObjectInput{
			Bucket:      aws.String(e.bucket),
			Key:         aws.String(key),
			Body:        bytes.NewReader(body),
			ContentType: aws.String("application/x-ndjson"),
		})
		if err != nil {
			return out, fmt.Errorf("upload %s to s3://%s/%s: %w", p.URI, e.bucket, key, err)
		}
		e.logger.Debug("partition exported", "partition", p.URI, "key", key, "bytes", len(body))
		out = append(out, ExportedObject{Partition: p, Key: key, Bytes: len(body)})
	}
	e.logger.Info("dataset exported", "dataset", dataset, "bucket", e.bucket, "objects", len(out))
	return out, nil
}

func (e *Exporter) encode(ctx context.Context, p Partition) ([]byte, error) {
	recs, err := e.store.Read(ctx, "view://"+p.Dataset+"?"+p.Keys)
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	for _, rec := range recs {
		if err := enc.Encode(rec); err != nil {
			return nil, fmt.Errorf("encode record of %s: %w", p.URI, err)
		}
	}
	return buf.Bytes(), nil
}
