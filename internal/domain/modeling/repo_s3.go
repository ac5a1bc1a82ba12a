package modeling

import (
	"context"
	"fmt"
	"io"
	"path"
	"sort"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	engine "github.com/hacs/hacs/internal/platform/modeling"
)

type S3Config struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	Prefix    string
	UseSSL    bool
}

// objectStore is the subset of *minio.Client the S3 source needs.
type objectStore interface {
	ListObjects(ctx context.Context, bucket string, opts minio.ListObjectsOptions) <-chan minio.ObjectInfo
	GetObject(ctx context.Context, bucket, object string, opts minio.GetObjectOptions) (*minio.Object, error)
}

type s3Source struct {
	client objectStore
	bucket string
	prefix string
	// read fetches one object; tests replace it.
	read func(ctx context.Context, key string) ([]byte, error)
}

// NewS3Source reads descriptor files from an S3-compatible bucket.
func NewS3Source(cfg S3Config) (SchemaSource, error) {
	endpoint := strings.TrimSpace(cfg.Endpoint)
	if endpoint == "" {
		return nil, fmt.Errorf("s3 endpoint is required")
	}
	access := strings.TrimSpace(cfg.AccessKey)
	secret := strings.TrimSpace(cfg.SecretKey)
	if access == "" || secret == "" {
		return nil, fmt.Errorf("s3 access key and secret key are required")
	}
	bucket := strings.TrimSpace(cfg.Bucket)
	if bucket == "" {
		return nil, fmt.Errorf("s3 bucket is required")
	}

	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(access, secret, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("init s3 client: %w", err)
	}
	return newS3Source(client, bucket, cfg.Prefix), nil
}

func newS3Source(client objectStore, bucket, prefix string) *s3Source {
	s := &s3Source{client: client, bucket: bucket, prefix: strings.Trim(strings.TrimSpace(prefix), "/")}
	s.read = s.getObject
	return s
}

func (s *s3Source) Name() string { return "s3:" + path.Join(s.bucket, s.prefix) }

func (s *s3Source) getObject(ctx context.Context, key string) ([]byte, error) {
	obj, err := s.client.GetObject(ctx, s.bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, err
	}
	defer obj.Close()
	return io.ReadAll(obj)
}

func (s *s3Source) Load(ctx context.Context) ([]engine.SchemaDescriptor, error) {
	prefix := ""
	if s.prefix != "" {
		prefix = s.prefix + "/"
	}
	var keys []string
	for obj := range s.client.ListObjects(ctx, s.bucket, minio.ListObjectsOptions{Prefix: prefix, Recursive: true}) {
		if obj.Err != nil {
			return nil, obj.Err
		}
		switch strings.ToLower(path.Ext(obj.Key)) {
		case ".json", ".yaml", ".yml":
			keys = append(keys, obj.Key)
		}
	}
	sort.Strings(keys)

	var out []engine.SchemaDescriptor
	for _, key := range keys {
		raw, err := s.read(ctx, key)
		if err != nil {
			errResp := minio.ToErrorResponse(err)
			if errResp.Code == "NoSuchKey" {
				continue
			}
			return nil, fmt.Errorf("get %s: %w", key, err)
		}
		ds, err := DecodeDescriptors(key, raw)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", key, err)
		}
		out = append(out, ds...)
	}
	return out, nil
}
