package storage

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"path"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	domain "github.com/bryanwahyu/metaselect/internal/domain/analysis"
)

// Store keeps each history log as one JSON object in a bucket.
type Store struct {
	client     *minio.Client
	bucketName string
	prefix     string
}

// New buat koneksi MinIO
func New(ctx context.Context, endpoint, region, bucket, accessKey, secretKey, prefix string, useSSL bool) (*Store, error) {
	cli, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(accessKey, secretKey, ""),
		Secure: useSSL,
		Region: region,
	})
	if err != nil {
		return nil, err
	}

	// pastikan bucket ada
	exists, err := cli.BucketExists(ctx, bucket)
	if err != nil {
		return nil, err
	}
	if !exists {
		if err := cli.MakeBucket(ctx, bucket, minio.MakeBucketOptions{Region: region}); err != nil {
			return nil, err
		}
	}

	return &Store{client: cli, bucketName: bucket, prefix: prefix}, nil
}

// ObjectKey maps a history key to its object name, e.g. "history/analysis_history:u1.json".
func (s *Store) ObjectKey(key string) string {
	prefix := strings.Trim(s.prefix, "/")
	if prefix == "" {
		prefix = "history"
	}
	return path.Join(prefix, key+".json")
}

// Load implementasi HistoryStore; a missing object is an empty log.
func (s *Store) Load(ctx context.Context, key string) ([]domain.HistoryEntry, error) {
	obj, err := s.client.GetObject(ctx, s.bucketName, s.ObjectKey(key), minio.GetObjectOptions{})
	if err != nil {
		if isNotFound(err) {
			return nil, nil
		}
		return nil, err
	}
	defer obj.Close()

	b, err := io.ReadAll(obj)
	if err != nil {
		if isNotFound(err) {
			return nil, nil
		}
		return nil, err
	}
	return domain.DecodeHistory(b)
}

// Save implementasi HistoryStore; the object is replaced as a whole.
func (s *Store) Save(ctx context.Context, key string, entries []domain.HistoryEntry) error {
	b, err := domain.EncodeHistory(entries)
	if err != nil {
		return err
	}
	_, err = s.client.PutObject(ctx, s.bucketName, s.ObjectKey(key), bytes.NewReader(b), int64(len(b)), minio.PutObjectOptions{
		ContentType: "application/json",
	})
	return err
}

func isNotFound(err error) bool {
	resp := minio.ToErrorResponse(err)
	return resp.Code == "NoSuchKey" || resp.StatusCode == http.StatusNotFound
}
