package services

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/yungbote/checkin-engine/internal/platform/gcp"
	"github.com/yungbote/checkin-engine/internal/platform/logger"
)

// BucketArtifactStore keeps check-in artifacts in object storage.
type BucketArtifactStore struct {
	log    *logger.Logger
	bucket gcp.BucketService
}

func NewBucketArtifactStore(baseLog *logger.Logger, bucket gcp.BucketService) *BucketArtifactStore {
	return &BucketArtifactStore{
		log:    baseLog.With("service", "ArtifactStore", "backend", "gcs"),
		bucket: bucket,
	}
}

func (s *BucketArtifactStore) SaveArtifact(ctx context.Context, data []byte, filename string) (string, string, error) {
	key, err := cleanArtifactKey(filename)
	if err != nil {
		return "", "", err
	}
	if err := s.bucket.UploadFile(ctx, key, bytes.NewReader(data)); err != nil {
		return "", "", err
	}
	return key, s.bucket.GetPublicURL(key), nil
}

// LocalArtifactStore writes artifacts under a directory. publicBaseURL, when
// set, is how clients reach that directory (for example a static file route).
type LocalArtifactStore struct {
	log           *logger.Logger
	dir           string
	publicBaseURL string
}

func NewLocalArtifactStore(baseLog *logger.Logger, dir, publicBaseURL string) (*LocalArtifactStore, error) {
	dir = strings.TrimSpace(dir)
	if dir == "" {
		return nil, fmt.Errorf("artifact dir required")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create artifact dir: %w", err)
	}
	return &LocalArtifactStore{
		log:           baseLog.With("service", "ArtifactStore", "backend", "local"),
		dir:           dir,
		publicBaseURL: strings.TrimRight(strings.TrimSpace(publicBaseURL), "/"),
	}, nil
}

func (s *LocalArtifactStore) Dir() string { return s.dir }

func (s *LocalArtifactStore) SaveArtifact(ctx context.Context, data []byte, filename string) (string, string, error) {
	if err := ctx.Err(); err != nil {
		return "", "", err
	}
	key, err := cleanArtifactKey(filename)
	if err != nil {
		return "", "", err
	}
	dst := filepath.Join(s.dir, filepath.FromSlash(key))
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return "", "", fmt.Errorf("create artifact dir: %w", err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(dst), ".artifact-*")
	if err != nil {
		return "", "", fmt.Errorf("create temp artifact: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmp.Name())
		return "", "", fmt.Errorf("write artifact: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmp.Name())
		return "", "", fmt.Errorf("close artifact: %w", err)
	}
	if err := os.Rename(tmp.Name(), dst); err != nil {
		_ = os.Remove(tmp.Name())
		return "", "", fmt.Errorf("rename artifact: %w", err)
	}

	url := "file://" + filepath.ToSlash(dst)
	if s.publicBaseURL != "" {
		url = s.publicBaseURL + "/" + key
	}
	return key, url, nil
}

func cleanArtifactKey(filename string) (string, error) {
	key := strings.TrimLeft(path.Clean("/"+strings.TrimSpace(filename)), "/")
	if key == "" || key == "." {
		return "", fmt.Errorf("invalid artifact filename %q", filename)
	}
	return key, nil
}
