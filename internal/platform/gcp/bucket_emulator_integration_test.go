package gcp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"slices"
	"strings"
	"testing"
	"time"

	"github.com/yungbote/checkin-engine/internal/platform/logger"
)

func TestBucketServiceEmulatorLifecycle(t *testing.T) {
	if !strings.EqualFold(strings.TrimSpace(os.Getenv("RUN_GCS_EMULATOR_INTEGRATION")), "true") {
		t.Skip("set RUN_GCS_EMULATOR_INTEGRATION=true to run emulator integration tests")
	}
	emulatorHost := strings.TrimRight(strings.TrimSpace(os.Getenv("STORAGE_EMULATOR_HOST")), "/")
	if emulatorHost == "" {
		emulatorHost = "http://127.0.0.1:4443"
	}
	if !isEmulatorReachable(emulatorHost) {
		t.Skipf("storage emulator not reachable at %s", emulatorHost)
	}

	suffix := time.Now().UnixNano()
	bucketName := fmt.Sprintf("checkin-it-%d", suffix)
	createBucketIfMissing(t, emulatorHost, bucketName)

	t.Setenv("REPORT_GCS_BUCKET_NAME", bucketName)
	t.Setenv("REPORT_CDN_DOMAIN", "")
	t.Setenv("OBJECT_STORAGE_PUBLIC_BASE_URL", emulatorHost)

	log, err := logger.New("test")
	if err != nil {
		t.Fatalf("logger.New: %v", err)
	}
	bucket, err := NewBucketServiceWithConfig(log, ObjectStorageConfig{
		Mode:         ObjectStorageModeGCSEmulator,
		EmulatorHost: emulatorHost,
	})
	if err != nil {
		t.Fatalf("NewBucketServiceWithConfig: %v", err)
	}
	defer bucket.Close()

	ctx := context.Background()
	prefix := fmt.Sprintf("checkins/%d", suffix)
	key := prefix + "/2026-10-19.png"
	if err := bucket.UploadFile(ctx, key, bytes.NewReader([]byte("png-bytes"))); err != nil {
		t.Fatalf("UploadFile: %v", err)
	}

	var body []byte
	deadline := time.Now().Add(5 * time.Second)
	for {
		rc, err := bucket.DownloadFile(ctx, key)
		if err == nil {
			body, err = io.ReadAll(rc)
			_ = rc.Close()
		}
		if err == nil || time.Now().After(deadline) {
			if err != nil {
				t.Fatalf("DownloadFile: %v", err)
			}
			break
		}
		time.Sleep(100 * time.Millisecond)
	}
	if string(body) != "png-bytes" {
		t.Fatalf("download body: want=%q got=%q", "png-bytes", string(body))
	}

	keys, err := bucket.ListKeys(ctx, prefix)
	if err != nil {
		t.Fatalf("ListKeys: %v", err)
	}
	if !slices.Contains(keys, key) {
		t.Fatalf("ListKeys missing %s: got=%v", key, keys)
	}
	if err := bucket.DeleteFile(ctx, key); err != nil {
		t.Fatalf("DeleteFile: %v", err)
	}
}

func isEmulatorReachable(emulatorHost string) bool {
	client := &http.Client{Timeout: 2 * time.Second}
	resp, err := client.Get(emulatorHost + "/storage/v1/b?project=local-dev")
	if err != nil {
		return false
	}
	_ = resp.Body.Close()
	return resp.StatusCode >= 200 && resp.StatusCode < 500
}

func createBucketIfMissing(t *testing.T, emulatorHost string, bucket string) {
	t.Helper()
	payload, _ := json.Marshal(map[string]string{"name": bucket})
	client := &http.Client{Timeout: 5 * time.Second}
	resp, err := client.Post(emulatorHost+"/storage/v1/b?project=local-dev", "application/json", bytes.NewReader(payload))
	if err != nil {
		t.Fatalf("create bucket %q: %v", bucket, err)
	}
	defer resp.Body.Close()
	switch resp.StatusCode {
	case http.StatusOK, http.StatusCreated, http.StatusConflict:
		return
	}
	b, _ := io.ReadAll(resp.Body)
	t.Fatalf("create bucket %q failed: status=%d body=%s", bucket, resp.StatusCode, strings.TrimSpace(string(b)))
}
