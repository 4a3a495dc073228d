package gcp

import "testing"

func TestResolveObjectStoragePublicBaseURL(t *testing.T) {
	cases := []struct {
		name    string
		env     string
		cfg     ObjectStorageConfig
		want    string
		source  string
		wantErr bool
	}{
		{name: "gcs default", cfg: ObjectStorageConfig{Mode: ObjectStorageModeGCS}, source: "gcs_default"},
		{
			name:   "emulator fallback",
			cfg:    ObjectStorageConfig{Mode: ObjectStorageModeGCSEmulator, EmulatorHost: "http://fake-gcs:4443"},
			want:   "http://fake-gcs:4443",
			source: "storage_emulator_host",
		},
		{
			name:   "env override",
			env:    "http://localhost:4443/",
			cfg:    ObjectStorageConfig{Mode: ObjectStorageModeGCSEmulator, EmulatorHost: "http://fake-gcs:4443"},
			want:   "http://localhost:4443",
			source: "object_storage_public_base_url",
		},
		{name: "invalid env", env: "localhost:4443", cfg: ObjectStorageConfig{Mode: ObjectStorageModeGCS}, wantErr: true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Setenv("OBJECT_STORAGE_PUBLIC_BASE_URL", tc.env)
			got, source, err := resolveObjectStoragePublicBaseURL(tc.cfg)
			if tc.wantErr {
				if err == nil {
					t.Fatalf("expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("resolveObjectStoragePublicBaseURL: %v", err)
			}
			if got != tc.want || source != tc.source {
				t.Fatalf("want=(%q,%q) got=(%q,%q)", tc.want, tc.source, got, source)
			}
		})
	}
}

func TestGetPublicURL(t *testing.T) {
	key := "checkins/4b6c1f3e-0000-4000-8000-000000000001/2026-10-19.png"
	cases := []struct {
		name string
		bs   *bucketService
		want string
	}{
		{
			name: "gcs default",
			bs:   &bucketService{bucket: "reports", storageMode: ObjectStorageModeGCS},
			want: "https://storage.googleapis.com/reports/" + key,
		},
		{
			name: "cdn wins",
			bs:   &bucketService{bucket: "reports", cdnDomain: "cdn.example.com", storageMode: ObjectStorageModeGCS},
			want: "https://cdn.example.com/" + key,
		},
		{
			name: "public base",
			bs:   &bucketService{bucket: "reports", publicBaseURL: "https://files.example.com", storageMode: ObjectStorageModeGCS},
			want: "https://files.example.com/reports/" + key,
		},
		{
			name: "emulator media url",
			bs:   &bucketService{bucket: "reports", emulatorHost: "http://fake-gcs:4443", storageMode: ObjectStorageModeGCSEmulator},
			want: "http://fake-gcs:4443/storage/v1/b/reports/o/checkins%2F4b6c1f3e-0000-4000-8000-000000000001%2F2026-10-19.png?alt=media",
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := tc.bs.GetPublicURL("/" + key); got != tc.want {
				t.Fatalf("GetPublicURL: want=%q got=%q", tc.want, got)
			}
		})
	}
}

func TestContentTypeForKey(t *testing.T) {
	if got := contentTypeForKey("a/b.PNG"); got != "image/png" {
		t.Fatalf("png: got=%q", got)
	}
	if got := contentTypeForKey("a/b.bin"); got != "" {
		t.Fatalf("unknown: got=%q", got)
	}
}
