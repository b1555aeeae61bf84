package server

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shinji-kodama/uploadkit/internal/model"
)

func TestNormaliseEndpoint(t *testing.T) {
	tests := []struct {
		raw        string
		wantHost   string
		wantSecure bool
		wantErr    bool
	}{
		{"minio:9000", "minio:9000", false, false},
		{"  minio:9000 ", "minio:9000", false, false},
		{"http://minio:9000", "minio:9000", false, false},
		{"https://s3.example.com", "s3.example.com", true, false},
		{"https://s3.example.com/", "s3.example.com", true, false},
		{"https://s3.example.com/bucket", "", false, true},
		{"http://", "", false, true},
		{"", "", false, true},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			host, secure, err := normaliseEndpoint(tt.raw)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantHost, host)
			assert.Equal(t, tt.wantSecure, secure)
		})
	}
}

func TestNewMinioStore_Incomplete(t *testing.T) {
	_, err := NewMinioStore(context.Background(), Config{S3Endpoint: "minio:9000"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "incomplete")
}

func TestNewStore_Disk(t *testing.T) {
	cfg := DefaultConfig()
	cfg.UploadDir = t.TempDir()

	store, err := NewStore(context.Background(), cfg)
	require.NoError(t, err)
	assert.Equal(t, model.StorageDisk, store.Kind())
}

func TestNewStore_Unsupported(t *testing.T) {
	_, err := NewStore(context.Background(), Config{Storage: "ftp"})
	assert.Error(t, err)
}
