package uploader

import (
	"testing"
	"time"

	"github.com/manmiddle614-crypto/backend/internal/pkg/config"

	"github.com/stretchr/testify/assert"
)

func TestObjectKey(t *testing.T) {
	at := time.Date(2026, 5, 4, 23, 0, 0, 0, time.UTC)
	assert.Equal(t, "offline-sync/t-1/20260504/b-1.json", ObjectKey("offline-sync/", "t-1", "b-1", at))
}

func TestNewUploaderRequiresConfig(t *testing.T) {
	_, err := NewAliyunOSSUploader(config.OSSConfig{})
	assert.Error(t, err)
}
