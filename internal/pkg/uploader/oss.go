package uploader

import (
	"bytes"
	"context"
	"fmt"
	"path"
	"time"

	"github.com/manmiddle614-crypto/backend/internal/pkg/config"

	"github.com/aliyun/aliyun-oss-go-sdk/oss"
)

// Archiver 离线同步批次原文归档，便于事后对账
type Archiver interface {
	Archive(ctx context.Context, tenantID, batchID string, payload []byte) (string, error)
}

type AliyunOSSUploader struct {
	client *oss.Client
	bucket *oss.Bucket
	config config.OSSConfig
}

func NewAliyunOSSUploader(cfg config.OSSConfig) (*AliyunOSSUploader, error) {
	if cfg.Endpoint == "" || cfg.BucketName == "" {
		return nil, fmt.Errorf("oss config is missing")
	}

	client, err := oss.New(cfg.Endpoint, cfg.AccessKeyID, cfg.AccessKeySecret)
	if err != nil {
		return nil, err
	}

	bucket, err := client.Bucket(cfg.BucketName)
	if err != nil {
		return nil, err
	}

	return &AliyunOSSUploader{
		client: client,
		bucket: bucket,
		config: cfg,
	}, nil
}

// ObjectKey 归档对象路径: <prefix>/<tenant>/<YYYYMMDD>/<batch>.json
func ObjectKey(prefix, tenantID, batchID string, at time.Time) string {
	return path.Join(prefix, tenantID, at.UTC().Format("20060102"), batchID+".json")
}

// Archive 上传批次 JSON，返回对象 key
func (u *AliyunOSSUploader) Archive(ctx context.Context, tenantID, batchID string, payload []byte) (string, error) {
	key := ObjectKey(u.config.Prefix, tenantID, batchID, time.Now())

	err := u.bucket.PutObject(key, bytes.NewReader(payload),
		oss.ContentType("application/json"),
		oss.WithContext(ctx),
	)
	if err != nil {
		return "", err
	}
	return key, nil
}
