package service

import (
	"context"
	"sort"
	"time"

	"github.com/manmiddle614-crypto/backend/internal/domain/redemption/model"
	"github.com/manmiddle614-crypto/backend/internal/pkg/worker"
	"github.com/manmiddle614-crypto/backend/pkg/logger"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// BatchScan 离线缓存的一次扫码
type BatchScan struct {
	Credential      string    `json:"credential"`
	ClientTimestamp time.Time `json:"clientTimestamp"`
	ClientID        string    `json:"clientId"` // 设备生成的唯一 id，用作幂等键
}

// BatchRequest 离线同步批次
type BatchRequest struct {
	TenantID  string
	ScannerID string
	Scans     []BatchScan
	Metadata  map[string]interface{}
	// Raw 原始请求体，配置了归档时上传
	Raw []byte
}

// BatchItemResult 单条回放结果
type BatchItemResult struct {
	ClientID string `json:"clientId"`
	*model.RedemptionResult
}

// BatchResult 批次汇总
type BatchResult struct {
	BatchID      string            `json:"batchId"`
	SuccessCount int               `json:"successCount"`
	BlockedCount int               `json:"blockedCount"`
	FailedCount  int               `json:"failedCount"`
	Results      []BatchItemResult `json:"results"`
}

// RedeemBatch 按客户端时间升序逐条回放，单条失败不影响其他条目
// 不并发执行：同批次内的重复判定依赖前面的扫码已经落库
func (s *redemptionService) RedeemBatch(ctx context.Context, req BatchRequest) *BatchResult {
	scans := make([]BatchScan, len(req.Scans))
	copy(scans, req.Scans)
	sort.SliceStable(scans, func(i, j int) bool {
		return scans[i].ClientTimestamp.Before(scans[j].ClientTimestamp)
	})

	out := &BatchResult{
		BatchID: uuid.New().String(),
		Results: make([]BatchItemResult, 0, len(scans)),
	}
	for _, sc := range scans {
		metadata := make(map[string]interface{}, len(req.Metadata)+1)
		for k, v := range req.Metadata {
			metadata[k] = v
		}
		metadata["batchId"] = out.BatchID

		res := s.Redeem(ctx, RedeemRequest{
			TenantID:     req.TenantID,
			ScannerID:    req.ScannerID,
			Credential:   sc.Credential,
			ClientScanID: sc.ClientID,
			ScannedAt:    sc.ClientTimestamp,
			Source:       model.SourceOffline,
			Metadata:     metadata,
		})

		switch {
		case res.Status == model.StatusSuccess && !res.Replayed:
			out.SuccessCount++
		case res.Status == model.StatusBlocked || res.Replayed:
			// 重复提交的批次：已落库的条目计为重复
			out.BlockedCount++
		default:
			out.FailedCount++
		}
		out.Results = append(out.Results, BatchItemResult{ClientID: sc.ClientID, RedemptionResult: res})
	}

	s.archive(req, out.BatchID)
	s.Metrics.RecordBatch(len(scans))

	logger.Log.Info("offline batch replayed",
		zap.String("tenant", req.TenantID),
		zap.String("scanner", req.ScannerID),
		zap.String("batch", out.BatchID),
		zap.Int("size", len(scans)),
		zap.Int("success", out.SuccessCount),
		zap.Int("blocked", out.BlockedCount),
		zap.Int("failed", out.FailedCount),
	)
	return out
}

func (s *redemptionService) archive(req BatchRequest, batchID string) {
	if s.Archiver == nil || len(req.Raw) == 0 {
		return
	}
	s.Workers.Submit(worker.TaskFunc{
		Name: "archive_batch",
		Fn: func(ctx context.Context) error {
			key, err := s.Archiver.Archive(ctx, req.TenantID, batchID, req.Raw)
			if err != nil {
				return err
			}
			logger.Log.Debug("batch archived", zap.String("batch", batchID), zap.String("key", key))
			return nil
		},
	})
}
