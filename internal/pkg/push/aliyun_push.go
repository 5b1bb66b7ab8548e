package push

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/manmiddle614-crypto/backend/internal/pkg/config"

	"github.com/aliyun/alibaba-cloud-sdk-go/sdk/requests"
	"github.com/aliyun/alibaba-cloud-sdk-go/services/push"
)

// AliyunPushService 阿里云移动推送，客户 App 以 customerId 绑定账号
type AliyunPushService struct {
	client *push.Client
	appKey int64
}

// NewAliyunPushService 未配置时返回错误，由调用方决定是否跳过该渠道
func NewAliyunPushService(cfg config.PushConfig) (*AliyunPushService, error) {
	if cfg.AccessKeyID == "" || cfg.AppKey == 0 {
		return nil, errors.New("aliyun push is not configured")
	}

	client, err := push.NewClientWithAccessKey(cfg.RegionID, cfg.AccessKeyID, cfg.AccessKeySecret)
	if err != nil {
		return nil, fmt.Errorf("aliyun push client: %w", err)
	}
	return &AliyunPushService{client: client, appKey: cfg.AppKey}, nil
}

func (s *AliyunPushService) NotifyMealRedeemed(ctx context.Context, event MealEvent) error {
	// SDK 不支持 context，已超时的任务不再发送
	if err := ctx.Err(); err != nil {
		return err
	}
	req, err := s.buildRequest(event)
	if err != nil {
		return err
	}
	resp, err := s.client.Push(req)
	if err != nil {
		return fmt.Errorf("aliyun push: %w", err)
	}
	if !resp.IsSuccess() {
		return fmt.Errorf("aliyun push: http %d", resp.GetHttpStatus())
	}
	return nil
}

func (s *AliyunPushService) buildRequest(event MealEvent) (*push.PushRequest, error) {
	title, body, data := content(event)
	ext, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}

	req := push.CreatePushRequest()
	req.AppKey = requests.NewInteger(int(s.appKey))
	req.Target = "ACCOUNT"
	req.TargetValue = event.CustomerID
	req.DeviceType = "ALL"
	req.PushType = "NOTICE"
	req.Title = title
	req.Body = body
	req.AndroidExtParameters = string(ext)
	req.IOSExtParameters = string(ext)
	return req, nil
}
