package push

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// RedisPublisher 发布到 Redis 频道，供食堂看板的 websocket 网关订阅
type RedisPublisher struct {
	client  redis.UniversalClient
	channel string
}

func NewRedisPublisher(client redis.UniversalClient, channel string) *RedisPublisher {
	return &RedisPublisher{client: client, channel: channel}
}

// ChannelFor 按租户隔离频道
func (p *RedisPublisher) ChannelFor(tenantID string) string {
	return fmt.Sprintf("%s:%s", p.channel, tenantID)
}

func (p *RedisPublisher) NotifyMealRedeemed(ctx context.Context, event MealEvent) error {
	data, err := json.Marshal(event)
	if err != nil {
		return err
	}
	return p.client.Publish(ctx, p.ChannelFor(event.TenantID), data).Err()
}
