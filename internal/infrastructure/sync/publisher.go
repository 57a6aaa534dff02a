package sync

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	appinv "github.com/wms/backend/internal/application/inventory"
	appsync "github.com/wms/backend/internal/application/sync"
	"github.com/wms/backend/internal/infrastructure/config"
)

// DefaultChannel is the Pub/Sub channel snapshots are published on when no
// channel is configured
const DefaultChannel = "wms.stock.snapshots"

// RedisStockPublisher pushes availability snapshots to external sales
// channels over Redis Pub/Sub. Listeners on the channel side translate the
// snapshot into their own listing updates.
type RedisStockPublisher struct {
	client     *redis.Client
	ownsClient bool
	channel    string
	logger     *zap.Logger
}

// RedisStockPublisherOption is a functional option for configuring the publisher
type RedisStockPublisherOption func(*RedisStockPublisher)

// WithPublisherChannel sets the Pub/Sub channel name
func WithPublisherChannel(channel string) RedisStockPublisherOption {
	return func(p *RedisStockPublisher) {
		if channel != "" {
			p.channel = channel
		}
	}
}

// WithPublisherLogger sets the logger for the publisher
func WithPublisherLogger(logger *zap.Logger) RedisStockPublisherOption {
	return func(p *RedisStockPublisher) {
		p.logger = logger
	}
}

// NewRedisStockPublisher creates a publisher with its own Redis client
func NewRedisStockPublisher(cfg config.RedisConfig, opts ...RedisStockPublisherOption) (*RedisStockPublisher, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr(),
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	publisher := &RedisStockPublisher{
		client:     client,
		ownsClient: true,
		channel:    DefaultChannel,
		logger:     zap.NewNop(),
	}

	for _, opt := range opts {
		opt(publisher)
	}

	return publisher, nil
}

// NewRedisStockPublisherWithClient creates a publisher on an existing Redis
// client. The caller retains ownership of the client.
func NewRedisStockPublisherWithClient(client *redis.Client, opts ...RedisStockPublisherOption) *RedisStockPublisher {
	publisher := &RedisStockPublisher{
		client:     client,
		ownsClient: false,
		channel:    DefaultChannel,
		logger:     zap.NewNop(),
	}

	for _, opt := range opts {
		opt(publisher)
	}

	return publisher
}

// PublishStockSnapshot serializes the snapshot and publishes it
func (p *RedisStockPublisher) PublishStockSnapshot(ctx context.Context, snapshot *appinv.ATPResponse) error {
	data, err := json.Marshal(snapshot)
	if err != nil {
		p.logger.Error("Failed to marshal stock snapshot",
			zap.String("product_id", snapshot.ProductID.String()),
			zap.Error(err))
		return fmt.Errorf("failed to marshal snapshot: %w", err)
	}

	if err := p.client.Publish(ctx, p.channel, data).Err(); err != nil {
		p.logger.Error("Failed to publish stock snapshot",
			zap.String("channel", p.channel),
			zap.String("product_id", snapshot.ProductID.String()),
			zap.Error(err))
		return fmt.Errorf("failed to publish snapshot: %w", err)
	}

	p.logger.Debug("Published stock snapshot",
		zap.String("channel", p.channel),
		zap.String("product_id", snapshot.ProductID.String()),
		zap.Int64("atp_base", snapshot.ATPBase))

	return nil
}

// Close releases the Redis client if the publisher owns it
func (p *RedisStockPublisher) Close() error {
	if p.ownsClient {
		return p.client.Close()
	}
	return nil
}

var _ appsync.StockPublisher = (*RedisStockPublisher)(nil)
