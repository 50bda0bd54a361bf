package repositories

import (
	"context"

	"voxhub/internal/core/ports"
	"voxhub/internal/infrastructure/repositories/memory"
	redisrepo "voxhub/internal/infrastructure/repositories/redis"
	"voxhub/pkg/config"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// RepositoryFactory creates collaborator backends with fallback support.
type RepositoryFactory struct {
	useRedis    bool
	redisClient *redis.Client
	logger      *zap.SugaredLogger
}

// NewRepositoryFactory creates a new repository factory.
func NewRepositoryFactory(cfg *config.Config, logger *zap.SugaredLogger) (*RepositoryFactory, error) {
	factory := &RepositoryFactory{
		useRedis: cfg.Redis.Enabled,
		logger:   logger,
	}

	if cfg.Redis.Enabled {
		client, err := redisrepo.NewRedisClient(
			cfg.Redis.Address,
			cfg.Redis.Password,
			cfg.Redis.DB,
			cfg.Redis.PoolSize,
			logger,
		)
		if err != nil {
			logger.Warnw("failed to connect to Redis, falling back to memory repositories",
				"error", err,
			)
			factory.useRedis = false
		} else {
			factory.redisClient = client
			logger.Info("using Redis repositories")
		}
	}

	if !factory.useRedis {
		logger.Info("using memory repositories")
	}

	return factory, nil
}

// CreateFriendGraph creates the friend graph backend.
func (f *RepositoryFactory) CreateFriendGraph() ports.FriendGraph {
	if f.useRedis && f.redisClient != nil {
		return redisrepo.NewRedisFriendGraph(f.redisClient)
	}
	return memory.NewMemoryFriendGraph()
}

// CreateGroupMembership creates the group membership backend.
func (f *RepositoryFactory) CreateGroupMembership() ports.GroupMembership {
	if f.useRedis && f.redisClient != nil {
		return redisrepo.NewRedisGroupMembership(f.redisClient)
	}
	return memory.NewMemoryGroupMembership()
}

// CreateMessageStore creates the message store backend.
func (f *RepositoryFactory) CreateMessageStore() ports.MessageStore {
	if f.useRedis && f.redisClient != nil {
		return redisrepo.NewRedisMessageStore(f.redisClient)
	}
	return memory.NewMemoryMessageStore()
}

// Close closes the Redis connection if used.
func (f *RepositoryFactory) Close() error {
	if f.redisClient != nil {
		return redisrepo.CloseRedisClient(f.redisClient)
	}
	return nil
}

// HealthCheck checks Redis connection health.
func (f *RepositoryFactory) HealthCheck(ctx context.Context) error {
	if f.useRedis && f.redisClient != nil {
		return f.redisClient.Ping(ctx).Err()
	}
	return nil
}
