package database

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"storyboard-server/internal/interfaces"
	"storyboard-server/internal/models"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Compile-time check to ensure redisTokenRepository implements TokenRepository
var _ interfaces.TokenRepository = (*redisTokenRepository)(nil)

// Ключи:
//
//	access_uuid:{uuid}  -> userID (TTL access токена)
//	refresh_uuid:{uuid} -> userID (TTL refresh токена)
//	user_tokens:{userID} -> { "access:{uuid}", "refresh:{uuid}" }
const (
	tokenKindAccess  = "access"
	tokenKindRefresh = "refresh"
)

func tokenKey(kind, tokenUUID string) string {
	return fmt.Sprintf("%s_uuid:%s", kind, tokenUUID)
}

func userTokensKey(userID uuid.UUID) string {
	return fmt.Sprintf("user_tokens:%s", userID.String())
}

type redisTokenRepository struct {
	client *redis.Client
	logger *zap.Logger
}

// NewRedisTokenRepository creates a new Redis-backed TokenRepository.
func NewRedisTokenRepository(client *redis.Client, logger *zap.Logger) interfaces.TokenRepository {
	return &redisTokenRepository{
		client: client,
		logger: logger.Named("RedisTokenRepo"),
	}
}

// SetToken stores both token UUIDs and registers them in the user's set.
func (r *redisTokenRepository) SetToken(ctx context.Context, userID uuid.UUID, td *models.TokenDetails) error {
	now := time.Now()
	accessTTL := time.Unix(td.AtExpires, 0).Sub(now)
	refreshTTL := time.Unix(td.RtExpires, 0).Sub(now)
	userIDStr := userID.String()
	setKey := userTokensKey(userID)

	pipe := r.client.TxPipeline()
	pipe.Set(ctx, tokenKey(tokenKindAccess, td.AccessUUID), userIDStr, accessTTL)
	pipe.Set(ctx, tokenKey(tokenKindRefresh, td.RefreshUUID), userIDStr, refreshTTL)
	pipe.SAdd(ctx, setKey, tokenKindAccess+":"+td.AccessUUID, tokenKindRefresh+":"+td.RefreshUUID)
	// Набор живет не дольше самого длинного токена
	pipe.Expire(ctx, setKey, refreshTTL)

	r.logger.Debug("Setting tokens in Redis",
		zap.String("userID", userIDStr),
		zap.String("accessUUID", td.AccessUUID),
		zap.String("refreshUUID", td.RefreshUUID),
		zap.Duration("accessTTL", accessTTL),
		zap.Duration("refreshTTL", refreshTTL),
	)

	if _, err := pipe.Exec(ctx); err != nil {
		r.logger.Error("Failed to set token details in redis", zap.Error(err), zap.String("userID", userIDStr))
		return fmt.Errorf("failed to set token details in redis: %w", err)
	}
	return nil
}

// DeleteTokens removes the given token UUIDs and their set entries.
func (r *redisTokenRepository) DeleteTokens(ctx context.Context, userID uuid.UUID, accessUUID, refreshUUID string) (int64, error) {
	keys := []string{}
	members := []interface{}{}
	logFields := []zap.Field{zap.String("userID", userID.String())}

	if accessUUID != "" {
		keys = append(keys, tokenKey(tokenKindAccess, accessUUID))
		members = append(members, tokenKindAccess+":"+accessUUID)
		logFields = append(logFields, zap.String("accessUUID", accessUUID))
	}
	if refreshUUID != "" {
		keys = append(keys, tokenKey(tokenKindRefresh, refreshUUID))
		members = append(members, tokenKindRefresh+":"+refreshUUID)
		logFields = append(logFields, zap.String("refreshUUID", refreshUUID))
	}
	if len(keys) == 0 {
		r.logger.Warn("DeleteTokens called with no UUIDs")
		return 0, nil
	}

	pipe := r.client.TxPipeline()
	delCmd := pipe.Del(ctx, keys...)
	pipe.SRem(ctx, userTokensKey(userID), members...)

	if _, err := pipe.Exec(ctx); err != nil {
		logFields = append(logFields, zap.Error(err))
		r.logger.Error("Failed to delete tokens", logFields...)
		return 0, fmt.Errorf("failed to delete tokens: %w", err)
	}

	deleted, _ := delCmd.Result()
	logFields = append(logFields, zap.Int64("deletedCount", deleted))
	r.logger.Info("Tokens deleted from Redis", logFields...)
	return deleted, nil
}

func (r *redisTokenRepository) GetUserIDByAccessUUID(ctx context.Context, accessUUID string) (uuid.UUID, error) {
	return r.lookup(ctx, tokenKindAccess, accessUUID)
}

func (r *redisTokenRepository) GetUserIDByRefreshUUID(ctx context.Context, refreshUUID string) (uuid.UUID, error) {
	return r.lookup(ctx, tokenKindRefresh, refreshUUID)
}

func (r *redisTokenRepository) lookup(ctx context.Context, kind, tokenUUID string) (uuid.UUID, error) {
	key := tokenKey(kind, tokenUUID)
	userIDStr, err := r.client.Get(ctx, key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			r.logger.Debug("Token not found in Redis", zap.String("kind", kind), zap.String("uuid", tokenUUID))
			return uuid.Nil, models.ErrTokenNotFound
		}
		r.logger.Error("Failed to get token from redis", zap.Error(err), zap.String("key", key))
		return uuid.Nil, fmt.Errorf("failed to get token from redis: %w", err)
	}

	userID, err := uuid.Parse(userIDStr)
	if err != nil {
		r.logger.Error("Corrupted userID in redis", zap.String("key", key), zap.String("value", userIDStr), zap.Error(err))
		return uuid.Nil, fmt.Errorf("corrupted userID data in redis for %s token %s: %w", kind, tokenUUID, err)
	}
	return userID, nil
}

// DeleteTokensByUserID removes every token registered in the user's set.
func (r *redisTokenRepository) DeleteTokensByUserID(ctx context.Context, userID uuid.UUID) (int64, error) {
	log := r.logger.With(zap.String("userID", userID.String()))
	setKey := userTokensKey(userID)

	members, err := r.client.SMembers(ctx, setKey).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		log.Error("Failed to get token identifiers from user set", zap.Error(err))
		return 0, fmt.Errorf("failed to retrieve token identifiers for user %s: %w", userID, err)
	}

	keys := make([]string, 0, len(members))
	for _, member := range members {
		kind, tokenUUID, ok := strings.Cut(member, ":")
		if !ok || (kind != tokenKindAccess && kind != tokenKindRefresh) {
			log.Warn("Malformed token identifier found in user set", zap.String("identifier", member))
			continue
		}
		keys = append(keys, tokenKey(kind, tokenUUID))
	}

	pipe := r.client.TxPipeline()
	var delCmd *redis.IntCmd
	if len(keys) > 0 {
		delCmd = pipe.Del(ctx, keys...)
	}
	pipe.Del(ctx, setKey)
	if _, err := pipe.Exec(ctx); err != nil {
		log.Error("Failed to delete tokens and set", zap.Error(err))
		return 0, fmt.Errorf("failed to delete tokens for user %s: %w", userID, err)
	}

	var deleted int64
	if delCmd != nil {
		deleted, _ = delCmd.Result()
	}
	log.Info("Deleted tokens for user", zap.Int64("deletedTokenKeys", deleted), zap.Int("identifiersFound", len(members)))
	return deleted, nil
}
