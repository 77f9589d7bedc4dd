package store

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/redis/go-redis/v9"
)

// Redis key layout.
const (
	redisScoresKey   = "scoregw:scores"
	redisScoreSeqKey = "scoregw:scores:seq"
	redisUserPrefix  = "scoregw:user:"
)

// submitScript inserts ARGV[2] for player ARGV[1] if the board has fewer
// than ARGV[3] entries or the score is at least the lowest one, then trims
// the board. Members are "<name>#<seq>" so one player can hold several
// entries.
var submitScript = redis.NewScript(`
local limit = tonumber(ARGV[3])
local score = tonumber(ARGV[2])
if redis.call('ZCARD', KEYS[1]) >= limit then
	local lowest = redis.call('ZRANGE', KEYS[1], 0, 0, 'WITHSCORES')
	if score < tonumber(lowest[2]) then
		return 0
	end
end
local seq = redis.call('INCR', KEYS[2])
redis.call('ZADD', KEYS[1], score, ARGV[1] .. '#' .. seq)
redis.call('ZREMRANGEBYRANK', KEYS[1], 0, -(limit + 1))
return 1
`)

// RedisOptions configures the Redis backend.
type RedisOptions struct {
	Addr     string
	Password string
	DB       int
}

// Redis is the Redis backend. Scores live in a sorted set, users in one
// hash per user.
type Redis struct {
	client *redis.Client
}

// OpenRedis connects to Redis and verifies the connection.
func OpenRedis(ctx context.Context, opts RedisOptions) (*Redis, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, wrap("open", err)
	}

	return &Redis{client: client}, nil
}

// NewRedisFromClient wraps an existing client.
func NewRedisFromClient(client *redis.Client) *Redis {
	return &Redis{client: client}
}

// Ping implements Store.
func (r *Redis) Ping(ctx context.Context) error {
	return wrap("ping", r.client.Ping(ctx).Err())
}

// TopScores implements Store.
func (r *Redis) TopScores(ctx context.Context) ([]Score, error) {
	entries, err := r.client.ZRevRangeWithScores(ctx, redisScoresKey, 0, TopN-1).Result()
	if err != nil {
		return nil, wrap("top scores", err)
	}

	scores := make([]Score, 0, len(entries))
	for _, e := range entries {
		member, _ := e.Member.(string)
		name := member
		if idx := strings.LastIndex(member, "#"); idx >= 0 {
			name = member[:idx]
		}
		scores = append(scores, Score{PlayerName: name, PlayerScore: int64(e.Score)})
	}
	return scores, nil
}

// SubmitScore implements Store.
func (r *Redis) SubmitScore(ctx context.Context, s Score) (bool, error) {
	res, err := submitScript.Run(ctx, r.client,
		[]string{redisScoresKey, redisScoreSeqKey},
		s.PlayerName, s.PlayerScore, TopN,
	).Int()
	if err != nil {
		return false, wrap("submit score", err)
	}
	return res == 1, nil
}

// Flush implements Store.
func (r *Redis) Flush(ctx context.Context) error {
	return wrap("flush", r.client.Del(ctx, redisScoresKey, redisScoreSeqKey).Err())
}

// FindUser implements Store.
func (r *Redis) FindUser(ctx context.Context, username string) (User, error) {
	fields, err := r.client.HGetAll(ctx, redisUserPrefix+username).Result()
	if err != nil {
		return User{}, wrap("find user", err)
	}
	if len(fields) == 0 {
		return User{}, fmt.Errorf("user %q: %w", username, ErrNotFound)
	}
	return User{
		Username:     username,
		PasswordHash: fields["password_hash"],
		Role:         fields["role"],
	}, nil
}

// UpsertUser implements Store.
func (r *Redis) UpsertUser(ctx context.Context, u User) error {
	if u.Username == "" {
		return wrap("upsert user", errors.New("empty username"))
	}
	return wrap("upsert user", r.client.HSet(ctx, redisUserPrefix+u.Username,
		"password_hash", u.PasswordHash,
		"role", u.Role,
	).Err())
}

// Close implements Store.
func (r *Redis) Close() error {
	return r.client.Close()
}
