package rdx

import (
	"os"
	"time"

	"github.com/redis/go-redis/v9"

	"fasal/globals"
)

var Conn = redis.NewClient(&redis.Options{
	Addr: envOr("REDIS_ADDR", "localhost:6379"),
})

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// SetWithExpiry stores a string value with a TTL.
func SetWithExpiry(key, value string, ttl time.Duration) error {
	return Conn.Set(globals.Ctx, key, value, ttl).Err()
}

// RdxGet fetches a string value, empty on miss.
func RdxGet(key string) (string, error) {
	v, err := Conn.Get(globals.Ctx, key).Result()
	if err == redis.Nil {
		return "", nil
	}
	return v, err
}

// RdxDel removes a key.
func RdxDel(key string) error {
	return Conn.Del(globals.Ctx, key).Err()
}

// AddToSet appends members to a set and refreshes its TTL.
func AddToSet(key string, ttl time.Duration, members ...string) error {
	if len(members) == 0 {
		return nil
	}
	args := make([]interface{}, len(members))
	for i, m := range members {
		args[i] = m
	}
	if err := Conn.SAdd(globals.Ctx, key, args...).Err(); err != nil {
		return err
	}
	return Conn.Expire(globals.Ctx, key, ttl).Err()
}

// SetMembers lists the members of a set, empty on miss.
func SetMembers(key string) ([]string, error) {
	members, err := Conn.SMembers(globals.Ctx, key).Result()
	if err == redis.Nil {
		return nil, nil
	}
	return members, err
}
