package redis

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// RoomIndex marks live room codes in Redis. Rooms themselves stay in-process;
// the index only advertises which codes are active (and could be extended to
// route cross-instance lookups). All writes are best-effort.
type RoomIndex struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRoomIndex(client *redis.Client, ttl time.Duration) *RoomIndex {
	return &RoomIndex{client: client, ttl: ttl}
}

func (i *RoomIndex) MarkLive(code string) {
	_ = i.client.Set(context.Background(), i.key(code), "1", i.ttl).Err()
}

func (i *RoomIndex) Clear(code string) {
	_ = i.client.Del(context.Background(), i.key(code)).Err()
}

func (i *RoomIndex) key(code string) string {
	return "room:live:" + code
}
