package redis

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/smart845/QuantumTrader/internal/application/port"
)

// Repo 最新看板缓存：SET <prefix>:board 并 PUBLISH 到频道
type Repo struct {
	rdb      *redis.Client
	ttl      time.Duration
	keyBoard string // prefix + ":board"
	channel  string
}

func New(rdb *redis.Client, prefix string, ttl time.Duration, channel string) *Repo {
	if strings.TrimSpace(prefix) == "" {
		prefix = "spreadscan"
	}
	if strings.TrimSpace(channel) == "" {
		channel = prefix + ":board:pub"
	}
	return &Repo{
		rdb:      rdb,
		ttl:      ttl,
		keyBoard: prefix + ":board",
		channel:  channel,
	}
}

func (r *Repo) BoardKey() string { return r.keyBoard }
func (r *Repo) Channel() string  { return r.channel }

func (r *Repo) ReplaceBoard(ctx context.Context, b port.Board) error {
	payload, err := json.Marshal(b)
	if err != nil {
		return err
	}
	pipe := r.rdb.TxPipeline()
	pipe.Set(ctx, r.keyBoard, payload, r.ttl)
	pipe.Publish(ctx, r.channel, payload)
	_, err = pipe.Exec(ctx)
	return err
}

func (r *Repo) LatestBoard(ctx context.Context) (*port.Board, error) {
	raw, err := r.rdb.Get(ctx, r.keyBoard).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var b port.Board
	if err := json.Unmarshal(raw, &b); err != nil {
		return nil, err
	}
	return &b, nil
}

// Close is a no-op; the client is owned by whoever created it.
func (r *Repo) Close() error { return nil }

var _ port.BoardStore = (*Repo)(nil)
