package controller

import (
	"context"
	"encoding/json"
	"time"

	"github.com/Laisky/errors/v2"
	"github.com/Laisky/zap"
	"github.com/go-redis/redis/v8"
	gocache "github.com/patrickmn/go-cache"

	"github.com/gptbots-qa/agent-tester/common/logger"
)

const redisKeyPrefix = "agent_tester:run:"

var ErrRunNotFound = errors.New("run not found")

// Registry tracks live and recently finished runs. Handles live in a local
// cache; when rdb is set every snapshot is mirrored to Redis so other
// instances can answer status queries.
type Registry struct {
	local *gocache.Cache
	rdb   redis.Cmdable
	ttl   time.Duration
}

// NewRegistry keeps finished runs for ttl. rdb may be nil.
func NewRegistry(ttl time.Duration, rdb redis.Cmdable) *Registry {
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &Registry{
		local: gocache.New(ttl, ttl/2),
		rdb:   rdb,
		ttl:   ttl,
	}
}

// Register tracks h until it finishes, then for the registry ttl.
func (r *Registry) Register(h *RunHandle) {
	r.local.Set(h.ID(), h, gocache.NoExpiration)
	h.setOnChange(func(s RunSnapshot) {
		if s.Status.Terminal() {
			r.local.Set(s.RunID, h, r.ttl)
		}
		r.mirror(s)
	})
	r.mirror(h.Snapshot())
}

// Handle returns the local handle of runID.
func (r *Registry) Handle(runID string) (*RunHandle, bool) {
	v, ok := r.local.Get(runID)
	if !ok {
		return nil, false
	}
	h, ok := v.(*RunHandle)
	return h, ok
}

// Snapshot reads runID locally, then from Redis.
func (r *Registry) Snapshot(ctx context.Context, runID string) (*RunSnapshot, error) {
	if h, ok := r.Handle(runID); ok {
		s := h.Snapshot()
		return &s, nil
	}
	if r.rdb == nil {
		return nil, ErrRunNotFound
	}

	raw, err := r.rdb.Get(ctx, redisKeyPrefix+runID).Result()
	if errors.Is(err, redis.Nil) {
		return nil, ErrRunNotFound
	}
	if err != nil {
		return nil, errors.Wrapf(err, "get run %s from redis", runID)
	}

	s := new(RunSnapshot)
	if err = json.Unmarshal([]byte(raw), s); err != nil {
		return nil, errors.Wrapf(err, "decode run %s snapshot", runID)
	}
	return s, nil
}

// Cancel requests a cooperative stop of a run owned by this instance.
// It returns false when the run already finished.
func (r *Registry) Cancel(runID string) (bool, error) {
	h, ok := r.Handle(runID)
	if !ok {
		return false, ErrRunNotFound
	}
	return h.Cancel(), nil
}

// Running returns the number of non-terminal local runs.
func (r *Registry) Running() int {
	n := 0
	for _, item := range r.local.Items() {
		if h, ok := item.Object.(*RunHandle); ok && !h.Snapshot().Status.Terminal() {
			n++
		}
	}
	return n
}

func (r *Registry) mirror(s RunSnapshot) {
	if r.rdb == nil {
		return
	}

	data, err := json.Marshal(s)
	if err != nil {
		logger.Logger.Warn("marshal run snapshot", zap.String("run_id", s.RunID), zap.Error(err))
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err = r.rdb.Set(ctx, redisKeyPrefix+s.RunID, data, r.ttl).Err(); err != nil {
		logger.Logger.Warn("mirror run snapshot to redis", zap.String("run_id", s.RunID), zap.Error(err))
	}
}
