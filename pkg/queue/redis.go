package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"DigitPulse/pkg/logger"

	"github.com/redis/go-redis/v9"
)

// RedisQueue is a redis-list backed queue with delayed retries (sorted
// set) and a dead-letter list for messages that exhaust their retries.
type RedisQueue struct {
	log       *logger.Logger
	cfg       *Config
	client    *redis.Client
	jobs      map[string]Job
	keyPrefix string

	mu      sync.RWMutex
	running bool
	wg      sync.WaitGroup
	ctx     context.Context
	cancel  context.CancelFunc
}

// Option configures a RedisQueue.
type Option func(*RedisQueue)

// WithKeyPrefix overrides the redis key prefix.
func WithKeyPrefix(prefix string) Option {
	return func(r *RedisQueue) { r.keyPrefix = prefix }
}

// NewRedisQueue creates a queue; register jobs before Start to consume.
func NewRedisQueue(log *logger.Logger, cfg *Config, client *redis.Client, opts ...Option) *RedisQueue {
	if cfg == nil {
		cfg = &Config{}
	}
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	if cfg.RetryDelay <= 0 {
		cfg.RetryDelay = 10 * time.Second
	}
	ctx, cancel := context.WithCancel(context.Background())
	r := &RedisQueue{
		log:       log,
		cfg:       cfg,
		client:    client,
		jobs:      make(map[string]Job),
		keyPrefix: "digitpulse:queue",
		ctx:       ctx,
		cancel:    cancel,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// RegisterJob registers a handler for one message type.
func (r *RedisQueue) RegisterJob(job Job) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.jobs[job.Type()]; exists {
		r.log.Warn("job already registered", logger.String("job", job.Name()))
		return
	}
	r.jobs[job.Type()] = job
	r.log.Info("job registered",
		logger.String("job", job.Name()),
		logger.String("type", job.Type()))
}

// Start pings redis and launches the workers and retry processor.
func (r *RedisQueue) Start() error {
	r.mu.Lock()
	if r.running {
		r.mu.Unlock()
		return fmt.Errorf("queue already running")
	}
	r.running = true
	workers := 0
	if len(r.jobs) > 0 {
		workers = r.cfg.Workers
	}
	r.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := r.client.Ping(ctx).Err(); err != nil {
		r.mu.Lock()
		r.running = false
		r.mu.Unlock()
		return fmt.Errorf("redis ping: %w", err)
	}

	for i := 0; i < workers; i++ {
		r.wg.Add(1)
		go r.worker(i)
	}
	if workers > 0 {
		r.wg.Add(1)
		go r.retryProcessor()
	}
	r.log.Info("redis queue started", logger.Int("workers", workers))
	return nil
}

// Stop cancels workers and waits for them, bounded by ctx.
func (r *RedisQueue) Stop(ctx context.Context) error {
	r.mu.Lock()
	if !r.running {
		r.mu.Unlock()
		return nil
	}
	r.running = false
	r.mu.Unlock()
	r.cancel()

	done := make(chan struct{})
	go func() {
		r.wg.Wait()
		close(done)
	}()
	select {
	case <-ctx.Done():
		return fmt.Errorf("queue stop timeout: %w", ctx.Err())
	case <-done:
		r.log.Info("redis queue stopped")
		return nil
	}
}

// PublishMessage enqueues a message (implements Service).
func (r *RedisQueue) PublishMessage(ctx context.Context, msgType string, payload interface{}) error {
	r.mu.RLock()
	running := r.running
	r.mu.RUnlock()
	if !running {
		return fmt.Errorf("queue not running")
	}
	msg := Message{
		ID:        fmt.Sprintf("%d", time.Now().UnixNano()),
		Type:      msgType,
		Payload:   payload,
		Timestamp: time.Now(),
	}
	b, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal message: %w", err)
	}
	if err := r.client.LPush(ctx, r.queueKey(), b).Err(); err != nil {
		return fmt.Errorf("lpush: %w", err)
	}
	return nil
}

func (r *RedisQueue) worker(id int) {
	defer r.wg.Done()
	for {
		select {
		case <-r.ctx.Done():
			return
		default:
		}
		result, err := r.client.BRPop(r.ctx, time.Second, r.queueKey()).Result()
		if err != nil {
			if errors.Is(err, redis.Nil) || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				continue
			}
			r.log.Error("brpop", logger.Int("worker_id", id), logger.Error(err))
			time.Sleep(time.Second)
			continue
		}
		if len(result) < 2 {
			continue
		}
		var msg Message
		if err := json.Unmarshal([]byte(result[1]), &msg); err != nil {
			r.log.Error("unmarshal message", logger.Error(err))
			continue
		}
		r.process(msg)
	}
}

func (r *RedisQueue) process(msg Message) {
	r.mu.RLock()
	job, ok := r.jobs[msg.Type]
	r.mu.RUnlock()
	if !ok {
		r.log.Error("no job for type", logger.String("type", msg.Type))
		return
	}
	if m, isMap := msg.Payload.(map[string]interface{}); isMap {
		if b, err := json.Marshal(m); err == nil {
			msg.Payload = json.RawMessage(b)
		}
	}
	if err := job.Handle(r.ctx, msg.Payload); err != nil {
		if errors.Is(err, context.Canceled) {
			return
		}
		r.retryOrDrop(msg, job, err)
	}
}

func (r *RedisQueue) retryOrDrop(msg Message, job Job, cause error) {
	r.log.Error("message processing failed",
		logger.String("id", msg.ID),
		logger.String("job", job.Name()),
		logger.Int("attempt", msg.Attempts+1),
		logger.Error(cause))

	if msg.Attempts >= r.cfg.RetryLimit {
		if b, err := json.Marshal(msg); err == nil {
			_ = r.client.LPush(context.Background(), r.dlqKey(), b).Err()
		}
		r.log.Error("max retries reached", logger.String("id", msg.ID))
		return
	}
	msg.Attempts++
	b, err := json.Marshal(msg)
	if err != nil {
		return
	}
	_ = r.client.ZAdd(context.Background(), r.retryKey(), redis.Z{
		Score:  float64(time.Now().Add(r.cfg.RetryDelay).Unix()),
		Member: b,
	}).Err()
}

// retryProcessor moves due retries back onto the main list.
func (r *RedisQueue) retryProcessor() {
	defer r.wg.Done()
	ticker := time.NewTicker(5 * time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-r.ctx.Done():
			return
		case <-ticker.C:
		}
		now := strconv.FormatInt(time.Now().Unix(), 10)
		due, err := r.client.ZRangeByScore(r.ctx, r.retryKey(), &redis.ZRangeBy{Min: "0", Max: now}).Result()
		if err != nil {
			if !errors.Is(err, context.Canceled) {
				r.log.Error("fetch retries", logger.Error(err))
			}
			continue
		}
		for _, m := range due {
			pipe := r.client.TxPipeline()
			pipe.ZRem(r.ctx, r.retryKey(), m)
			pipe.LPush(r.ctx, r.queueKey(), m)
			if _, err := pipe.Exec(r.ctx); err != nil && !errors.Is(err, context.Canceled) {
				r.log.Error("requeue retry", logger.Error(err))
			}
		}
	}
}

func (r *RedisQueue) queueKey() string { return r.keyPrefix + ":messages" }
func (r *RedisQueue) retryKey() string { return r.keyPrefix + ":retry" }
func (r *RedisQueue) dlqKey() string   { return r.keyPrefix + ":dlq" }
