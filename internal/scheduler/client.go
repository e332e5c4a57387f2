package scheduler

import (
	"context"
	"crypto/tls"
	"fmt"

	leadsrepo "callcrm_backend/internal/leads/repository"
	"callcrm_backend/platform/config"

	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"
)

// CallDispatcher hands one due lead to the outbound-call pipeline. The sweep
// treats dispatch as fire-and-forget; the call's outcome arrives later via
// webhook.
type CallDispatcher interface {
	DispatchCall(ctx context.Context, lead leadsrepo.Lead) error
}

// Client enqueues call-dispatch tasks on the asynq queue, decoupling the
// sweep from dialer latency.
type Client struct {
	client *asynq.Client
	queue  string
}

func NewClient(cfg config.SchedulerConfig) (*Client, error) {
	redisURL := cfg.GetRedisURL()
	if redisURL == "" {
		return nil, fmt.Errorf("redis url not configured")
	}

	opt, err := redisClientOpt(redisURL, cfg.GetRedisTLSInsecure())
	if err != nil {
		return nil, err
	}

	queue := cfg.GetAsynqQueueName()
	if queue == "" {
		queue = "default"
	}

	return &Client{
		client: asynq.NewClient(opt),
		queue:  queue,
	}, nil
}

func (c *Client) Close() error {
	if c == nil || c.client == nil {
		return nil
	}
	return c.client.Close()
}

func (c *Client) DispatchCall(ctx context.Context, lead leadsrepo.Lead) error {
	if c == nil || c.client == nil {
		return fmt.Errorf("dispatch queue not configured")
	}

	task, err := NewCallDispatchTask(CallDispatchPayload{
		LeadID:  lead.ID.String(),
		Trigger: "retry_sweep",
	})
	if err != nil {
		return err
	}

	_, err = c.client.EnqueueContext(ctx, task, asynq.Queue(c.queue))
	return err
}

func redisClientOpt(redisURL string, tlsInsecure bool) (asynq.RedisClientOpt, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return asynq.RedisClientOpt{}, err
	}

	var tlsConfig *tls.Config
	if opt.TLSConfig != nil {
		clone := opt.TLSConfig.Clone()
		if tlsInsecure {
			clone.InsecureSkipVerify = true
		}
		tlsConfig = clone
	} else if tlsInsecure {
		tlsConfig = &tls.Config{InsecureSkipVerify: true}
	}

	return asynq.RedisClientOpt{
		Addr:      opt.Addr,
		Password:  opt.Password,
		DB:        opt.DB,
		TLSConfig: tlsConfig,
	}, nil
}
