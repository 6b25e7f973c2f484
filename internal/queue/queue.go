// Package queue moves scrape tasks between the router and workers over
// Redis lists, one list per queue name.
package queue

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rotisserie/eris"

	"github.com/sells-group/linkpipe/internal/model"
)

// ErrEmpty is returned by Pop when the queue has no task within the wait
// window.
var ErrEmpty = errors.New("queue: empty")

// Broker publishes and consumes scrape tasks.
type Broker interface {
	// Publish enqueues a task on the named queue.
	Publish(ctx context.Context, queue string, task model.ScrapeTask) error
	// Pop blocks up to wait for a task from any of the named queues and
	// reports which queue it came from. Returns ErrEmpty when nothing
	// arrived in time.
	Pop(ctx context.Context, wait time.Duration, queues ...string) (model.ScrapeTask, string, error)
	// Len reports the number of pending tasks on the named queue.
	Len(ctx context.Context, queue string) (int64, error)
	// Close releases the underlying connection.
	Close() error
}

// redisBroker implements Broker on Redis lists. Publish LPUSHes and Pop
// BRPOPs, so tasks leave in arrival order.
type redisBroker struct {
	client *redis.Client
}

// NewRedisBroker connects to Redis using a redis:// URL and verifies the
// connection before returning.
func NewRedisBroker(ctx context.Context, url string) (Broker, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, eris.Wrap(err, "queue: parse redis url")
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, eris.Wrap(err, "queue: ping redis")
	}
	return &redisBroker{client: client}, nil
}

// NewRedisBrokerFromClient wraps an existing client, mainly for tests.
func NewRedisBrokerFromClient(client *redis.Client) Broker {
	return &redisBroker{client: client}
}

func (b *redisBroker) Publish(ctx context.Context, queue string, task model.ScrapeTask) error {
	payload, err := json.Marshal(task)
	if err != nil {
		return eris.Wrap(err, "queue: marshal task")
	}
	if err := b.client.LPush(ctx, queue, payload).Err(); err != nil {
		return eris.Wrapf(err, "queue: publish to %s", queue)
	}
	return nil
}

func (b *redisBroker) Pop(ctx context.Context, wait time.Duration, queues ...string) (model.ScrapeTask, string, error) {
	var task model.ScrapeTask

	res, err := b.client.BRPop(ctx, wait, queues...).Result()
	if errors.Is(err, redis.Nil) {
		return task, "", ErrEmpty
	}
	if err != nil {
		return task, "", eris.Wrap(err, "queue: pop")
	}
	// BRPop returns [key, value].
	if len(res) != 2 {
		return task, "", eris.Errorf("queue: unexpected BRPOP reply of %d elements", len(res))
	}
	if err := json.Unmarshal([]byte(res[1]), &task); err != nil {
		return task, res[0], eris.Wrapf(err, "queue: decode task from %s", res[0])
	}
	return task, res[0], nil
}

func (b *redisBroker) Len(ctx context.Context, queue string) (int64, error) {
	n, err := b.client.LLen(ctx, queue).Result()
	if err != nil {
		return 0, eris.Wrapf(err, "queue: len of %s", queue)
	}
	return n, nil
}

func (b *redisBroker) Close() error {
	return b.client.Close()
}
