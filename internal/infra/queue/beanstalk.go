package queue

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/beanstalkd/go-beanstalk"
	"github.com/rs/zerolog"

	"paypal-billing-orchestrator/internal/config"
	"paypal-billing-orchestrator/internal/domain/ports/adapter"
	"paypal-billing-orchestrator/internal/infra/metrics"
)

var _ adapter.RewardQueue = (*BeanstalkQueue)(nil)

const (
	jobPriority = 1000
	jobTTR      = 250 * time.Second
)

// BeanstalkQueue submits reward jobs to a beanstalkd tube. The connection
// is dialed lazily and redialed after a put failure, since beanstalkd has
// no built-in reconnect.
type BeanstalkQueue struct {
	addr string
	tube string
	log  *zerolog.Logger

	mu   sync.Mutex
	conn *beanstalk.Conn
}

func NewBeanstalkQueue(cfg *config.BeanstalkConfig, logger *zerolog.Logger) *BeanstalkQueue {
	return &BeanstalkQueue{
		addr: cfg.Addr,
		tube: cfg.Tube,
		log:  logger,
	}
}

func (q *BeanstalkQueue) PutReward(ctx context.Context, job adapter.RewardJob) error {
	body, err := json.Marshal(job)
	if err != nil {
		return err
	}

	q.mu.Lock()
	defer q.mu.Unlock()

	conn, err := q.connLocked()
	if err != nil {
		metrics.IncRewardJob("error")
		return err
	}
	if _, err := conn.Put(body, jobPriority, 0, jobTTR); err != nil {
		// drop the broken connection so the next put redials
		q.conn.Close()
		q.conn = nil
		metrics.IncRewardJob("error")
		return err
	}
	metrics.IncRewardJob("ok")
	return nil
}

func (q *BeanstalkQueue) connLocked() (*beanstalk.Conn, error) {
	if q.conn != nil {
		return q.conn, nil
	}
	conn, err := beanstalk.Dial("tcp", q.addr)
	if err != nil {
		return nil, err
	}
	conn.Tube = beanstalk.Tube{Conn: conn, Name: q.tube}
	q.conn = conn
	q.log.Info().Str("addr", q.addr).Str("tube", q.tube).Msg("beanstalk: connected")
	return conn, nil
}

func (q *BeanstalkQueue) Close() error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.conn == nil {
		return nil
	}
	err := q.conn.Close()
	q.conn = nil
	return err
}
