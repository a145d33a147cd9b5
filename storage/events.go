package storage

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/bytedance/sonic"
	log "github.com/sirupsen/logrus"

	"tasks-api/domain"
)

var lastTimestamp int64

// nextTimestamp returns a strictly increasing nanosecond timestamp.
func nextTimestamp() int64 {
	for {
		now := time.Now().UnixNano()
		last := atomic.LoadInt64(&lastTimestamp)
		if now <= last {
			now = last + 1
		}
		if atomic.CompareAndSwapInt64(&lastTimestamp, last, now) {
			return now
		}
	}
}

// publish enqueues a change event. The write it describes has already been
// committed, so the enqueue ignores ctx cancellation and failures are logged
// and swallowed.
func (s *Storage) publish(ctx context.Context, ev domain.TaskEvent) {
	if s.events == nil {
		return
	}
	ev.Timestamp = nextTimestamp()
	data, err := sonic.Marshal(ev)
	if err != nil {
		s.logger.WithError(err).Warn("encode task event")
		return
	}
	if _, err := s.events.EnqueueMessage(context.WithoutCancel(ctx), string(data), nil); err != nil {
		s.logger.WithFields(log.Fields{
			"event":   ev.Type,
			"task_id": ev.TaskID,
		}).WithError(err).Warn("publish task event failed")
	}
}
