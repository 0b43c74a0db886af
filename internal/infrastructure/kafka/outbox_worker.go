package kafka

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/voyager-tech/go-backend/internal/cfg"
	"github.com/voyager-tech/go-backend/internal/repository/pgdb"
	"github.com/voyager-tech/go-backend/internal/usecase"
	"github.com/voyager-tech/go-backend/pkg/e"
	"github.com/voyager-tech/go-backend/pkg/jitter"
	"github.com/voyager-tech/go-backend/pkg/logger"
)

const (
	// staleAfter — сколько событие может висеть в processing, прежде чем его вернут в очередь
	staleAfter = 5 * time.Minute

	reconnectBase = time.Second
	reconnectMax  = 30 * time.Second
)

// OutboxWorker публикует события из outbox_events в Kafka.
// Просыпается по NOTIFY из транзакции приёма и дополнительно по таймеру cfg.OutboxPoll,
// так что потерянное уведомление только задерживает доставку.
type OutboxWorker struct {
	repo      usecase.OutboxRepository
	logger    logger.Logger
	producer  usecase.MessageProducer
	cfg       *cfg.KafkaCfg
	dbConnStr string

	wake   chan struct{}
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func NewOutboxWorker(
	repo usecase.OutboxRepository,
	logger logger.Logger,
	producer usecase.MessageProducer,
	cfg *cfg.KafkaCfg,
	dbConnStr string,
) *OutboxWorker {
	return &OutboxWorker{
		repo:      repo,
		logger:    logger,
		producer:  producer,
		cfg:       cfg,
		dbConnStr: dbConnStr,
		wake:      make(chan struct{}, 1),
	}
}

func (w *OutboxWorker) Start(ctx context.Context) {
	ctx, w.cancel = context.WithCancel(ctx)

	w.wg.Add(2)
	go func() {
		defer w.wg.Done()
		w.run(ctx)
	}()

	go func() {
		defer w.wg.Done()
		w.listenOutboxNotifications(ctx)
	}()
}

// Stop останавливает воркер и ждёт завершения текущего батча.
func (w *OutboxWorker) Stop(ctx context.Context) error {
	if w.cancel != nil {
		w.cancel()
	}

	done := make(chan struct{})
	go func() {
		w.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (w *OutboxWorker) run(ctx context.Context) {
	if n, err := w.repo.ReleaseStale(ctx, staleAfter); err != nil {
		w.logger.Warnf("release stale outbox events failed: %v", err)
	} else if n > 0 {
		w.logger.Infof("Released %d stale outbox events", n)
	}

	w.logger.Infof("Draining pending outbox events on startup...")
	w.drain(ctx)

	ticker := time.NewTicker(w.cfg.OutboxPoll)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.logger.Infof("Outbox worker stopped")
			return
		case <-w.wake:
			w.drain(ctx)
		case <-ticker.C:
			w.drain(ctx)
		}
	}
}

// notify будит цикл обработки, не блокируясь, если он уже разбужен.
func (w *OutboxWorker) notify() {
	select {
	case w.wake <- struct{}{}:
	default:
	}
}

func (w *OutboxWorker) listenOutboxNotifications(ctx context.Context) {
	backoff := jitter.NewBackoff(reconnectBase, reconnectMax)

	for ctx.Err() == nil {
		conn, err := w.listen(ctx)
		if err != nil {
			delay := backoff.Next()
			w.logger.Warnf("LISTEN %s failed: %v, retry in %s", pgdb.OutboxChannel, err, delay)
			if !jitter.Sleep(ctx, delay) {
				return
			}
			continue
		}
		backoff.Reset()
		// события, записанные пока соединения не было
		w.notify()

		err = w.waitNotifications(ctx, conn)
		_ = conn.Close(context.Background())
		if ctx.Err() != nil {
			return
		}
		w.logger.Warnf("Connection lost: %v. Reconnecting...", err)
	}
}

func (w *OutboxWorker) listen(ctx context.Context) (*pgx.Conn, error) {
	conn, err := pgx.Connect(ctx, w.dbConnStr)
	if err != nil {
		return nil, e.Wrap("failed to connect for LISTEN", err)
	}

	if _, err := conn.Exec(ctx, "LISTEN "+pgdb.OutboxChannel); err != nil {
		_ = conn.Close(ctx)
		return nil, e.Wrap("failed to LISTEN", err)
	}

	w.logger.Infof("Subscribed to '%s' channel", pgdb.OutboxChannel)
	return conn, nil
}

// waitNotifications блокируется до ошибки соединения или отмены контекста.
func (w *OutboxWorker) waitNotifications(ctx context.Context, conn *pgx.Conn) error {
	for {
		notif, err := conn.WaitForNotification(ctx)
		if err != nil {
			return err
		}

		if notif.Channel == pgdb.OutboxChannel {
			w.logger.Debugf("Received outbox notification")
			w.notify()
		}
	}
}

// drain обрабатывает батчи, пока очередь не опустеет или публикация не начнёт падать.
func (w *OutboxWorker) drain(ctx context.Context) {
	for ctx.Err() == nil {
		hasMore, err := w.processBatch(ctx)
		if err != nil {
			w.logger.Warnf("Batch processing failed: %v", err)
			return
		}
		if !hasMore {
			return
		}
	}
}

// processBatch возвращает true, если очередь, возможно, ещё не пуста.
func (w *OutboxWorker) processBatch(ctx context.Context) (bool, error) {
	limit := w.cfg.OutboxBatchSize
	events, err := w.repo.GetAndMarkAsProcessing(ctx, limit)
	if err != nil {
		return false, err
	}

	failed := 0
	for _, event := range events {
		if err := w.producer.WriteRawMessage(ctx, usecase.NewWriteRawMessageReq(event)); err != nil {
			failed++
			w.logger.Warnf("publish event %s failed (retryable: %t): %v", event.EventID, isRetryableError(err), err)
			// контекст мог быть уже отменён остановкой воркера
			if err := w.repo.Release(context.WithoutCancel(ctx), event.ID); err != nil {
				w.logger.Warnf("release event %d failed: %v", event.ID, err)
			}
			continue
		}

		if err := w.repo.MarkAsProcessed(ctx, event.ID); err != nil {
			w.logger.Warnf("mark processed failed: %v", err)
		}
	}

	if failed > 0 {
		return false, errors.New("some events were not published and returned to the queue")
	}

	return len(events) == limit, nil
}

func isRetryableError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}

	errStr := strings.ToLower(err.Error())
	retryablePhrases := []string{
		"connection refused",
		"i/o timeout",
		"network is unreachable",
		"broker not available",
		"leader not available",
		"connection reset",
		"broken pipe",
		"no such host",
	}
	for _, phrase := range retryablePhrases {
		if strings.Contains(errStr, phrase) {
			return true
		}
	}

	return false
}
