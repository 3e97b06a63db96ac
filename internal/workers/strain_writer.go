package workers

import (
	"context"
	"sync"
	"sync/atomic"

	"labelprep/database"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"
)

// StrainUpserter запись наблюдений штаммов (database.StrainDB)
type StrainUpserter interface {
	AddOrUpdateStrain(ctx context.Context, name, lineage string, sovereign bool) error
}

// StrainWriterConfig параметры фоновой записи
type StrainWriterConfig struct {
	QueueSize  int
	RatePerSec float64 // <= 0 - без ограничения
	Retry      database.RetryConfig
}

// DefaultStrainWriterConfig конфигурация по умолчанию
func DefaultStrainWriterConfig() StrainWriterConfig {
	return StrainWriterConfig{
		QueueSize:  64,
		RatePerSec: 50,
		Retry:      database.DefaultRetryConfig(),
	}
}

// StrainWriterStats счетчики работы
type StrainWriterStats struct {
	Enqueued int64 `json:"enqueued"`
	Dropped  int64 `json:"dropped"`
	Written  int64 `json:"written"`
	Failed   int64 `json:"failed"`
}

type writeJob struct {
	id      string
	updates []database.StrainUpdate
}

// StrainWriter очередь фоновой записи пар штамм/линия в базу штаммов.
// Enqueue никогда не блокирует загрузку файла; ошибки записи только логируются.
type StrainWriter struct {
	store   StrainUpserter
	queue   chan writeJob
	limiter *rate.Limiter
	retry   database.RetryConfig

	mu     sync.Mutex
	closed bool
	wg     sync.WaitGroup

	enqueued atomic.Int64
	dropped  atomic.Int64
	written  atomic.Int64
	failed   atomic.Int64
}

// NewStrainWriter создает очередь записи
func NewStrainWriter(store StrainUpserter, config StrainWriterConfig) *StrainWriter {
	if config.QueueSize < 1 {
		config.QueueSize = 1
	}
	limit := rate.Inf
	if config.RatePerSec > 0 {
		limit = rate.Limit(config.RatePerSec)
	}

	return &StrainWriter{
		store:   store,
		queue:   make(chan writeJob, config.QueueSize),
		limiter: rate.NewLimiter(limit, 1),
		retry:   config.Retry,
	}
}

// Start запускает обработчик очереди. Обработчик завершается после Close,
// когда очередь вычитана.
func (w *StrainWriter) Start(ctx context.Context) {
	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		log.Info().Str("component", "strain_writer").Int("queue_size", cap(w.queue)).Msg("strain writer started")

		for job := range w.queue {
			w.process(ctx, job)
		}

		log.Info().Str("component", "strain_writer").Msg("strain writer stopped")
	}()
}

// Enqueue ставит пакет обновлений в очередь. false - очередь полна или закрыта.
func (w *StrainWriter) Enqueue(updates []database.StrainUpdate) bool {
	if len(updates) == 0 {
		return true
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		log.Warn().Str("component", "strain_writer").Int("updates", len(updates)).Msg("strain writer closed, write-back dropped")
		w.dropped.Add(1)
		return false
	}

	job := writeJob{id: uuid.NewString(), updates: append([]database.StrainUpdate(nil), updates...)}
	select {
	case w.queue <- job:
		w.enqueued.Add(1)
		log.Debug().Str("component", "strain_writer").Str("job_id", job.id).Int("updates", len(updates)).Msg("write-back queued")
		return true
	default:
		w.dropped.Add(1)
		log.Warn().Str("component", "strain_writer").Int("updates", len(updates)).Msg("write-back queue full, batch dropped")
		return false
	}
}

// Close закрывает очередь и ждет записи уже поставленных пакетов
func (w *StrainWriter) Close() {
	w.mu.Lock()
	if !w.closed {
		w.closed = true
		close(w.queue)
	}
	w.mu.Unlock()

	w.wg.Wait()
}

// Stats текущие счетчики
func (w *StrainWriter) Stats() StrainWriterStats {
	return StrainWriterStats{
		Enqueued: w.enqueued.Load(),
		Dropped:  w.dropped.Load(),
		Written:  w.written.Load(),
		Failed:   w.failed.Load(),
	}
}

func (w *StrainWriter) process(ctx context.Context, job writeJob) {
	var written, failed int
	for _, u := range job.updates {
		if err := w.limiter.Wait(ctx); err != nil {
			failed++
			log.Warn().Err(err).Str("component", "strain_writer").Str("job_id", job.id).Str("strain", u.Name).Msg("strain write skipped")
			continue
		}

		err := database.Retry(ctx, func() error {
			return w.store.AddOrUpdateStrain(ctx, u.Name, u.Lineage, u.Sovereign)
		}, w.retry, "strain_write_back")
		if err != nil {
			failed++
			log.Error().Err(err).Str("component", "strain_writer").Str("job_id", job.id).
				Str("strain", u.Name).Str("lineage", u.Lineage).Msg("strain write failed")
			continue
		}
		written++
	}

	w.written.Add(int64(written))
	w.failed.Add(int64(failed))

	log.Info().Str("component", "strain_writer").Str("job_id", job.id).
		Int("written", written).Int("failed", failed).Msg("write-back batch processed")
}
