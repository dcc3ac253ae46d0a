package notify

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/hackgods/clinic-appointment-engine/internal/metrics"
)

var ErrQueueFull = errors.New("confirmation queue is full")

type Config struct {
	Workers   int
	QueueSize int
	// Timeout bounds each queued confirmation delivery.
	Timeout time.Duration
}

type confirmationTask struct {
	patientID uuid.UUID
	conf      Confirmation
}

// Service resolves a patient's channel and delivers through a Sender.
// Confirmations are queued and delivered by a fixed set of workers; calls are
// delivered synchronously so the caller can react to failure.
type Service struct {
	channels ChannelStore
	sender   Sender
	metrics  *metrics.EngineMetrics
	logger   *zap.Logger
	cfg      Config

	queue  chan confirmationTask
	wg     sync.WaitGroup
	mu     sync.RWMutex
	closed bool
}

func NewService(channels ChannelStore, sender Sender, cfg Config, m *metrics.EngineMetrics, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = 64
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 5 * time.Second
	}
	return &Service{
		channels: channels,
		sender:   sender,
		metrics:  m,
		logger:   logger,
		cfg:      cfg,
		queue:    make(chan confirmationTask, cfg.QueueSize),
	}
}

// Start launches the confirmation workers.
func (s *Service) Start() {
	for i := 0; i < s.cfg.Workers; i++ {
		s.wg.Add(1)
		go s.worker(i)
	}
	s.logger.Info("notification workers started",
		zap.Int("workers", s.cfg.Workers),
		zap.Int("queue_size", s.cfg.QueueSize))
}

// Close stops accepting confirmations and waits for the queue to drain or
// ctx to expire.
func (s *Service) Close(ctx context.Context) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	close(s.queue)
	s.mu.Unlock()

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("drain confirmation queue: %w", ctx.Err())
	}
}

// SendConfirmation queues a booking confirmation. Failures are logged and
// never reach the booking path.
func (s *Service) SendConfirmation(_ context.Context, patientID uuid.UUID, conf Confirmation) {
	if err := s.enqueue(confirmationTask{patientID: patientID, conf: conf}); err != nil {
		s.metrics.ObserveNotification(string(KindConfirmation), "dropped", 0)
		s.logger.Warn("confirmation dropped",
			zap.String("patient_id", patientID.String()),
			zap.String("appointment_id", conf.AppointmentID.String()),
			zap.Error(err))
	}
}

func (s *Service) enqueue(task confirmationTask) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return errors.New("notification service is closed")
	}
	select {
	case s.queue <- task:
		return nil
	default:
		return ErrQueueFull
	}
}

// SendCall tells the patient to proceed to room. It returns an error when the
// patient has no channel or delivery fails within ctx.
func (s *Service) SendCall(ctx context.Context, patientID uuid.UUID, room string) error {
	start := time.Now()
	err := s.deliver(ctx, patientID, func(ch *Channel) Message {
		return callMessage(patientID, ch, room)
	})
	s.observe(KindCall, err, start)
	if err != nil {
		s.logger.Warn("call notification failed",
			zap.String("patient_id", patientID.String()),
			zap.String("room", room),
			zap.Error(err))
		return err
	}
	return nil
}

func (s *Service) deliver(ctx context.Context, patientID uuid.UUID, build func(*Channel) Message) error {
	ch, err := s.channels.Lookup(ctx, patientID)
	if err != nil {
		return err
	}
	if err := s.sender.Send(ctx, build(ch)); err != nil {
		return fmt.Errorf("send notification: %w", err)
	}
	return nil
}

func (s *Service) worker(id int) {
	defer s.wg.Done()
	s.logger.Debug("notification worker started", zap.Int("worker_id", id))

	for task := range s.queue {
		s.handleConfirmation(task)
	}
}

func (s *Service) handleConfirmation(task confirmationTask) {
	ctx, cancel := context.WithTimeout(context.Background(), s.cfg.Timeout)
	defer cancel()

	start := time.Now()
	err := s.deliver(ctx, task.patientID, func(ch *Channel) Message {
		return confirmationMessage(task.patientID, ch, task.conf)
	})
	s.observe(KindConfirmation, err, start)
	if err != nil {
		s.logger.Warn("confirmation delivery failed",
			zap.String("patient_id", task.patientID.String()),
			zap.String("appointment_id", task.conf.AppointmentID.String()),
			zap.Error(err))
	}
}

func (s *Service) observe(kind Kind, err error, start time.Time) {
	result := "sent"
	switch {
	case err == nil:
	case errors.Is(err, ErrNoChannel):
		result = "no_channel"
	case errors.Is(err, context.DeadlineExceeded):
		result = "timeout"
	default:
		result = "failed"
	}
	s.metrics.ObserveNotification(string(kind), result, time.Since(start).Seconds())
}
