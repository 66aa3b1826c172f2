package reminders

import (
	"fmt"
	"os"

	"github.com/hibiken/asynq"

	"github.com/wolfman30/salon-booking-platform/pkg/logging"
)

// Server runs the reminder task consumer.
type Server struct {
	srv    *asynq.Server
	mux    *asynq.ServeMux
	logger *logging.Logger
}

func NewServer(redisOpt asynq.RedisConnOpt, concurrency int, handler *Handler, logger *logging.Logger) *Server {
	if handler == nil {
		panic("reminders: handler cannot be nil")
	}
	if logger == nil {
		logger = logging.Default()
	}
	if concurrency <= 0 {
		concurrency = 4
	}
	srv := asynq.NewServer(redisOpt, asynq.Config{
		Concurrency: concurrency,
		Queues:      map[string]int{QueueName: 1},
		Logger:      asynqLogger{logger},
	})
	mux := asynq.NewServeMux()
	handler.Register(mux)
	return &Server{srv: srv, mux: mux, logger: logger}
}

// Start begins processing in the background.
func (s *Server) Start() error {
	if err := s.srv.Start(s.mux); err != nil {
		return fmt.Errorf("reminders: start server: %w", err)
	}
	s.logger.Info("reminder server started", "queue", QueueName)
	return nil
}

// Shutdown waits for in-flight tasks to finish.
func (s *Server) Shutdown() {
	s.srv.Shutdown()
}

type asynqLogger struct {
	l *logging.Logger
}

func (a asynqLogger) Debug(args ...any) { a.l.Debug(fmt.Sprint(args...), "component", "asynq") }
func (a asynqLogger) Info(args ...any)  { a.l.Info(fmt.Sprint(args...), "component", "asynq") }
func (a asynqLogger) Warn(args ...any)  { a.l.Warn(fmt.Sprint(args...), "component", "asynq") }
func (a asynqLogger) Error(args ...any) { a.l.Error(fmt.Sprint(args...), "component", "asynq") }
func (a asynqLogger) Fatal(args ...any) {
	a.l.Error(fmt.Sprint(args...), "component", "asynq")
	os.Exit(1)
}
