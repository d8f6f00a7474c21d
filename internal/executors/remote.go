package executors

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/shaiso/Maestro/internal/mq"
)

// StepRequest — wire-формат запроса к удалённому воркеру.
type StepRequest struct {
	// Task — текстовая инструкция шага.
	Task string `json:"task"`

	// Context — срез контекста: результаты зависимостей шага.
	Context map[string]string `json:"context"`
}

// StepReply — wire-формат ответа удалённого воркера.
type StepReply struct {
	// Result — результат выполнения.
	Result string `json:"result"`

	// Error — текст ошибки (непустой — шаг упал).
	Error string `json:"error,omitempty"`
}

// RemoteExecutor — исполнитель, делегирующий шаги внешнему воркеру
// через RabbitMQ (RPC: work-очередь capability + exclusive reply-очередь
// с correlation id).
//
// Позволяет обслуживать capability процессом вне ядра — любой
// коллаборатор, потребляющий очередь и отвечающий StepReply, подходит.
type RemoteExecutor struct {
	conn   *mq.Connection
	queue  string
	logger *slog.Logger
}

// NewRemoteExecutor создаёт удалённого исполнителя для очереди capability.
//
// Имя очереди по соглашению: "maestro.steps.<capability>".
func NewRemoteExecutor(conn *mq.Connection, queue string, logger *slog.Logger) *RemoteExecutor {
	return &RemoteExecutor{
		conn:   conn,
		queue:  queue,
		logger: logger,
	}
}

// Execute публикует шаг в очередь и ожидает ответа воркера.
func (e *RemoteExecutor) Execute(ctx context.Context, task string, execCtx map[string]string) (string, error) {
	ch, err := e.conn.OpenChannel()
	if err != nil {
		return "", fmt.Errorf("remote dispatch: %w", err)
	}
	defer ch.Close()

	// Work-очередь capability (durable, переживает рестарт брокера)
	if _, err := ch.QueueDeclare(e.queue, true, false, false, false, nil); err != nil {
		return "", fmt.Errorf("declare queue %s: %w", e.queue, err)
	}

	// Exclusive reply-очередь этого вызова
	replyQueue, err := ch.QueueDeclare("", false, true, true, false, nil)
	if err != nil {
		return "", fmt.Errorf("declare reply queue: %w", err)
	}

	deliveries, err := ch.Consume(replyQueue.Name, "", true, true, false, false, nil)
	if err != nil {
		return "", fmt.Errorf("consume reply queue: %w", err)
	}

	body, err := json.Marshal(StepRequest{Task: task, Context: execCtx})
	if err != nil {
		return "", fmt.Errorf("marshal step request: %w", err)
	}

	correlationID := uuid.NewString()

	err = ch.PublishWithContext(ctx, "", e.queue, false, false, amqp.Publishing{
		ContentType:   "application/json",
		DeliveryMode:  amqp.Persistent,
		CorrelationId: correlationID,
		ReplyTo:       replyQueue.Name,
		Timestamp:     time.Now(),
		Body:          body,
	})
	if err != nil {
		return "", fmt.Errorf("publish to %s: %w", e.queue, err)
	}

	e.logger.Debug("step published to remote worker",
		"queue", e.queue,
		"correlation_id", correlationID,
	)

	// Ждём ответ с нашим correlation id
	for {
		select {
		case <-ctx.Done():
			return "", ctx.Err()

		case delivery, ok := <-deliveries:
			if !ok {
				return "", fmt.Errorf("reply channel closed")
			}
			if delivery.CorrelationId != correlationID {
				// Чужой ответ в exclusive очереди — игнорируем
				continue
			}

			var reply StepReply
			if err := json.Unmarshal(delivery.Body, &reply); err != nil {
				return "", fmt.Errorf("unmarshal step reply: %w", err)
			}
			if reply.Error != "" {
				return "", fmt.Errorf("remote worker: %s", reply.Error)
			}
			return reply.Result, nil
		}
	}
}
