// Package messagebus предоставляет адаптеры для различных message brokers
// и мост для зеркалирования доменных событий во внешний брокер.
package messagebus

import "context"

// Message сообщение брокера
type Message struct {
	Subject string
	Data    []byte
	Headers map[string]string
}

// Handler обработчик входящих сообщений
type Handler func(ctx context.Context, msg *Message) error

// Transport абстракция message broker
type Transport interface {
	// Publish публикует сообщение
	Publish(ctx context.Context, msg *Message) error
	// Subscribe подписывается на subject
	Subscribe(subject string, handler Handler) error
	// Close останавливает подписки и закрывает соединения
	Close(ctx context.Context) error
}
