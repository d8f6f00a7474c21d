// Package mq — транспортный слой RabbitMQ.
//
// Используется исполнителями удалённых capabilities: шаг публикуется
// в очередь capability, внешний воркер отвечает в reply-очередь
// с correlation id (классический AMQP RPC).
package mq
