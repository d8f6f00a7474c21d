// Package telemetry обеспечивает наблюдаемость сервиса.
//
// Включает:
//   - logging.go — structured logging через slog
//
// Формат и уровень логирования задаются переменными окружения
// LOG_FORMAT и LOG_LEVEL.
package telemetry
