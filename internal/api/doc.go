// Package api содержит HTTP API сервер.
//
// Структура:
//   - handler.go      — Handler с DI (сервис runs, logger)
//   - routes.go       — регистрация маршрутов
//   - middleware.go   — middleware (logging, recovery)
//   - response.go     — унифицированные JSON-ответы и обработка ошибок
//   - dto.go          — Data Transfer Objects (request/response)
//   - run_handler.go  — обработчики для /runs
//   - plan_handler.go — валидация планов и список capabilities
//
// API предоставляет REST endpoints для запуска планов и чтения отчётов.
package api
