// Package cli реализует инструмент командной строки Maestro.
//
// # Обзор
//
// CLI — клиентская утилита для взаимодействия с Maestro API.
// Работает через HTTP, не импортирует внутренние пакеты сервиса.
// CLI используется для запуска планов и чтения отчётов.
//
// # Ключевые компоненты
//
// ## Client
//
// HTTP-клиент для Maestro API. Инкапсулирует все HTTP-запросы,
// парсинг ответов (dataResponse, listResponse, errorResponse)
// и обработку ошибок.
//
//	client := cli.NewClient("http://localhost:8080")
//	runs, err := client.ListRuns()
//
// ## Output
//
// Форматирование вывода. Поддерживает два режима:
//   - Таблицы (text/tabwriter) — по умолчанию
//   - JSON — с флагом --json
//
// Данные выводятся в stdout, сообщения (Success/Error) — в stderr.
// Это позволяет использовать pipe: maestro run list --json | jq .
//
// ## Commands
//
// Cobra-команды организованы по ресурсам:
//   - run: list, submit, show, report, cancel
//   - plan: validate
//   - capabilities
//
// Каждая группа создаётся через фабричную функцию (NewRunCmd и т.д.),
// принимающую clientFn и outputFn — замыкания для ленивого создания
// Client и Output после парсинга PersistentFlags.
package cli
