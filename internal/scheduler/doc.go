// Package scheduler подаёт планы на выполнение по cron-расписанию.
//
// Расписания задаются в конфигурации сервиса: cron-выражение плюс
// путь к JSON-файлу плана. Scheduler раз в секунду проверяет
// расписания с истекшим nextDue и запускает их планы через Service.
//
// Структура:
//   - scheduler.go — цикл планировщика (Run, Tick)
//   - cron.go      — парсинг cron-выражений и вычисление следующего времени
//
// Использование:
//
//	sched, err := scheduler.New(scheduler.Config{
//	    Service: service,
//	    Entries: entries,
//	    Logger:  logger,
//	})
//	if err != nil {
//	    return err
//	}
//	go sched.Run(ctx)
package scheduler
