// Package orchestrator — планировщик выполнения планов.
//
// Orchestrator принимает валидный план, строит граф зависимостей и
// доводит его до терминального состояния: ограниченный пул воркеров
// выполняет готовые шаги через Dispatcher, результаты завершённых
// шагов становятся контекстом зависимых, падения блокируют только
// транзитивных зависимых (best-effort) либо отменяют всю очередь
// (fail-fast). Итог работы — ExecutionReport.
package orchestrator
