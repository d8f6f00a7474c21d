// Package engine содержит чистое ядро оркестрации планов:
// структурную валидацию, построение графа зависимостей и
// хранилище результатов завершённых шагов.
//
// Пакет не выполняет шаги и не знает об исполнителях — это
// детерминированные преобразования над доменными типами.
package engine
