// Package executors содержит исполнителей шагов плана.
//
// Каждая capability закрывается одним исполнителем: Casual и Coder —
// LLM-провайдер, File — операции в файловом workspace, Web — поиск
// и чтение страниц. Любую capability можно делегировать внешнему
// воркеру через AMQP (RemoteExecutor). Сборка реестра — BuildRegistry.
package executors
