// Package executor — реализации типов узлов workflow.
//
// Каждый тип узла (start, llm, http, code, conditional, end) реализует
// интерфейс Executor: валидация конфигурации при создании workflow
// и выполнение узла во время job.
//
// Реестр собирается один раз при старте процесса и после этого
// не изменяется — никакого мутабельного глобального состояния.
//
// Executor не трогает состояние движка: все внешние эффекты
// (HTTP-вызовы, вызовы модели, sandbox) — его собственная забота,
// а результат передаётся движку через Response.
package executor
