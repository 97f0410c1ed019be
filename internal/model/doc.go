// Package model — клиент для вызова языковых моделей.
//
// Изолирует движок от конкретного провайдера: llm-узлы работают
// через интерфейс Invoker, продакшен-реализация ходит в
// OpenAI-совместимый Chat Completions API.
package model
