// Package api содержит HTTP API сервер.
//
// Структура:
//   - handler.go           — Handler с DI (репозитории, движок, registry, logger)
//   - routes.go            — регистрация маршрутов
//   - middleware.go        — middleware (logging, recovery)
//   - response.go          — унифицированные JSON-ответы и обработка ошибок
//   - dto.go               — Data Transfer Objects (request/response)
//   - workflow_handler.go  — обработчики для /workflows
//   - job_handler.go       — обработчики для /jobs
//   - schedule_handler.go  — обработчики для /schedules
//
// API предоставляет REST endpoints для управления workflows, jobs
// и schedules. Создание workflow валидирует граф до сохранения;
// запуск и отмена jobs делегируются движку.
package api
