// Package cli реализует инструмент командной строки Conduit.
//
// # Обзор
//
// CLI — клиентская утилита для взаимодействия с Conduit API.
// Работает через HTTP и используется для управления workflows,
// jobs и schedules.
//
// # Ключевые компоненты
//
// ## Client
//
// HTTP-клиент для Conduit API. Инкапсулирует все HTTP-запросы,
// парсинг ответов (DataResponse, ListResponse, ErrorResponse)
// и обработку ошибок.
//
//	client := cli.NewClient("http://localhost:8080")
//	workflows, err := client.ListWorkflows()
//
// ## Output
//
// Форматирование вывода. Поддерживает два режима:
//   - Таблицы (text/tabwriter) — по умолчанию
//   - JSON (json.MarshalIndent) — с флагом --json
//
// Данные выводятся в stdout, сообщения (Success/Error) — в stderr.
// Это позволяет использовать pipe: conduit workflow list --json | jq .
//
// ## Commands
//
// Cobra-команды организованы по ресурсам:
//   - workflow: list, create, show, delete
//   - job:      list, start, show, cancel, watch
//   - schedule: list, create, show, update, delete, enable, disable
//
// Каждая группа создаётся через фабричную функцию (NewWorkflowCmd и т.д.),
// принимающую clientFn и outputFn — замыкания для ленивого создания
// Client и Output после парсинга PersistentFlags.
//
// Команда job watch — исключение из правила "CLI ходит только в API":
// она подписывается на поток событий job напрямую через RabbitMQ
// (эксклюзивная очередь с binding по ID job) и завершается после
// терминального события.
package cli
