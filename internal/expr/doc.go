// Package expr разрешает выражения {{ ... }} против контекста выполнения.
//
// Структура:
//   - context.go  — Context с input, outputs узлов и секретами; Lookup по пути
//   - template.go — подстановка выражений в строки и конфигурации
//   - parser.go   — вычисление условий ветвления (маленькая явная грамматика)
//
// Пакет чистый: без I/O и без состояния, повторный вызов с теми же
// аргументами даёт тот же результат. Неразрешённый путь — всегда ошибка,
// значения по умолчанию не подставляются.
//
// Условия — не скриптовый язык: поддерживаются только сравнения
// (==, !=, <, <=, >, >=), логические связки (&&, ||, !) и литералы.
package expr
