// Package sandbox — клиент сервиса изолированного выполнения кода.
//
// Code-узлы не исполняют пользовательский код в процессе движка:
// сниппет уходит по HTTP во внешний sandbox-runner, который возвращает
// результат или ошибку выполнения.
package sandbox
