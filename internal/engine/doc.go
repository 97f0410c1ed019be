// Package engine — планировщик выполнения jobs.
//
// Движок работает внутри процесса API-сервера: на каждый job
// запускается одна горутина-планировщик, которая обходит DAG,
// отправляет готовые узлы executor'ам (параллельно, с лимитом
// на job), применяет условную маршрутизацию и финализирует job.
//
// Принцип single-writer: состояние job меняет только его
// горутина-планировщик. Снаружи доступна только отмена —
// сигнал, который планировщик проверяет в начале каждого цикла.
//
// Помимо прямых запросов Execute движок периодически забирает
// PENDING jobs из хранилища (polling fallback) — так подхватываются
// jobs, созданные scheduler'ом или оставшиеся после рестарта.
package engine
