// Package graph отвечает за структурную корректность workflow.
//
// Включает:
//   - validate.go — валидация определения при создании (ровно один start,
//     корректные рёбра, достижимость, ацикличность, метки conditional)
//   - dag.go      — построение DAG с индексами рёбер и топологическим порядком
//
// Валидация выполняется один раз при создании/обновлении определения;
// горячий путь (движок выполнения) получает уже провалидированный граф.
package graph
