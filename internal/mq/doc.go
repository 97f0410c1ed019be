// Package mq — публикация и потребление событий jobs через RabbitMQ.
//
// Топология:
//
//	conduit.jobs.events (topic)
//	├── jobs.events.audit [binding: #]
//	│       Durable очередь для внешних потребителей событий
//	└── эфемерные очереди подписчиков [binding: <job_id>]
//	        CLI watch и другие наблюдатели одного job
//
// Routing key события — ID job: подписчик получает поток событий
// конкретного job, не фильтруя чужие.
//
// Публикация fire-and-forget: потеря события не влияет на выполнение
// job, хранилище остаётся источником истины.
package mq
