// Package xconf 加载 xgql 的运行配置。
//
// 配置文件为 YAML 或 JSON，由 koanf 解析后覆盖 [Default] 的取值：文件中没有出现的
// 键保留默认值。时长字段使用 Go duration 字符串（"10m"、"24h"）。
//
//	metrics:
//	  prefix: gql
//	  trivial_fields: false
//	  exporter: prometheus
//	cardinality:
//	  limit: 100
//	  sentinel: limited
//	signature:
//	  enabled: true
//	  cache_size: 1024
//	apq:
//	  enabled: true
//	  store: redis
//	  ttl: 24h
//	redis:
//	  addr: 127.0.0.1:6379
//	log:
//	  level: info
//	  format: json
//
// [Watcher] 监视配置文件变更并回调新的 [Settings]，用于运行时调整日志级别等可热更新的项。
package xconf
