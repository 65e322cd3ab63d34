// Package xdataloader 为 DataLoader 批量函数埋点。
//
// 每次批量调度发射：
//
//   - gql.dataLoader：计时器，标签 loaderName、outcome
//   - gql.dataLoader.keys：计数器，按本批 key 数量递增，标签 loaderName
//
// loaderName 经过基数限制。批量函数本身的 panic 会在记录 failure 后继续向上抛出，
// 指标发射过程中的 panic 则被吞掉并记录日志。
//
// 用法：
//
//	p, _ := xdataloader.NewProvider(xdataloader.WithMeterProvider(mp))
//	batch := xdataloader.Wrap(p, "userById", loadUsers)
//	users, err := batch(ctx, ids)
package xdataloader
