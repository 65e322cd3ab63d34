package xdataloader

import "errors"

// ErrResultLength 批量函数返回的结果数量与 key 数量不一致。
var ErrResultLength = errors.New("xdataloader: result count does not match key count")
