package svc

import "errors"

// ErrNoSinksEnabled 错误：没有任何结果输出端
var ErrNoSinksEnabled = errors.New("no result sinks enabled")

// ErrStorageInitFailed 错误：存储初始化失败
var ErrStorageInitFailed = errors.New("storage initialization failed")
