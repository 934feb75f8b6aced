package tryon

import (
	"errors"
	"fmt"
)

var (
	// ErrImageDecode 原图或商品图无法获取/解码
	ErrImageDecode = errors.New("image decode error")
	// ErrProcessing 去背景或合成时收到非法输入（例如零尺寸 buffer）
	ErrProcessing = errors.New("processing error")
	// ErrInvalidState 当前状态不允许该操作
	ErrInvalidState = errors.New("invalid state")
	// ErrStaleRender 渲染开始后 session 已被重置或换图，结果被丢弃
	ErrStaleRender = errors.New("stale render discarded")
)

// StateError 记录被拒绝的操作和当时的状态，errors.Is 可匹配 ErrInvalidState
type StateError struct {
	Op    string
	State State
}

func (e *StateError) Error() string {
	return fmt.Sprintf("%s: not allowed in state %s", e.Op, e.State)
}

func (e *StateError) Unwrap() error {
	return ErrInvalidState
}
