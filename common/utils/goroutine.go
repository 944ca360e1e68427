package utils

import (
	"fmt"
	"runtime/debug"

	"go.uber.org/zap"

	"yqhp/geoanalysis/common/logger"
)

// SafeCall 同步执行 fn，把 panic 转成 error 返回
// 使用方式: err := utils.SafeCall("run-job", func() error { ... })
func SafeCall(name string, fn func() error) (err error) {
	defer recoverAndLog(name, func(r any) {
		err = fmt.Errorf("%s panicked: %v", name, r)
	})
	return fn()
}

func recoverAndLog(name string, onPanic func(r any)) {
	if r := recover(); r != nil {
		logger.L().Error("panic recovered",
			zap.String("name", name),
			zap.Any("panic", r),
			zap.ByteString("stack", debug.Stack()),
		)
		onPanic(r)
	}
}
