// Package logging 构建全局 zap 日志器。
package logging

import (
	"os"

	"go.elastic.co/ecszap"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// New 创建日志器并替换全局实例；开发模式输出 Debug 级别的可读格式，否则输出 ECS JSON
func New(devMode bool) *zap.Logger {
	var logger *zap.Logger
	if devMode {
		l, err := zap.NewDevelopment()
		if err != nil {
			l = zap.NewExample()
		}
		logger = l
	} else {
		encoderConfig := ecszap.NewDefaultEncoderConfig()
		var core zapcore.Core = ecszap.NewCore(encoderConfig, os.Stdout, zap.InfoLevel)
		logger = zap.New(core, zap.AddCaller())
	}
	zap.ReplaceGlobals(logger)
	return logger
}
