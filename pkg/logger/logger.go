package logger

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Log 全局日志实例，InitLogger 之前为 Nop，避免空指针
var Log = zap.NewNop()

// InitLogger 初始化 zap 日志
// debug 模式使用开发者友好的控制台输出，否则输出 JSON
func InitLogger(debug bool) error {
	var cfg zap.Config
	if debug {
		cfg = zap.NewDevelopmentConfig()
		cfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	} else {
		cfg = zap.NewProductionConfig()
		cfg.EncoderConfig.TimeKey = "ts"
		cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	}

	l, err := cfg.Build(zap.AddCaller())
	if err != nil {
		return err
	}
	Log = l
	return nil
}

// Sync 刷新缓冲区，程序退出前调用
func Sync() {
	_ = Log.Sync()
}
