package logger

import "go.uber.org/zap"

// Log is the process-wide structured logger. It is a no-op until Init runs.
var Log = zap.NewNop()

func Init(production bool) {
	if production {
		Log = zap.Must(zap.NewProduction())
		return
	}
	Log = zap.Must(zap.NewDevelopment())
}

func Sugar() *zap.SugaredLogger {
	return Log.Sugar()
}

func Sync() {
	_ = Log.Sync()
}
