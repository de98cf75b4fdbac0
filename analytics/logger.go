package analytics

import (
	"os"

	"github.com/tommyyama2020/corda/model"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// LogFileDataCollector appends one JSON record per executed action to a
// log file for offline analysis of flow behavior.
type LogFileDataCollector struct {
	fileName string
	logger   *zap.Logger
}

func NewLogFileDataCollector(fileName string) (*LogFileDataCollector, error) {
	encoderConfig := zap.NewProductionEncoderConfig()
	encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	encoderConfig.StacktraceKey = ""
	fileEncoder := zapcore.NewJSONEncoder(encoderConfig)
	logFile, err := os.OpenFile(fileName, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return nil, err
	}
	writer := zapcore.AddSync(logFile)
	core := zapcore.NewTee(zapcore.NewCore(fileEncoder, writer, zapcore.InfoLevel))
	return &LogFileDataCollector{
		fileName: fileName,
		logger:   zap.New(core),
	}, nil
}

func (lc *LogFileDataCollector) RecordActionSuccess(flowId model.FlowId, actionName string) {
	if lc == nil {
		return
	}
	lc.logger.Info("success", zap.String("flowId", string(flowId)), zap.String("action", actionName))
}

func (lc *LogFileDataCollector) RecordActionFailure(flowId model.FlowId, actionName string, reason string) {
	if lc == nil {
		return
	}
	lc.logger.Info("failure", zap.String("flowId", string(flowId)), zap.String("action", actionName), zap.String("reason", reason))
}
