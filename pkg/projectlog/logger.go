// Package projectlog 初始化全局日志
package projectlog

import (
	"os"

	"github.com/sirupsen/logrus"

	"knowledge-studio-server/internal/config"
)

// Init 根据配置初始化 logrus
// 级别解析失败时退回 info
func Init(cfg config.LogConfig) {
	if cfg.Format == "json" {
		logrus.SetFormatter(&logrus.JSONFormatter{})
	} else {
		logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}

	level, err := logrus.ParseLevel(cfg.Level)
	if err != nil {
		level = logrus.InfoLevel
	}
	logrus.SetLevel(level)
	logrus.SetOutput(os.Stdout)
}
