package config

import (
	"os"
	"strings"
)

// ==================== 运行配置 ====================

// Config 进程级配置，启动时从环境变量读取一次
type Config struct {
	APIBase    string // 上游 API 基地址 (GMV_API_BASE)
	DBDSN      string // 本地持久化 DSN，空串 = sqlite 默认文件
	ListenAddr string // 控制台监听地址
	JWTSecret  string // 会话签名密钥
}

// Load 读取环境变量并填默认值
func Load() *Config {
	cfg := &Config{
		APIBase:    getenv("GMV_API_BASE", "http://localhost:9000"),
		DBDSN:      os.Getenv("GMV_DB_DSN"),
		ListenAddr: getenv("GMV_LISTEN_ADDR", ":8080"),
		JWTSecret:  getenv("GMV_JWT_SECRET", "gmv-console-secret-change-in-production"),
	}
	return cfg
}

// APIRoot 上游 API 根: 基地址去掉尾部斜杠再拼 /api/v1
func (c *Config) APIRoot() string {
	return strings.TrimRight(c.APIBase, "/") + "/api/v1"
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
