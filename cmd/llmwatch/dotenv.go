package main

import (
	"errors"
	"io/fs"
	"os"
	"strings"

	"github.com/joho/godotenv"
)

// loadDotEnv 读取 .env 并注入进程环境（godotenv 语法：# 注释、export 前缀、单/双引号与转义）。
// 文件不存在时忽略；不覆盖已存在的环境变量（保持系统/调用者优先）。
func loadDotEnv(path string) error {
	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return godotenv.Load(path)
}

// writeDotEnv 生成 .env 模板（若文件已存在则跳过）。
// 仅创建文件；不覆盖，不合并。
func writeDotEnv(path string) error {
	var b strings.Builder
	b.WriteString("# llmwatch .env 模板（由 init-config 生成）\n")
	b.WriteString("# 优先级：CLI > ENV(.env) > 配置文件 > 默认值\n")
	b.WriteString("# 空值表示未设置。\n\n")

	b.WriteString("# 配置来源（可二选一）\n")
	b.WriteString("LLMWATCH_CONFIG_FILE=\n")
	b.WriteString("LLMWATCH_CONFIG_JSON=\n\n")

	b.WriteString("# 运行参数覆盖\n")
	for _, k := range []string{"FILE", "INTERVAL", "TRIGGER", "STOP_MARKER", "LLM", "LOG_LEVEL", "LOG_DIR", "NOTIFY", "ECHO", "MAX_REQUEST_TOKENS"} {
		b.WriteString("LLMWATCH_" + k + "=\n")
	}
	b.WriteString("\n")

	for _, p := range []string{"openai", "gemini"} {
		b.WriteString("# Provider 覆盖（" + p + "）\n")
		b.WriteString("LLMWATCH_PROVIDER__" + p + "__CLIENT=\n")
		b.WriteString("LLMWATCH_PROVIDER__" + p + "__OPTIONS_JSON=\n\n")
	}

	// 由 Provider 客户端读取，不经 LLMWATCH_ 前缀
	b.WriteString("# 常见供应商 API Key\n")
	b.WriteString("OPENAI_API_KEY=\n")
	b.WriteString("GOOGLE_API_KEY=\n")

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o600)
	if err != nil {
		if os.IsExist(err) {
			return nil
		}
		return err
	}
	defer f.Close()
	_, err = f.WriteString(b.String())
	return err
}
