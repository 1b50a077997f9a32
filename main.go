package main

import (
	"fmt"
	"log"
	"time"

	"github.com/go-resty/resty/v2"

	"gmvmax_dev_v1_202602/internal/config"
	"gmvmax_dev_v1_202602/internal/model"
	"gmvmax_dev_v1_202602/pkg/database"
)

func main() {
	fmt.Println(">>> 开始执行全链路测试...")

	cfg := config.Load()

	// ------------------------------------------------
	// 1. 连接本地数据库 (空 DSN 走 sqlite 默认文件)
	// ------------------------------------------------
	db := database.InitDB(cfg.DBDSN, &model.ScopeSnapshot{})
	fmt.Println("✅ 数据库连接成功！")

	var count int64
	if err := db.Model(&model.ScopeSnapshot{}).Count(&count).Error; err != nil {
		log.Fatalf("❌ 作用域快照表不可读: %v", err)
	}
	fmt.Printf("✅ 作用域快照表可读，现有 %d 条记录\n", count)

	// ------------------------------------------------
	// 2. 探测上游健康检查接口
	// ------------------------------------------------
	client := resty.New()
	client.SetTimeout(10 * time.Second)
	client.SetRetryCount(3)

	fmt.Printf(">>> 正在探测上游 %s/healthz ...\n", cfg.APIRoot())

	resp, err := client.R().Get(cfg.APIRoot() + "/healthz")

	// ------------------------------------------------
	// 3. 结果验证
	// ------------------------------------------------
	if err != nil {
		log.Fatalf("❌ 请求失败 (上游未启动或网络不通): %v", err)
	}

	if resp.StatusCode() == 200 {
		fmt.Println("🎉🎉🎉 测试成功！全链路已打通！")
		fmt.Printf("上游响应: %s\n", resp.String())
	} else {
		fmt.Printf("⚠️ 连接通了，但上游返回异常 (状态码 %d)\n", resp.StatusCode())
		fmt.Printf("响应内容: %s\n", resp.String())
		fmt.Println("提示: 如果是 401，检查 Cookie 凭证；如果是 429，说明触发了上游限流。")
	}
}
