package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"sort"
	"sync"
	"time"

	"github.com/manmiddle614-crypto/backend/internal/pkg/config"
	"github.com/manmiddle614-crypto/backend/pkg/qrtoken"
	"github.com/manmiddle614-crypto/backend/pkg/utils"
)

// 同一张餐卡并发扫码，验证一餐只核销一次
var (
	baseURL    = flag.String("url", "http://localhost:8080", "服务地址")
	tenantID   = flag.String("tenant", "", "租户ID")
	customerID = flag.String("customer", "", "客户ID")
	qrID       = flag.String("qr", "", "客户当前二维码ID")
	total      = flag.Int("n", 200, "并发扫码次数")
)

var httpClient *http.Client

func init() {
	// 优化 HTTP Client 配置
	t := http.DefaultTransport.(*http.Transport).Clone()
	t.MaxIdleConns = 1000
	t.MaxIdleConnsPerHost = 1000
	t.MaxConnsPerHost = 1000
	httpClient = &http.Client{
		Transport: t,
		Timeout:   10 * time.Second,
	}
}

type scanResponse struct {
	Code int `json:"code"`
	Data struct {
		Status string `json:"status"`
		Reason string `json:"reason"`
	} `json:"data"`
}

func main() {
	flag.Parse()
	if *tenantID == "" || *customerID == "" || *qrID == "" {
		fmt.Println("需要 -tenant -customer -qr 参数")
		return
	}

	// 复用服务端的 JWT 和二维码密钥
	config.LoadConfig()
	token, _, err := utils.GenerateToken("stress-scanner", *tenantID, utils.RoleScanner)
	if err != nil {
		fmt.Printf("签发 JWT 失败: %v\n", err)
		return
	}
	credential, err := qrtoken.Encode(qrtoken.Payload{
		Kind:       qrtoken.KindCard,
		CustomerID: *customerID,
		TenantID:   *tenantID,
		QRID:       *qrID,
	}, []byte(config.GlobalConfig.QR.Secret), 0)
	if err != nil {
		fmt.Printf("生成餐卡失败: %v\n", err)
		return
	}

	fmt.Printf("开始压测：同一餐卡并发扫码 %d 次 (customer: %s)...\n", *total, *customerID)

	var wg sync.WaitGroup
	var mu sync.Mutex
	outcomes := make(map[string]int)

	start := time.Now()
	for i := 0; i < *total; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			outcome := scan(token, credential)
			mu.Lock()
			outcomes[outcome]++
			mu.Unlock()
		}()
	}
	wg.Wait()
	duration := time.Since(start)

	keys := make([]string, 0, len(outcomes))
	for k := range outcomes {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	fmt.Println("--------------------------------------------------")
	fmt.Printf("压测结束，耗时: %v\n", duration)
	fmt.Printf("总请求数: %d\n", *total)
	fmt.Printf("QPS: %.2f\n", float64(*total)/duration.Seconds())
	for _, k := range keys {
		fmt.Printf("%-24s %d\n", k, outcomes[k])
	}
	if outcomes["success"] > 1 {
		fmt.Printf("异常: 同一餐核销成功 %d 次 (预期最多 1 次)\n", outcomes["success"])
	}
	fmt.Println("--------------------------------------------------")
}

// scan 返回 success / 拒绝原因 / 传输错误
func scan(token, credential string) string {
	body, _ := json.Marshal(map[string]string{"credential": credential})
	req, err := http.NewRequest(http.MethodPost, *baseURL+"/redemptions/scan", bytes.NewReader(body))
	if err != nil {
		return "request_error"
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := httpClient.Do(req)
	if err != nil {
		return "transport_error"
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "read_error"
	}

	var result scanResponse
	if err := json.Unmarshal(respBody, &result); err != nil {
		return fmt.Sprintf("http_%d", resp.StatusCode)
	}
	if result.Data.Status == "success" {
		return "success"
	}
	if result.Data.Reason != "" {
		return result.Data.Reason
	}
	return fmt.Sprintf("code_%d", result.Code)
}
