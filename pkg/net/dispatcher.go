package net

import (
	"context"
	"encoding/json"
	"fmt"
	"math/rand"
	"net/http"
	"net/http/cookiejar"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/google/uuid"
)

// ==================== 网络调度器 ====================

// Dispatcher 面向上游 API 的统一请求入口
// 所有业务服务都通过它发请求，不直接持有 http/resty 客户端
type Dispatcher interface {
	// Do 发送请求并把 2xx 响应体解析到 out (out 可为 nil)
	// 失败时始终返回 *APIError
	Do(ctx context.Context, method, path string, body interface{}, out interface{}) error

	Get(ctx context.Context, path string, out interface{}) error
	Post(ctx context.Context, path string, body, out interface{}) error
	Put(ctx context.Context, path string, body, out interface{}) error
	Delete(ctx context.Context, path string, out interface{}) error

	// Meta 返回元数据仓库 (单写者即本调度器)
	Meta() *MetaStore
}

// 客户端常量
const (
	clientTimeout  = 15 * time.Second
	maxGetRetries  = 2                      // GET 最多重试 2 次
	retryBaseDelay = 300 * time.Millisecond // 退避基数: 300ms * 2^(n-1)
	clientTag      = "gmv-console"
)

// writeMethods 需要幂等键的方法集合
var writeMethods = map[string]bool{
	http.MethodPost:   true,
	http.MethodPut:    true,
	http.MethodPatch:  true,
	http.MethodDelete: true,
}

type httpDispatcher struct {
	client *resty.Client
	meta   *MetaStore
}

var _ Dispatcher = (*httpDispatcher)(nil)

// NewDispatcher 创建调度器
// apiRoot: 上游 API 根地址 (已包含 /api/v1)
func NewDispatcher(apiRoot string, meta *MetaStore) Dispatcher {
	jar, _ := cookiejar.New(nil)

	client := resty.New().
		SetBaseURL(strings.TrimRight(apiRoot, "/")).
		SetTimeout(clientTimeout).
		SetCookieJar(jar). // Cookie 凭证随所有请求携带
		SetHeader("Accept", "application/json").
		SetHeader("x-client", clientTag)

	d := &httpDispatcher{client: client, meta: meta}

	// 请求拦截: 写请求注入幂等键，所有请求注入 x-request-id
	client.OnBeforeRequest(func(_ *resty.Client, r *resty.Request) error {
		if writeMethods[r.Method] && r.Header.Get("Idempotency-Key") == "" {
			r.Header.Set("Idempotency-Key", newIdempotencyKey())
		}
		if r.Header.Get("x-request-id") == "" {
			r.Header.Set("x-request-id", newRequestID())
		}
		return nil
	})

	// 响应拦截: 每个收到的响应都记录到元数据仓库
	client.OnAfterResponse(func(_ *resty.Client, resp *resty.Response) error {
		meta.RecordHeaders(resp.StatusCode(), resp.Request.Method, resp.Request.URL, resp.Header())
		return nil
	})

	return d
}

func (d *httpDispatcher) Meta() *MetaStore { return d.meta }

func (d *httpDispatcher) Get(ctx context.Context, path string, out interface{}) error {
	return d.Do(ctx, http.MethodGet, path, nil, out)
}

func (d *httpDispatcher) Post(ctx context.Context, path string, body, out interface{}) error {
	return d.Do(ctx, http.MethodPost, path, body, out)
}

func (d *httpDispatcher) Put(ctx context.Context, path string, body, out interface{}) error {
	return d.Do(ctx, http.MethodPut, path, body, out)
}

func (d *httpDispatcher) Delete(ctx context.Context, path string, out interface{}) error {
	return d.Do(ctx, http.MethodDelete, path, nil, out)
}

// Do 发送请求 (带 GET 重试与统一错误翻译)
func (d *httpDispatcher) Do(ctx context.Context, method, path string, body interface{}, out interface{}) error {
	maxAttempts := 1
	if method == http.MethodGet {
		maxAttempts = 1 + maxGetRetries
	}

	var resp *resty.Response
	var err error

	for attempt := 1; attempt <= maxAttempts; attempt++ {
		req := d.client.R().SetContext(ctx)
		if body != nil {
			req.SetHeader("Content-Type", "application/json")
			req.SetBody(body)
		}

		resp, err = req.Execute(method, path)

		status := 0
		if err == nil && resp != nil {
			status = resp.StatusCode()
		}

		// 成功路径
		if err == nil && status >= 200 && status < 300 {
			if out != nil {
				if uerr := json.Unmarshal(resp.Body(), out); uerr != nil {
					return &APIError{
						Status:    status,
						RequestID: requestIDOf(resp),
						UIMessage: "响应解析失败",
						Payload:   resp.Body(),
						Headers:   lowerHeaders(resp.Header()),
					}
				}
			}
			return nil
		}

		// 只有幂等读才重试: 无响应 或 5xx (501 除外)
		retriable := err != nil || (status >= 500 && status != 501)
		if method == http.MethodGet && retriable && attempt < maxAttempts {
			select {
			case <-time.After(retryBaseDelay * time.Duration(1<<(attempt-1))):
			case <-ctx.Done():
				return d.translate(method, path, nil, ctx.Err())
			}
			continue
		}
		break
	}

	return d.translate(method, path, resp, err)
}

// translate 把失败翻译成 APIError 并广播
func (d *httpDispatcher) translate(method, path string, resp *resty.Response, rawErr error) error {
	apiErr := &APIError{}

	if resp != nil && resp.RawResponse != nil {
		apiErr.Status = resp.StatusCode()
		apiErr.Payload = resp.Body()
		apiErr.Headers = lowerHeaders(resp.Header())
		apiErr.RequestID = requestIDOf(resp)
		apiErr.UIMessage = ExtractUIMessage(resp.Body(), resp.StatusCode())
	} else {
		// 传输层失败，没有拿到响应
		apiErr.UIMessage = defaultUIMessage(0)
		if rawErr != nil {
			apiErr.Payload = []byte(rawErr.Error())
		}
	}

	broadcastError(ErrorEvent{
		Class:   Classify(apiErr.Status),
		Status:  apiErr.Status,
		Message: apiErr.UIMessage,
		Context: method + " " + path,
	})

	return apiErr
}

// ==================== 辅助函数 ====================

// newIdempotencyKey 生成幂等键
// 优先用加密随机 UUID，失败时退化为 时间戳+随机数 组合
func newIdempotencyKey() string {
	if id, err := uuid.NewRandom(); err == nil {
		return id.String()
	}
	return fmt.Sprintf("idem-%d-%06d", time.Now().UnixNano(), rand.Intn(1000000))
}

// newRequestID 生成请求 id
func newRequestID() string {
	if id, err := uuid.NewRandom(); err == nil {
		return id.String()
	}
	return fmt.Sprintf("req-%d", time.Now().UnixNano())
}

// requestIDOf 取响应对应的请求 id (响应头优先，其次请求头)
func requestIDOf(resp *resty.Response) string {
	for _, h := range requestIDHeaders {
		if v := resp.Header().Get(h); v != "" {
			return v
		}
	}
	return resp.Request.Header.Get("x-request-id")
}

func lowerHeaders(h http.Header) map[string]string {
	m := make(map[string]string, len(h))
	for k, vs := range h {
		if len(vs) > 0 {
			m[strings.ToLower(k)] = vs[0]
		}
	}
	return m
}
