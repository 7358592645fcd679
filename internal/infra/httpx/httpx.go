package httpx

import (
	"errors"
	"io"
	"net/http"
	"time"
)

const (
	defaultRetryMax = 5
	defaultBackoff  = 500 * time.Millisecond

	// responseHeaderTimeout 限定等待响应头的时间；不设总超时，
	// 大文件下载的总时长由调用方的 ctx 控制。
	responseHeaderTimeout = 30 * time.Second
)

// retryStatus 列出可重试的服务端状态码（镜像站偶发 5xx，重试通常可恢复）。
var retryStatus = map[int]bool{
	http.StatusInternalServerError: true,
	http.StatusBadGateway:          true,
	http.StatusServiceUnavailable:  true,
	http.StatusGatewayTimeout:      true,
}

// Transport 把“HTTP Basic 凭据 + 有界重试 + 指数退避”固化为统一策略。
//
// 设计目标：crawl 层只负责“定位链接 + 落盘”，不关心网络策略细节。
type Transport struct {
	Base http.RoundTripper

	// Username/Password 非空时对每个请求附加 HTTP Basic 凭据。
	Username string
	Password string

	// RetryMax 表示最大重试次数（不含首次尝试）。例如 5 表示最多 6 次尝试。
	// 传输错误与 retryStatus 中的状态码都会触发重试。
	RetryMax int

	// Backoff 是首次重试前的等待时间；之后按 2 的幂递增（500ms, 1s, 2s, ...）。
	Backoff time.Duration
}

func (t *Transport) RoundTrip(req *http.Request) (*http.Response, error) {
	if req == nil {
		return nil, errors.New("nil request")
	}
	if t.Base == nil {
		return nil, errors.New("nil base transport")
	}

	// 只对“可重放”的请求做重试：GET/HEAD 且无 body。
	canRetry := (req.Method == http.MethodGet || req.Method == http.MethodHead) && req.Body == nil
	max := t.RetryMax
	if max < 0 {
		max = 0
	}
	if !canRetry {
		max = 0
	}

	var lastErr error
	for attempt := 0; attempt <= max; attempt++ {
		if attempt > 0 {
			if err := t.sleep(req, attempt); err != nil {
				return nil, err
			}
		}

		r := cloneRequest(req)
		if t.Username != "" {
			r.SetBasicAuth(t.Username, t.Password)
		}

		resp, err := t.Base.RoundTrip(r)
		if err != nil {
			lastErr = err
			if req.Context().Err() != nil {
				// ctx 已取消：不再重试，直接返回最后错误（更可解释）。
				return nil, lastErr
			}
			continue
		}
		if retryStatus[resp.StatusCode] && attempt < max {
			// 排空并关闭，让连接可复用；重试耗尽时最后一个响应原样返回给上层定级。
			drain(resp)
			continue
		}
		return resp, nil
	}
	return nil, lastErr
}

// sleep 按尝试序号做指数退避；请求 ctx 取消时立即返回其错误。
func (t *Transport) sleep(req *http.Request, attempt int) error {
	backoff := t.Backoff
	if backoff <= 0 {
		backoff = defaultBackoff
	}
	d := backoff << (attempt - 1)

	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-req.Context().Done():
		return req.Context().Err()
	case <-timer.C:
		return nil
	}
}

func drain(resp *http.Response) {
	if resp.Body == nil {
		return
	}
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64*1024))
	_ = resp.Body.Close()
}

func cloneRequest(req *http.Request) *http.Request {
	// Clone 会复制 Header 等，避免在 RoundTripper 内部“污染”调用方的 request。
	return req.Clone(req.Context())
}

// NewClient 构造用于 crawl/下载的 HTTP client。
//
// 规则：
// - username 非空：每请求附加 HTTP Basic 凭据
// - 有界重试（含 5xx 状态码）+ 指数退避
// - 不设 client 级总超时：页面抓取与大文件下载共用，总时长交给 ctx
func NewClient(username, password string) *http.Client {
	base := &http.Transport{
		TLSHandshakeTimeout:   10 * time.Second,
		ResponseHeaderTimeout: responseHeaderTimeout,
	}
	return &http.Client{
		Transport: &Transport{
			Base:     base,
			Username: username,
			Password: password,
			RetryMax: defaultRetryMax,
			Backoff:  defaultBackoff,
		},
	}
}
