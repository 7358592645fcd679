// Package crawl 实现对目录索引站（Apache autoindex 风格）的递归抓取与断点续传下载。
//
// 约束：
//   - 单个文件失败只记录，不终止整次 crawl；ctx 取消才终止
//   - 下载先写 <dst>.part，完整后 rename 到最终文件名，读者看不到半截文件
//   - skip-existing 用 HEAD 的 Content-Length 与本地大小比对，省去重复下载
package crawl

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/John-Robertt/EDFKIT/internal/domain"
	"github.com/John-Robertt/EDFKIT/internal/infra/fsx"
)

// Observer 把抓取进度从核心流程中解耦出来。
//
// crawl 包只负责发事件，不做任何输出（避免污染 stdout 的 JSON 契约）。
type Observer interface {
	// OnPage 在开始解析一个索引页时调用。
	OnPage(pageURL string)
	// OnDownloaded 在单个文件完整落盘后调用。
	OnDownloaded(fileURL, dst string, size int64)
	// OnSkipped 在本地已有同大小文件、跳过下载时调用。
	OnSkipped(fileURL, dst string)
	// OnError 在单个 URL 失败时调用（失败不终止整次 crawl）。
	OnError(fileURL string, err error)
}

// NopObserver 丢弃所有事件。
type NopObserver struct{}

func (NopObserver) OnPage(string)                      {}
func (NopObserver) OnDownloaded(string, string, int64) {}
func (NopObserver) OnSkipped(string, string)           {}
func (NopObserver) OnError(string, error)              {}

// Options 控制一次 crawl 的行为。
type Options struct {
	// Delay 是相邻两次 HTTP 请求之间的等待时间（对镜像站保持礼貌）。
	Delay time.Duration
	// SkipExisting 为 true 时，本地已有同大小文件则跳过下载。
	SkipExisting bool
	Obs          Observer
}

// Crawl 从 rootURL 递归抓取目录树，把文件镜像到 outDir 下的相同相对路径。
//
// 返回的 FetchReport 总是有效（即使中途取消），err 只在 ctx 取消或
// rootURL 本身不可用时非 nil。
func Crawl(ctx context.Context, client *http.Client, rootURL, outDir string, opt Options) (domain.FetchReport, error) {
	rep := domain.FetchReport{
		RootURL:  rootURL,
		OutDir:   outDir,
		Failures: []domain.FetchFailure{},
	}
	if client == nil {
		return rep, errors.New("http client 不能为空")
	}
	if opt.Obs == nil {
		opt.Obs = NopObserver{}
	}

	root, err := url.Parse(rootURL)
	if err != nil {
		return rep, fmt.Errorf("root url 非法：%w", err)
	}
	if !strings.HasSuffix(root.Path, "/") {
		root.Path += "/"
	}

	c := &crawler{
		client:  client,
		root:    root,
		outDir:  outDir,
		opt:     opt,
		rep:     &rep,
		visited: make(map[string]bool),
	}
	err = c.page(ctx, root)
	rep.RootURL = root.String()
	return rep, err
}

type crawler struct {
	client  *http.Client
	root    *url.URL
	outDir  string
	opt     Options
	rep     *domain.FetchReport
	visited map[string]bool

	requested bool // 首个请求前不 delay
}

// page 抓取并解析一个目录索引页，目录项递归、文件项下载。
func (c *crawler) page(ctx context.Context, u *url.URL) error {
	key := u.String()
	if c.visited[key] {
		return nil
	}
	c.visited[key] = true

	c.opt.Obs.OnPage(key)
	if err := c.pause(ctx); err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, key, nil)
	if err != nil {
		return err
	}
	resp, err := c.client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		c.fail(key, err)
		return nil
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		c.fail(key, fmt.Errorf("索引页状态码 %d", resp.StatusCode))
		return nil
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		c.fail(key, err)
		return nil
	}
	c.rep.Pages++

	var links []string
	doc.Find("a").Each(func(_ int, s *goquery.Selection) {
		href, ok := s.Attr("href")
		if !ok {
			return
		}
		links = append(links, href)
	})

	for _, href := range links {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		next, ok := c.resolve(u, href)
		if !ok {
			continue
		}
		if strings.HasSuffix(next.Path, "/") {
			if err := c.page(ctx, next); err != nil {
				return err
			}
			continue
		}
		if err := c.file(ctx, next); err != nil {
			return err
		}
	}
	return nil
}

// resolve 过滤索引页噪音链接（父目录、锚点、排序参数、mailto 等），
// 并保证结果仍落在 root 子树内。
func (c *crawler) resolve(base *url.URL, href string) (*url.URL, bool) {
	href = strings.TrimSpace(href)
	if href == "" || strings.HasPrefix(href, "#") {
		return nil, false
	}
	if strings.HasPrefix(href, "../") || href == ".." || href == "./" {
		return nil, false
	}
	low := strings.ToLower(href)
	if strings.HasPrefix(low, "mailto:") || strings.HasPrefix(low, "javascript:") {
		return nil, false
	}

	ref, err := url.Parse(href)
	if err != nil {
		return nil, false
	}
	// autoindex 的列排序链接形如 "?C=N;O=D"，没有新内容。
	if ref.RawQuery != "" || ref.Fragment != "" {
		return nil, false
	}

	next := base.ResolveReference(ref)
	if next.Host != c.root.Host {
		return nil, false
	}
	if !strings.HasPrefix(next.Path, c.root.Path) {
		return nil, false
	}
	// 自指（当前页重复出现）无意义。
	if next.Path == base.Path {
		return nil, false
	}
	return next, true
}

// file 把单个文件镜像到 outDir，保持相对 root 的路径结构。
func (c *crawler) file(ctx context.Context, u *url.URL) error {
	key := u.String()
	if c.visited[key] {
		return nil
	}
	c.visited[key] = true

	dst, err := c.localPath(u)
	if err != nil {
		c.fail(key, err)
		return nil
	}

	if c.opt.SkipExisting {
		skip, err := c.sameSizeLocal(ctx, key, dst)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			c.fail(key, err)
			return nil
		}
		if skip {
			c.rep.Skipped++
			c.opt.Obs.OnSkipped(key, dst)
			return nil
		}
	}

	if err := c.pause(ctx); err != nil {
		return err
	}
	size, err := c.download(ctx, key, dst)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		c.fail(key, err)
		return nil
	}
	c.rep.Downloaded++
	c.opt.Obs.OnDownloaded(key, dst, size)
	return nil
}

// localPath 把 URL 路径映射为 outDir 下的本地路径，并拒绝越界段。
func (c *crawler) localPath(u *url.URL) (string, error) {
	rel := strings.TrimPrefix(u.Path, c.root.Path)
	rel = path.Clean("/" + rel)[1:] // 折叠 ".."，去掉前导 "/"
	if rel == "" || rel == "." {
		return "", fmt.Errorf("无法从 %q 得到相对路径", u.Path)
	}
	unescaped, err := url.PathUnescape(rel)
	if err == nil {
		rel = unescaped
	}
	return filepath.Join(c.outDir, filepath.FromSlash(rel)), nil
}

// sameSizeLocal 用 HEAD 的 Content-Length 判断本地文件是否已完整。
func (c *crawler) sameSizeLocal(ctx context.Context, fileURL, dst string) (bool, error) {
	fi, err := os.Stat(dst)
	if err != nil || fi.IsDir() {
		return false, nil
	}

	if err := c.pause(ctx); err != nil {
		return false, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, fileURL, nil)
	if err != nil {
		return false, err
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return false, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return false, fmt.Errorf("HEAD 状态码 %d", resp.StatusCode)
	}
	// Content-Length 未知（-1）时保守地重新下载。
	return resp.ContentLength >= 0 && resp.ContentLength == fi.Size(), nil
}

// download 流式写入 <dst>.part，成功后 rename 到 dst。
func (c *crawler) download(ctx context.Context, fileURL, dst string) (int64, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fileURL, nil)
	if err != nil {
		return 0, err
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("下载状态码 %d", resp.StatusCode)
	}

	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return 0, err
	}
	part := dst + ".part"
	f, err := os.Create(part)
	if err != nil {
		return 0, err
	}

	n, err := io.Copy(f, resp.Body)
	if err != nil {
		_ = f.Close()
		_ = os.Remove(part)
		return 0, err
	}
	if err := f.Sync(); err != nil {
		_ = f.Close()
		_ = os.Remove(part)
		return 0, err
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(part)
		return 0, err
	}

	if err := fsx.Rename(part, dst); err != nil {
		_ = os.Remove(part)
		return 0, err
	}
	return n, nil
}

func (c *crawler) fail(u string, err error) {
	c.rep.Failed++
	c.rep.Failures = append(c.rep.Failures, domain.FetchFailure{URL: u, Err: err.Error()})
	c.opt.Obs.OnError(u, err)
}

// pause 在相邻请求之间等待 Delay；首个请求不等。
func (c *crawler) pause(ctx context.Context) error {
	if !c.requested {
		c.requested = true
		return nil
	}
	if c.opt.Delay <= 0 {
		return nil
	}
	timer := time.NewTimer(c.opt.Delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
