package crawl

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/John-Robertt/EDFKIT/internal/infra/httpx"
)

// newIndexServer 模拟 Apache autoindex 风格的目录站：
//
//	/eeg/            -> 链接 sub/ 与 a.edf（外加排序/父目录等噪音链接）
//	/eeg/sub/        -> 链接 b.edf
func newIndexServer(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/eeg/", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/eeg/" {
			http.NotFound(w, r)
			return
		}
		fmt.Fprint(w, `<html><body>
<a href="?C=N;O=D">Name</a>
<a href="../">Parent Directory</a>
<a href="#top">top</a>
<a href="mailto:help@example.org">help</a>
<a href="sub/">sub/</a>
<a href="a.edf">a.edf</a>
</body></html>`)
	})
	mux.HandleFunc("/eeg/sub/", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `<html><body><a href="b.edf">b.edf</a></body></html>`)
	})
	mux.HandleFunc("/eeg/a.edf", serveBytes([]byte("AAAA")))
	mux.HandleFunc("/eeg/sub/b.edf", serveBytes([]byte("BBBBBBBB")))
	return httptest.NewServer(mux)
}

func serveBytes(b []byte) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Length", fmt.Sprint(len(b)))
		if r.Method == http.MethodHead {
			return
		}
		_, _ = w.Write(b)
	}
}

func TestCrawl_MirrorsTree(t *testing.T) {
	srv := newIndexServer(t)
	defer srv.Close()

	out := t.TempDir()
	rep, err := Crawl(context.Background(), srv.Client(), srv.URL+"/eeg/", out, Options{})
	if err != nil {
		t.Fatalf("不期望错误：%v", err)
	}

	if rep.Pages != 2 {
		t.Fatalf("期望解析 2 个索引页，实际 %d", rep.Pages)
	}
	if rep.Downloaded != 2 || rep.Failed != 0 {
		t.Fatalf("期望下载 2 / 失败 0，实际 %d / %d", rep.Downloaded, rep.Failed)
	}

	b, err := os.ReadFile(filepath.Join(out, "a.edf"))
	if err != nil || string(b) != "AAAA" {
		t.Fatalf("a.edf 落盘不对：%q, %v", string(b), err)
	}
	b, err = os.ReadFile(filepath.Join(out, "sub", "b.edf"))
	if err != nil || string(b) != "BBBBBBBB" {
		t.Fatalf("sub/b.edf 落盘不对：%q, %v", string(b), err)
	}

	// 下载完成后不应残留 .part 文件。
	matches, _ := filepath.Glob(filepath.Join(out, "*.part"))
	if len(matches) != 0 {
		t.Fatalf(".part 文件未清理：%v", matches)
	}
}

func TestCrawl_SkipExistingSameSize(t *testing.T) {
	srv := newIndexServer(t)
	defer srv.Close()

	out := t.TempDir()
	opt := Options{SkipExisting: true}

	if _, err := Crawl(context.Background(), srv.Client(), srv.URL+"/eeg/", out, opt); err != nil {
		t.Fatalf("首轮不期望错误：%v", err)
	}
	rep, err := Crawl(context.Background(), srv.Client(), srv.URL+"/eeg/", out, opt)
	if err != nil {
		t.Fatalf("次轮不期望错误：%v", err)
	}
	if rep.Downloaded != 0 || rep.Skipped != 2 {
		t.Fatalf("次轮期望下载 0 / 跳过 2，实际 %d / %d", rep.Downloaded, rep.Skipped)
	}
}

func TestCrawl_SizeMismatchRedownloads(t *testing.T) {
	srv := newIndexServer(t)
	defer srv.Close()

	out := t.TempDir()
	// 预置一个不完整的 a.edf（大小与远端不一致）。
	if err := os.WriteFile(filepath.Join(out, "a.edf"), []byte("AA"), 0o644); err != nil {
		t.Fatalf("预置文件失败：%v", err)
	}

	rep, err := Crawl(context.Background(), srv.Client(), srv.URL+"/eeg/", out, Options{SkipExisting: true})
	if err != nil {
		t.Fatalf("不期望错误：%v", err)
	}
	if rep.Downloaded != 2 || rep.Skipped != 0 {
		t.Fatalf("大小不一致应重新下载，实际下载 %d / 跳过 %d", rep.Downloaded, rep.Skipped)
	}
	b, _ := os.ReadFile(filepath.Join(out, "a.edf"))
	if string(b) != "AAAA" {
		t.Fatalf("重新下载后内容不对：%q", string(b))
	}
}

func TestCrawl_FileFailureDoesNotAbort(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/eeg/", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/eeg/" {
			http.NotFound(w, r)
			return
		}
		fmt.Fprint(w, `<html><body>
<a href="missing.edf">missing.edf</a>
<a href="ok.edf">ok.edf</a>
</body></html>`)
	})
	mux.HandleFunc("/eeg/ok.edf", serveBytes([]byte("OK")))
	srv := httptest.NewServer(mux)
	defer srv.Close()

	out := t.TempDir()
	rep, err := Crawl(context.Background(), srv.Client(), srv.URL+"/eeg/", out, Options{})
	if err != nil {
		t.Fatalf("单文件失败不应终止整次 crawl：%v", err)
	}
	if rep.Downloaded != 1 || rep.Failed != 1 {
		t.Fatalf("期望下载 1 / 失败 1，实际 %d / %d", rep.Downloaded, rep.Failed)
	}
	if len(rep.Failures) != 1 || rep.Failures[0].URL == "" || rep.Failures[0].Err == "" {
		t.Fatalf("失败明细缺失：%+v", rep.Failures)
	}
}

func TestCrawl_WithRetryingClient(t *testing.T) {
	var calls int
	mux := http.NewServeMux()
	mux.HandleFunc("/eeg/", func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		fmt.Fprint(w, `<html><body><a href="a.edf">a.edf</a></body></html>`)
	})
	mux.HandleFunc("/eeg/a.edf", serveBytes([]byte("AAAA")))
	srv := httptest.NewServer(mux)
	defer srv.Close()

	client := httpx.NewClient("", "")
	client.Transport.(*httpx.Transport).Backoff = 1 // 测试不等真实退避

	rep, err := Crawl(context.Background(), client, srv.URL+"/eeg/", t.TempDir(), Options{})
	if err != nil {
		t.Fatalf("不期望错误：%v", err)
	}
	if rep.Downloaded != 1 {
		t.Fatalf("期望经重试后下载 1 个文件，实际 %d", rep.Downloaded)
	}
}
