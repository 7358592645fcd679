package app

import (
	"context"
	"errors"

	"github.com/John-Robertt/EDFKIT/internal/config"
	"github.com/John-Robertt/EDFKIT/internal/crawl"
	"github.com/John-Robertt/EDFKIT/internal/domain"
	"github.com/John-Robertt/EDFKIT/internal/infra/httpx"
)

// RunFetch 从配置的根 URL 递归镜像目录树到数据集根目录。
// 进度经 obs 交给 cmd 层输出；obs 可为 nil。
func RunFetch(ctx context.Context, eff config.EffectiveConfig, obs crawl.Observer) (domain.FetchReport, error) {
	if eff.URL == "" {
		return domain.FetchReport{}, errors.New("未配置根 URL（--url、edfkit.json 的 url 字段或环境变量 URL）")
	}

	client := httpx.NewClient(eff.Username, eff.Password)
	return crawl.Crawl(ctx, client, eff.URL, eff.Path, crawl.Options{
		Delay:        eff.Delay,
		SkipExisting: eff.SkipExisting,
		Obs:          obs,
	})
}
