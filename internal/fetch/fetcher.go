package fetch

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/econfetch/econfetch/internal/cache"
	"github.com/econfetch/econfetch/internal/logging"
	"github.com/econfetch/econfetch/internal/version"
)

// Request 描述一次条件下载。Destination 非空时原样作为本地路径；
// CacheRoot 非空时覆盖 Fetcher 的默认缓存根目录。
type Request struct {
	// Source 仅用于日志，通常是配置中的 Source 名称。
	Source      string
	URL         string
	Destination string
	CacheRoot   string
	Subfolder   string
	Check       CheckMode
	Headers     map[string]string
}

// Result 描述一次调用的结果。无论是否真的发生下载，成功时 Path 总是本地文件路径。
type Result struct {
	Path       string    `json:"path"`
	MetaPath   string    `json:"meta_path"`
	Check      CheckMode `json:"check"`
	Decision   Decision  `json:"decision"`
	Downloaded bool      `json:"downloaded"`
	Repaired   bool      `json:"repaired"`
	SizeBytes  int64     `json:"size_bytes"`
	Token      string    `json:"token,omitempty"`
}

// Options 汇总 Fetcher 的依赖。Client/Store 为空时使用默认实现。
type Options struct {
	Client           *http.Client
	Store            cache.Store
	CacheRoot        string
	AppName          string
	Logger           *logrus.Logger
	RepairCollisions bool
	UserAgent        string
}

// Fetcher 串联 “路径解析 → HEAD 探测 → 新鲜度判断 → 下载 → 写入令牌” 的流程。
// 单次调用内部没有并发，所有步骤顺序执行。
type Fetcher struct {
	client    *http.Client
	store     cache.Store
	resolver  *cache.Resolver
	appName   string
	logger    *logrus.Entry
	repair    bool
	userAgent string
}

// New 构建 Fetcher，并在此处一次性解析缓存根目录。
func New(opts Options) (*Fetcher, error) {
	appName := strings.TrimSpace(opts.AppName)
	if appName == "" {
		appName = version.Name
	}
	resolver, err := cache.NewResolver(opts.CacheRoot, appName)
	if err != nil {
		return nil, err
	}

	client := opts.Client
	if client == nil {
		client = NewHTTPClient(0)
	}
	store := opts.Store
	if store == nil {
		store = cache.NewStore()
	}
	userAgent := opts.UserAgent
	if userAgent == "" {
		userAgent = version.UserAgent()
	}

	return &Fetcher{
		client:    client,
		store:     store,
		resolver:  resolver,
		appName:   appName,
		logger:    logging.Component(opts.Logger, "fetch"),
		repair:    opts.RepairCollisions,
		userAgent: userAgent,
	}, nil
}

// CacheRoot 返回默认缓存根目录。
func (f *Fetcher) CacheRoot() string {
	return f.resolver.Root()
}

// CacheDir 返回 <root>/[subfolder] 并确保目录存在。
func (f *Fetcher) CacheDir(subfolder string) (string, error) {
	return f.resolver.Dir(subfolder)
}

// Resolve 计算请求对应的正文与元数据路径，不发起任何网络请求。
func (f *Fetcher) Resolve(req Request) (cache.Paths, error) {
	resolver, err := f.resolverFor(req.CacheRoot)
	if err != nil {
		return cache.Paths{}, err
	}
	return resolver.Resolve(req.URL, req.Destination, req.Subfolder)
}

// Locate 与 Resolve 相同，但不创建任何目录。
func (f *Fetcher) Locate(req Request) (cache.Paths, error) {
	resolver, err := f.resolverFor(req.CacheRoot)
	if err != nil {
		return cache.Paths{}, err
	}
	return resolver.Locate(req.URL, req.Destination, req.Subfolder)
}

// FetchIfStale 在远端内容变化或无法确认新鲜度时下载文件。HEAD 探测失败只会导致重新下载，
// 只有正文传输失败才会返回错误，此时 .meta 保持调用前的状态。
func (f *Fetcher) FetchIfStale(ctx context.Context, req Request) (*Result, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	check, err := f.validate(&req)
	if err != nil {
		return nil, err
	}
	started := time.Now()
	fields := logging.FetchFields(req.Source, req.URL, string(check))

	paths, err := f.Resolve(req)
	if err != nil {
		if errors.Is(err, cache.ErrInvalidURL) {
			return nil, invalidRequest("%v", err)
		}
		return nil, err
	}
	fields["path"] = paths.Local

	repaired, err := f.store.PrepareTarget(ctx, paths.Local, f.repair)
	if err != nil {
		f.logger.WithFields(fields).WithError(err).Error("cache_prepare_failed")
		return nil, err
	}
	if repaired {
		f.logger.WithFields(fields).WithField("action", "cache_collision_repair").
			Warn("removed directory occupying cache file path")
	}

	result := &Result{
		Path:     paths.Local,
		MetaPath: paths.Meta,
		Check:    check,
		Repaired: repaired,
	}

	probe := f.probe(ctx, req)
	if probe.Err != nil {
		f.logger.WithFields(fields).WithFields(logrus.Fields{
			"action":      "probe_failed",
			"probe_error": probe.Err.Error(),
		}).Info("metadata probe failed, downloading")
	}

	local := f.localState(ctx, check, paths)
	result.Decision = decide(check, probe, local)
	if result.Decision == DecisionUpToDate {
		result.SizeBytes = local.size
		result.Token = local.token
		f.logResult(fields, result, started)
		return result, nil
	}

	entry, err := f.download(ctx, req, paths.Local)
	if err != nil {
		fields["elapsed_ms"] = time.Since(started).Milliseconds()
		f.logger.WithFields(fields).WithError(err).Error("download_failed")
		return nil, err
	}
	result.Downloaded = true
	result.SizeBytes = entry.SizeBytes

	if check == CheckModified && probe.LastModified != "" {
		if err := f.store.WriteToken(ctx, paths.Meta, probe.LastModified); err != nil {
			f.logger.WithFields(fields).WithError(err).Warn("meta_write_failed")
		} else {
			result.Token = probe.LastModified
		}
	}

	f.logResult(fields, result, started)
	return result, nil
}

// Fetch 是 FetchIfStale 的简写，只返回本地路径。
func (f *Fetcher) Fetch(ctx context.Context, req Request) (string, error) {
	result, err := f.FetchIfStale(ctx, req)
	if err != nil {
		return "", err
	}
	return result.Path, nil
}

// Status 返回请求对应缓存条目的当前状态，供诊断接口使用，不发起网络请求也不创建目录。
func (f *Fetcher) Status(ctx context.Context, req Request) (cache.Paths, *cache.Entry, string, error) {
	paths, err := f.Locate(req)
	if err != nil {
		return cache.Paths{}, nil, "", err
	}
	entry, err := f.store.Stat(ctx, paths.Local)
	if err != nil && !errors.Is(err, cache.ErrNotFound) {
		return paths, nil, "", err
	}
	token, tokenErr := f.store.ReadToken(ctx, paths.Meta)
	if tokenErr != nil && !errors.Is(tokenErr, cache.ErrNotFound) {
		return paths, entry, "", tokenErr
	}
	return paths, entry, token, nil
}

// Open 打开已缓存的正文文件，供 HTTP 层流式返回。
func (f *Fetcher) Open(ctx context.Context, path string) (*cache.ReadResult, error) {
	return f.store.Open(ctx, path)
}

func (f *Fetcher) validate(req *Request) (CheckMode, error) {
	req.URL = strings.TrimSpace(req.URL)
	if req.URL == "" {
		return "", invalidRequest("url required")
	}
	check, err := ParseCheckMode(string(req.Check))
	if err != nil {
		return "", invalidRequest("%v", err)
	}
	req.Check = check
	return check, nil
}

func (f *Fetcher) resolverFor(root string) (*cache.Resolver, error) {
	if root == "" || root == f.resolver.Root() {
		return f.resolver, nil
	}
	return cache.NewResolver(root, f.appName)
}

// localState 读取正文是否存在及其大小，modified 策略再读取令牌。读取失败一律视为缺失。
func (f *Fetcher) localState(ctx context.Context, check CheckMode, paths cache.Paths) localState {
	var state localState
	if entry, err := f.store.Stat(ctx, paths.Local); err == nil {
		state.exists = true
		state.size = entry.SizeBytes
	}
	// 正文缺失时令牌没有意义，不必再读。
	if check == CheckModified && state.exists {
		if token, err := f.store.ReadToken(ctx, paths.Meta); err == nil {
			state.hasToken = true
			state.token = token
		}
	}
	return state
}

func (f *Fetcher) download(ctx context.Context, req Request, localPath string) (*cache.Entry, error) {
	httpReq, err := f.newRequest(ctx, http.MethodGet, req)
	if err != nil {
		return nil, transferFailure(req.URL, 0, err)
	}

	resp, err := f.client.Do(httpReq)
	if err != nil {
		return nil, transferFailure(req.URL, 0, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, transferFailure(req.URL, resp.StatusCode, errors.New(http.StatusText(resp.StatusCode)))
	}

	entry, err := f.store.Write(ctx, localPath, resp.Body, cache.WriteOptions{ModTime: extractModTime(resp.Header)})
	if err != nil {
		return nil, transferFailure(req.URL, 0, err)
	}
	return entry, nil
}

// newRequest 构造探测/下载请求。显式要求 identity 编码，保证 Content-Length 与落盘大小可比。
func (f *Fetcher) newRequest(ctx context.Context, method string, req Request) (*http.Request, error) {
	httpReq, err := http.NewRequestWithContext(ctx, method, req.URL, http.NoBody)
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("User-Agent", f.userAgent)
	httpReq.Header.Set("Accept-Encoding", "identity")
	ApplyHeaders(httpReq.Header, req.Headers)
	return httpReq, nil
}

func (f *Fetcher) logResult(fields logrus.Fields, result *Result, started time.Time) {
	entry := f.logger.WithFields(fields).WithFields(logrus.Fields{
		"action":     "fetch",
		"decision":   result.Decision,
		"downloaded": result.Downloaded,
		"size_bytes": result.SizeBytes,
		"elapsed_ms": time.Since(started).Milliseconds(),
	})
	if result.Downloaded {
		entry.Info("fetch_complete")
		return
	}
	entry.Debug("cache_fresh")
}

// extractModTime 使用 Last-Modified 作为文件时间戳，缺失或无法解析时返回零值。
func extractModTime(header http.Header) time.Time {
	if last := header.Get("Last-Modified"); last != "" {
		if parsed, err := http.ParseTime(last); err == nil {
			return parsed.UTC()
		}
	}
	return time.Time{}
}
