// Package scheduler 按 cron 表达式定期刷新配置中的数据源。
package scheduler

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"

	"github.com/econfetch/econfetch/internal/config"
	"github.com/econfetch/econfetch/internal/fetch"
	"github.com/econfetch/econfetch/internal/logging"
	"github.com/econfetch/econfetch/internal/sourcemodule"
)

// Fetcher 是调度器依赖的最小下载接口，*fetch.Fetcher 满足该接口。
type Fetcher interface {
	FetchIfStale(ctx context.Context, req fetch.Request) (*fetch.Result, error)
}

// Entry 描述一个已注册的定时任务。
type Entry struct {
	Source   string    `json:"source"`
	Schedule string    `json:"schedule"`
	Next     time.Time `json:"next,omitempty"`
	Prev     time.Time `json:"prev,omitempty"`
}

type job struct {
	schedule string
	request  fetch.Request
	id       cron.EntryID
}

// Scheduler 包装 *cron.Cron。同一数据源的上一次刷新未结束时跳过本次触发。
type Scheduler struct {
	cron    *cron.Cron
	fetcher Fetcher
	logger  *logrus.Entry
	timeout time.Duration

	mu   sync.Mutex
	jobs map[string]*job
}

// New 创建调度器。timeout 为单次刷新的上限，<=0 表示不限制。
func New(fetcher Fetcher, logger *logrus.Logger, timeout time.Duration) *Scheduler {
	entry := logging.Component(logger, "scheduler")
	return &Scheduler{
		cron: cron.New(cron.WithChain(
			cron.Recover(cron.PrintfLogger(entry)),
			cron.SkipIfStillRunning(cron.PrintfLogger(entry)),
		)),
		fetcher: fetcher,
		logger:  entry,
		timeout: timeout,
		jobs:    make(map[string]*job),
	}
}

// Add 为数据源注册定时刷新。cron 表达式非法或名称重复时返回错误。
func (s *Scheduler) Add(name, spec string, req fetch.Request) error {
	key := strings.ToLower(strings.TrimSpace(name))
	if key == "" {
		return fmt.Errorf("scheduler: source name required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.jobs[key]; exists {
		return fmt.Errorf("scheduler: source %s already scheduled", name)
	}
	if req.Source == "" {
		req.Source = name
	}

	id, err := s.cron.AddFunc(spec, func() {
		_, _ = s.run(context.Background(), req)
	})
	if err != nil {
		return fmt.Errorf("scheduler: invalid schedule %q for %s: %w", spec, name, err)
	}
	s.jobs[key] = &job{schedule: spec, request: req, id: id}
	return nil
}

// AddSources 注册配置中所有带 Schedule 的数据源，返回注册数量。
func (s *Scheduler) AddSources(cfg *config.Config) (int, error) {
	if cfg == nil {
		return 0, nil
	}
	count := 0
	for _, src := range cfg.Sources {
		if strings.TrimSpace(src.Schedule) == "" {
			continue
		}
		req, err := sourcemodule.BuildRequest(src)
		if err != nil {
			return count, err
		}
		if err := s.Add(src.Name, src.Schedule, req); err != nil {
			return count, err
		}
		count++
	}
	return count, nil
}

// Run 立即执行一次指定数据源的刷新，与定时触发走同一条路径。
func (s *Scheduler) Run(ctx context.Context, name string) (*fetch.Result, error) {
	s.mu.Lock()
	j, ok := s.jobs[strings.ToLower(strings.TrimSpace(name))]
	s.mu.Unlock()
	if !ok {
		return nil, fmt.Errorf("scheduler: source %s is not scheduled", name)
	}
	return s.run(ctx, j.request)
}

// Entries 返回按数据源名称排序的任务列表。
func (s *Scheduler) Entries() []Entry {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Entry, 0, len(s.jobs))
	for _, j := range s.jobs {
		ce := s.cron.Entry(j.id)
		out = append(out, Entry{
			Source:   j.request.Source,
			Schedule: j.schedule,
			Next:     ce.Next,
			Prev:     ce.Prev,
		})
	}
	sort.Slice(out, func(i, k int) bool { return out[i].Source < out[k].Source })
	return out
}

// Len 返回已注册任务数。
func (s *Scheduler) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.jobs)
}

func (s *Scheduler) Start() {
	s.cron.Start()
	s.logger.WithField("jobs", s.Len()).Info("scheduler_started")
}

// Stop 停止调度，返回的 context 在运行中的任务全部结束后被取消。
func (s *Scheduler) Stop() context.Context {
	ctx := s.cron.Stop()
	s.logger.Info("scheduler_stopped")
	return ctx
}

func (s *Scheduler) run(ctx context.Context, req fetch.Request) (*fetch.Result, error) {
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}
	fields := logging.FetchFields(req.Source, req.URL, string(req.Check))
	fields["run_id"] = uuid.NewString()
	fields["action"] = "scheduled_refresh"

	started := time.Now()
	result, err := s.fetcher.FetchIfStale(ctx, req)
	fields["elapsed_ms"] = time.Since(started).Milliseconds()
	if err != nil {
		s.logger.WithFields(fields).WithError(err).Error("refresh_failed")
		return nil, err
	}
	s.logger.WithFields(fields).WithFields(logrus.Fields{
		"decision":   result.Decision,
		"downloaded": result.Downloaded,
		"path":       result.Path,
	}).Info("refresh_complete")
	return result, nil
}
