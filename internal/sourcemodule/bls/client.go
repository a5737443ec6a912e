package bls

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	perrors "github.com/jmgilman/go/errors"
	"github.com/klauspost/compress/zip"

	"github.com/econfetch/econfetch/internal/fetch"
)

// DefaultBaseURL 是 QCEW 开放数据的站点根地址。
const DefaultBaseURL = "https://data.bls.gov"

// Slice 表示 QCEW 开放数据 API 的切片维度。
type Slice string

const (
	SliceArea     Slice = "area"
	SliceIndustry Slice = "industry"
	SliceSize     Slice = "size"
)

var codePattern = regexp.MustCompile(`^[A-Za-z0-9_]+$`)

// Client 通过缓存下载器访问 QCEW 数据。
type Client struct {
	fetcher *fetch.Fetcher
	baseURL string
	headers map[string]string
}

// Option 定制 Client。
type Option func(*Client)

// WithBaseURL 覆盖站点根地址。
func WithBaseURL(base string) Option {
	return func(c *Client) { c.baseURL = strings.TrimRight(base, "/") }
}

// WithHeaders 覆盖默认的浏览器请求头。
func WithHeaders(headers map[string]string) Option {
	return func(c *Client) { c.headers = headers }
}

func NewClient(fetcher *fetch.Fetcher, opts ...Option) *Client {
	c := &Client{
		fetcher: fetcher,
		baseURL: DefaultBaseURL,
		headers: BrowserHeaders,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Area 下载某地区在指定年份/季度的全部行业数据。quarter 取 1-4，"a" 表示年度。
func (c *Client) Area(ctx context.Context, year int, quarter, areaCode string) (*Table, error) {
	return c.slice(ctx, SliceArea, year, quarter, areaCode)
}

// Industry 下载某行业在指定年份/季度的全部地区数据。
func (c *Client) Industry(ctx context.Context, year int, quarter, industryCode string) (*Table, error) {
	return c.slice(ctx, SliceIndustry, year, quarter, industryCode)
}

// Size 下载某企业规模分组的数据，BLS 只在第一季度发布该切片。
func (c *Client) Size(ctx context.Context, year int, quarter, sizeCode string) (*Table, error) {
	return c.slice(ctx, SliceSize, year, quarter, sizeCode)
}

// AnnualSingleFile 下载年度汇总 zip 并解析其中第一个 CSV。文件较大，按大小判断是否需要重新下载。
func (c *Client) AnnualSingleFile(ctx context.Context, year int) (*Table, error) {
	if year <= 0 {
		return nil, perrors.Newf(perrors.CodeInvalidInput, "invalid year %d", year)
	}
	name := fmt.Sprintf("%d_annual_singlefile.zip", year)
	target := fmt.Sprintf("%s/cew/data/files/%d/csv/%s", c.baseURL, year, name)

	path, err := c.fetchTo(ctx, target, name)
	if err != nil {
		return nil, err
	}
	return readZippedCSV(path)
}

func (c *Client) slice(ctx context.Context, kind Slice, year int, quarter, code string) (*Table, error) {
	qtr, err := normalizeQuarter(quarter)
	if err != nil {
		return nil, err
	}
	if year <= 0 {
		return nil, perrors.Newf(perrors.CodeInvalidInput, "invalid year %d", year)
	}
	if !codePattern.MatchString(code) {
		return nil, perrors.Newf(perrors.CodeInvalidInput, "invalid %s code %q", kind, code)
	}

	target := fmt.Sprintf("%s/cew/data/api/%d/%s/%s/%s.csv", c.baseURL, year, qtr, kind, code)
	path, err := c.fetchTo(ctx, target, fmt.Sprintf("%d_%s_%s_%s.csv", year, qtr, kind, code))
	if err != nil {
		return nil, err
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return ParseTable(f)
}

func (c *Client) fetchTo(ctx context.Context, target, fileName string) (string, error) {
	dir, err := c.fetcher.CacheDir(Subfolder)
	if err != nil {
		return "", err
	}
	return c.fetcher.Fetch(ctx, fetch.Request{
		Source:      "bls",
		URL:         target,
		Destination: filepath.Join(dir, fileName),
		Subfolder:   Subfolder,
		Check:       fetch.CheckSize,
		Headers:     c.headers,
	})
}

func readZippedCSV(path string) (*Table, error) {
	archive, err := zip.OpenReader(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", filepath.Base(path), err)
	}
	defer archive.Close()

	for _, file := range archive.File {
		if !strings.EqualFold(filepath.Ext(file.Name), ".csv") {
			continue
		}
		rc, err := file.Open()
		if err != nil {
			return nil, err
		}
		table, err := ParseTable(rc)
		rc.Close()
		return table, err
	}
	return nil, fmt.Errorf("no csv entry in %s", filepath.Base(path))
}

func normalizeQuarter(quarter string) (string, error) {
	q := strings.ToLower(strings.TrimSpace(quarter))
	switch q {
	case "1", "2", "3", "4", "a":
		return q, nil
	default:
		return "", perrors.Newf(perrors.CodeInvalidInput, "invalid quarter %q", quarter)
	}
}
