package fred

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"net/url"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"time"

	perrors "github.com/jmgilman/go/errors"

	"github.com/econfetch/econfetch/internal/fetch"
)

const (
	DefaultAPIBase   = "https://api.stlouisfed.org/fred"
	DefaultGraphBase = "https://fred.stlouisfed.org/graph/fredgraph.csv"

	dateLayout = "2006-01-02"
	// ALFRED 用这对实时区间表示“全部历史版本”。
	realtimeAll   = "1776-07-04"
	realtimeLater = "9999-12-31"
)

// ErrMissingAPIKey 表示调用需要 API Key 的接口但未配置密钥。
var ErrMissingAPIKey = perrors.New(perrors.CodeUnauthorized, "FRED API key is not configured")

var seriesIDPattern = regexp.MustCompile(`^[A-Za-z0-9_]+$`)

// Observation 是一条时间序列观测值。缺失值（FRED 中的 "."）表示为 NaN。
// RealtimeStart/RealtimeEnd 只在 API 返回时有值，ALFRED 用它们区分历史版本。
type Observation struct {
	Date          time.Time `json:"date"`
	Value         float64   `json:"value"`
	RealtimeStart time.Time `json:"realtime_start,omitempty"`
	RealtimeEnd   time.Time `json:"realtime_end,omitempty"`
}

// Missing 表示该观测值在源数据中缺失。
func (o Observation) Missing() bool {
	return math.IsNaN(o.Value)
}

// Client 通过缓存下载器访问 FRED，所有响应先落盘再解析。
type Client struct {
	fetcher   *fetch.Fetcher
	apiKey    string
	apiBase   string
	graphBase string
}

// Option 用于覆盖客户端默认地址，主要供测试注入 stub。
type Option func(*Client)

// WithAPIBase 覆盖 FRED API 根地址。
func WithAPIBase(base string) Option {
	return func(c *Client) { c.apiBase = strings.TrimRight(base, "/") }
}

// WithGraphBase 覆盖 fredgraph.csv 地址。
func WithGraphBase(base string) Option {
	return func(c *Client) { c.graphBase = base }
}

// NewClient 构建 FRED 客户端。apiKey 可以为空，此时只能使用 GraphCSV。
func NewClient(fetcher *fetch.Fetcher, apiKey string, opts ...Option) *Client {
	c := &Client{
		fetcher:   fetcher,
		apiKey:    strings.TrimSpace(apiKey),
		apiBase:   DefaultAPIBase,
		graphBase: DefaultGraphBase,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Observations 通过 FRED API 获取序列观测值，缓存到 fred/<ID>.json。
func (c *Client) Observations(ctx context.Context, seriesID string) ([]Observation, error) {
	return c.apiObservations(ctx, seriesID, Subfolder, seriesID+".json", nil)
}

// Vintages 通过 ALFRED 获取序列的全部历史版本，缓存到 alfred/<ID>_vintages.json。
func (c *Client) Vintages(ctx context.Context, seriesID string) ([]Observation, error) {
	extra := url.Values{}
	extra.Set("realtime_start", realtimeAll)
	extra.Set("realtime_end", realtimeLater)
	return c.apiObservations(ctx, seriesID, ALFREDSubfolder, seriesID+"_vintages.json", extra)
}

// GraphCSV 下载无需密钥的 fredgraph.csv，缓存到 fred/<ID>.csv。
func (c *Client) GraphCSV(ctx context.Context, seriesID string) ([]Observation, error) {
	if err := validateSeriesID(seriesID); err != nil {
		return nil, err
	}
	query := url.Values{}
	query.Set("id", seriesID)
	target := c.graphBase + "?" + query.Encode()

	path, err := c.fetchTo(ctx, target, Subfolder, seriesID+".csv")
	if err != nil {
		return nil, err
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return ParseGraphCSV(f)
}

func (c *Client) apiObservations(ctx context.Context, seriesID, subfolder, fileName string, extra url.Values) ([]Observation, error) {
	if err := validateSeriesID(seriesID); err != nil {
		return nil, err
	}
	if c.apiKey == "" {
		return nil, ErrMissingAPIKey
	}

	query := url.Values{}
	query.Set("series_id", seriesID)
	query.Set("api_key", c.apiKey)
	query.Set("file_type", "json")
	for key, values := range extra {
		for _, value := range values {
			query.Add(key, value)
		}
	}
	target := c.apiBase + "/series/observations?" + query.Encode()

	path, err := c.fetchTo(ctx, target, subfolder, fileName)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return ParseObservationsJSON(f)
}

// fetchTo 使用显式 destination，避免不同序列的 API 响应都落到 "observations" 这个文件名上。
func (c *Client) fetchTo(ctx context.Context, target, subfolder, fileName string) (string, error) {
	dir, err := c.fetcher.CacheDir(subfolder)
	if err != nil {
		return "", err
	}
	return c.fetcher.Fetch(ctx, fetch.Request{
		Source:      "fred",
		URL:         target,
		Destination: filepath.Join(dir, fileName),
		Subfolder:   subfolder,
		Check:       fetch.CheckModified,
	})
}

type observationsPayload struct {
	ErrorCode    int    `json:"error_code"`
	ErrorMessage string `json:"error_message"`
	Observations []struct {
		RealtimeStart string `json:"realtime_start"`
		RealtimeEnd   string `json:"realtime_end"`
		Date          string `json:"date"`
		Value         string `json:"value"`
	} `json:"observations"`
}

// ParseObservationsJSON 解析 series/observations 的 JSON 响应。
func ParseObservationsJSON(r io.Reader) ([]Observation, error) {
	var payload observationsPayload
	if err := json.NewDecoder(r).Decode(&payload); err != nil {
		return nil, fmt.Errorf("decode fred observations: %w", err)
	}
	if payload.ErrorMessage != "" {
		return nil, fmt.Errorf("fred api error %d: %s", payload.ErrorCode, payload.ErrorMessage)
	}

	result := make([]Observation, 0, len(payload.Observations))
	for _, raw := range payload.Observations {
		date, err := time.Parse(dateLayout, raw.Date)
		if err != nil {
			return nil, fmt.Errorf("parse observation date %q: %w", raw.Date, err)
		}
		obs := Observation{Date: date, Value: parseValue(raw.Value)}
		if raw.RealtimeStart != "" {
			obs.RealtimeStart, _ = time.Parse(dateLayout, raw.RealtimeStart)
		}
		if raw.RealtimeEnd != "" {
			obs.RealtimeEnd, _ = time.Parse(dateLayout, raw.RealtimeEnd)
		}
		result = append(result, obs)
	}
	return result, nil
}

// ParseGraphCSV 解析 fredgraph.csv：第一列是日期，第二列是数值，首行为表头。
func ParseGraphCSV(r io.Reader) ([]Observation, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, errors.New("empty fred csv")
		}
		return nil, err
	}
	if len(header) < 2 {
		return nil, fmt.Errorf("unexpected fred csv header: %v", header)
	}

	var result []Observation
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}
		if len(record) < 2 {
			continue
		}
		date, err := time.Parse(dateLayout, strings.TrimSpace(record[0]))
		if err != nil {
			return nil, fmt.Errorf("parse csv date %q: %w", record[0], err)
		}
		result = append(result, Observation{Date: date, Value: parseValue(record[1])})
	}
	return result, nil
}

func parseValue(raw string) float64 {
	raw = strings.TrimSpace(raw)
	if raw == "" || raw == "." {
		return math.NaN()
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return math.NaN()
	}
	return v
}

func validateSeriesID(seriesID string) error {
	if !seriesIDPattern.MatchString(seriesID) {
		return perrors.Newf(perrors.CodeInvalidInput, "invalid series id %q", seriesID)
	}
	return nil
}
