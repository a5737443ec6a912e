// Package recession 从 0/1 指示序列（如 FRED 的 USREC）推导衰退区间。
package recession

import (
	"context"
	"math"
	"strings"
	"time"

	"github.com/econfetch/econfetch/internal/sourcemodule/fred"
)

// DefaultSeries 是 NBER 月度衰退指示序列。
const DefaultSeries = "USREC"

// Interval 是一段连续取值为 1 的区间，End 为最后一个取值为 1 的日期。
type Interval struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// Intervals 对按日期排序的指示序列做游程编码。缺失值视为 0。
func Intervals(points []fred.Observation) []Interval {
	var (
		result []Interval
		open   bool
		cur    Interval
	)
	for _, p := range points {
		if active(p.Value) {
			if !open {
				cur = Interval{Start: p.Date}
				open = true
			}
			cur.End = p.Date
			continue
		}
		if open {
			result = append(result, cur)
			open = false
		}
	}
	if open {
		result = append(result, cur)
	}
	return result
}

// FromFRED 通过 fredgraph.csv 下载指示序列并返回衰退区间，seriesID 为空时使用 USREC。
func FromFRED(ctx context.Context, client *fred.Client, seriesID string) ([]Interval, error) {
	seriesID = strings.TrimSpace(seriesID)
	if seriesID == "" {
		seriesID = DefaultSeries
	}
	points, err := client.GraphCSV(ctx, seriesID)
	if err != nil {
		return nil, err
	}
	return Intervals(points), nil
}

func active(v float64) bool {
	return !math.IsNaN(v) && v == 1
}
