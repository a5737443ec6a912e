package recession

import (
	"context"
	"math"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/econfetch/econfetch/internal/fetch"
	"github.com/econfetch/econfetch/internal/logging"
	"github.com/econfetch/econfetch/internal/sourcemodule/fred"
)

func month(t *testing.T, s string) time.Time {
	t.Helper()
	d, err := time.Parse("2006-01", s)
	if err != nil {
		t.Fatalf("parse %s: %v", s, err)
	}
	return d
}

func series(t *testing.T, values map[string]float64, order []string) []fred.Observation {
	t.Helper()
	out := make([]fred.Observation, 0, len(order))
	for _, key := range order {
		out = append(out, fred.Observation{Date: month(t, key), Value: values[key]})
	}
	return out
}

func TestIntervalsRunLength(t *testing.T) {
	order := []string{"2007-10", "2007-11", "2007-12", "2008-01", "2009-06", "2009-07", "2020-02", "2020-03", "2020-04"}
	values := map[string]float64{
		"2007-10": 0, "2007-11": 0, "2007-12": 1, "2008-01": 1, "2009-06": 1,
		"2009-07": 0, "2020-02": 0, "2020-03": 1, "2020-04": 1,
	}

	got := Intervals(series(t, values, order))
	if len(got) != 2 {
		t.Fatalf("expected 2 intervals, got %+v", got)
	}
	if !got[0].Start.Equal(month(t, "2007-12")) || !got[0].End.Equal(month(t, "2009-06")) {
		t.Fatalf("unexpected first interval: %+v", got[0])
	}
	if !got[1].Start.Equal(month(t, "2020-03")) || !got[1].End.Equal(month(t, "2020-04")) {
		t.Fatalf("open trailing interval should close at last point: %+v", got[1])
	}
}

func TestIntervalsMissingBreaksRun(t *testing.T) {
	order := []string{"2001-03", "2001-04", "2001-05"}
	values := map[string]float64{"2001-03": 1, "2001-04": math.NaN(), "2001-05": 1}

	got := Intervals(series(t, values, order))
	if len(got) != 2 {
		t.Fatalf("expected missing value to split the run, got %+v", got)
	}
}

func TestIntervalsEmpty(t *testing.T) {
	if got := Intervals(nil); len(got) != 0 {
		t.Fatalf("expected no intervals, got %+v", got)
	}
}

func TestFromFREDDefaultsToUSREC(t *testing.T) {
	var (
		mu        sync.Mutex
		requested string
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		requested = r.URL.Query().Get("id")
		mu.Unlock()
		_, _ = w.Write([]byte("observation_date,USREC\n2020-01-01,0\n2020-02-01,1\n2020-03-01,1\n2020-04-01,0\n"))
	}))
	defer srv.Close()

	fetcher, err := fetch.New(fetch.Options{
		Client:    srv.Client(),
		CacheRoot: t.TempDir(),
		Logger:    logging.NewDiscardLogger(),
	})
	if err != nil {
		t.Fatalf("fetch.New error: %v", err)
	}
	client := fred.NewClient(fetcher, "", fred.WithGraphBase(srv.URL+"/graph/fredgraph.csv"))

	got, err := FromFRED(context.Background(), client, "")
	if err != nil {
		t.Fatalf("FromFRED error: %v", err)
	}
	mu.Lock()
	defer mu.Unlock()
	if requested != DefaultSeries {
		t.Fatalf("expected default series, got %q", requested)
	}
	if len(got) != 1 || got[0].End.Format("2006-01-02") != "2020-03-01" {
		t.Fatalf("unexpected intervals: %+v", got)
	}
}
