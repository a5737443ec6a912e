package bls

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"
)

// Table 是一张 CSV 表：Columns 为表头，Rows 为原始字符串单元格。
type Table struct {
	Columns []string   `json:"columns"`
	Rows    [][]string `json:"rows"`
}

// Len 返回数据行数。
func (t *Table) Len() int {
	if t == nil {
		return 0
	}
	return len(t.Rows)
}

// ColumnIndex 按名称（忽略大小写）查找列，找不到返回 -1。
func (t *Table) ColumnIndex(name string) int {
	for i, col := range t.Columns {
		if strings.EqualFold(col, name) {
			return i
		}
	}
	return -1
}

// Value 返回第 row 行 column 列的值，越界或列不存在时返回空串。
func (t *Table) Value(row int, column string) string {
	idx := t.ColumnIndex(column)
	if idx < 0 || row < 0 || row >= len(t.Rows) || idx >= len(t.Rows[row]) {
		return ""
	}
	return t.Rows[row][idx]
}

// ParseTable 读取带表头的 CSV。QCEW 文件以 UTF-8 BOM 开头时会被去掉。
func ParseTable(r io.Reader) (*Table, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, errors.New("empty csv")
		}
		return nil, fmt.Errorf("read csv header: %w", err)
	}
	if len(header) > 0 {
		header[0] = strings.TrimPrefix(header[0], "\ufeff")
	}

	table := &Table{Columns: header}
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read csv row %d: %w", len(table.Rows)+1, err)
		}
		table.Rows = append(table.Rows, record)
	}
	return table, nil
}
