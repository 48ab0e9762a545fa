package domain

import (
	"strings"
	"time"
)

// ClockLayout is the wall-clock rendering used in the timestamp column.
const ClockLayout = "15:04:05"

// Record is one timestamped, comma-split line received from the device.
type Record struct {
	Seq       uint64    `json:"seq"`
	Timestamp time.Time `json:"ts"`
	Fields    []string  `json:"fields"`
}

// NewRecord trims the line and splits it on commas. It returns false when
// nothing but whitespace is left, in which case no record exists.
func NewRecord(line string, ts time.Time) (*Record, bool) {
	line = strings.TrimSpace(line)
	if line == "" {
		return nil, false
	}
	return &Record{
		Timestamp: ts,
		Fields:    strings.Split(line, ","),
	}, true
}

// Clock renders the timestamp as HH:MM:SS.
func (r *Record) Clock() string {
	return r.Timestamp.Format(ClockLayout)
}

// Row is the CSV row for the record: the clock column followed by the fields.
func (r *Record) Row() []string {
	row := make([]string, 0, len(r.Fields)+1)
	row = append(row, r.Clock())
	return append(row, r.Fields...)
}
