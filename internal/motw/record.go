package motw

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/choplin/unblockpreview/internal/allowlist"
)

// TimeLayout is the Go equivalent of the 'yyyy-MM-dd HH:mm:ss' format the
// scan script uses for LastWriteTimeStr.
const TimeLayout = "2006-01-02 15:04:05"

// Record is one file found carrying the Zone.Identifier stream.
// LastWriteTime is kept as the preformatted string the tool emitted.
type Record struct {
	FullName      string `json:"FullName"`
	Name          string `json:"Name"`
	Ext           string `json:"Ext"`
	Length        int64  `json:"Length"`
	LastWriteTime string `json:"LastWriteTimeStr"`
}

type rawRecord struct {
	FullName         *string `json:"FullName"`
	Name             *string `json:"Name"`
	Ext              *string `json:"Ext"`
	Length           *int64  `json:"Length"`
	LastWriteTimeStr *string `json:"LastWriteTimeStr"`
}

// ParseRecords decodes the scan payload. An empty or null payload yields no
// records, a single object one record and an array one record per element.
// Length and LastWriteTimeStr default to zero values when absent.
func ParseRecords(payload string) ([]Record, error) {
	data := bytes.TrimSpace([]byte(payload))
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return nil, nil
	}

	var raws []rawRecord
	switch data[0] {
	case '[':
		if err := json.Unmarshal(data, &raws); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrScanResultParse, err)
		}
	case '{':
		var one rawRecord
		if err := json.Unmarshal(data, &one); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrScanResultParse, err)
		}
		raws = append(raws, one)
	default:
		return nil, fmt.Errorf("%w: unexpected payload %q", ErrScanResultParse, abbreviate(string(data)))
	}

	records := make([]Record, 0, len(raws))
	for i, raw := range raws {
		rec, err := raw.toRecord()
		if err != nil {
			return nil, fmt.Errorf("%w: row %d: %w", ErrScanResultParse, i, err)
		}
		records = append(records, rec)
	}
	return records, nil
}

func (r rawRecord) toRecord() (Record, error) {
	switch {
	case r.FullName == nil:
		return Record{}, fmt.Errorf("missing FullName")
	case r.Name == nil:
		return Record{}, fmt.Errorf("missing Name")
	case r.Ext == nil:
		return Record{}, fmt.Errorf("missing Ext")
	}

	rec := Record{
		FullName: *r.FullName,
		Name:     *r.Name,
		Ext:      *r.Ext,
	}
	if r.Length != nil {
		if *r.Length < 0 {
			return Record{}, fmt.Errorf("negative Length %d", *r.Length)
		}
		rec.Length = *r.Length
	}
	if r.LastWriteTimeStr != nil {
		rec.LastWriteTime = *r.LastWriteTimeStr
	}
	return rec, nil
}

// SortRecords orders records by FullName, case-insensitively ascending.
func SortRecords(records []Record) {
	sort.SliceStable(records, func(i, j int) bool {
		return strings.ToUpper(records[i].FullName) < strings.ToUpper(records[j].FullName)
	})
}

// checkAllowed rejects rows whose extension falls outside the scan allowlist.
func checkAllowed(records []Record, exts allowlist.Set) error {
	for _, rec := range records {
		if !exts.Contains(rec.Ext) {
			return fmt.Errorf("%w: %s has extension %q outside the allowlist", ErrScanResultParse, rec.FullName, rec.Ext)
		}
	}
	return nil
}

func abbreviate(s string) string {
	const limit = 64
	if len(s) <= limit {
		return s
	}
	return s[:limit] + "..."
}
