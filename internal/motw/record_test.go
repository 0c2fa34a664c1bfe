package motw

import (
	"errors"
	"testing"
)

func TestParseRecordsShapes(t *testing.T) {
	cases := []struct {
		name    string
		payload string
		want    int
	}{
		{name: "empty", payload: "", want: 0},
		{name: "whitespace", payload: " \r\n", want: 0},
		{name: "null", payload: "null\r\n", want: 0},
		{name: "object", payload: `{"FullName":"C:\\d\\a.pdf","Name":"a.pdf","Ext":".pdf","Length":10,"LastWriteTimeStr":"2024-01-02 03:04:05"}`, want: 1},
		{name: "array", payload: `[{"FullName":"b","Name":"b","Ext":".pdf"},{"FullName":"a","Name":"a","Ext":".pdf"}]`, want: 2},
		{name: "empty array", payload: `[]`, want: 0},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := ParseRecords(tc.payload)
			if err != nil {
				t.Fatalf("ParseRecords returned error: %v", err)
			}
			if len(got) != tc.want {
				t.Fatalf("expected %d records, got %d", tc.want, len(got))
			}
		})
	}
}

func TestParseRecordsFieldMapping(t *testing.T) {
	single, err := ParseRecords(`{"FullName":"C:\\d\\a.pdf","Name":"a.pdf","Ext":".pdf","Length":10,"LastWriteTimeStr":"2024-01-02 03:04:05"}`)
	if err != nil {
		t.Fatalf("ParseRecords returned error: %v", err)
	}
	many, err := ParseRecords(`[{"FullName":"C:\\d\\a.pdf","Name":"a.pdf","Ext":".pdf","Length":10,"LastWriteTimeStr":"2024-01-02 03:04:05"}]`)
	if err != nil {
		t.Fatalf("ParseRecords returned error: %v", err)
	}

	want := Record{
		FullName:      `C:\d\a.pdf`,
		Name:          "a.pdf",
		Ext:           ".pdf",
		Length:        10,
		LastWriteTime: "2024-01-02 03:04:05",
	}
	if single[0] != want {
		t.Errorf("object mapping: got %#v, want %#v", single[0], want)
	}
	if many[0] != want {
		t.Errorf("array mapping: got %#v, want %#v", many[0], want)
	}
}

func TestParseRecordsDefaults(t *testing.T) {
	got, err := ParseRecords(`{"FullName":"a","Name":"a","Ext":".txt"}`)
	if err != nil {
		t.Fatalf("ParseRecords returned error: %v", err)
	}
	if got[0].Length != 0 || got[0].LastWriteTime != "" {
		t.Fatalf("expected zero defaults, got %#v", got[0])
	}
}

func TestParseRecordsRejectsMalformed(t *testing.T) {
	payloads := []string{
		`not json`,
		`"a string"`,
		`42`,
		`[{"FullName":"a","Name":"a"}]`,
		`{"Name":"a","Ext":".pdf"}`,
		`{"FullName":"a","Name":"a","Ext":".pdf","Length":-1}`,
		`{"FullName":"a","Name":"a","Ext":".pdf","Length":"big"}`,
		`[{"FullName":"a"`,
	}

	for _, p := range payloads {
		if _, err := ParseRecords(p); !errors.Is(err, ErrScanResultParse) {
			t.Errorf("ParseRecords(%q): expected ErrScanResultParse, got %v", p, err)
		}
	}
}

func TestSortRecordsCaseInsensitive(t *testing.T) {
	records := []Record{
		{FullName: `C:\d\b.pdf`},
		{FullName: `C:\D\A.pdf`},
		{FullName: `c:\d\C.pdf`},
	}
	SortRecords(records)

	want := []string{`C:\D\A.pdf`, `C:\d\b.pdf`, `c:\d\C.pdf`}
	for i, w := range want {
		if records[i].FullName != w {
			t.Fatalf("position %d: got %q, want %q", i, records[i].FullName, w)
		}
	}
}

func TestParsePathOutcomes(t *testing.T) {
	stdout := "What if: Performing the operation \"Unblock-File\" on target \"a\".\r\n\r\n" +
		`[{"Path":"a","Status":"simulated","Message":""},{"Path":"b","Status":"failed","Message":"denied"}]` + "\r\n"

	got, err := ParsePathOutcomes(stdout)
	if err != nil {
		t.Fatalf("ParsePathOutcomes returned error: %v", err)
	}
	if len(got) != 2 || got[0].Status != StatusSimulated || got[1].Status != StatusFailed {
		t.Fatalf("unexpected outcomes %#v", got)
	}

	one, err := ParsePathOutcomes(`{"Path":"a","Status":"unblocked"}`)
	if err != nil || len(one) != 1 || one[0].Status != StatusUnblocked {
		t.Fatalf("unexpected single outcome %#v (err %v)", one, err)
	}

	if _, err := ParsePathOutcomes("garbage"); err == nil {
		t.Fatal("expected an error for a non-JSON report")
	}
}
