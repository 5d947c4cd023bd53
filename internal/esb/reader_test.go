package esb

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/weak-head/esb-ha/internal/logger"
)

const export = `MPRN,Meter Serial Number,Read Value,Read Type,Read Date and End Time
10000001,SN123,0.45,Active Import Interval (kW),23-08-2025 02:30
10000001,SN123,0.5,Active Import Interval (kW),23-08-2025 03:00
`

func TestRead(t *testing.T) {
	tests := []struct {
		name string
		src  string
		want []Reading
	}{
		{
			name: "empty source",
			src:  "",
			want: []Reading{},
		},
		{
			name: "header only",
			src:  "MPRN,Read Value\n",
			want: []Reading{},
		},
		{
			name: "full export keeps row order",
			src:  export,
			want: []Reading{
				{
					Line: 2, ReadDate: "23-08-2025 02:30", ReadValue: "0.45", HasReadValue: true,
					MPRN: "10000001", MeterSerial: "SN123", ReadType: "Active Import Interval (kW)",
				},
				{
					Line: 3, ReadDate: "23-08-2025 03:00", ReadValue: "0.5", HasReadValue: true,
					MPRN: "10000001", MeterSerial: "SN123", ReadType: "Active Import Interval (kW)",
				},
			},
		},
		{
			name: "missing columns stay empty",
			src:  "Read Date and End Time,Extra\n23-08-2025 02:30,x\n",
			want: []Reading{
				{Line: 2, ReadDate: "23-08-2025 02:30"},
			},
		},
		{
			name: "short row leaves trailing cells absent",
			src:  "MPRN,Read Value\n10000001\n",
			want: []Reading{
				{Line: 2, MPRN: "10000001"},
			},
		},
		{
			name: "empty read value is present",
			src:  "MPRN,Read Value\n10000001,\n",
			want: []Reading{
				{Line: 2, MPRN: "10000001", HasReadValue: true},
			},
		},
		{
			name: "byte order mark is dropped from the header",
			src:  "\ufeffMPRN,Read Value\n10000001,1\n",
			want: []Reading{
				{Line: 2, MPRN: "10000001", ReadValue: "1", HasReadValue: true},
			},
		},
		{
			name: "bare quotes stay in the field",
			src: "MPRN,Read Value,Read Type\n" +
				"10000001,0.45,Active Import\n" +
				"10000001,0.5,Active \"Import\"\n" +
				"10000001,0.55,Active Import\n",
			want: []Reading{
				{Line: 2, MPRN: "10000001", ReadValue: "0.45", HasReadValue: true, ReadType: "Active Import"},
				{Line: 3, MPRN: "10000001", ReadValue: "0.5", HasReadValue: true, ReadType: `Active "Import"`},
				{Line: 4, MPRN: "10000001", ReadValue: "0.55", HasReadValue: true, ReadType: "Active Import"},
			},
		},
		{
			name: "blank lines are skipped",
			src:  "MPRN,Read Value\n\n10000001,1\n",
			want: []Reading{
				{Line: 3, MPRN: "10000001", ReadValue: "1", HasReadValue: true},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Read(strings.NewReader(tt.src))
			require.NoError(t, err)
			require.Equal(t, tt.want, got)
		})
	}
}

type failingReader struct {
	data string
	err  error
}

func (f *failingReader) Read(p []byte) (int, error) {
	if f.data == "" {
		return 0, f.err
	}
	n := copy(p, f.data)
	f.data = f.data[n:]
	return n, nil
}

func TestReadFailsOnSourceError(t *testing.T) {
	failure := errors.New("input/output error")

	_, err := Read(&failingReader{err: failure})
	require.True(t, errors.Is(err, failure))
	require.Contains(t, err.Error(), "error reading CSV header")

	_, err = Read(&failingReader{data: "MPRN,Read Value\n", err: failure})
	require.True(t, errors.Is(err, failure))
	require.Contains(t, err.Error(), "error reading CSV row")
}

func TestReaderReadFile(t *testing.T) {
	log, hook := logger.NewNullLogger()
	r, err := NewReader(log)
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "export.csv")
	require.NoError(t, os.WriteFile(path, []byte(export), 0o644))

	readings, err := r.ReadFile(path)
	require.NoError(t, err)
	require.Len(t, readings, 2)
	require.Equal(t, "Read the interval export.", hook.LastEntry().Message)

	_, err = r.ReadFile(filepath.Join(t.TempDir(), "missing.csv"))
	require.Error(t, err)
	require.True(t, errors.Is(err, os.ErrNotExist))
}
