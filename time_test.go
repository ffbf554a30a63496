package settle

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/iov-one/settle/errors"
)

func TestUnixTimeUnmarshal(t *testing.T) {
	cases := map[string]struct {
		raw      string
		wantTime UnixTime
		wantErr  *errors.Error
	}{
		"zero time as number": {
			raw:      "0",
			wantTime: 0,
		},
		"zero time as string": {
			raw:      `"1970-01-01T01:00:00+01:00"`,
			wantTime: 0,
		},
		"a time as string": {
			raw:      `"2019-04-04T11:35:40.89181085+02:00"`,
			wantTime: 1554370540,
		},
		"a time as number": {
			raw:      "1554370540",
			wantTime: 1554370540,
		},
		"negative number": {
			raw:     "-1",
			wantErr: errors.ErrInput,
		},
		"garbage": {
			raw:     `"yesterday"`,
			wantErr: errors.ErrInput,
		},
	}

	for testName, tc := range cases {
		t.Run(testName, func(t *testing.T) {
			var got UnixTime
			err := json.Unmarshal([]byte(tc.raw), &got)
			if !tc.wantErr.Is(err) {
				t.Fatalf("want %+v error, got %+v", tc.wantErr, err)
			}
			if err == nil && got != tc.wantTime {
				t.Fatalf("want %d time, got %d", tc.wantTime, got)
			}
		})
	}
}

func TestUnixTimeAdd(t *testing.T) {
	base := AsUnixTime(time.Now())

	cases := map[string]struct {
		base UnixTime
		add  time.Duration
		want UnixTime
	}{
		"zero": {
			base: base,
			add:  0,
			want: base,
		},
		"fourteen days": {
			base: base,
			add:  14 * 24 * time.Hour,
			want: base + 14*24*3600,
		},
		"sub second precision is dropped": {
			base: base,
			add:  time.Second + 999*time.Millisecond,
			want: base + 1,
		},
		"negative duration": {
			base: base,
			add:  -time.Minute,
			want: base - 60,
		},
	}

	for testName, tc := range cases {
		t.Run(testName, func(t *testing.T) {
			if got := tc.base.Add(tc.add); got != tc.want {
				t.Fatalf("want %d, got %d", tc.want, got)
			}
		})
	}
}
