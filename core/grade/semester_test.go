package grade

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestParseSemester(t *testing.T) {
	tests := []struct {
		token   string
		want    Semester
		wantErr error
	}{
		{token: "2024-2025-1", want: Semester{StartYear: 2024, Term: 1}},
		{token: "2023-2024-2", want: Semester{StartYear: 2023, Term: 2}},
		{token: "", wantErr: ErrInvalidSemester},
		{token: " 2024-2025-1", wantErr: ErrInvalidSemester},
		{token: "2024-2026-1", wantErr: ErrInvalidSemester},
		{token: "2024-2025-3", wantErr: ErrInvalidSemester},
		{token: "2024/2025/1", wantErr: ErrInvalidSemester},
		{token: "24-25-1", wantErr: ErrInvalidSemester},
	}
	for _, tt := range tests {
		t.Run(tt.token, func(t *testing.T) {
			got, err := ParseSemester(tt.token)
			assert.Equal(t, tt.wantErr, err)
			assert.Equal(t, tt.want, got)
			if err == nil {
				assert.Equal(t, tt.token, got.String())
			}
		})
	}
}

func TestDefaultSemester(t *testing.T) {
	date := func(year int, month time.Month, day int) time.Time {
		return time.Date(year, month, day, 12, 0, 0, 0, time.UTC)
	}

	tests := []struct {
		name    string
		now     time.Time
		cutover int
		want    string
	}{
		{name: "january", now: date(2025, time.January, 10), cutover: 9, want: "2024-2025-1"},
		{name: "end of february", now: date(2025, time.February, 28), cutover: 9, want: "2024-2025-1"},
		{name: "march", now: date(2025, time.March, 1), cutover: 9, want: "2024-2025-2"},
		{name: "august, cutover 9", now: date(2025, time.August, 31), cutover: 9, want: "2024-2025-2"},
		{name: "september, cutover 9", now: date(2025, time.September, 1), cutover: 9, want: "2025-2026-1"},
		{name: "december", now: date(2025, time.December, 31), cutover: 9, want: "2025-2026-1"},
		{name: "july, cutover 8", now: date(2025, time.July, 31), cutover: 8, want: "2024-2025-2"},
		{name: "august, cutover 8", now: date(2025, time.August, 1), cutover: 8, want: "2025-2026-1"},
		{name: "february, cutover 8", now: date(2025, time.February, 1), cutover: 8, want: "2024-2025-1"},
		{name: "invalid cutover falls back", now: date(2025, time.August, 15), cutover: 0, want: "2024-2025-2"},
		{name: "out of range cutover falls back", now: date(2025, time.September, 15), cutover: 13, want: "2025-2026-1"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := DefaultSemester(tt.now, tt.cutover)
			assert.Equal(t, tt.want, got)

			_, err := ParseSemester(got)
			assert.NoError(t, err)
		})
	}
}
