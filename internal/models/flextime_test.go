package models

import (
	"encoding/json"
	"testing"
	"time"
)

func TestParseFlexTime(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		want     time.Time
		dateOnly bool
		wantErr  bool
	}{
		{
			name:     "date input",
			input:    "2024-03-05",
			want:     time.Date(2024, 3, 5, 0, 0, 0, 0, time.Local),
			dateOnly: true,
		},
		{
			name:  "RFC3339",
			input: "2024-03-05T10:30:00Z",
			want:  time.Date(2024, 3, 5, 10, 30, 0, 0, time.UTC),
		},
		{
			name:  "RFC3339 with milliseconds",
			input: "2024-03-05T10:30:00.000Z",
			want:  time.Date(2024, 3, 5, 10, 30, 0, 0, time.UTC),
		},
		{
			name:  "slash date",
			input: "03/05/2024",
			want:  time.Date(2024, 3, 5, 0, 0, 0, 0, time.Local),
		},
		{
			name:    "garbage",
			input:   "next tuesday-ish",
			wantErr: true,
		},
		{
			name:    "empty",
			input:   "  ",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseFlexTime(tt.input)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseFlexTime(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
			if tt.wantErr {
				return
			}
			if !got.Equal(tt.want) {
				t.Errorf("ParseFlexTime(%q) = %v, want %v", tt.input, got.Time, tt.want)
			}
			if got.DateOnly != tt.dateOnly {
				t.Errorf("DateOnly = %v, want %v", got.DateOnly, tt.dateOnly)
			}
		})
	}
}

func TestFlexTimeEndOfDay(t *testing.T) {
	day, err := ParseFlexTime("2024-03-05")
	if err != nil {
		t.Fatalf("ParseFlexTime() error = %v", err)
	}
	want := time.Date(2024, 3, 5, 23, 59, 59, int(time.Second-time.Nanosecond), time.Local)
	if got := day.EndOfDay(); !got.Equal(want) {
		t.Errorf("EndOfDay() = %v, want %v", got, want)
	}

	instant, _ := ParseFlexTime("2024-03-05T10:30:00Z")
	if got := instant.EndOfDay(); !got.Equal(instant.Time) {
		t.Errorf("EndOfDay() on an instant = %v, want unchanged", got)
	}
}

func TestFlexTimeUnmarshalJSON(t *testing.T) {
	var req AssignedActionRequest
	body := `{"actionTemplateId": 1, "childId": 2, "date": "2024-03-05"}`
	if err := json.Unmarshal([]byte(body), &req); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}
	if req.Date == nil || !req.Date.DateOnly {
		t.Fatalf("Date = %+v, want a date-only value", req.Date)
	}

	var bad AssignedActionRequest
	if err := json.Unmarshal([]byte(`{"date": "not a date"}`), &bad); err == nil {
		t.Error("expected error for invalid date")
	}

	var missing AssignedActionRequest
	if err := json.Unmarshal([]byte(`{"date": null}`), &missing); err != nil {
		t.Errorf("null date should be accepted, got %v", err)
	}
	if missing.Date != nil {
		t.Error("null date should leave the pointer nil")
	}
}
