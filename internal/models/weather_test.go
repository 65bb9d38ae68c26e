package models

import (
	"encoding/json"
	"testing"
)

// TestSymbolCode_PlaceholderIsNumber verifies that the placeholder reading
// encodes symbolCode as the number 0 while real codes stay strings.
func TestSymbolCode_PlaceholderIsNumber(t *testing.T) {
	tests := []struct {
		name    string
		reading WeatherReading
		want    string
	}{
		{"placeholder", PlaceholderReading("nice"), `{"name":"nice","temperature":0,"symbolCode":0}`},
		{"real code", WeatherReading{Name: "oslo", Temperature: 4.5, SymbolCode: "cloudy"}, `{"name":"oslo","temperature":4.5,"symbolCode":"cloudy"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := json.Marshal(tt.reading)
			if err != nil {
				t.Fatalf("Marshal() error = %v", err)
			}
			if string(got) != tt.want {
				t.Errorf("Marshal() = %s, want %s", got, tt.want)
			}
		})
	}
	summary, _ := json.Marshal(PlaceholderReading("nice").Summary())
	if string(summary) != `{"temperature":0,"symbolCode":0}` {
		t.Errorf("Summary() = %s", summary)
	}
}

// TestSymbolCode_DecodesBothForms verifies that stored readings read back
// whichever way they were encoded.
func TestSymbolCode_DecodesBothForms(t *testing.T) {
	var r WeatherReading
	if err := json.Unmarshal([]byte(`{"name":"nice","temperature":0,"symbolCode":0}`), &r); err != nil {
		t.Fatalf("Unmarshal(number) error = %v", err)
	}
	if r.SymbolCode != PlaceholderSymbolCode {
		t.Errorf("SymbolCode = %q, want placeholder", r.SymbolCode)
	}
	if err := json.Unmarshal([]byte(`{"name":"oslo","symbolCode":"rain"}`), &r); err != nil {
		t.Fatalf("Unmarshal(string) error = %v", err)
	}
	if r.SymbolCode != "rain" {
		t.Errorf("SymbolCode = %q, want rain", r.SymbolCode)
	}
	if err := json.Unmarshal([]byte(`{"symbolCode":true}`), &r); err == nil {
		t.Error("Unmarshal(bool) error = nil, want error")
	}
}
