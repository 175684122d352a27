package testutil

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/spoolghost/gritd/internal/models"
	"github.com/spoolghost/gritd/internal/store"
)

// mockTestingT records failures so the helpers themselves can be tested.
type mockTestingT struct {
	failed   bool
	errorMsg string
	helper   bool
}

func (m *mockTestingT) Helper() { m.helper = true }

func (m *mockTestingT) Error(args ...interface{}) {
	m.failed = true
	m.errorMsg = fmt.Sprint(args...)
}

func (m *mockTestingT) Errorf(format string, args ...interface{}) {
	m.failed = true
	m.errorMsg = fmt.Sprintf(format, args...)
}

func (m *mockTestingT) Fatal(args ...interface{}) {
	m.failed = true
	m.errorMsg = fmt.Sprint(args...)
	panic("test failed fatally")
}

func (m *mockTestingT) Fatalf(format string, args ...interface{}) {
	m.failed = true
	m.errorMsg = fmt.Sprintf(format, args...)
	panic("test failed fatally")
}

func TestAssertHTTPStatus(t *testing.T) {
	tests := []struct {
		name     string
		expected int
		actual   int
		wantFail bool
	}{
		{name: "matching status", expected: http.StatusOK, actual: http.StatusOK, wantFail: false},
		{name: "mismatched status", expected: http.StatusOK, actual: http.StatusConflict, wantFail: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockT := &mockTestingT{}
			AssertHTTPStatus(mockT, tt.expected, tt.actual, "test request")
			if mockT.failed != tt.wantFail {
				t.Errorf("AssertHTTPStatus failed=%v, want %v (msg: %s)", mockT.failed, tt.wantFail, mockT.errorMsg)
			}
			if !mockT.helper {
				t.Error("AssertHTTPStatus did not call Helper")
			}
		})
	}
}

func TestAssertJSONResponse(t *testing.T) {
	tests := []struct {
		name           string
		body           string
		expectedStatus string
		wantFail       bool
		wantPanic      bool
	}{
		{name: "matching status field", body: `{"status":"ok","result":{"n":1}}`, expectedStatus: "ok", wantFail: false},
		{name: "mismatched status field", body: `{"status":"error"}`, expectedStatus: "ok", wantFail: true},
		{name: "missing status field", body: `{"result":{}}`, expectedStatus: "ok", wantFail: true},
		{name: "invalid JSON", body: `{nope`, expectedStatus: "ok", wantFail: true, wantPanic: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockT := &mockTestingT{}
			rr := httptest.NewRecorder()
			fmt.Fprint(rr.Body, tt.body)

			defer func() {
				r := recover()
				if tt.wantPanic && r == nil {
					t.Error("expected fatal failure, got none")
				}
				if !tt.wantPanic && r != nil {
					t.Errorf("unexpected panic: %v", r)
				}
				if mockT.failed != tt.wantFail {
					t.Errorf("AssertJSONResponse failed=%v, want %v (msg: %s)", mockT.failed, tt.wantFail, mockT.errorMsg)
				}
			}()
			response := AssertJSONResponse(mockT, rr, tt.expectedStatus)
			if !tt.wantFail && response == nil {
				t.Error("expected decoded response map, got nil")
			}
		})
	}
}

func TestCreateHTTPRequest(t *testing.T) {
	mockT := &mockTestingT{}

	req := CreateHTTPRequest(mockT, http.MethodPost, "/print", map[string]string{"category": "paranoid_prophecy"})
	if mockT.failed {
		t.Fatalf("CreateHTTPRequest failed: %s", mockT.errorMsg)
	}
	if req.Method != http.MethodPost {
		t.Errorf("expected method POST, got %s", req.Method)
	}
	if req.URL.Path != "/print" {
		t.Errorf("expected path /print, got %s", req.URL.Path)
	}

	req = CreateHTTPRequest(mockT, http.MethodGet, "/health", nil)
	if mockT.failed {
		t.Fatalf("CreateHTTPRequest with nil body failed: %s", mockT.errorMsg)
	}
	if req.Body == nil {
		t.Error("expected non-nil body reader even without a payload")
	}
}

func TestCreateJSONRequest(t *testing.T) {
	mockT := &mockTestingT{}

	req := CreateJSONRequest(mockT, http.MethodPost, "/ambient", `{"schedule":"0 9 * * *"}`)
	if mockT.failed {
		t.Fatalf("CreateJSONRequest failed: %s", mockT.errorMsg)
	}
	if ct := req.Header.Get("Content-Type"); ct != "application/json" {
		t.Errorf("expected Content-Type application/json, got %s", ct)
	}
}

func TestAssertJournalCount(t *testing.T) {
	st := store.NewInMemoryStore()
	if err := st.AddSlipRecord(models.SlipRecord{Category: "paranoid_prophecy", Source: models.SourceAPI, Status: models.SlipStatusPrinted, Chars: 10, Time: 1}); err != nil {
		t.Fatalf("failed to add slip record: %v", err)
	}

	mockT := &mockTestingT{}
	AssertJournalCount(mockT, st, 1, "after one print")
	if mockT.failed {
		t.Errorf("AssertJournalCount failed on matching count: %s", mockT.errorMsg)
	}

	mockT = &mockTestingT{}
	AssertJournalCount(mockT, st, 3, "wrong expectation")
	if !mockT.failed {
		t.Error("AssertJournalCount did not fail on mismatched count")
	}
	if !strings.Contains(mockT.errorMsg, "wrong expectation") {
		t.Errorf("error message missing context: %s", mockT.errorMsg)
	}
}

func TestSeedJournal(t *testing.T) {
	st := store.NewInMemoryStore()
	mockT := &mockTestingT{}

	seeded := SeedJournal(mockT, st)
	if mockT.failed {
		t.Fatalf("SeedJournal failed: %s", mockT.errorMsg)
	}

	records, err := st.GetSlipRecords()
	if err != nil {
		t.Fatalf("failed to get slip records: %v", err)
	}
	if len(records) != len(seeded) {
		t.Fatalf("expected %d seeded records, got %d", len(seeded), len(records))
	}

	printed := 0
	for _, rec := range records {
		if rec.Status == models.SlipStatusPrinted {
			printed++
		}
	}
	if printed != 1 {
		t.Errorf("expected exactly 1 printed record in seed data, got %d", printed)
	}
}

func TestMustMarshalJSON(t *testing.T) {
	mockT := &mockTestingT{}

	data := MustMarshalJSON(mockT, map[string]int{"chars": 42})
	if mockT.failed {
		t.Fatalf("MustMarshalJSON failed: %s", mockT.errorMsg)
	}

	var decoded map[string]int
	MustUnmarshalJSON(mockT, data, &decoded)
	if mockT.failed {
		t.Fatalf("MustUnmarshalJSON failed: %s", mockT.errorMsg)
	}
	if decoded["chars"] != 42 {
		t.Errorf("round trip lost data: %v", decoded)
	}

	defer func() {
		if r := recover(); r == nil {
			t.Error("expected fatal failure on invalid JSON")
		}
	}()
	MustUnmarshalJSON(mockT, []byte(`{broken`), &decoded)
}
