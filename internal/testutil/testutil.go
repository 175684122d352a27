// Package testutil provides common test utilities and helpers for gritd
// tests.
package testutil

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"

	"github.com/spoolghost/gritd/internal/models"
	"github.com/spoolghost/gritd/internal/store"
)

// TestingT is the subset of testing.T the helpers use. The helpers' own
// tests substitute a recorder to observe failures.
type TestingT interface {
	Helper()
	Error(args ...interface{})
	Errorf(format string, args ...interface{})
	Fatal(args ...interface{})
	Fatalf(format string, args ...interface{})
}

// AssertHTTPStatus checks the HTTP status code and fails the test if it
// doesn't match.
func AssertHTTPStatus(t TestingT, expected, actual int, context string) {
	t.Helper()
	if actual != expected {
		t.Errorf("%s: expected status %d, got %d", context, expected, actual)
	}
}

// AssertJSONResponse decodes a JSON response and validates the status field.
func AssertJSONResponse(t TestingT, rr *httptest.ResponseRecorder, expectedStatus string) map[string]interface{} {
	t.Helper()
	var response map[string]interface{}
	if err := json.NewDecoder(rr.Body).Decode(&response); err != nil {
		t.Fatalf("failed to decode JSON response: %v", err)
	}

	if status, ok := response["status"].(string); ok {
		if status != expectedStatus {
			t.Errorf("expected status '%s', got '%s'", expectedStatus, status)
		}
	} else {
		t.Error("response missing or invalid 'status' field")
	}

	return response
}

// CreateHTTPRequest creates an HTTP request with an optional JSON-marshaled
// body for testing.
func CreateHTTPRequest(t TestingT, method, url string, body interface{}) *http.Request {
	t.Helper()
	var reqBody *bytes.Buffer
	if body != nil {
		jsonData, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("failed to marshal request body: %v", err)
		}
		reqBody = bytes.NewBuffer(jsonData)
	} else {
		reqBody = bytes.NewBuffer(nil)
	}

	req, err := http.NewRequest(method, url, reqBody)
	if err != nil {
		t.Fatalf("failed to create HTTP request: %v", err)
	}
	return req
}

// CreateJSONRequest creates an HTTP request carrying a raw JSON string body.
func CreateJSONRequest(t TestingT, method, url, jsonBody string) *http.Request {
	t.Helper()
	req, err := http.NewRequest(method, url, bytes.NewBufferString(jsonBody))
	if err != nil {
		t.Fatalf("failed to create HTTP request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	return req
}

// AssertJournalCount validates the number of slip records in the store.
func AssertJournalCount(t TestingT, st store.Store, expected int, context string) {
	t.Helper()
	records, err := st.GetSlipRecords()
	if err != nil {
		t.Fatalf("%s: failed to get slip records: %v", context, err)
	}
	if len(records) != expected {
		t.Errorf("%s: expected %d slip records, got %d", context, expected, len(records))
	}
}

// SeedJournal adds sample slip records to the store: one printed slip and
// one failed generation.
func SeedJournal(t TestingT, st store.Store) []models.SlipRecord {
	t.Helper()

	records := []models.SlipRecord{
		{Category: "paranoid_prophecy", Source: models.SourceButton, Status: models.SlipStatusPrinted, Chars: 48, Time: 1},
		{Category: "actual_receipt", Source: models.SourceAPI, Status: models.SlipStatusGenerationFailed, Time: 2},
	}
	for _, rec := range records {
		if err := st.AddSlipRecord(rec); err != nil {
			t.Fatalf("failed to seed slip record: %v", err)
		}
	}
	return records
}

// MustMarshalJSON marshals an object to JSON and fails the test on error.
func MustMarshalJSON(t TestingT, v interface{}) []byte {
	t.Helper()
	data, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("failed to marshal JSON: %v", err)
	}
	return data
}

// MustUnmarshalJSON unmarshals JSON data into target and fails the test on
// error.
func MustUnmarshalJSON(t TestingT, data []byte, target interface{}) {
	t.Helper()
	if err := json.Unmarshal(data, target); err != nil {
		t.Fatalf("failed to unmarshal JSON: %v", err)
	}
}
