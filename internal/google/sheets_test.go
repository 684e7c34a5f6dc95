package google

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"tourbook/internal/models"

	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"
)

func setupMockServer(t *testing.T) (*http.ServeMux, *BookingSheet) {
	t.Helper()
	mux := http.NewServeMux()
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)

	s, err := NewBookingSheetWithOptions(context.Background(), "bookings_tid", "",
		option.WithEndpoint(server.URL), option.WithoutAuthentication())
	if err != nil {
		t.Fatalf("create sheet client: %v", err)
	}
	return mux, s
}

func testBooking(id string) *models.Booking {
	now := time.Date(2030, 6, 1, 10, 0, 0, 0, time.UTC)
	return &models.Booking{
		ID: id, TourID: "tour-1", UserID: "user-1", Name: "Ann", Email: "ann@example.com",
		Guests: 2, Date: now.AddDate(0, 0, 3), PaymentMethod: models.PaymentMethodCash,
		Status: models.StatusPending, CreatedAt: now, UpdatedAt: now,
	}
}

func TestNewBookingSheetRequiresSpreadsheet(t *testing.T) {
	if _, err := NewBookingSheetWithOptions(context.Background(), "", "", option.WithoutAuthentication()); err == nil {
		t.Fatal("expected error for empty spreadsheet id")
	}
}

func TestTestConnection(t *testing.T) {
	mux, s := setupMockServer(t)
	mux.HandleFunc("/v4/spreadsheets/bookings_tid/values/Bookings!A1", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(sheets.ValueRange{Values: [][]interface{}{{"ID"}}})
	})
	if err := s.TestConnection(context.Background()); err != nil {
		t.Errorf("TestConnection failed: %v", err)
	}
}

func TestWarmUpCacheSkipsHeader(t *testing.T) {
	mux, s := setupMockServer(t)
	mux.HandleFunc("/v4/spreadsheets/bookings_tid/values/Bookings!A:A", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(sheets.ValueRange{
			Values: [][]interface{}{{"ID"}, {"b-1"}, {}, {"b-2"}},
		})
	})
	if err := s.WarmUpCache(context.Background()); err != nil {
		t.Fatalf("WarmUpCache failed: %v", err)
	}
	if row, ok := s.getCachedRow("b-2"); !ok || row != 4 {
		t.Errorf("expected row 4 for b-2, got %d (%v)", row, ok)
	}
	if _, ok := s.getCachedRow("ID"); ok {
		t.Error("header must not be cached as a booking")
	}
}

func TestUpsertAppendsUnknownBooking(t *testing.T) {
	mux, s := setupMockServer(t)
	mux.HandleFunc("/v4/spreadsheets/bookings_tid/values/Bookings!A:A", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(sheets.ValueRange{Values: [][]interface{}{{"ID"}}})
	})
	var appended sheets.ValueRange
	mux.HandleFunc("/v4/spreadsheets/bookings_tid/values/Bookings!A:A:append", func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(body, &appended)
		_ = json.NewEncoder(w).Encode(sheets.AppendValuesResponse{
			Updates: &sheets.UpdateValuesResponse{UpdatedRange: "Bookings!A7:M7"},
		})
	})

	if err := s.UpsertBooking(context.Background(), testBooking("b-7")); err != nil {
		t.Fatalf("UpsertBooking failed: %v", err)
	}
	if row, _ := s.getCachedRow("b-7"); row != 7 {
		t.Errorf("expected cached row 7, got %d", row)
	}
	if len(appended.Values) != 1 || len(appended.Values[0]) != len(bookingHeaders) {
		t.Fatalf("unexpected appended values: %v", appended.Values)
	}
	if appended.Values[0][0] != "b-7" {
		t.Errorf("expected id in column A, got %v", appended.Values[0][0])
	}
}

func TestUpsertUpdatesCachedRow(t *testing.T) {
	mux, s := setupMockServer(t)
	s.setCachedRow("b-2", 2)
	called := false
	mux.HandleFunc("/v4/spreadsheets/bookings_tid/values/Bookings!A2:M2", func(w http.ResponseWriter, r *http.Request) {
		called = true
		if r.Method != http.MethodPut {
			t.Errorf("expected PUT, got %s", r.Method)
		}
		_ = json.NewEncoder(w).Encode(sheets.UpdateValuesResponse{})
	})
	if err := s.UpsertBooking(context.Background(), testBooking("b-2")); err != nil {
		t.Fatalf("UpsertBooking failed: %v", err)
	}
	if !called {
		t.Error("row update was not sent")
	}
}

func TestDeleteBookingRow(t *testing.T) {
	mux, s := setupMockServer(t)
	s.setCachedRow("b-3", 3)
	mux.HandleFunc("/v4/spreadsheets/bookings_tid/values/Bookings!A3:M3:clear", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(sheets.ClearValuesResponse{})
	})
	if err := s.DeleteBookingRow(context.Background(), "b-3"); err != nil {
		t.Fatalf("DeleteBookingRow failed: %v", err)
	}
	if _, ok := s.getCachedRow("b-3"); ok {
		t.Error("expected cache entry to be removed")
	}
}

func TestDeleteMissingRowIsNoop(t *testing.T) {
	mux, s := setupMockServer(t)
	mux.HandleFunc("/v4/spreadsheets/bookings_tid/values/Bookings!A:A", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(sheets.ValueRange{Values: [][]interface{}{{"ID"}}})
	})
	if err := s.DeleteBookingRow(context.Background(), "gone"); err != nil {
		t.Errorf("expected nil for missing row, got %v", err)
	}
}

func TestReplaceAll(t *testing.T) {
	mux, s := setupMockServer(t)
	mux.HandleFunc("/v4/spreadsheets/bookings_tid/values/Bookings!A:M:clear", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(sheets.ClearValuesResponse{})
	})
	var written sheets.ValueRange
	mux.HandleFunc("/v4/spreadsheets/bookings_tid/values/Bookings!A1", func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(body, &written)
		_ = json.NewEncoder(w).Encode(sheets.UpdateValuesResponse{})
	})

	err := s.ReplaceAll(context.Background(), []*models.Booking{testBooking("b-1"), testBooking("b-2")})
	if err != nil {
		t.Fatalf("ReplaceAll failed: %v", err)
	}
	if len(written.Values) != 3 {
		t.Fatalf("expected header and 2 rows, got %d", len(written.Values))
	}
	if row, _ := s.getCachedRow("b-2"); row != 3 {
		t.Errorf("expected b-2 on row 3, got %d", row)
	}
}

func TestRowFromRange(t *testing.T) {
	cases := map[string]int{
		"Bookings!A10:M10": 10,
		"Bookings!B2":      2,
		"garbage":          0,
	}
	for in, want := range cases {
		if got := rowFromRange(in); got != want {
			t.Errorf("rowFromRange(%q) = %d, want %d", in, got, want)
		}
	}
}
