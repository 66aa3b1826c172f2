package catalog

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	pgx "github.com/jackc/pgx/v5"
	pgxmock "github.com/pashagolub/pgxmock/v4"
)

var offeringRowColumns = []string{"id", "tenant_id", "name", "base_price_minor", "currency", "category", "duration_minutes", "is_active", "position"}

func TestPostgresStoreListActive(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("failed to create pgx mock: %v", err)
	}
	defer mock.Close()

	store := newPostgresStoreWithQuerier(mock)
	first, second := uuid.New(), uuid.New()
	rows := pgxmock.NewRows(offeringRowColumns).
		AddRow(first, "salon-1", "Hair Cut & Style", int64(50000), "INR", "hair", 45, true, 1).
		AddRow(second, "salon-1", "Facial Cleanup", int64(80000), "INR", "skin", 60, true, 2)
	mock.ExpectQuery("FROM service_offerings").WithArgs("salon-1").WillReturnRows(rows)

	offerings, err := store.ListActive(context.Background(), "salon-1")
	if err != nil {
		t.Fatalf("list active failed: %v", err)
	}
	if len(offerings) != 2 || offerings[0].ID != first || offerings[1].Name != "Facial Cleanup" {
		t.Fatalf("unexpected offerings: %#v", offerings)
	}
	if offerings[0].BasePriceMinor != 50000 || offerings[0].DurationMinutes != 45 {
		t.Fatalf("unexpected scan result: %#v", offerings[0])
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestPostgresStoreGet(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("failed to create pgx mock: %v", err)
	}
	defer mock.Close()

	store := newPostgresStoreWithQuerier(mock)
	id := uuid.New()
	mock.ExpectQuery("FROM service_offerings").WithArgs("salon-1", id).
		WillReturnRows(pgxmock.NewRows(offeringRowColumns).AddRow(id, "salon-1", "Manicure", int64(40000), "INR", "nails", 30, false, 4))

	got, err := store.Get(context.Background(), "salon-1", id)
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if got.Name != "Manicure" || got.IsActive {
		t.Fatalf("unexpected offering %#v", got)
	}

	missing := uuid.New()
	mock.ExpectQuery("FROM service_offerings").WithArgs("salon-1", missing).WillReturnError(pgx.ErrNoRows)
	if _, err := store.Get(context.Background(), "salon-1", missing); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestPostgresStoreQueryError(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("failed to create pgx mock: %v", err)
	}
	defer mock.Close()

	store := newPostgresStoreWithQuerier(mock)
	mock.ExpectQuery("FROM service_offerings").WithArgs("salon-1").WillReturnError(errors.New("connection refused"))
	if _, err := store.ListActive(context.Background(), "salon-1"); err == nil {
		t.Fatalf("expected error")
	}
}
