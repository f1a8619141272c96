package storage

import (
	"context"
	"io"
	"path/filepath"
	"testing"

	"github.com/xuri/excelize/v2"
	"gomarketplace_parser/internal/parsing/models"
)

func writeSheet(t *testing.T, rows [][]interface{}) string {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()
	sheet := f.GetSheetName(0)
	for i, row := range rows {
		cellName, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			t.Fatalf("cell name: %v", err)
		}
		if err := f.SetSheetRow(sheet, cellName, &row); err != nil {
			t.Fatalf("set row: %v", err)
		}
	}
	path := filepath.Join(t.TempDir(), "tracked.xlsx")
	if err := f.SaveAs(path); err != nil {
		t.Fatalf("save: %v", err)
	}
	return path
}

func TestExcelSourceWithHeader(t *testing.T) {
	path := writeSheet(t, [][]interface{}{
		{"comment", "Marketplace", "Article"},
		{"boots", "ozon", "123"},
		{"", "WB", "456"},
		{"bad", "AVITO", "789"},
		{"empty article", "WB", ""},
	})
	got, err := NewExcelSource(path, io.Discard).Tracked(context.Background())
	if err != nil {
		t.Fatalf("tracked: %v", err)
	}
	want := []models.ScrapeRequest{
		{Article: "123", Marketplace: models.Ozon},
		{Article: "456", Marketplace: models.Wildberries},
	}
	if len(got) != len(want) {
		t.Fatalf("got %+v", got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("row %d: got %+v, want %+v", i, got[i], want[i])
		}
	}
}

func TestExcelSourceWithoutHeader(t *testing.T) {
	path := writeSheet(t, [][]interface{}{
		{"111", "OZON"},
		{"222", "wb"},
	})
	got, err := NewExcelSource(path, io.Discard).Tracked(context.Background())
	if err != nil {
		t.Fatalf("tracked: %v", err)
	}
	if len(got) != 2 || got[0].Article != "111" || got[1].Marketplace != models.Wildberries {
		t.Fatalf("got %+v", got)
	}
}

func TestExcelSourceMissingFile(t *testing.T) {
	if _, err := NewExcelSource(filepath.Join(t.TempDir(), "nope.xlsx"), io.Discard).Tracked(context.Background()); err == nil {
		t.Fatalf("expected error for missing file")
	}
}

type staticSource []models.ScrapeRequest

func (s staticSource) Tracked(context.Context) ([]models.ScrapeRequest, error) { return s, nil }

func TestCollectTrackedDeduplicates(t *testing.T) {
	a := staticSource{{Article: "1", Marketplace: models.Ozon}, {Article: "2", Marketplace: models.Wildberries}}
	b := staticSource{{Article: "1", Marketplace: models.Ozon}, {Article: "1", Marketplace: models.Wildberries}}
	got, err := CollectTracked(context.Background(), a, b)
	if err != nil {
		t.Fatalf("collect: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("expected 3 unique requests, got %+v", got)
	}
	if got[2] != (models.ScrapeRequest{Article: "1", Marketplace: models.Wildberries}) {
		t.Fatalf("unexpected order %+v", got)
	}
}
