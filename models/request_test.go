package models

import "testing"

func TestRecalculate(t *testing.T) {
	req := BudgetRequest{
		Amount: 999999, // stale, must be recomputed
		CalculationItems: CalculationItems{
			{Uraian: "Konsumsi peserta", Volume: 30, Satuan: "OK", HargaSatuan: 50000, Jumlah: 1},
			{Uraian: "Sewa ruangan", Volume: 2, Satuan: "Hari", HargaSatuan: 750000},
		},
	}

	req.Recalculate()

	if req.CalculationItems[0].Jumlah != 1500000 {
		t.Errorf("item subtotal = %v, want 1500000", req.CalculationItems[0].Jumlah)
	}
	if req.CalculationItems[1].Jumlah != 1500000 {
		t.Errorf("item subtotal = %v, want 1500000", req.CalculationItems[1].Jumlah)
	}
	if req.Amount != 3000000 {
		t.Errorf("Amount = %v, want sum of subtotals", req.Amount)
	}
}

func TestRecalculateEmpty(t *testing.T) {
	req := BudgetRequest{Amount: 5}
	req.Recalculate()
	if req.Amount != 0 {
		t.Errorf("Amount = %v, want 0 for no items", req.Amount)
	}
}

func TestDepartmentListMatching(t *testing.T) {
	d := DepartmentList{"Bidang Wilayah I", "Tata Usaha"}

	t.Run("contains is case and space insensitive", func(t *testing.T) {
		if !d.Contains("bidang wilayah i") {
			t.Error("expected case-insensitive match")
		}
		if !d.Contains("  Tata Usaha ") {
			t.Error("expected whitespace-insensitive match")
		}
		if d.Contains("Bidang Wilayah II") {
			t.Error("unexpected match for a different department")
		}
	})

	t.Run("intersects", func(t *testing.T) {
		if !d.Intersects(DepartmentList{"Sekretariat", "tata usaha"}) {
			t.Error("expected overlap on Tata Usaha")
		}
		if d.Intersects(DepartmentList{"Sekretariat"}) {
			t.Error("unexpected overlap")
		}
		if d.Intersects(nil) {
			t.Error("nil list should not intersect")
		}
	})
}
