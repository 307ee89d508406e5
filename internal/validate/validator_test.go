package validate

import (
	"reflect"
	"testing"

	"github.com/joseph-ayodele/bill-extractor/internal/entity"
)

func item(name string, amount, rate, qty float64) entity.BillItem {
	return entity.BillItem{ItemName: name, ItemAmount: amount, ItemRate: rate, ItemQuantity: qty}
}

func TestValidateItem(t *testing.T) {
	tests := []struct {
		name     string
		item     entity.BillItem
		wantErrs int
	}{
		{"valid", item("Consultation", 500, 500, 1), 0},
		{"empty name", item("   ", 100, 100, 1), 1},
		{"negative amount", item("X-Ray", -50, 50, 1), 1},
		{"negative rate", item("X-Ray", 50, -50, 1), 1},
		{"zero quantity", item("X-Ray", 50, 50, 0), 1},
		{"everything wrong", item("", -1, -1, -1), 4},
		{"zero amount and rate ok", item("Discount line", 0, 0, 1), 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			errs := ValidateItem(tt.item)
			if len(errs) != tt.wantErrs {
				t.Errorf("got %d errors %v, want %d", len(errs), errs, tt.wantErrs)
			}
		})
	}
}

func TestItemWarnings(t *testing.T) {
	tests := []struct {
		name     string
		item     entity.BillItem
		wantWarn bool
	}{
		{"amount matches rate*qty", item("Tablets", 100, 50, 2), false},
		{"within tolerance", item("Tablets", 102, 50, 2), false},
		{"outside tolerance", item("Tablets", 150, 50, 2), true},
		{"zero rate skips the check", item("Package fee", 999, 0, 1), false},
		{"zero quantity skips the check", item("Odd line", 999, 50, 0), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			warns := ItemWarnings(tt.item)
			if (len(warns) > 0) != tt.wantWarn {
				t.Errorf("warnings = %v, wantWarn = %v", warns, tt.wantWarn)
			}
		})
	}
}

func TestDetectDuplicates(t *testing.T) {
	pages := []entity.PageWiseLineItem{
		{PageNo: "1", BillItems: []entity.BillItem{
			item("Paracetamol", 20, 10, 2),
			item("Consultation", 500, 500, 1),
		}},
		{PageNo: "2", BillItems: []entity.BillItem{
			item("paracetamol ", 20, 10, 2), // same key after trim+lowercase
			item("Paracetamol", 40, 20, 2),  // different amount/rate, not a dup
		}},
	}

	duplicates, warnings := DetectDuplicates(pages)
	if len(duplicates) != 1 {
		t.Fatalf("got %d duplicates %v, want 1", len(duplicates), duplicates)
	}
	if len(warnings) != 1 {
		t.Fatalf("got %d warnings %v, want 1", len(warnings), warnings)
	}
	want := "Potential duplicate: 'paracetamol ' on page 2"
	if warnings[0] != want {
		t.Errorf("warning = %q, want %q", warnings[0], want)
	}
}

func TestDetectDuplicatesNoDuplicates(t *testing.T) {
	pages := []entity.PageWiseLineItem{
		{PageNo: "1", BillItems: []entity.BillItem{
			item("A", 1, 1, 1),
			item("B", 2, 2, 1),
		}},
	}
	duplicates, warnings := DetectDuplicates(pages)
	if len(duplicates) != 0 || len(warnings) != 0 {
		t.Errorf("duplicates = %v, warnings = %v, want none", duplicates, warnings)
	}
}

func TestRemoveDuplicates(t *testing.T) {
	pages := []entity.PageWiseLineItem{
		{PageNo: "1", PageType: entity.PageTypeBillDetail, BillItems: []entity.BillItem{
			item("Paracetamol", 20, 10, 2),
			item("Consultation", 500, 500, 1),
		}},
		{PageNo: "2", PageType: entity.PageTypePharmacy, BillItems: []entity.BillItem{
			item("Paracetamol", 20, 10, 2),
		}},
	}

	cleaned := RemoveDuplicates(pages)
	if len(cleaned) != 1 {
		t.Fatalf("got %d pages %v, want 1 (page 2 becomes empty and is dropped)", len(cleaned), cleaned)
	}
	if cleaned[0].PageNo != "1" || len(cleaned[0].BillItems) != 2 {
		t.Errorf("unexpected surviving page: %+v", cleaned[0])
	}

	// Idempotent: a second pass changes nothing.
	again := RemoveDuplicates(cleaned)
	if !reflect.DeepEqual(cleaned, again) {
		t.Errorf("second pass changed the result:\n first: %+v\nsecond: %+v", cleaned, again)
	}
}

func TestCalculateTotal(t *testing.T) {
	pages := []entity.PageWiseLineItem{
		{PageNo: "1", BillItems: []entity.BillItem{
			item("A", 0.1, 0, 1),
			item("B", 0.2, 0, 1),
		}},
		{PageNo: "2", BillItems: []entity.BillItem{
			item("C", 0.3, 0, 1),
		}},
	}

	if got := CalculateTotal(pages); got != 0.6 {
		t.Errorf("total = %v, want 0.6 (rounded to 2 decimals)", got)
	}

	// Order independence.
	reversed := []entity.PageWiseLineItem{pages[1], pages[0]}
	if CalculateTotal(pages) != CalculateTotal(reversed) {
		t.Error("total depends on page order")
	}
}

func TestCountItems(t *testing.T) {
	pages := []entity.PageWiseLineItem{
		{BillItems: []entity.BillItem{item("A", 1, 1, 1), item("B", 2, 2, 1)}},
		{BillItems: []entity.BillItem{}},
		{BillItems: []entity.BillItem{item("C", 3, 3, 1)}},
	}
	if got := CountItems(pages); got != 3 {
		t.Errorf("count = %d, want 3", got)
	}
}

func TestValidateAll(t *testing.T) {
	pages := []entity.PageWiseLineItem{
		{PageNo: "1", BillItems: []entity.BillItem{
			item("Consultation", 500, 500, 1),
			item("Paracetamol", 20, 10, 2),
		}},
		{PageNo: "2", BillItems: []entity.BillItem{
			item("Paracetamol", 20, 10, 2),
			item("Room charge", 150, 50, 2), // amount off rate*qty
		}},
	}

	report := ValidateAll(pages)
	if !report.IsValid {
		t.Errorf("report not valid: %v", report.Errors)
	}
	if report.ItemCount != 4 {
		t.Errorf("item count = %d, want 4", report.ItemCount)
	}
	if report.TotalAmount != 690 {
		t.Errorf("total = %v, want 690", report.TotalAmount)
	}
	if len(report.Duplicates) != 1 {
		t.Errorf("duplicates = %v, want 1", report.Duplicates)
	}
	// Amount-mismatch warning plus the duplicate warning.
	if len(report.Warnings) != 2 {
		t.Errorf("warnings = %v, want 2", report.Warnings)
	}
}

func TestValidateAllHardErrorInvalidates(t *testing.T) {
	pages := []entity.PageWiseLineItem{
		{PageNo: "1", BillItems: []entity.BillItem{item("", 10, 10, 1)}},
	}
	report := ValidateAll(pages)
	if report.IsValid {
		t.Error("report should be invalid when an item has an empty name")
	}
}
