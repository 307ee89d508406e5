package validate

import (
	"fmt"
	"math"
	"strings"

	"github.com/joseph-ayodele/bill-extractor/internal/entity"
)

// amountTolerance is how far item_amount may drift from rate*quantity
// before we warn. Rounding and bundled-discount pricing make small
// deviations normal; large ones usually mean the model misread a column.
const amountTolerance = 0.05

// Report is the outcome of validating one extraction. It is transient:
// computed per request, logged, never persisted.
type Report struct {
	IsValid     bool
	Errors      []string
	Warnings    []string
	Duplicates  []string
	TotalAmount float64
	ItemCount   int
}

// itemKey is the exact-match duplicate heuristic: same name (lowercased,
// trimmed), amount and rate means the same charge. It misses near-duplicates
// with OCR noise in the name and can collide on genuinely distinct items
// that share all three fields.
type itemKey struct {
	name   string
	amount float64
	rate   float64
}

func keyFor(item entity.BillItem) itemKey {
	return itemKey{
		name:   strings.ToLower(strings.TrimSpace(item.ItemName)),
		amount: item.ItemAmount,
		rate:   item.ItemRate,
	}
}

// ValidateItem returns the hard errors for a single item. The amount vs
// rate*quantity check is a warning, reported separately via ItemWarnings.
func ValidateItem(item entity.BillItem) []string {
	var errs []string
	if strings.TrimSpace(item.ItemName) == "" {
		errs = append(errs, "Item name is empty")
	}
	if item.ItemAmount < 0 {
		errs = append(errs, fmt.Sprintf("Invalid item_amount: %v (must be >= 0)", item.ItemAmount))
	}
	if item.ItemRate < 0 {
		errs = append(errs, fmt.Sprintf("Invalid item_rate: %v (must be >= 0)", item.ItemRate))
	}
	if item.ItemQuantity <= 0 {
		errs = append(errs, fmt.Sprintf("Invalid item_quantity: %v (must be > 0)", item.ItemQuantity))
	}
	return errs
}

// ItemWarnings flags an amount that deviates from rate*quantity by more
// than the tolerance. Only checked when the expected amount is positive.
func ItemWarnings(item entity.BillItem) []string {
	expected := item.ItemRate * item.ItemQuantity
	if expected <= 0 {
		return nil
	}
	if math.Abs(item.ItemAmount-expected)/expected > amountTolerance {
		return []string{fmt.Sprintf(
			"Amount mismatch for '%s': %v != %v x %v (expected ~%.2f)",
			item.ItemName, item.ItemAmount, item.ItemRate, item.ItemQuantity, expected,
		)}
	}
	return nil
}

// DetectDuplicates walks pages in order and flags every repetition of an
// already-seen item key. The first occurrence is never flagged; each later
// one is flagged once. Returns the duplicate names and the warnings.
func DetectDuplicates(pages []entity.PageWiseLineItem) ([]string, []string) {
	seen := make(map[itemKey]struct{})
	var duplicates []string
	var warnings []string
	for _, page := range pages {
		for _, item := range page.BillItems {
			key := keyFor(item)
			if _, ok := seen[key]; ok {
				duplicates = append(duplicates, item.ItemName)
				warnings = append(warnings, fmt.Sprintf(
					"Potential duplicate: '%s' on page %s", item.ItemName, page.PageNo))
				continue
			}
			seen[key] = struct{}{}
		}
	}
	return duplicates, warnings
}

// RemoveDuplicates keeps the first occurrence of each item key, preserving
// page and item order. Pages left empty are dropped. Idempotent.
func RemoveDuplicates(pages []entity.PageWiseLineItem) []entity.PageWiseLineItem {
	seen := make(map[itemKey]struct{})
	cleaned := make([]entity.PageWiseLineItem, 0, len(pages))
	for _, page := range pages {
		var kept []entity.BillItem
		for _, item := range page.BillItems {
			key := keyFor(item)
			if _, ok := seen[key]; ok {
				continue
			}
			seen[key] = struct{}{}
			kept = append(kept, item)
		}
		if len(kept) > 0 {
			page.BillItems = kept
			cleaned = append(cleaned, page)
		}
	}
	return cleaned
}

// CalculateTotal sums every item amount across all pages, rounded to two
// decimal places. Order-independent.
func CalculateTotal(pages []entity.PageWiseLineItem) float64 {
	total := 0.0
	for _, page := range pages {
		for _, item := range page.BillItems {
			total += item.ItemAmount
		}
	}
	return math.Round(total*100) / 100
}

// CountItems counts items across all pages.
func CountItems(pages []entity.PageWiseLineItem) int {
	count := 0
	for _, page := range pages {
		count += len(page.BillItems)
	}
	return count
}

// ValidateAll runs per-item validation, duplicate detection, and the
// total/count computations. Warnings never affect validity; only hard
// per-item errors do.
func ValidateAll(pages []entity.PageWiseLineItem) Report {
	var errs []string
	var warnings []string
	for _, page := range pages {
		for _, item := range page.BillItems {
			errs = append(errs, ValidateItem(item)...)
			warnings = append(warnings, ItemWarnings(item)...)
		}
	}

	duplicates, dupWarnings := DetectDuplicates(pages)
	warnings = append(warnings, dupWarnings...)

	return Report{
		IsValid:     len(errs) == 0,
		Errors:      errs,
		Warnings:    warnings,
		Duplicates:  duplicates,
		TotalAmount: CalculateTotal(pages),
		ItemCount:   CountItems(pages),
	}
}
