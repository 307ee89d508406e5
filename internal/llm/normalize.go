package llm

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/joseph-ayodele/bill-extractor/internal/entity"
)

// ItemSkip records one line item that could not be coerced. Skips are data,
// not errors: the caller reports how many items were dropped and why
// without aborting the page.
type ItemSkip struct {
	PageNo string
	Reason string
}

// NormalizeReply converts a decoded reply record into uniform pages.
// Three shapes are accepted:
//   - {"pagewise_line_items": [...]}  — canonical
//   - {"pagewise_line_items": {...}}  — single object, wrapped into a list
//   - {"bill_items": [...]}           — flat item list, becomes page "1"
func NormalizeReply(record map[string]any) ([]entity.PageWiseLineItem, []ItemSkip) {
	var rawPages []any

	switch v := record["pagewise_line_items"].(type) {
	case []any:
		rawPages = v
	case map[string]any:
		rawPages = []any{v}
	}

	if len(rawPages) == 0 {
		if items, ok := record["bill_items"].([]any); ok {
			rawPages = []any{map[string]any{
				"page_no":    "1",
				"page_type":  entity.PageTypeBillDetail,
				"bill_items": items,
			}}
		}
	}

	pages := make([]entity.PageWiseLineItem, 0, len(rawPages))
	var skips []ItemSkip
	for _, rawPage := range rawPages {
		pageRecord, ok := rawPage.(map[string]any)
		if !ok {
			continue
		}
		page, pageSkips := CoercePage(pageRecord)
		pages = append(pages, page)
		skips = append(skips, pageSkips...)
	}
	return pages, skips
}

// CoercePage builds one PageWiseLineItem, defaulting page_no to "1" and
// coercing page_type onto the known set.
func CoercePage(record map[string]any) (entity.PageWiseLineItem, []ItemSkip) {
	page := entity.PageWiseLineItem{
		PageNo:    coerceString(record["page_no"], "1"),
		PageType:  entity.CoercePageType(coerceString(record["page_type"], entity.PageTypeBillDetail)),
		BillItems: []entity.BillItem{},
	}

	var skips []ItemSkip
	rawItems, _ := record["bill_items"].([]any)
	for _, rawItem := range rawItems {
		itemRecord, ok := rawItem.(map[string]any)
		if !ok {
			skips = append(skips, ItemSkip{PageNo: page.PageNo, Reason: "item is not an object"})
			continue
		}
		item, err := CoerceItem(itemRecord)
		if err != nil {
			skips = append(skips, ItemSkip{PageNo: page.PageNo, Reason: err.Error()})
			continue
		}
		page.BillItems = append(page.BillItems, item)
	}
	return page, skips
}

// CoerceItem is a total, field-by-field conversion: missing fields get
// defaults (name "Unknown", amount/rate 0.0, quantity 1.0); a field that is
// present but not numeric fails the item.
func CoerceItem(record map[string]any) (entity.BillItem, error) {
	amount, err := coerceFloat(record["item_amount"], 0.0)
	if err != nil {
		return entity.BillItem{}, fmt.Errorf("item_amount: %w", err)
	}
	rate, err := coerceFloat(record["item_rate"], 0.0)
	if err != nil {
		return entity.BillItem{}, fmt.Errorf("item_rate: %w", err)
	}
	quantity, err := coerceFloat(record["item_quantity"], 1.0)
	if err != nil {
		return entity.BillItem{}, fmt.Errorf("item_quantity: %w", err)
	}
	return entity.BillItem{
		ItemName:     coerceString(record["item_name"], "Unknown"),
		ItemAmount:   amount,
		ItemRate:     rate,
		ItemQuantity: quantity,
	}, nil
}

func coerceString(v any, fallback string) string {
	switch t := v.(type) {
	case string:
		if strings.TrimSpace(t) == "" {
			return fallback
		}
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	default:
		return fallback
	}
}

func coerceFloat(v any, fallback float64) (float64, error) {
	switch t := v.(type) {
	case nil:
		return fallback, nil
	case float64:
		return t, nil
	case string:
		s := strings.TrimSpace(t)
		if s == "" {
			return fallback, nil
		}
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return 0, fmt.Errorf("not a number: %q", t)
		}
		return f, nil
	case bool:
		return 0, fmt.Errorf("not a number: %v", t)
	default:
		return 0, fmt.Errorf("not a number: %v", t)
	}
}
