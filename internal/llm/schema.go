package llm

import (
	"encoding/json"
	"fmt"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/joseph-ayodele/bill-extractor/internal/entity"
)

// pagewiseSchema is the compiled canonical reply schema. It gates decoding:
// a reply that satisfies it is unmarshaled strictly into typed pages,
// anything else goes through the lenient field-by-field coercion. The
// schema is a process constant, compiled once.
var pagewiseSchema = sync.OnceValue(compilePagewiseSchema)

// buildPagewiseJSONSchema describes the canonical whole-document reply
// shape (draft 2020-12 subset) as a generic map. All four item fields are
// required here: a reply missing any of them needs the lenient path so the
// coercion defaults (quantity 1.0 in particular) can apply.
func buildPagewiseJSONSchema() map[string]any {
	item := map[string]any{
		"type": "object",
		"properties": map[string]any{
			"item_name":     map[string]any{"type": "string"},
			"item_amount":   map[string]any{"type": "number"},
			"item_rate":     map[string]any{"type": "number"},
			"item_quantity": map[string]any{"type": "number"},
		},
		"required": []string{"item_name", "item_amount", "item_rate", "item_quantity"},
	}
	page := map[string]any{
		"type": "object",
		"properties": map[string]any{
			"page_no":    map[string]any{"type": "string"},
			"page_type":  map[string]any{"type": "string"},
			"bill_items": map[string]any{"type": "array", "items": item},
		},
		"required": []string{"bill_items"},
	}
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"pagewise_line_items": map[string]any{"type": "array", "items": page},
		},
		"required": []string{"pagewise_line_items"},
	}
}

func compilePagewiseSchema() *jsonschema.Schema {
	raw, err := json.Marshal(buildPagewiseJSONSchema())
	if err != nil {
		panic(fmt.Sprintf("marshal reply schema: %v", err))
	}
	return jsonschema.MustCompileString("reply-schema.json", string(raw))
}

// DecodePages converts a decoded reply record into uniform pages. A record
// matching the canonical schema is unmarshaled strictly and produces no
// skips; otherwise the lenient coercion runs and the returned error carries
// the schema mismatch for logging. Both paths yield usable pages.
func DecodePages(record map[string]any) ([]entity.PageWiseLineItem, []ItemSkip, error) {
	schemaErr := pagewiseSchema().Validate(record)
	if schemaErr == nil {
		pages, err := strictDecodePages(record)
		if err == nil {
			return pages, nil, nil
		}
		schemaErr = err
	}
	pages, skips := NormalizeReply(record)
	return pages, skips, schemaErr
}

// strictDecodePages round-trips the validated record into typed pages. The
// page-level defaults (page_no "1", known page types, non-nil item slice)
// still apply; the schema leaves those fields optional.
func strictDecodePages(record map[string]any) ([]entity.PageWiseLineItem, error) {
	raw, err := json.Marshal(record)
	if err != nil {
		return nil, err
	}
	var reply struct {
		PagewiseLineItems []entity.PageWiseLineItem `json:"pagewise_line_items"`
	}
	if err := json.Unmarshal(raw, &reply); err != nil {
		return nil, err
	}
	pages := reply.PagewiseLineItems
	for i := range pages {
		if pages[i].PageNo == "" {
			pages[i].PageNo = "1"
		}
		pages[i].PageType = entity.CoercePageType(pages[i].PageType)
		if pages[i].BillItems == nil {
			pages[i].BillItems = []entity.BillItem{}
		}
	}
	return pages, nil
}
