package entity

import "strings"

// Page types a bill page can be classified as.
const (
	PageTypeBillDetail = "Bill Detail"
	PageTypeFinalBill  = "Final Bill"
	PageTypePharmacy   = "Pharmacy"
)

// BillItem is one charged line on a bill page.
type BillItem struct {
	ItemName     string  `json:"item_name"`
	ItemAmount   float64 `json:"item_amount"`
	ItemRate     float64 `json:"item_rate"`
	ItemQuantity float64 `json:"item_quantity"`
}

// PageWiseLineItem groups the line items extracted from a single page.
type PageWiseLineItem struct {
	PageNo    string     `json:"page_no"`
	PageType  string     `json:"page_type"`
	BillItems []BillItem `json:"bill_items"`
}

// CoercePageType maps free-text page classifications onto the known set.
// Exact values pass through; otherwise common variations are pattern-matched
// and anything unrecognized falls back to Bill Detail.
func CoercePageType(v string) string {
	switch v {
	case PageTypeBillDetail, PageTypeFinalBill, PageTypePharmacy:
		return v
	}
	lower := strings.ToLower(v)
	switch {
	case strings.Contains(lower, "pharmacy"):
		return PageTypePharmacy
	case strings.Contains(lower, "final"), strings.Contains(lower, "summary"):
		return PageTypeFinalBill
	default:
		return PageTypeBillDetail
	}
}

// TokenUsage accumulates the units charged by the vision provider.
type TokenUsage struct {
	TotalTokens  int `json:"total_tokens"`
	InputTokens  int `json:"input_tokens"`
	OutputTokens int `json:"output_tokens"`
}

// Add merges another usage snapshot into this one.
func (u *TokenUsage) Add(other TokenUsage) {
	u.TotalTokens += other.TotalTokens
	u.InputTokens += other.InputTokens
	u.OutputTokens += other.OutputTokens
}

// ExtractionData is the payload of a successful extraction.
type ExtractionData struct {
	PagewiseLineItems []PageWiseLineItem `json:"pagewise_line_items"`
	TotalItemCount    int                `json:"total_item_count"`
}

// ExtractionResponse is the top-level API response.
type ExtractionResponse struct {
	IsSuccess  bool           `json:"is_success"`
	TokenUsage TokenUsage     `json:"token_usage"`
	Data       ExtractionData `json:"data"`
}

// ErrorResponse is the uniform error shape for every non-200 reply.
type ErrorResponse struct {
	IsSuccess bool   `json:"is_success"`
	Message   string `json:"message"`
}
