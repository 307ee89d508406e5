package llm

import (
	"fmt"
	"strings"
)

// Prompt templates for bill extraction. These are configuration, not logic:
// the wording mirrors what the model was tuned against and changing it
// changes extraction quality.

const SystemPrompt = `You are an expert medical bill analyzer. Your task is to extract line item details from medical bills/invoices with perfect accuracy.

CRITICAL RULES:
1. Extract EVERY line item - missing items will cause errors
2. NEVER duplicate items across pages
3. Extract item_name EXACTLY as written in the bill
4. For item_amount: use the NET amount AFTER any discounts
5. Extract item_rate and item_quantity exactly as shown
6. If quantity is not shown, use 1.0
7. Ignore summary rows, sub-totals, and grand totals (extract only individual items)
8. DO NOT confuse dates, invoice numbers, or IDs with monetary amounts.
9. Verify that item_amount is actually a price/cost, not a code.

OUTPUT FORMAT: Return ONLY valid JSON, no markdown, no explanations.`

const pagePrompt = `Analyze this medical bill page and extract ALL line items.

For each line item, provide:
- item_name: exact name from the bill
- item_amount: net amount (after discounts if any)
- item_rate: rate per unit
- item_quantity: quantity

Also classify the page type as one of:
- "Bill Detail" - detailed charge breakdown
- "Final Bill" - summary/final bill page
- "Pharmacy" - pharmacy/medicine charges

Return JSON in this format:
{
  "page_type": "Bill Detail|Final Bill|Pharmacy",
  "bill_items": [
    {
      "item_name": "exact item name",
      "item_amount": 0.0,
      "item_rate": 0.0,
      "item_quantity": 0.0
    }
  ]
}

IMPORTANT:
- Extract ONLY individual line items, NOT subtotals or totals
- If you see "Sub Total", "Grand Total", "Total Amount" etc., SKIP those rows
- Be very careful to extract ALL items and avoid duplicates
- Return ONLY the JSON, no other text`

const documentPrompt = `Analyze this entire medical bill document (which may have multiple pages) and extract ALL line items from every page.

For each page, provide:
- page_no: page number (1-indexed)
- page_type: one of "Bill Detail", "Final Bill", "Pharmacy"
- bill_items: list of items on that page

Return JSON in this format:
{
  "pagewise_line_items": [
    {
      "page_no": "1",
      "page_type": "Bill Detail",
      "bill_items": [
        {
          "item_name": "exact item name",
          "item_amount": 0.0,
          "item_rate": 0.0,
          "item_quantity": 0.0
        }
      ]
    }
  ]
}

IMPORTANT:
- Process EVERY page in the document
- Extract ONLY individual line items, NOT subtotals or totals
- If you see "Sub Total", "Grand Total", "Total Amount" etc., SKIP those rows
- Be very careful to extract ALL items and avoid duplicates
- Return ONLY the JSON, no other text

GUARD RAILS:
- Identify numeric values that represent currency (look for currency symbols or column headers like "Amount", "Price", "Total").
- Differentiate between key identifiers (like dates, invoice numbers, phone numbers) and transactional values.
- DO NOT extract Invoice Date, Invoice Number, or Phone Numbers as item_amount.
- If a number looks like a date (e.g., 2023, 11/12) or ID, it is NOT an amount.`

const multipageContext = `This is page %d of a multi-page bill.

Previous pages contained these items:
%s

CRITICAL: DO NOT re-extract items from previous pages. Only extract NEW items on this page.`

const previousItemsContext = `Earlier parts of this document already contained these items:
%s

CRITICAL: DO NOT re-extract items listed above. Only extract NEW items.`

// PagePrompt builds the single-page extraction prompt. Pages after the
// first carry the names already extracted so the model avoids re-listing
// them.
func PagePrompt(pageNum int, previousItems []string) string {
	if pageNum > 1 && len(previousItems) > 0 {
		return pagePrompt + "\n\n" + fmt.Sprintf(multipageContext, pageNum, bulletList(previousItems))
	}
	return pagePrompt
}

// DocumentPrompt builds the whole-document extraction prompt, optionally
// carrying the item names seen in earlier chunks.
func DocumentPrompt(previousItems []string) string {
	if len(previousItems) > 0 {
		return documentPrompt + "\n\n" + fmt.Sprintf(previousItemsContext, bulletList(previousItems))
	}
	return documentPrompt
}

func bulletList(items []string) string {
	var b strings.Builder
	for i, item := range items {
		if i > 0 {
			b.WriteString("\n")
		}
		b.WriteString("- ")
		b.WriteString(item)
	}
	return b.String()
}
