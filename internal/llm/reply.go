package llm

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/joseph-ayodele/bill-extractor/internal/common"
)

// DecodeReply turns the model's free-form text into a generic JSON record.
// It strips an optional markdown code fence, tries a direct parse, then
// falls back to the substring between the first '{' and the last '}'.
// This is the single normalization point for every reply shape.
func DecodeReply(text string) (map[string]any, error) {
	cleaned := StripCodeFence(text)

	var record map[string]any
	err := json.Unmarshal([]byte(cleaned), &record)
	if err == nil {
		return record, nil
	}

	// Heuristic recovery: models often wrap the JSON in prose.
	start := strings.Index(cleaned, "{")
	end := strings.LastIndex(cleaned, "}")
	if start != -1 && end > start {
		var recovered map[string]any
		if rerr := json.Unmarshal([]byte(cleaned[start:end+1]), &recovered); rerr == nil {
			return recovered, nil
		}
	}

	return nil, common.NewAppError("MALFORMED_REPLY", replyDiagnostic(cleaned, err), common.ErrMalformedReply)
}

// StripCodeFence removes a surrounding ```json / ``` fence if present.
func StripCodeFence(text string) string {
	cleaned := strings.TrimSpace(text)
	if strings.HasPrefix(cleaned, "```json") {
		cleaned = cleaned[len("```json"):]
	} else if strings.HasPrefix(cleaned, "```") {
		cleaned = cleaned[len("```"):]
	}
	cleaned = strings.TrimSuffix(strings.TrimSpace(cleaned), "```")
	return strings.TrimSpace(cleaned)
}

// replyDiagnostic builds a parse-failure message carrying the error offset
// and the surrounding text, which is usually enough to spot truncation.
func replyDiagnostic(text string, err error) string {
	offset := int64(len(text))
	var syntaxErr *json.SyntaxError
	if errors.As(err, &syntaxErr) {
		offset = syntaxErr.Offset
	}
	ctxStart := offset - 100
	if ctxStart < 0 {
		ctxStart = 0
	}
	ctxEnd := offset + 100
	if ctxEnd > int64(len(text)) {
		ctxEnd = int64(len(text))
	}
	return fmt.Sprintf("failed to parse JSON at offset %d (reply length %d): %v; context: ...%s...",
		offset, len(text), err, text[ctxStart:ctxEnd])
}
