// internal/oracle/prompt.go
package oracle

import (
	"encoding/base64"
	"fmt"
	"strings"

	jsoniter "github.com/json-iterator/go"

	"github.com/xkilldash9x/pathfinder/api/schemas"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// SystemPrompt frames every request.
const SystemPrompt = "You are a precise browser automation agent. You output JSON action sequences."

const instructions = `INSTRUCTIONS:
1. ANALYZE the visible elements and the screenshot to determine the next steps.
2. GENERATE a sequence of actions. Output several actions ONLY when they are consecutive form fills (e.g. Type Name -> Type Email) that do not reload the page.
3. CHECK 'tagName' carefully!
   - NEVER type into a 'BUTTON', 'A' (link), or 'IMG'.
   - ONLY type into 'INPUT', 'TEXTAREA', or 'DIV' (contenteditable).
   - If the label "To" is on a button, look for the 'INPUT' or 'DIV' nearby or with an empty label.
4. IF a button click is required (e.g. "Submit", "Next", "Search"), it MUST be the LAST action in the sequence because the page will likely change.
5. USE the exact 'id' from the VISIBLE ELEMENTS for 'element_id'. Do not invent ids.
6. If the goal is achieved, return action='DONE'.
7. To send an email: Type 'To' (Input) -> Type 'Subject' -> Type 'Body' -> Click 'Send'.

Respond with a JSON object of the form:
{"steps": [{"reasoning": "...", "action": "click|type|scroll|wait|DONE", "element_id": 0, "text": "..."}]}`

// Prompt is what a Model receives.
type Prompt struct {
	System string
	User   string
	// Image is a PNG snapshot of the page, or nil.
	Image []byte
}

// BuildPrompt renders a plan request. A screenshot that is not valid base64
// is dropped rather than failing the request.
func BuildPrompt(req schemas.PlanRequest) (Prompt, error) {
	elements := req.Elements
	if elements == nil {
		elements = []schemas.ElementView{}
	}
	elementsJSON, err := json.Marshal(elements)
	if err != nil {
		return Prompt{}, fmt.Errorf("failed to encode elements: %w", err)
	}

	history := strings.TrimSpace(req.History)
	if history == "" {
		history = "Started task."
	}

	var b strings.Builder
	fmt.Fprintf(&b, "GOAL: %s\n", req.Goal)
	fmt.Fprintf(&b, "URL: %s\n\n", req.URL)
	fmt.Fprintf(&b, "HISTORY OF ACTIONS:\n%s\n\n", history)
	fmt.Fprintf(&b, "VISIBLE ELEMENTS (JSON):\n%s\n\n", elementsJSON)
	b.WriteString(instructions)

	p := Prompt{System: SystemPrompt, User: b.String()}
	if req.ScreenshotBase64 != "" {
		if img, err := base64.StdEncoding.DecodeString(req.ScreenshotBase64); err == nil {
			p.Image = img
		}
	}
	return p, nil
}
