// internal/browser/scanner/scripts.go
package scanner

import (
	"encoding/json"
	"fmt"
)

// TagAttribute marks scanned nodes with their scan-local id so the same
// cycle can find them again.
const TagAttribute = "data-ai-id"

// CandidateSelector matches native interactive tags, ARIA button/link/textbox
// roles, and editable regions.
const CandidateSelector = "button, input, a, [role='button'], [role='link'], textarea, [contenteditable='true'], [role='textbox']"

// collectScript clears the previous cycle's tags and highlight styles, tags
// every candidate with its document-order index, and returns the raw facts
// the Go side normalizes.
var collectScript = fmt.Sprintf(`(() => {
	document.querySelectorAll('.ai-highlight').forEach(el => el.remove());
	document.querySelectorAll('[%[1]s]').forEach(el => {
		el.style.border = '';
		el.style.backgroundColor = '';
		el.removeAttribute('%[1]s');
	});
	return Array.from(document.querySelectorAll(%[2]s)).map((el, i) => {
		el.setAttribute('%[1]s', String(i));
		const r = el.getBoundingClientRect();
		const tag = el.tagName;
		const field = tag === 'INPUT' || tag === 'TEXTAREA';
		return {
			index: i,
			tagName: tag,
			role: el.getAttribute('role') || '',
			ariaLabel: el.getAttribute('aria-label') || '',
			placeholder: el.getAttribute('placeholder') || '',
			name: el.getAttribute('name') || '',
			text: el.innerText || '',
			title: el.title || '',
			value: field ? (el.value || '') : '',
			editable: el.isContentEditable || el.getAttribute('contenteditable') === 'true',
			display: window.getComputedStyle(el).display,
			rect: { x: r.left, y: r.top, w: r.width, h: r.height },
		};
	});
})()`, TagAttribute, quote(CandidateSelector))

// HighlightScript outlines the element tagged with id in red.
func HighlightScript(id int) string {
	return fmt.Sprintf(`(() => {
	const el = document.querySelector('[%s="%d"]');
	if (!el) { return false; }
	el.style.border = '2px solid red';
	el.style.backgroundColor = 'rgba(255,0,0,0.1)';
	return true;
})()`, TagAttribute, id)
}

// quote renders s as a JavaScript string literal.
func quote(s string) string {
	b, err := json.Marshal(s)
	if err != nil {
		return `""`
	}
	return string(b)
}
