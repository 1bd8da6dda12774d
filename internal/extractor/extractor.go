package extractor

import (
	"errors"
	"fmt"
	"time"

	"github.com/chromedp/chromedp"

	"rsewatch/internal/browser"
	"rsewatch/internal/config"
	"rsewatch/internal/model"
)

// ErrSectionUnavailable means a section's tab control could not be
// located; that section is skipped for the run.
var ErrSectionUnavailable = errors.New("section control not found")

// ErrTimeout means the expected rows never appeared within the bound.
var ErrTimeout = errors.New("timed out waiting for rows")

// Extractor reads raw table rows out of a rendered page, one section at
// a time. Sections other than the first need ActivateSection before
// ReadRows, since their panels are hidden until the tab is clicked.
type Extractor struct {
	sess   *browser.Session
	settle time.Duration
}

func New(sess *browser.Session, settle time.Duration) *Extractor {
	return &Extractor{sess: sess, settle: settle}
}

// ActivateSection clicks the section's tab anchor and waits for the
// panel to settle. Rendering is asynchronous relative to the click, so
// the settle pause is required before the panel's DOM is queryable.
func (e *Extractor) ActivateSection(sec config.SectionConfig) error {
	if sec.Tab == "" {
		return nil // active on page load
	}

	var found bool
	check := fmt.Sprintf("document.querySelector(%q) !== null", sec.Tab)
	if err := chromedp.Run(e.sess.Context(), chromedp.Evaluate(check, &found)); err != nil {
		return fmt.Errorf("locate tab %s: %w", sec.Tab, err)
	}
	if !found {
		return fmt.Errorf("%w: %s", ErrSectionUnavailable, sec.Tab)
	}

	// Click through JS: the anchors respond to script clicks even when
	// an overlay would swallow a synthetic mouse event.
	click := fmt.Sprintf("document.querySelector(%q).click()", sec.Tab)
	if err := chromedp.Run(e.sess.Context(),
		chromedp.Evaluate(click, nil),
		chromedp.Sleep(e.settle),
	); err != nil {
		return fmt.Errorf("activate tab %s: %w", sec.Tab, err)
	}
	return nil
}

// ReadRows blocks until at least one row matches the selector, then
// returns every matching row's cell texts, trimmed. Expiry of the bound
// yields ErrTimeout. A present-but-empty table yields an empty slice and
// no error.
func (e *Extractor) ReadRows(rowSelector string, timeout time.Duration) ([]model.RawRow, error) {
	present := fmt.Sprintf("document.querySelectorAll(%q).length > 0", rowSelector)
	extract := fmt.Sprintf(`Array.from(document.querySelectorAll(%q)).map(function (tr) {
		return Array.from(tr.querySelectorAll("td")).map(function (td) {
			return td.innerText.trim();
		});
	})`, rowSelector)

	var rows [][]string
	err := chromedp.Run(e.sess.Context(),
		chromedp.Poll(present, nil,
			chromedp.WithPollingTimeout(timeout),
			chromedp.WithPollingInterval(500*time.Millisecond),
		),
		chromedp.Evaluate(extract, &rows),
	)
	if err != nil {
		if errors.Is(err, chromedp.ErrPollingTimeout) {
			return nil, fmt.Errorf("%w: %s after %s", ErrTimeout, rowSelector, timeout)
		}
		return nil, fmt.Errorf("read rows %s: %w", rowSelector, err)
	}

	out := make([]model.RawRow, len(rows))
	for i, r := range rows {
		out[i] = model.RawRow(r)
	}
	return out, nil
}
