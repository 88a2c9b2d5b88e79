package view

import (
	"fmt"
	"html"
	"io"
	"strconv"
	"strings"
	"sync"

	"github.com/microcosm-cc/bluemonday"

	"github.com/tendant/idm-forms/pkg/catalog"
	"github.com/tendant/idm-forms/pkg/form"
)

var (
	textPolicyOnce sync.Once
	textPolicy     *bluemonday.Policy
)

// Sanitize strips markup from server-provided text so it is safe to print.
func Sanitize(raw string) string {
	textPolicyOnce.Do(func() {
		textPolicy = bluemonday.StrictPolicy()
	})
	cleaned := textPolicy.Sanitize(strings.TrimSpace(raw))
	return strings.TrimSpace(html.UnescapeString(cleaned))
}

// RenderState writes the loading line, the error list and the success line.
func RenderState(w io.Writer, st form.State, busyLabel string) {
	if st.Loading {
		fmt.Fprintln(w, busyLabel)
	}
	if len(st.Errors) > 0 {
		for _, msg := range st.Errors {
			fmt.Fprintf(w, "  - %s\n", Sanitize(msg))
		}
	}
	if st.Success != "" {
		fmt.Fprintln(w, Sanitize(st.Success))
	}
}

// RenderLaptops writes the listing header and one line per laptop.
func RenderLaptops(w io.Writer, laptops []catalog.Laptop) {
	fmt.Fprintf(w, "All laptops are here: %d\n", len(laptops))
	for _, l := range laptops {
		fmt.Fprintf(w, "  [%s] %s\n", Sanitize(string(l.ID)), Sanitize(l.Model))
	}
}

// RenderLaptop writes brand, model and price on separate lines.
func RenderLaptop(w io.Writer, l catalog.Laptop) {
	fmt.Fprintln(w, Sanitize(l.Brand))
	fmt.Fprintln(w, Sanitize(l.Model))
	fmt.Fprintln(w, FormatPrice(l.Price))
}

// FormatPrice prints whole prices without decimals and others with two.
func FormatPrice(p float64) string {
	if p == float64(int64(p)) {
		return strconv.FormatInt(int64(p), 10)
	}
	return strconv.FormatFloat(p, 'f', 2, 64)
}
