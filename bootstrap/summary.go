package bootstrap

import (
	"fmt"
	"io"
	"time"

	"github.com/kbukum/gobexport/export"
)

// Product status values.
const (
	StatusExported = "exported"
	StatusFailed   = "failed"
	StatusSkipped  = "skipped"
)

// ProductStatus holds the outcome of one product.
type ProductStatus struct {
	Name     string
	Status   string
	Output   string
	Rows     int
	Duration time.Duration
	Error    string
}

// Summary tracks and displays the outcome of an export run.
type Summary struct {
	serviceName string
	version     string
	runDuration time.Duration
	products    []ProductStatus
}

// NewSummary creates a new run summary.
func NewSummary(serviceName, version string) *Summary {
	return &Summary{
		serviceName: serviceName,
		version:     version,
		products:    make([]ProductStatus, 0),
	}
}

// SetRunDuration records the total run time.
func (s *Summary) SetRunDuration(d time.Duration) {
	s.runDuration = d
}

// TrackRun records the outcome of running names. The runner stops at the
// first failure, so the product after the last result failed and the rest
// were skipped.
func (s *Summary) TrackRun(names []string, results []export.Result, err error) {
	for _, r := range results {
		s.products = append(s.products, ProductStatus{
			Name:     r.Product,
			Status:   StatusExported,
			Output:   r.Output,
			Rows:     r.Rows,
			Duration: r.Duration,
		})
	}
	if err == nil {
		return
	}
	for i := len(results); i < len(names); i++ {
		ps := ProductStatus{Name: names[i], Status: StatusSkipped}
		if i == len(results) {
			ps.Status = StatusFailed
			ps.Error = err.Error()
		}
		s.products = append(s.products, ps)
	}
}

// Products returns the tracked product outcomes.
func (s *Summary) Products() []ProductStatus {
	return s.products
}

// Failed reports whether any product failed.
func (s *Summary) Failed() bool {
	for _, p := range s.products {
		if p.Status == StatusFailed {
			return true
		}
	}
	return false
}

// DisplaySummary writes the run summary to w.
func (s *Summary) DisplaySummary(w io.Writer) {
	fmt.Fprintf(w, "\n")
	fmt.Fprintf(w, "🚀 %s v%s finished in %.2fs\n\n",
		s.serviceName, s.version, s.runDuration.Seconds())

	if len(s.products) == 0 {
		fmt.Fprintf(w, "   └── No products exported\n\n")
		return
	}

	fmt.Fprintf(w, "📦 Products\n")
	exported, rows := 0, 0
	for i, p := range s.products {
		prefix := "├──"
		if i == len(s.products)-1 {
			prefix = "└──"
		}
		icon := statusIcon(p.Status)
		switch p.Status {
		case StatusExported:
			fmt.Fprintf(w, "   %s %s %s → %s (%d rows, %.2fs)\n", prefix, icon, p.Name, p.Output, p.Rows, p.Duration.Seconds())
			exported++
			rows += p.Rows
		case StatusFailed:
			fmt.Fprintf(w, "   %s %s %s: %s\n", prefix, icon, p.Name, p.Error)
		default:
			fmt.Fprintf(w, "   %s %s %s (%s)\n", prefix, icon, p.Name, p.Status)
		}
	}
	fmt.Fprintf(w, "\n")

	total := len(s.products)
	if exported == total {
		fmt.Fprintf(w, "✅ All products exported (%d/%d, %d rows)\n\n", exported, total, rows)
	} else {
		fmt.Fprintf(w, "⚠️  Export incomplete (%d/%d exported)\n\n", exported, total)
	}
}

func statusIcon(status string) string {
	switch status {
	case StatusExported:
		return "✅"
	case StatusSkipped:
		return "⏸️"
	case StatusFailed:
		return "❌"
	default:
		return "⚠️"
	}
}
