// Package batch decodes archived quote files date by date and persists one
// series per limit-up target instrument.
package batch

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
)

// Markets are the exchanges whose quote files a trading date may carry.
// Both are decoded into one interleaved stream per date.
var Markets = []string{"OTC", "TSE"}

// quoteFileRe matches archived quote file names, e.g. TSEQuote.20251119.
var quoteFileRe = regexp.MustCompile(`^(OTC|TSE)Quote\.(\d{8})$`)

// DiscoverDates scans a data directory for quote files and returns the
// distinct trading dates found, sorted ascending.
func DiscoverDates(dataDir string) ([]string, error) {
	entries, err := os.ReadDir(dataDir)
	if err != nil {
		return nil, fmt.Errorf("read data dir: %w", err)
	}

	seen := make(map[string]struct{})
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		m := quoteFileRe.FindStringSubmatch(entry.Name())
		if m == nil {
			continue
		}
		seen[m[2]] = struct{}{}
	}

	dates := make([]string, 0, len(seen))
	for d := range seen {
		dates = append(dates, d)
	}
	sort.Strings(dates)
	return dates, nil
}

// quotePath builds the path of one market's quote file for a date.
func quotePath(dataDir, market, date string) string {
	return filepath.Join(dataDir, fmt.Sprintf("%sQuote.%s", market, date))
}
