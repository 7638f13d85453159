/*
export.go - Date-based ZIP export and aggregate statistics

PURPOSE:
  Batch retrieval for the accounting hand-off: all artifacts of one
  delivery date as a single max-compression ZIP, and a per-date summary
  of the whole directory.

PARTIAL FAILURE:
  One unreadable member must not abort the whole archive: per-file read
  failures are logged and the file is skipped. Filenames without a
  recognizable date are excluded from every date group but reported in
  the Unparsed bucket so they never vanish without trace.

SEE ALSO:
  - manager.go: ListByDate
  - naming.go: date extraction
*/
package artifact

import (
	"archive/zip"
	"compress/flate"
	"fmt"
	"io"
	"sort"

	"github.com/retailops/delivery-engine/ledger"
)

// =============================================================================
// ZIP EXPORT
// =============================================================================

// ExportZip streams a ZIP of every artifact for the given date to w.
// Returns the number of members written. No artifacts for the date is a
// not-found error; an unreadable member is skipped, not fatal.
func (m *Manager) ExportZip(date string, w io.Writer) (int, error) {
	if err := ValidateDate(date); err != nil {
		return 0, err
	}

	files, err := m.ListByDate(date)
	if err != nil {
		return 0, err
	}
	if len(files) == 0 {
		return 0, fmt.Errorf("%w: no artifacts for date %s", ledger.ErrArtifactNotFound, date)
	}

	zw := zip.NewWriter(w)
	zw.RegisterCompressor(zip.Deflate, func(out io.Writer) (io.WriteCloser, error) {
		return flate.NewWriter(out, flate.BestCompression)
	})

	written := 0
	for _, f := range files {
		data, err := m.store.Read(f.Name)
		if err != nil {
			m.log.Warn("skipping unreadable artifact in export", "filename", f.Name, "error", err)
			continue
		}
		member, err := zw.Create(f.Name)
		if err != nil {
			zw.Close()
			return written, fmt.Errorf("%w: zip member %s: %v", ledger.ErrIO, f.Name, err)
		}
		if _, err := member.Write(data); err != nil {
			zw.Close()
			return written, fmt.Errorf("%w: zip member %s: %v", ledger.ErrIO, f.Name, err)
		}
		written++
	}

	if err := zw.Close(); err != nil {
		return written, fmt.Errorf("%w: finalize zip: %v", ledger.ErrIO, err)
	}
	return written, nil
}

// =============================================================================
// STATISTICS
// =============================================================================

// DateGroup summarizes the artifacts of one delivery date.
type DateGroup struct {
	Date      string
	FileCount int
	TotalSize int64
	Files     []Info // newest created first
}

// Stats is the aggregate view of the artifact directory.
type Stats struct {
	TotalFiles int
	TotalDates int
	Groups     []DateGroup // dates descending
	Unparsed   []string    // names without a recognizable date
}

// StatsByDate groups all non-backup artifacts by extracted date.
func (m *Manager) StatsByDate() (*Stats, error) {
	all, err := m.List()
	if err != nil {
		return nil, err
	}

	byDate := make(map[string][]Info)
	stats := &Stats{TotalFiles: len(all)}
	for _, info := range all {
		if info.Date == "" {
			stats.Unparsed = append(stats.Unparsed, info.Name)
			m.log.Warn("artifact name has no recognizable date", "filename", info.Name)
			continue
		}
		byDate[info.Date] = append(byDate[info.Date], info)
	}

	dates := make([]string, 0, len(byDate))
	for date := range byDate {
		dates = append(dates, date)
	}
	sort.Sort(sort.Reverse(sort.StringSlice(dates))) // ISO dates: string order is date order

	for _, date := range dates {
		files := byDate[date]
		sortByCreatedDesc(files)
		group := DateGroup{Date: date, FileCount: len(files), Files: files}
		for _, f := range files {
			group.TotalSize += f.Size
		}
		stats.Groups = append(stats.Groups, group)
	}
	stats.TotalDates = len(stats.Groups)
	return stats, nil
}
