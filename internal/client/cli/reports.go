package cli

import (
	"context"
	"fmt"
	"mime"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/dmitrijs2005/diagnexus/internal/client/api"
	"github.com/dmitrijs2005/diagnexus/internal/client/models"
	"github.com/dmitrijs2005/diagnexus/internal/common"
	"github.com/dmitrijs2005/diagnexus/internal/filex"
	"github.com/dmitrijs2005/diagnexus/internal/netx"
)

// downloadFromURL is a seam for netx.DownloadFromPresignedURL.
var downloadFromURL = netx.DownloadFromPresignedURL

// ListReports prints reports visible to the user. Staff may pass an owner id.
func (a *App) ListReports(ctx context.Context, args []string) error {
	var owner int64
	if len(args) > 0 {
		id, err := a.idFromArgs(args, "")
		if err != nil {
			return err
		}
		owner = id
	}

	reports, err := a.api.ListReports(ctx, owner)
	if err != nil {
		return err
	}
	if len(reports) == 0 {
		fmt.Fprintln(a.out, "No reports")
		return nil
	}

	tw := tabwriter.NewWriter(a.out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tPATIENT\tTYPE\tSIZE\tUPDATED BY\tUPDATED")
	for _, r := range reports {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%d\t%s\t%s\n",
			r.ReportID, r.Name, r.PatientName, r.FileType, r.FileSize,
			r.UpdatedByName, r.UpdatedDate.Local().Format(time.DateTime))
	}
	return tw.Flush()
}

// detectContentType picks a MIME type from the extension, falling back to
// sniffing the content.
func detectContentType(name string, data []byte) string {
	ct := mime.TypeByExtension(strings.ToLower(filepath.Ext(name)))
	if ct == "" {
		ct = http.DetectContentType(data)
	}
	if mt, _, err := mime.ParseMediaType(ct); err == nil {
		return mt
	}
	return ct
}

// Upload reads a local file and sends it as a new report.
func (a *App) Upload(ctx context.Context) error {
	p, err := getSimpleText(a.reader, "Path to file (PDF, JPEG or PNG)", a.out)
	if err != nil {
		return err
	}

	fi, err := os.Stat(p)
	if err != nil {
		return err
	}
	if fi.Size() == 0 {
		return fmt.Errorf("%w: file is empty", common.ErrorInvalidInput)
	}
	if fi.Size() > common.MaxReportSize {
		return fmt.Errorf("%w: file exceeds %d bytes", common.ErrorInvalidInput, common.MaxReportSize)
	}
	data, err := os.ReadFile(p)
	if err != nil {
		return err
	}

	base := filepath.Base(p)
	defName := strings.TrimSuffix(base, filepath.Ext(base))
	name, err := getSimpleText(a.reader, fmt.Sprintf("Report name [%s]", defName), a.out)
	if err != nil {
		return err
	}
	if name == "" {
		name = defName
	}

	comments, err := GetMultiline(a.reader, "Comments (optional)", a.out)
	if err != nil {
		return err
	}

	var owner int64
	if s := a.currentSession(); s != nil && s.IsStaff() {
		raw, err := getSimpleText(a.reader, "Patient user id (empty for yourself)", a.out)
		if err != nil {
			return err
		}
		if raw != "" {
			if owner, err = a.idFromArgs([]string{raw}, ""); err != nil {
				return err
			}
		}
	}

	key, err := common.MakeRandHexString(16)
	if err != nil {
		return err
	}

	r, err := a.api.UploadReport(ctx, api.UploadRequest{
		OwnerID:        owner,
		Name:           name,
		Comments:       comments,
		FileName:       base,
		ContentType:    detectContentType(base, data),
		Body:           data,
		IdempotencyKey: key,
	})
	if err != nil {
		return err
	}

	fmt.Fprintf(a.out, "Report %d uploaded (%d bytes)\n", r.ReportID, r.FileSize)
	return nil
}

// save writes data under the download directory and records it in history.
func (a *App) save(ctx context.Context, reportID int64, name string, data []byte) error {
	dir, err := filex.EnsureSubDir(a.config.DownloadDir)
	if err != nil {
		return err
	}
	p, err := filex.SaveFile(dir, name, data)
	if err != nil {
		return err
	}

	if _, err := a.history.Record(ctx, models.HistoryItem{
		ReportID:     reportID,
		Name:         filepath.Base(p),
		LocalPath:    p,
		Size:         int64(len(data)),
		DownloadedAt: time.Now(),
	}); err != nil {
		a.logger.Warn(ctx, "failed to record download", "report_id", reportID, "error", err)
	}

	fmt.Fprintf(a.out, "Saved %s (%d bytes)\n", p, len(data))
	return nil
}

// Download fetches a report through the API and saves it locally.
func (a *App) Download(ctx context.Context, args []string) error {
	id, err := a.idFromArgs(args, "Enter report id to download")
	if err != nil {
		return err
	}

	d, err := a.api.DownloadReport(ctx, id)
	if err != nil {
		return err
	}
	return a.save(ctx, id, d.FileName, d.Body)
}

// Fetch downloads a report directly from object storage via a presigned link.
func (a *App) Fetch(ctx context.Context, args []string) error {
	id, err := a.idFromArgs(args, "Enter report id to fetch")
	if err != nil {
		return err
	}

	link, err := a.api.ReportLink(ctx, id)
	if err != nil {
		return err
	}

	data, err := downloadFromURL(ctx, link.URL, common.MaxReportSize)
	if err != nil {
		return err
	}

	name := "report_" + strconv.FormatInt(id, 10)
	if u, err := url.Parse(link.URL); err == nil {
		if b := path.Base(u.Path); b != "" && b != "." && b != "/" {
			name = b
		}
	}
	return a.save(ctx, id, name, data)
}

// DeleteReport deactivates a report. Admin only.
func (a *App) DeleteReport(ctx context.Context, args []string) error {
	id, err := a.idFromArgs(args, "Enter report id to delete")
	if err != nil {
		return err
	}
	if err := a.api.DeleteReport(ctx, id); err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Report %d deleted\n", id)
	return nil
}

// Objects lists raw objects in the report bucket. Admin only.
func (a *App) Objects(ctx context.Context, args []string) error {
	prefix := ""
	if len(args) > 0 {
		prefix = args[0]
	}
	l, err := a.api.ListObjects(ctx, prefix)
	if err != nil {
		return err
	}

	fmt.Fprintf(a.out, "Bucket %s, prefix %s: %d object(s)\n", l.Bucket, l.Prefix, l.Count)
	tw := tabwriter.NewWriter(a.out, 0, 0, 2, ' ', 0)
	for _, o := range l.Objects {
		fmt.Fprintf(tw, "%s\t%d\t%s\n", o.Key, o.Size, o.LastModified.Local().Format(time.DateTime))
	}
	return tw.Flush()
}

// History prints the most recent local downloads.
func (a *App) History(ctx context.Context) error {
	items, err := a.history.List(ctx, 20)
	if err != nil {
		return err
	}
	if len(items) == 0 {
		fmt.Fprintln(a.out, "No downloads yet")
		return nil
	}

	tw := tabwriter.NewWriter(a.out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "REPORT\tFILE\tSIZE\tWHEN")
	for _, it := range items {
		fmt.Fprintf(tw, "%d\t%s\t%d\t%s\n", it.ReportID, it.LocalPath, it.Size,
			it.DownloadedAt.Local().Format(time.DateTime))
	}
	return tw.Flush()
}
