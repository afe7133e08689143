package rest

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/dmitrijs2005/diagnexus/internal/common"
	"github.com/dmitrijs2005/diagnexus/internal/server/services"
	"github.com/go-chi/chi/v5"
)

// multipartOverhead is the allowance for form fields and part headers on top
// of the file itself.
const multipartOverhead = 1 << 20

func parseID(s string) (int64, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("%w: invalid id %q", common.ErrorInvalidInput, s)
	}
	return id, nil
}

func (h *Handler) listReports(w http.ResponseWriter, r *http.Request) {
	actor, _ := AccountFromContext(r.Context())

	var owner *int64
	if v := r.URL.Query().Get("userId"); v != "" {
		id, err := parseID(v)
		if err != nil {
			writeFail(w, http.StatusBadRequest, "Invalid userId")
			return
		}
		owner = &id
	}

	list, err := h.reports.List(r.Context(), actor, owner)
	if err != nil {
		writeError(r.Context(), w, h.logger, "list reports", err)
		return
	}

	out := make([]reportDTO, 0, len(list))
	for i := range list {
		out = append(out, toReportDTO(&list[i]))
	}
	writeOK(w, out, "")
}

func (h *Handler) uploadReport(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	actor, _ := AccountFromContext(ctx)
	maxSize := h.reports.MaxSize()
	tooLarge := fmt.Sprintf("File size too large. Maximum %dMB allowed.", maxSize>>20)

	r.Body = http.MaxBytesReader(w, r.Body, maxSize+multipartOverhead)
	if err := r.ParseMultipartForm(maxSize + multipartOverhead); err != nil {
		var mbe *http.MaxBytesError
		if errors.As(err, &mbe) {
			writeFail(w, http.StatusBadRequest, tooLarge)
			return
		}
		writeFail(w, http.StatusBadRequest, "Invalid multipart form")
		return
	}
	defer func() { _ = r.MultipartForm.RemoveAll() }()

	file, header, err := r.FormFile("file")
	if err != nil {
		writeFail(w, http.StatusBadRequest, "File and name are required")
		return
	}
	defer file.Close()

	body, err := io.ReadAll(io.LimitReader(file, maxSize+1))
	if err != nil {
		writeFail(w, http.StatusBadRequest, "Could not read uploaded file")
		return
	}
	if int64(len(body)) > maxSize {
		writeFail(w, http.StatusBadRequest, tooLarge)
		return
	}

	var owner int64
	if v := r.FormValue("userId"); v != "" {
		owner, err = parseID(v)
		if err != nil {
			writeFail(w, http.StatusBadRequest, "Invalid userId")
			return
		}
	}

	in := services.UploadInput{
		OwnerID:        owner,
		Name:           r.FormValue("name"),
		Comment:        r.FormValue("comments"),
		FileName:       header.Filename,
		ContentType:    header.Header.Get("Content-Type"),
		Body:           body,
		IdempotencyKey: r.Header.Get(common.IdempotencyKeyHeaderName),
	}

	res, err := h.reports.Upload(ctx, actor, in)
	if res != nil {
		logWarnings(ctx, h.logger, res.Warnings)
	}
	if err != nil {
		writeError(ctx, w, h.logger, "upload report", err)
		return
	}

	if in.IdempotencyKey != "" {
		result := "new"
		if res.Replayed {
			result = "replay"
		}
		UploadIdempotencyTotal.WithLabelValues(result).Inc()
	}
	if !res.Replayed {
		ReportsUploadedTotal.WithLabelValues(res.Report.ContentType).Inc()
		ReportBytesUploaded.Observe(float64(res.Report.Size))
		h.logger.Info(ctx, "report uploaded",
			"report_id", res.Report.ID, "owner_id", res.Report.OwnerID, "size", res.Report.Size)
	}

	writeOK(w, toReportDTO(res.Report), "Report uploaded successfully")
}

func (h *Handler) downloadReport(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	actor, _ := AccountFromContext(ctx)

	id, err := parseID(chi.URLParam(r, "id"))
	if err != nil {
		writeFail(w, http.StatusBadRequest, "Invalid report id")
		return
	}

	res, err := h.reports.Download(ctx, actor, id)
	if err != nil {
		writeError(ctx, w, h.logger, "download report", err)
		return
	}
	logWarnings(ctx, h.logger, res.Warnings)
	ReportsDownloadedTotal.Inc()

	hdr := w.Header()
	hdr.Set("Content-Type", res.ContentType)
	hdr.Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, res.FileName))
	hdr.Set("Content-Length", strconv.Itoa(len(res.Body)))
	hdr.Set("Cache-Control", "private, no-cache, no-store, must-revalidate")
	hdr.Set("Pragma", "no-cache")
	hdr.Set("Expires", "0")
	hdr.Set("X-Report-ID", strconv.FormatInt(res.Report.ID, 10))
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(res.Body); err != nil {
		h.logger.Warn(ctx, "write download body", "report_id", id, "error", err)
	}
}

func (h *Handler) reportLink(w http.ResponseWriter, r *http.Request) {
	actor, _ := AccountFromContext(r.Context())

	id, err := parseID(chi.URLParam(r, "id"))
	if err != nil {
		writeFail(w, http.StatusBadRequest, "Invalid report id")
		return
	}

	url, exp, err := h.reports.PresignDownload(r.Context(), actor, id)
	if err != nil {
		writeError(r.Context(), w, h.logger, "presign report", err)
		return
	}
	writeOK(w, linkDTO{URL: url, ExpiresAt: exp}, "")
}

func (h *Handler) deleteReport(w http.ResponseWriter, r *http.Request) {
	actor, _ := AccountFromContext(r.Context())

	id, err := parseID(chi.URLParam(r, "id"))
	if err != nil {
		writeFail(w, http.StatusBadRequest, "Invalid report id")
		return
	}

	if err := h.reports.Delete(r.Context(), actor, id); err != nil {
		writeError(r.Context(), w, h.logger, "delete report", err)
		return
	}
	writeOK(w, nil, "Report deleted successfully")
}
