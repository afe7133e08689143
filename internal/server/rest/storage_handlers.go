package rest

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/dmitrijs2005/diagnexus/internal/common"
	"github.com/dmitrijs2005/diagnexus/internal/server/services"
)

type objectDTO struct {
	Key          string    `json:"Key"`
	Size         int64     `json:"Size"`
	LastModified time.Time `json:"LastModified"`
}

type objectsDTO struct {
	Bucket  string      `json:"bucket"`
	Prefix  string      `json:"prefix"`
	Count   int         `json:"count"`
	Objects []objectDTO `json:"objects"`
}

// listObjects shows what the object store holds under ?prefix=, which
// defaults to the report folder.
func (h *Handler) listObjects(w http.ResponseWriter, r *http.Request) {
	if h.objects == nil {
		writeFail(w, http.StatusServiceUnavailable, "storage is not configured")
		return
	}

	prefix := strings.TrimSpace(r.URL.Query().Get("prefix"))
	if prefix == "" {
		prefix = services.StorageKeyPrefix + "/"
	}
	if strings.Contains(prefix, "..") {
		writeError(r.Context(), w, h.logger, "list objects", fmt.Errorf("%w: prefix must not contain ..", common.ErrorInvalidInput))
		return
	}

	objs, err := h.objects.List(r.Context(), prefix)
	if err != nil {
		writeError(r.Context(), w, h.logger, "list objects", err)
		return
	}

	out := objectsDTO{Bucket: h.objects.Bucket(), Prefix: prefix, Count: len(objs), Objects: make([]objectDTO, 0, len(objs))}
	for _, o := range objs {
		out.Objects = append(out.Objects, objectDTO{Key: o.Key, Size: o.Size, LastModified: o.LastModified.UTC()})
	}
	writeOK(w, out, "")
}
