package handlers

import (
	"mime"
	"net/http"
	"strconv"
	"strings"
	"taskManager/internal/logger"
	"taskManager/internal/models/task"

	"go.uber.org/zap"
)

const maxFormMemory = 1 << 20

type paramError struct {
	field   string
	message string
}

// form читает параметры из query и тела. Запоминается только первая ошибка.
type form struct {
	r   *http.Request
	err *paramError
}

func checkContentType(r *http.Request, target string) bool {
	contentType := r.Header.Get("Content-Type")
	if contentType == "" {
		return false
	}
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return false
	}
	return mediaType == target
}

func newForm(r *http.Request) *form {
	f := &form{r: r}

	var err error
	if checkContentType(r, "multipart/form-data") {
		err = r.ParseMultipartForm(maxFormMemory)
	} else {
		err = r.ParseForm()
	}
	if err != nil {
		f.fail("body", msgBadFormat)
	}
	return f
}

func (f *form) fail(field, message string) {
	if f.err == nil {
		f.err = &paramError{field: field, message: message}
	}
}

func (f *form) has(name string) bool {
	return f.r.Form != nil && f.r.Form.Has(name)
}

func (f *form) required(name string) string {
	if !f.has(name) {
		f.fail(name, msgMissingParams)
		return ""
	}
	return f.r.Form.Get(name)
}

func (f *form) optional(name string) string {
	if !f.has(name) {
		return ""
	}
	return f.r.Form.Get(name)
}

func (f *form) requiredInt64(name string) int64 {
	if !f.has(name) {
		f.fail(name, msgMissingParams)
		return 0
	}
	n, err := strconv.ParseInt(strings.TrimSpace(f.r.Form.Get(name)), 10, 64)
	if err != nil {
		f.fail(name, msgBadFormat)
		return 0
	}
	return n
}

func (f *form) requiredInt(name string) int {
	return int(f.requiredInt64(name))
}

// optionalInt возвращает 0 для отсутствующего или пустого параметра.
func (f *form) optionalInt(name string) int {
	if strings.TrimSpace(f.optional(name)) == "" {
		return 0
	}
	return f.requiredInt(name)
}

func (f *form) requiredDate(name string) task.Date {
	if !f.has(name) {
		f.fail(name, msgMissingParams)
		return task.Date{}
	}
	d, err := task.ParseDate(strings.TrimSpace(f.r.Form.Get(name)))
	if err != nil {
		f.fail(name, msgBadDate)
		return task.Date{}
	}
	return d
}

func (f *form) requiredStatus(name string) task.Status {
	n := f.requiredInt64(name)
	if f.err != nil {
		return 0
	}
	if n < int64(task.StatusIncomplete) || n > int64(task.StatusReserved) {
		f.fail(name, msgBadStatus)
		return 0
	}
	return task.Status(n)
}

// valid отвечает 400, если при разборе была ошибка.
func (f *form) valid(w http.ResponseWriter) bool {
	if f.err == nil {
		return true
	}
	logger.Warn("HTTP: Ошибка параметров запроса",
		zap.String("field", f.err.field),
		zap.String("error", f.err.message),
		zap.String("client_ip", f.r.RemoteAddr))
	responseWithError(w, http.StatusBadRequest, f.err.message)
	return false
}
