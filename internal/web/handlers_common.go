package web

// Shared request parsing helpers.

import (
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"

	"github.com/JonMunkholm/dealership/internal/core"
	"github.com/JonMunkholm/dealership/internal/domain"
	"github.com/JonMunkholm/dealership/internal/images"
	"github.com/JonMunkholm/dealership/internal/storage"
)

// multipartMemory is the part of a multipart form kept in memory; the
// rest spills to temporary files.
const multipartMemory = 8 << 20

// page is the JSON envelope of paginated lists.
type page[T any] struct {
	Items    []T `json:"items"`
	Total    int `json:"total"`
	Page     int `json:"page"`
	PageSize int `json:"page_size"`
}

func newPage[T any](items []T, total, pageNum, pageSize int) page[T] {
	if items == nil {
		items = []T{}
	}
	if pageNum < 1 {
		pageNum = 1
	}
	return page[T]{Items: items, Total: total, Page: pageNum, PageSize: pageSize}
}

// parseIntParam parses an integer query parameter with a default value.
func parseIntParam(r *http.Request, name string, defaultVal int) int {
	val := r.URL.Query().Get(name)
	if val == "" {
		return defaultVal
	}
	i, err := strconv.Atoi(val)
	if err != nil || i < 1 {
		return defaultVal
	}
	return i
}

func parseFloatParam(r *http.Request, name string) float64 {
	f, err := strconv.ParseFloat(r.URL.Query().Get(name), 64)
	if err != nil || f < 0 {
		return 0
	}
	return f
}

func parseBool(s string) bool {
	b, _ := strconv.ParseBool(strings.TrimSpace(s))
	return b || strings.EqualFold(strings.TrimSpace(s), "on")
}

// listingFilter reads catalogue filters from the query string.
func listingFilter(r *http.Request) domain.ListingFilter {
	q := r.URL.Query()
	return domain.ListingFilter{
		Status:       domain.ListingStatus(q.Get("status")),
		SyncState:    domain.SyncState(q.Get("sync_state")),
		Brand:        strings.TrimSpace(q.Get("brand")),
		Model:        strings.TrimSpace(q.Get("model")),
		Transmission: strings.TrimSpace(q.Get("transmission")),
		Query:        strings.TrimSpace(q.Get("q")),
		MinYear:      parseIntParam(r, "min_year", 0),
		MaxYear:      parseIntParam(r, "max_year", 0),
		MinPrice:     parseFloatParam(r, "min_price"),
		MaxPrice:     parseFloatParam(r, "max_price"),
		FeaturedOnly: parseBool(q.Get("featured")),
		Page:         parseIntParam(r, "page", 1),
		PageSize:     parseIntParam(r, "page_size", 0),
	}
}

// decodeJSON reads a JSON body into v.
func decodeJSON(r *http.Request, v any) error {
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("%w: %v", errBadRequest, err)
	}
	return nil
}

func isJSONBody(r *http.Request) bool {
	return strings.HasPrefix(r.Header.Get("Content-Type"), "application/json")
}

// parseMultipart caps the body at maxBytes and parses the form. The caller
// must call cleanup once the uploaded files are no longer needed.
func parseMultipart(w http.ResponseWriter, r *http.Request, maxBytes int64) (cleanup func(), err error) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBytes)
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		return func() {}, fmt.Errorf("%w: parse form: %w", errBadRequest, err)
	}
	return func() {
		if r.MultipartForm != nil {
			r.MultipartForm.RemoveAll()
		}
	}, nil
}

// parseListingForm reads the listing fields and image edits of a multipart
// form. New files go in "images"; "primary_image" is the index of the new
// file to use as cover; "remove_images" lists stored image ids.
func parseListingForm(r *http.Request) (core.ListingInput, core.ImageChanges, error) {
	form := r.MultipartForm
	get := func(k string) string { return strings.TrimSpace(r.FormValue(k)) }

	fields := make(map[string]string)
	num := func(key string) int {
		v := get(key)
		if v == "" {
			return 0
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			fields[key] = "Must be a whole number"
		}
		return n
	}

	in := core.ListingInput{
		Title:         get("title"),
		Brand:         get("brand"),
		Model:         get("model"),
		Year:          num("year"),
		Color:         get("color"),
		Transmission:  get("transmission"),
		Mileage:       num("mileage"),
		Description:   r.FormValue("description"),
		ContactNumber: get("contact_number"),
		Features:      formList(form, "features"),
	}
	if v := get("price"); v != "" {
		price, err := strconv.ParseFloat(strings.ReplaceAll(v, ",", "."), 64)
		if err != nil {
			fields["price"] = "Must be a number"
		}
		in.Price = price
	}
	if len(fields) > 0 {
		return in, core.ImageChanges{}, &core.ValidationError{Err: domain.ErrInvalidListingData, Fields: fields}
	}

	primary := -1
	if v := get("primary_image"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			primary = n
		}
	}

	var changes core.ImageChanges
	if form != nil {
		for i, fh := range form.File["images"] {
			changes.Add = append(changes.Add, pendingFile(fh, i == primary))
		}
	}
	changes.Remove = formList(form, "remove_images")
	return in, changes, nil
}

// formList returns the values of key, accepting repeated fields and
// comma-separated lists.
func formList(form *multipart.Form, key string) []string {
	if form == nil {
		return nil
	}
	var out []string
	for _, v := range form.Value[key] {
		for _, part := range strings.Split(v, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}

func pendingFile(fh *multipart.FileHeader, primary bool) images.PendingFile {
	return images.PendingFile{
		Name:        fh.Filename,
		Size:        fh.Size,
		ContentType: fh.Header.Get("Content-Type"),
		Primary:     primary,
		Open: func() (io.ReadCloser, error) {
			return fh.Open()
		},
	}
}

// formFile opens the single file uploaded under key. ok is false when the
// field is absent.
func formFile(r *http.Request, key string) (f *storage.File, closeFn func(), ok bool, err error) {
	file, fh, err := r.FormFile(key)
	if err == http.ErrMissingFile {
		return nil, func() {}, false, nil
	}
	if err != nil {
		return nil, func() {}, false, fmt.Errorf("%w: %v", errBadRequest, err)
	}
	return &storage.File{
		Name:        fh.Filename,
		Size:        fh.Size,
		ContentType: fh.Header.Get("Content-Type"),
		Body:        file,
	}, func() { file.Close() }, true, nil
}
