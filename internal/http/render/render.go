// Package render holds the request decoding and response writing shared by
// the HTTP handlers.
package render

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/MrJamesThe3rd/fisly/internal/analytics"
	"github.com/MrJamesThe3rd/fisly/internal/merchant"
	"github.com/MrJamesThe3rd/fisly/internal/pagination"
	"github.com/MrJamesThe3rd/fisly/internal/product"
	"github.com/MrJamesThe3rd/fisly/internal/receipt"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

func JSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

// Error writes err with the status code of its kind. Errors of unknown kind
// are logged and hidden from the client.
func Error(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, receipt.ErrNotFound),
		errors.Is(err, merchant.ErrNotFound),
		errors.Is(err, product.ErrNotFound):
		http.Error(w, err.Error(), http.StatusNotFound)
	case errors.Is(err, receipt.ErrInvalidInput),
		errors.Is(err, merchant.ErrInvalidInput),
		errors.Is(err, product.ErrInvalidInput),
		errors.Is(err, analytics.ErrInvalidInput):
		http.Error(w, err.Error(), http.StatusBadRequest)
	default:
		slog.Error("request failed", "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
	}
}

// Decode reads a JSON body into v and validates its `validate` tags.
func Decode(r *http.Request, v any) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return fmt.Errorf("invalid request body: %w", err)
	}

	if err := validate.Struct(v); err != nil {
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			return err
		}

		msgs := make([]string, 0, len(verrs))
		for _, fe := range verrs {
			msgs = append(msgs, fmt.Sprintf("%s failed %s", fe.Field(), fe.Tag()))
		}

		return errors.New(strings.Join(msgs, "; "))
	}

	return nil
}

// ID parses the {id} URL parameter.
func ID(r *http.Request) (uuid.UUID, error) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		return uuid.Nil, errors.New("invalid id")
	}

	return id, nil
}

// UUIDQuery parses an optional UUID query parameter.
func UUIDQuery(r *http.Request, name string) (*uuid.UUID, error) {
	s := r.URL.Query().Get(name)
	if s == "" {
		return nil, nil
	}

	id, err := uuid.Parse(s)
	if err != nil {
		return nil, fmt.Errorf("invalid %s", name)
	}

	return &id, nil
}

// DateQuery parses an optional YYYY-MM-DD query parameter in loc.
func DateQuery(r *http.Request, name string, loc *time.Location) (*time.Time, error) {
	s := r.URL.Query().Get(name)
	if s == "" {
		return nil, nil
	}

	t, err := time.ParseInLocation(time.DateOnly, s, loc)
	if err != nil {
		return nil, fmt.Errorf("invalid %s, expected YYYY-MM-DD", name)
	}

	return &t, nil
}

// EndDateQuery is DateQuery for inclusive upper bounds: it returns the last
// instant of the given day so that anything dated during that day is kept.
func EndDateQuery(r *http.Request, name string, loc *time.Location) (*time.Time, error) {
	t, err := DateQuery(r, name, loc)
	if t == nil || err != nil {
		return t, err
	}

	end := t.AddDate(0, 0, 1).Add(-time.Nanosecond)

	return &end, nil
}

// Page reads the page and page_size query parameters. Missing or malformed
// values fall back to the defaults.
func Page(r *http.Request) pagination.Params {
	var p pagination.Params

	if n, err := strconv.Atoi(r.URL.Query().Get("page")); err == nil {
		p.Page = n
	}

	if n, err := strconv.Atoi(r.URL.Query().Get("page_size")); err == nil {
		p.PageSize = n
	}

	return p.Normalize()
}

// PageResponse is the JSON shape of a paged listing.
type PageResponse[T any] struct {
	Data     []T `json:"data"`
	Total    int `json:"total"`
	Page     int `json:"page"`
	PageSize int `json:"page_size"`
	Pages    int `json:"pages"`
}

func NewPage[S, T any](res *pagination.Result[S], conv func(S) T) PageResponse[T] {
	data := make([]T, 0, len(res.Data))
	for _, v := range res.Data {
		data = append(data, conv(v))
	}

	return PageResponse[T]{
		Data:     data,
		Total:    res.Total,
		Page:     res.Page,
		PageSize: res.PageSize,
		Pages:    res.Pages,
	}
}
