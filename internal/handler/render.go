package handler

// RESPONSE HELPERS:
// Every page goes through render, every failure through fail. render executes
// the template into a buffer first, so a template error can still become a
// clean 500 instead of half a page.

import (
	"bytes"
	"fmt"
	"html/template"
	"io/fs"
	"log/slog"
	"net/http"
)

// Fixed texts shown to the browser. Store failures never leak details.
const (
	msgLoadPage        = "Error loading page."
	msgAddCountry      = "Error adding country."
	msgDeleteCountry   = "Error deleting country."
	msgUpdateUser      = "Error updating user."
	msgCountryNotFound = "Country not found. Please check your spelling."
	msgNoCurrentUser   = "Please select a family member first."
	msgInvalidUser     = "Invalid name or color."
	msgDuplicateUser   = "User name already exists."
	msgCreateUser      = "Error creating user."
)

// pages holds one parsed template set per page. Each set is base.html plus
// the page file, so every page can define its own "content" block.
type pages map[string]*template.Template

// parsePages parses base.html together with each named page from fsys.
func parsePages(fsys fs.FS, names ...string) (pages, error) {
	p := make(pages, len(names))
	for _, name := range names {
		tmpl, err := template.ParseFS(fsys, "base.html", name+".html")
		if err != nil {
			return nil, fmt.Errorf("parsing %s template: %w", name, err)
		}
		p[name] = tmpl
	}
	return p, nil
}

// render writes page with status. On a template error it logs and sends a
// plain 500 instead.
func (h *TrackerHandler) render(w http.ResponseWriter, status int, page string, data any) {
	tmpl, ok := h.pages[page]
	if !ok {
		h.logger.Error("unknown page", slog.String("page", page))
		http.Error(w, msgLoadPage, http.StatusInternalServerError)
		return
	}

	var buf bytes.Buffer
	if err := tmpl.ExecuteTemplate(&buf, "base", data); err != nil {
		h.logger.Error("failed to render template",
			slog.String("page", page),
			slog.String("error", err.Error()),
		)
		http.Error(w, msgLoadPage, http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if _, err := buf.WriteTo(w); err != nil {
		h.logger.Warn("failed to write page", slog.String("error", err.Error()))
	}
}

// fail logs err and answers with a plain-text 500 carrying only msg.
func (h *TrackerHandler) fail(w http.ResponseWriter, r *http.Request, msg string, err error) {
	h.logger.Error(msg,
		slog.String("method", r.Method),
		slog.String("path", r.URL.Path),
		slog.String("error", err.Error()),
	)
	http.Error(w, msg, http.StatusInternalServerError)
}

// redirect sends the browser to path with 303 See Other, so a reload after
// a form post does not resubmit it.
func redirect(w http.ResponseWriter, r *http.Request, path string) {
	http.Redirect(w, r, path, http.StatusSeeOther)
}
