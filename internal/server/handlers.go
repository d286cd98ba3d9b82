package server

import (
	"errors"
	"net/http"
	"net/url"
	"reflect"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/goliatone/go-dialogform/pkg/adapter"
	"github.com/goliatone/go-dialogform/pkg/dialog"
	"github.com/goliatone/go-dialogform/pkg/mode"
	"github.com/goliatone/go-dialogform/pkg/navigation"
	"github.com/goliatone/go-dialogform/pkg/orchestrator"
	"github.com/goliatone/go-dialogform/pkg/render"
	"github.com/goliatone/go-dialogform/pkg/renderers/html"
	"github.com/goliatone/go-dialogform/pkg/session"
	"github.com/goliatone/go-dialogform/pkg/state"
	"github.com/goliatone/go-dialogform/pkg/validation"
)

// fieldsKey carries the names of the editable fields present in the posted
// form. Only those fields are read back, so an empty multi select still
// clears its value.
const fieldsKey = "_fields"

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	adapters := s.orch.Adapters()
	var entities []map[string]any
	for _, entityType := range adapters.List() {
		a, err := adapters.Get(entityType)
		if err != nil {
			continue
		}
		entry := map[string]any{"type": entityType, "title": a.Title()}
		if s.records != nil {
			var records []map[string]string
			for _, record := range s.records.List(entityType) {
				id, _ := record["id"].(string)
				label, _ := record["name"].(string)
				if label == "" {
					label = id
				}
				records = append(records, map[string]string{"id": id, "label": label})
			}
			entry["records"] = records
		}
		entities = append(entities, entry)
	}
	s.page(w, http.StatusOK, "templates/index", map[string]any{
		"title":      "Dialogs",
		"stylesheet": assetsPrefix + "/" + html.StylesheetName,
		"entities":   entities,
	})
}

func (s *Server) handleCreate(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	req := orchestrator.Request{
		EntityType: strings.TrimSpace(r.PostForm.Get("entityType")),
		EntityID:   strings.TrimSpace(r.PostForm.Get("entityId")),
	}
	if raw := r.PostForm.Get("mode"); raw != "" {
		m, err := mode.Parse(raw)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		req.Mode = m
	}
	s.open(w, r, req)
}

func (s *Server) handleOpenRecord(w http.ResponseWriter, r *http.Request) {
	s.open(w, r, orchestrator.Request{
		EntityType: chi.URLParam(r, "entityType"),
		EntityID:   chi.URLParam(r, "entityID"),
	})
}

func (s *Server) open(w http.ResponseWriter, r *http.Request, req orchestrator.Request) {
	sess, err := s.orch.Open(r.Context(), req)
	s.metrics.action("open", err)
	if err != nil {
		s.fail(w, err)
		return
	}
	http.Redirect(w, r, dialogPath(sess.ID()), http.StatusSeeOther)
}

func (s *Server) handleRender(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	s.render(w, r, sess, http.StatusOK)
}

func (s *Server) handleSubmit(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	active := sess.Active()
	inputErrs := s.applyInputs(active, r.PostForm)
	if len(inputErrs) > 0 {
		s.metrics.action("submit", errors.New("invalid input"))
		s.render(w, r, sess, http.StatusUnprocessableEntity, inputErrs...)
		return
	}

	err := active.Submit(r.Context())
	s.metrics.action("submit", err)
	switch {
	case err == nil:
		s.logger.Info("record saved",
			zap.String("session", sess.ID()),
			zap.String("entity_type", active.EntityType()),
			zap.String("entity_id", active.EntityID()),
		)
		http.Redirect(w, r, dialogPath(sess.ID()), http.StatusSeeOther)
	case errors.Is(err, validation.ErrInvalid), errors.Is(err, state.ErrSubmitInProgress):
		s.render(w, r, sess, http.StatusUnprocessableEntity)
	case errors.Is(err, state.ErrReadOnly):
		s.render(w, r, sess, http.StatusConflict)
	default:
		// Persistence failures are kept on the dialog and shown as form
		// errors; the edits stay in place for another attempt.
		s.logger.Warn("submit failed", zap.String("session", sess.ID()), zap.Error(err))
		s.render(w, r, sess, http.StatusUnprocessableEntity)
	}
}

func (s *Server) handleEdit(w http.ResponseWriter, r *http.Request) {
	s.transition(w, r, "edit", func(d *dialog.Dialog) error { return d.StartEditing() })
}

func (s *Server) handleCancel(w http.ResponseWriter, r *http.Request) {
	s.transition(w, r, "cancel", func(d *dialog.Dialog) error { return d.StopEditing() })
}

func (s *Server) transition(w http.ResponseWriter, r *http.Request, name string, fn func(*dialog.Dialog) error) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	err := fn(sess.Active())
	s.metrics.action(name, err)
	if err != nil {
		s.render(w, r, sess, http.StatusConflict, err.Error())
		return
	}
	http.Redirect(w, r, dialogPath(sess.ID()), http.StatusSeeOther)
}

// handleClose closes the innermost nested dialog, or the whole session when
// only the root is left.
func (s *Server) handleClose(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	if sess.Depth() > 0 {
		err := sess.CloseTop()
		s.metrics.action("close", err)
		if err != nil {
			s.fail(w, err)
			return
		}
		http.Redirect(w, r, dialogPath(sess.ID()), http.StatusSeeOther)
		return
	}
	err := s.orch.CloseSession(sess.ID())
	s.metrics.action("close", err)
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// handleDelete asks for confirmation first. The record is deleted only when
// the confirmation form is posted back.
func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	active := sess.Active()
	if !active.CanDelete() {
		s.metrics.action("delete", dialog.ErrDeleteNotAllowed)
		s.render(w, r, sess, http.StatusForbidden, "This record cannot be deleted.")
		return
	}
	if r.PostForm.Get("confirm") != "yes" {
		s.page(w, http.StatusOK, "templates/confirm", map[string]any{
			"title":      sess.View().Title,
			"action":     dialogPath(sess.ID()),
			"stylesheet": assetsPrefix + "/" + html.StylesheetName,
		})
		return
	}

	entityType, entityID := active.EntityType(), active.EntityID()
	err := sess.Delete(dialog.Confirmed(r.Context()))
	s.metrics.action("delete", err)
	if err != nil {
		s.logger.Warn("delete failed", zap.String("session", sess.ID()), zap.Error(err))
		s.render(w, r, sess, http.StatusUnprocessableEntity, err.Error())
		return
	}
	s.logger.Info("record deleted",
		zap.String("session", sess.ID()),
		zap.String("entity_type", entityType),
		zap.String("entity_id", entityID),
	)
	if sess.Closed() {
		_ = s.orch.CloseSession(sess.ID())
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}
	http.Redirect(w, r, dialogPath(sess.ID()), http.StatusSeeOther)
}

// handleToken keeps the pending edits of the active dialog and opens the
// record behind the token on top of it.
func (s *Server) handleToken(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	if inputErrs := s.applyInputs(sess.Active(), r.PostForm); len(inputErrs) > 0 {
		s.render(w, r, sess, http.StatusUnprocessableEntity, inputErrs...)
		return
	}

	_, err := sess.OpenToken(r.Context(), chi.URLParam(r, "field"), chi.URLParam(r, "token"))
	s.metrics.action("navigate", err)
	switch {
	case err == nil, errors.Is(err, navigation.ErrAlreadyOpen):
		http.Redirect(w, r, dialogPath(sess.ID()), http.StatusSeeOther)
	case errors.Is(err, dialog.ErrNotNavigable), errors.Is(err, state.ErrUnknownField):
		s.render(w, r, sess, http.StatusBadRequest, err.Error())
	case errors.Is(err, session.ErrRecordNotFound):
		s.render(w, r, sess, http.StatusNotFound, "The linked record no longer exists.")
	default:
		s.render(w, r, sess, http.StatusUnprocessableEntity, err.Error())
	}
}

// applyInputs stores the posted values of the fields listed under fieldsKey
// and returns the inputs that could not be read. Forms posted against a
// read-only dialog, e.g. a stale page, are ignored.
func (s *Server) applyInputs(d *dialog.Dialog, form url.Values) []string {
	if !d.Mode().CanMutate() {
		return nil
	}
	var problems []string
	seen := make(map[string]struct{})
	for _, name := range form[fieldsKey] {
		if _, dup := seen[name]; dup {
			continue
		}
		seen[name] = struct{}{}
		before := d.Snapshot().Values[name]
		if err := d.SetInput(name, form[name]...); err != nil {
			if errors.Is(err, state.ErrFieldLocked) || errors.Is(err, state.ErrReadOnly) {
				continue
			}
			problems = append(problems, err.Error())
			continue
		}
		// A posted change is the form's blur: its messages show from now on.
		if !reflect.DeepEqual(before, d.Snapshot().Values[name]) {
			if err := d.Touch(name); err != nil {
				problems = append(problems, err.Error())
			}
		}
	}
	return problems
}

func (s *Server) session(w http.ResponseWriter, r *http.Request) (*session.Session, bool) {
	if r.Method == http.MethodPost {
		if err := r.ParseForm(); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return nil, false
		}
	}
	sess, err := s.orch.Session(chi.URLParam(r, "session"))
	if err != nil {
		s.fail(w, err)
		return nil, false
	}
	return sess, true
}

// render loads the option lists of the active dialog before rendering, as
// the HTML dialog has no other way to fetch them.
func (s *Server) render(w http.ResponseWriter, r *http.Request, sess *session.Session, status int, formErrors ...string) {
	active := sess.Active()
	active.LoadAllOptions()
	active.WaitOptions()

	query := r.URL.Query()
	req := orchestrator.Request{
		Renderer:     query.Get("renderer"),
		ThemeName:    firstNonEmpty(query.Get("theme"), s.themeName),
		ThemeVariant: firstNonEmpty(query.Get("variant"), s.themeVariant),
		RenderOptions: render.RenderOptions{
			ActionPrefix: dialogPath(sess.ID()),
			Standalone:   true,
		},
		FormErrors: formErrors,
	}
	out, err := s.orch.Render(r.Context(), sess, req)
	if err != nil {
		s.fail(w, err)
		return
	}
	w.Header().Set("Content-Type", out.ContentType)
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	_, _ = w.Write(out.Body)
}

func (s *Server) page(w http.ResponseWriter, status int, name string, data map[string]any) {
	body, err := s.pages.RenderTemplate(name, data)
	if err != nil {
		s.fail(w, err)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write([]byte(body))
}

func (s *Server) fail(w http.ResponseWriter, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		s.logger.Error("request failed", zap.Error(err))
	}
	http.Error(w, err.Error(), status)
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, orchestrator.ErrSessionNotFound),
		errors.Is(err, session.ErrClosed),
		errors.Is(err, session.ErrRecordNotFound),
		errors.Is(err, adapter.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, mode.ErrInvalidTransition):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func dialogPath(id string) string {
	return "/dialogs/" + url.PathEscape(id)
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
