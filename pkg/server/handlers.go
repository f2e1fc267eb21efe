package server

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/matzehuels/bbflame/pkg/cache"
	"github.com/matzehuels/bbflame/pkg/errors"
	"github.com/matzehuels/bbflame/pkg/render/sink"
	"github.com/matzehuels/bbflame/pkg/session"
	"github.com/matzehuels/bbflame/pkg/viewport"
)

var contentTypes = map[string]string{
	"svg":  "image/svg+xml",
	"png":  "image/png",
	"json": "application/json",
}

type errorResponse struct {
	Error string      `json:"error"`
	Code  errors.Code `json:"code,omitempty"`
}

func (s *Server) handleRoots(w http.ResponseWriter, r *http.Request) {
	roots, err := s.runner.Roots(r.Context(), s.cfg.Source)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, r, http.StatusOK, roots)
}

func (s *Server) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	root, err := intParam(r, "root", 0)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	width, err := intParam(r, "width", s.cfg.DefaultWidth)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if err := errors.ValidateWindow(0, width); err != nil {
		s.writeError(w, r, err)
		return
	}

	opts := []viewport.Option{
		viewport.WithHostNames(s.cfg.Labels),
		viewport.WithStep(s.cfg.Step),
		viewport.WithWidth(width),
	}
	if s.cfg.Seed != 0 {
		opts = append(opts, viewport.WithSeed(s.cfg.Seed))
	}
	ctrl := viewport.New(s.cfg.Source, opts...)
	if _, err := ctrl.SelectRoot(int(root)); err != nil {
		s.writeError(w, r, err)
		return
	}

	sess, err := session.New(ctrl, s.cfg.SessionTTL)
	if err != nil {
		s.writeError(w, r, errors.Wrap(errors.ErrCodeInternal, err, "create session"))
		return
	}
	if err := s.cfg.Store.Set(r.Context(), sess); err != nil {
		s.writeError(w, r, errors.Wrap(errors.ErrCodeInternal, err, "store session"))
		return
	}
	s.cfg.Logger.Debug("session created", "id", sess.ID, "root", root, "width", width)
	s.writeJSON(w, r, http.StatusCreated, sess.Info())
}

func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	sess, err := s.session(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, r, http.StatusOK, sess.Info())
}

func (s *Server) handleDeleteSession(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := errors.ValidateSessionID(id); err != nil {
		s.writeError(w, r, err)
		return
	}
	if err := s.cfg.Store.Delete(r.Context(), id); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleSelectRoot(w http.ResponseWriter, r *http.Request) {
	sess, err := s.session(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	index, err := strconv.Atoi(chi.URLParam(r, "index"))
	if err != nil {
		s.writeError(w, r, errors.New(errors.ErrCodeInvalidInput, "root index %q is not a number", chi.URLParam(r, "index")))
		return
	}
	err = sess.Do(func(c *viewport.Controller) error {
		_, err := c.SelectRoot(index)
		return err
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, r, http.StatusOK, sess.Info())
}

func (s *Server) handleScroll(w http.ResponseWriter, r *http.Request) {
	sess, err := s.session(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	var move func(*viewport.Controller) (viewport.Frame, error)
	switch step := r.URL.Query().Get("step"); step {
	case "left":
		move = (*viewport.Controller).StepLeft
	case "right":
		move = (*viewport.Controller).StepRight
	case "":
		delta, err := intParam(r, "delta", 0)
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		move = func(c *viewport.Controller) (viewport.Frame, error) { return c.ScrollBy(delta) }
	default:
		s.writeError(w, r, errors.New(errors.ErrCodeInvalidInput, "step must be left or right, got %q", step))
		return
	}

	err = sess.Do(func(c *viewport.Controller) error {
		_, err := move(c)
		return err
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, r, http.StatusOK, sess.Info())
}

func (s *Server) handleFrame(w http.ResponseWriter, r *http.Request) {
	sess, err := s.session(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	format := chi.URLParam(r, "format")
	if err := errors.ValidateFormat(format, "svg", "png", "json"); err != nil {
		s.writeError(w, r, err)
		return
	}

	var (
		data []byte
		hit  bool
	)
	err = sess.Do(func(c *viewport.Controller) error {
		width, err := intParam(r, "width", c.Width())
		if err != nil {
			return err
		}
		keyer := cache.NewScopedKeyer(nil, "session:"+sess.ID+":")
		key := keyer.FrameKey(s.cfg.Source.Digest(), cache.FrameKeyOpts{
			Root:       c.Active(),
			Offset:     c.Offset(),
			Width:      width,
			Format:     format,
			Cell:       s.cfg.Geometry.CellWidth,
			Row:        s.cfg.Geometry.RowHeight,
			Generation: c.Generation(),
		})

		// Colors never change within one root selection, so a frame cached
		// for the current window and generation is still exact.
		if width == c.Width() {
			if cached, ok, err := s.cfg.Cache.Get(r.Context(), key); err == nil && ok {
				data, hit = cached, true
				return nil
			}
		}

		frame, err := c.Redraw(width)
		if err != nil {
			return err
		}
		data, err = s.renderFrame(c, frame, format)
		if err != nil {
			return err
		}
		if err := s.cfg.Cache.Set(r.Context(), key, data, cache.TTLFrame); err != nil {
			s.cfg.Logger.Warn("frame cache write failed", "error", err)
		}
		return nil
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", contentTypes[format])
	if hit {
		w.Header().Set("X-Cache", "hit")
	} else {
		w.Header().Set("X-Cache", "miss")
	}
	_, _ = w.Write(data)
}

func (s *Server) renderFrame(c *viewport.Controller, f viewport.Frame, format string) ([]byte, error) {
	switch format {
	case "svg":
		return sink.RenderSVG(f,
			sink.WithGeometry(s.cfg.Geometry),
			sink.WithInteraction(),
			sink.WithTitle(viewport.RootLabel(f.RootIndex, c.Roots()[f.RootIndex])),
		), nil
	case "png":
		return sink.RenderPNG(f, sink.WithPNGGeometry(s.cfg.Geometry))
	default:
		return sink.RenderJSON(f,
			sink.WithJSONGeometry(s.cfg.Geometry),
			sink.WithJSONStats(),
			sink.WithJSONRoots(c.RootLabels()),
		)
	}
}

func (s *Server) session(r *http.Request) (*session.Session, error) {
	return s.cfg.Store.Get(r.Context(), chi.URLParam(r, "id"))
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		s.cfg.Logger.Error("request failed", "path", r.URL.Path, "error", err)
	}
	s.writeJSON(w, r, status, errorResponse{
		Error: errors.UserMessage(err),
		Code:  errors.GetCode(err),
	})
}

// statusFor maps error codes to HTTP status codes.
func statusFor(err error) int {
	switch errors.GetCode(err) {
	case errors.ErrCodeInvalidInput,
		errors.ErrCodeInvalidFormat,
		errors.ErrCodeInvalidWindow,
		errors.ErrCodeInvalidAddress:
		return http.StatusBadRequest
	case errors.ErrCodeNoTraceData,
		errors.ErrCodeSessionNotFound,
		errors.ErrCodeFileNotFound:
		return http.StatusNotFound
	case errors.ErrCodeUnsupported:
		return http.StatusNotImplemented
	default:
		return http.StatusInternalServerError
	}
}

func intParam(r *http.Request, name string, def int64) (int64, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def, nil
	}
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, errors.New(errors.ErrCodeInvalidInput, "%s must be an integer, got %q", name, raw)
	}
	return v, nil
}

func (s *Server) writeJSON(w http.ResponseWriter, r *http.Request, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.cfg.Logger.Warn("encode response", "path", r.URL.Path, "error", err)
	}
}
