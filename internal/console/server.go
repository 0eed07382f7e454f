// Package console is the terminal's local API for the presentation layer:
// read-only snapshots, one endpoint per operation, and a websocket that
// carries key events in and notices, settlements and cart updates out.
//
// It listens on loopback only and has no authentication of its own; the
// terminal authenticates to the data service.
package console

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"reflect"
	"strings"
	"unicode/utf8"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-playground/validator/v10"
	"github.com/kiwari-pos/tablepos/internal/apperr"
	"github.com/kiwari-pos/tablepos/internal/logger"
	mw "github.com/kiwari-pos/tablepos/internal/middleware"
	"github.com/kiwari-pos/tablepos/internal/scan"
	"github.com/kiwari-pos/tablepos/internal/terminal"
	"github.com/kiwari-pos/tablepos/internal/ws"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Options configures a Server. Logger and Gatherer may be nil.
type Options struct {
	Session  *terminal.Session
	Hub      *ws.Hub
	Scan     scan.Options
	Logger   *logger.Logger
	Gatherer prometheus.Gatherer
}

// Server serves one terminal session.
type Server struct {
	session  *terminal.Session
	hub      *ws.Hub
	scanner  *scan.Disambiguator
	log      *logger.Logger
	gatherer prometheus.Gatherer
}

// New creates a Server and its scanner. Completed scans are added to the
// active table's cart. Call Close to stop the scanner.
func New(opts Options) *Server {
	log := opts.Logger
	if log == nil {
		log = logger.Nop()
	}
	s := &Server{
		session:  opts.Session,
		hub:      opts.Hub,
		log:      log,
		gatherer: opts.Gatherer,
	}
	scanOpts := opts.Scan
	scanOpts.Dispatch = s.dispatchScan
	s.scanner = scan.New(scanOpts)
	return s
}

// Close stops the scanner. Buffered keys are dropped.
func (s *Server) Close() {
	s.scanner.Stop()
}

// Routes builds the local API.
func (s *Server) Routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(mw.RequestLogger(s.log))
	r.Use(middleware.Recoverer)

	r.Get("/ws", s.serveWS)
	r.Method(http.MethodGet, "/metrics", s.metricsHandler())

	r.Get("/state", s.State)
	r.Post("/customer", s.SelectCustomer)
	r.Post("/scan", s.Scan)

	r.Route("/shift", func(r chi.Router) {
		r.Get("/", s.Shift)
		r.Post("/open", s.OpenShift)
		r.Get("/summary", s.ShiftSummary)
		r.Post("/close", s.CloseShift)
	})

	r.Route("/tables", func(r chi.Router) {
		r.Get("/", s.Tables)
		r.Post("/refresh", s.RefreshTables)
		r.Route("/{name}", func(r chi.Router) {
			r.Post("/enter", s.EnterTable)
			r.Put("/status", s.SetTableStatus)
			r.Post("/release", s.Release)
		})
	})
	r.Post("/transfer", s.Transfer)

	r.Route("/cart", func(r chi.Router) {
		r.Get("/", s.Cart)
		r.Delete("/", s.ClearCart)
		r.Post("/items", s.AddItem)
		r.Post("/fire", s.Fire)
		r.Post("/load", s.Load)
		r.Route("/lines/{index}", func(r chi.Router) {
			r.Post("/qty", s.ChangeQuantity)
			r.Put("/note", s.SetNote)
			r.Put("/discount", s.SetDiscount)
		})
	})

	r.Post("/checkout", s.Checkout)
	r.Route("/invoices", func(r chi.Router) {
		r.Get("/", s.RecentInvoices)
		r.Get("/last", s.LastInvoice)
		r.Get("/{id}", s.Invoice)
	})
	return r
}

func (s *Server) metricsHandler() http.Handler {
	if s.gatherer == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{})
}

// --- Scanner and websocket ---

// keyMessage is one keystroke from the presentation layer. Named keys such
// as "Shift" or "Enter" are ignored.
type keyMessage struct {
	Key         string `json:"key"`
	InTextInput bool   `json:"in_text_input"`
}

func (s *Server) serveWS(w http.ResponseWriter, r *http.Request) {
	ws.Attach(s.hub, Room, w, r, s.onMessage)
}

func (s *Server) onMessage(ctx context.Context, msg []byte) {
	var km keyMessage
	if err := json.Unmarshal(msg, &km); err != nil {
		s.log.Debug(s.log.WithField(ctx, "error", err.Error()), "ignoring malformed key message")
		return
	}
	s.feedKey(km)
}

// feedKey passes a single-character key to the scanner.
func (s *Server) feedKey(km keyMessage) {
	if utf8.RuneCountInString(km.Key) != 1 {
		return
	}
	ch, _ := utf8.DecodeRuneInString(km.Key)
	s.scanner.Feed(scan.KeyEvent{Char: ch, InTextInput: km.InTextInput})
}

func (s *Server) dispatchScan(code string) {
	ctx := s.log.WithField(context.Background(), "source", "scanner")
	if err := s.session.HandleScan(ctx, code); err != nil {
		return
	}
	s.publishCart(ctx)
}

func (s *Server) publishCart(ctx context.Context) {
	if s.hub == nil {
		return
	}
	s.hub.Publish(ctx, Room, ws.EventCart, s.session.Cart())
}

// --- Helpers ---

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		tag := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if tag == "" {
			return f.Name
		}
		return tag
	})
	return v
}

func decodeJSON(r *http.Request, dest any) error {
	defer func() {
		_, _ = io.Copy(io.Discard, r.Body)
	}()
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(dest); err != nil {
		return apperr.Wrap(apperr.CodeValidation, err, "invalid request body")
	}
	if err := validate.Struct(dest); err != nil {
		var errs validator.ValidationErrors
		if errors.As(err, &errs) && len(errs) > 0 {
			return apperr.New(apperr.CodeValidation, errs[0].Field()+" is invalid")
		}
		return apperr.Wrap(apperr.CodeValidation, err, "validation failed")
	}
	return nil
}

type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

func (s *Server) writeError(ctx context.Context, w http.ResponseWriter, err error) {
	typed := apperr.As(err)
	if typed == nil {
		typed = apperr.Wrap(apperr.CodeInternal, err, "unexpected error")
	}
	meta := apperr.MetadataFor(typed.Code())
	resp := errorResponse{Error: meta.PublicMessage, Code: string(typed.Code())}
	switch typed.Code() {
	case apperr.CodeInternal:
		s.log.Error(ctx, "console request failed", err)
	default:
		if m := typed.Message(); m != "" {
			resp.Error = m
		}
	}
	writeJSON(w, meta.HTTPStatus, resp)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
