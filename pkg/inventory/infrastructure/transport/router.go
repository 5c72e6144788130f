package transport

import (
	"context"
	"net/http"

	"github.com/gorilla/mux"
	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	appservice "inventory/pkg/inventory/application/service"
	domainservice "inventory/pkg/inventory/domain/service"
)

var tracer = otel.Tracer("inventory/transport")

// SyncProcessor runs one replay pass on demand.
type SyncProcessor interface {
	Process(ctx context.Context) (domainservice.ReplayResult, error)
}

type Services struct {
	PointOfSale appservice.PointOfSale
	Sales       domainservice.SaleService
	Inventory   domainservice.InventoryService
	Queue       domainservice.SyncQueueService
	Replay      domainservice.SyncReplayService
	Processor   SyncProcessor
	Verifier    *TokenVerifier
}

type Handler struct {
	pos       appservice.PointOfSale
	sales     domainservice.SaleService
	inventory domainservice.InventoryService
	queue     domainservice.SyncQueueService
	replay    domainservice.SyncReplayService
	processor SyncProcessor
}

func Router(services Services) http.Handler {
	h := &Handler{
		pos:       services.PointOfSale,
		sales:     services.Sales,
		inventory: services.Inventory,
		queue:     services.Queue,
		replay:    services.Replay,
		processor: services.Processor,
	}
	auth := services.Verifier.middleware

	r := mux.NewRouter()
	r.HandleFunc("/health", h.health).Methods(http.MethodGet)

	s := r.PathPrefix("/api").Subrouter()
	s.HandleFunc("/health", h.health).Methods(http.MethodGet)

	s.HandleFunc("/sales", auth(h.createSale)).Methods(http.MethodPost)
	s.HandleFunc("/pos/sale", auth(h.createSale)).Methods(http.MethodPost)
	s.HandleFunc("/sales", h.listSales).Methods(http.MethodGet)
	s.HandleFunc("/sales/{id}", h.getSale).Methods(http.MethodGet)
	s.HandleFunc("/sales/{id}", auth(h.deleteSale)).Methods(http.MethodDelete)

	s.HandleFunc("/sync/queue", auth(h.enqueue)).Methods(http.MethodPost)
	s.HandleFunc("/sync/queue", auth(h.listQueue)).Methods(http.MethodGet)
	s.HandleFunc("/sync/process", auth(h.process)).Methods(http.MethodPost)
	s.HandleFunc("/sync/queue/{id}/retry", auth(h.retry)).Methods(http.MethodPost)

	s.HandleFunc("/inventory", h.listInventory).Methods(http.MethodGet)
	s.HandleFunc("/inventory/{product_id}", h.getInventory).Methods(http.MethodGet)
	s.HandleFunc("/inventory/{product_id}/adjust", auth(h.adjustInventory)).Methods(http.MethodPost)

	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeDetail(w, http.StatusNotFound, "Not Found")
	})
	r.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeDetail(w, http.StatusMethodNotAllowed, "Method Not Allowed")
	})

	return logMiddleware(r)
}

func (h *Handler) health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":  "healthy",
		"service": "inventory-api",
	})
}

func logMiddleware(h http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), r.Method+" "+r.URL.Path,
			trace.WithSpanKind(trace.SpanKindServer),
			trace.WithAttributes(
				attribute.String("http.method", r.Method),
				attribute.String("http.target", r.URL.RequestURI()),
			),
		)
		defer span.End()

		fields := log.Fields{
			"method":     r.Method,
			"url":        r.URL,
			"remoteAddr": r.RemoteAddr,
			"userAgent":  r.UserAgent(),
		}
		if sc := trace.SpanFromContext(ctx).SpanContext(); sc.HasTraceID() {
			fields["trace_id"] = sc.TraceID().String()
		}
		log.WithFields(fields).Info("got a new request")
		h.ServeHTTP(w, r.WithContext(ctx))
	})
}
