package http

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"

	"github.com/tuanvumaihuynh/orders-inventory/internal/apperr"
	"github.com/tuanvumaihuynh/orders-inventory/internal/config"
	"github.com/tuanvumaihuynh/orders-inventory/internal/http/apierr"
	"github.com/tuanvumaihuynh/orders-inventory/internal/http/metric"
	"github.com/tuanvumaihuynh/orders-inventory/internal/http/middleware"
	"github.com/tuanvumaihuynh/orders-inventory/internal/http/swagger"
	"github.com/tuanvumaihuynh/orders-inventory/internal/service"
	"github.com/tuanvumaihuynh/orders-inventory/pkg/validator"
)

var tracer = otel.Tracer("internal/http")

// Service represents the HTTP service.
type Service struct {
	cfg       config.HTTP
	logger    *slog.Logger
	metrics   *metric.Metrics
	validator validator.Validator

	productSvc service.ProductService
	orderSvc   service.OrderService
}

type CleanupFunc func(ctx context.Context) error

func New(
	cfg config.HTTP,
	log *slog.Logger,
	productSvc service.ProductService,
	orderSvc service.OrderService,
) (*Service, error) {
	v, err := validator.NewDefaultValidator()
	if err != nil {
		return nil, fmt.Errorf("create validator: %w", err)
	}

	return &Service{
		cfg:        cfg,
		logger:     log.With(slog.String("service", "http")),
		metrics:    metric.Default(),
		validator:  v,
		productSvc: productSvc,
		orderSvc:   orderSvc,
	}, nil
}

// Handler returns the router serving the whole API.
func (s *Service) Handler() http.Handler {
	r := chi.NewRouter()
	s.RegisterMiddlewares(r)

	if s.cfg.Swagger {
		if err := swagger.Register(r); err != nil {
			s.logger.Error("error registering api docs", slog.Any("error", err))
		}
	}

	s.RegisterHandlers(r)

	return r
}

func (s *Service) Run(ctx context.Context) (CleanupFunc, error) {
	return s.RunWithServer(ctx, s.Handler())
}

func (s *Service) RunWithServer(ctx context.Context, handler http.Handler) (CleanupFunc, error) {
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", s.cfg.Port),
		Handler:           handler,
		ReadTimeout:       s.cfg.ReadTimeout,
		WriteTimeout:      s.cfg.WriteTimeout,
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       120 * time.Second,
		MaxHeaderBytes:    1 << 16, // 64 KB
		BaseContext: func(_ net.Listener) context.Context {
			return ctx
		},
	}

	ln, err := net.Listen("tcp", srv.Addr)
	if err != nil {
		return nil, fmt.Errorf("listen on %s: %w", srv.Addr, err)
	}

	go func() {
		if err := srv.Serve(ln); err != nil && err != http.ErrServerClosed {
			s.logger.ErrorContext(ctx, "http server stopped unexpectedly", slog.Any("error", err))
		}
	}()

	return func(ctx context.Context) error {
		timeout := s.cfg.ShutdownTimeout
		if timeout <= 0 {
			timeout = 5 * time.Second
		}
		ctx, cancel := context.WithTimeout(ctx, timeout)
		defer cancel()
		return srv.Shutdown(ctx)
	}, nil
}

func (s *Service) RegisterMiddlewares(r chi.Router) {
	r.Use(
		middleware.Recoverer(s.logger),
		middleware.Trace(tracer),
		middleware.Metrics(s.metrics),
		middleware.CorrelationID(),
		middleware.Cors(),
		middleware.Logging(s.logger),
	)
}

func (s *Service) RegisterHandlers(r chi.Router) {
	h := &handler{validator: s.validator}
	products := newProductHandler(h, s.productSvc)
	orders := newOrderHandler(h, s.orderSvc)

	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/products", func(r chi.Router) {
			r.Get("/", s.handle(products.ListProducts))
			r.Post("/", s.handle(products.CreateProduct))
			r.Get("/low-stock", s.handle(products.LowStockAlerts))
			r.Get("/by-sku/{sku}", s.handle(products.GetProductBySku))
			r.Get("/{productID}", s.handle(products.GetProduct))
			r.Put("/{productID}", s.handle(products.UpdateProduct))
			r.Post("/{productID}/stock-adjustments", s.handle(products.AdjustStock))
		})

		r.Get("/inventory/summary", s.handle(products.InventorySummary))

		r.Route("/orders", func(r chi.Router) {
			r.Get("/", s.handle(orders.ListOrders))
			r.Post("/", s.handle(orders.CreateOrder))
			r.Get("/{orderID}", s.handle(orders.GetOrder))
			r.Patch("/{orderID}", s.handle(orders.UpdateOrder))
			r.Delete("/{orderID}", s.handle(orders.DeleteOrder))
			r.Post("/{orderID}/pay", s.handle(orders.PayOrder))
			r.Post("/{orderID}/ship", s.handle(orders.ShipOrder))
			r.Post("/{orderID}/cancel", s.handle(orders.CancelOrder))
		})
	})

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		s.writeError(w, r, http.StatusNotFound, apierr.ErrorResponse{
			Code:    "NOT_FOUND",
			Message: "route not found",
		})
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		s.writeError(w, r, http.StatusMethodNotAllowed, apierr.ErrorResponse{
			Code:    "METHOD_NOT_ALLOWED",
			Message: "method not allowed",
		})
	})

	r.Handle(middleware.MetricsPath, promhttp.HandlerFor(prometheus.DefaultGatherer, promhttp.HandlerOpts{
		ErrorLog: log.Default(),
	}))
}

func (s *Service) handleRequestError(w http.ResponseWriter, r *http.Request, err error) {
	res := apierr.New(apperr.NewValidation("%s", err.Error()))
	s.logger.InfoContext(r.Context(), "http request error", slog.Any("error", err))
	s.writeError(w, r, http.StatusBadRequest, res)
}

func (s *Service) handleResponseError(w http.ResponseWriter, r *http.Request, err error) {
	res := apierr.New(err)

	logLevel := slog.LevelInfo
	if res.StatusCode >= 500 {
		logLevel = slog.LevelError
	} else if res.StatusCode >= 400 {
		logLevel = slog.LevelWarn
	}
	s.logger.Log(r.Context(), logLevel, "http response error", slog.Any("error", err))

	s.writeError(w, r, res.StatusCode, res)
}

func (s *Service) writeError(w http.ResponseWriter, r *http.Request, status int, res apierr.ErrorResponse) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(res); err != nil {
		s.logger.ErrorContext(r.Context(), "error encoding error response",
			slog.Any("error", err))
	}
}
