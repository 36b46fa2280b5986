// Package api is the HTTP surface over the factory and ledger.
package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// RouterConfig carries the HTTP-layer knobs.
type RouterConfig struct {
	CORSOrigins    []string
	RateLimit      float64
	RateBurst      int
	RequestTimeout time.Duration
	DevMode        bool
	MetricsHandler http.Handler
}

// Routes assembles the full route tree. Devnet endpoints, which create
// assets out of thin air, are only mounted in dev mode.
func (h *Handler) Routes(m *Middleware, cfg RouterConfig) *chi.Mux {
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = 30 * time.Second
	}

	r := chi.NewRouter()

	r.Use(m.RequestID)
	r.Use(m.RequestLogger)
	r.Use(m.Recoverer)
	r.Use(m.Timeout(cfg.RequestTimeout))
	r.Use(middleware.Heartbeat("/ping"))
	r.Use(m.CORS(cfg.CORSOrigins))
	r.Use(m.RateLimit(cfg.RateLimit, cfg.RateBurst))

	r.Get("/healthz", h.Healthz)
	if cfg.MetricsHandler != nil {
		r.Method(http.MethodGet, "/metrics", cfg.MetricsHandler)
	}

	r.Route("/v1", func(r chi.Router) {
		r.Route("/pairs", func(r chi.Router) {
			r.Post("/", h.CreatePair)
			r.Get("/", h.ListPairs)
			r.Get("/{address}", h.GetPair)
			r.Get("/{address}/verify", h.VerifyPair)
		})

		r.Route("/deposits", func(r chi.Router) {
			r.Post("/nfts", h.DepositNFTs)
			r.Post("/tokens", h.DepositTokens)
		})

		r.Get("/accounts/{address}", h.GetAccount)
		r.Get("/policy", h.GetPolicy)

		r.Route("/admin", func(r chi.Router) {
			r.Post("/curves", h.InstallCurve)
			r.Put("/curves/{address}", h.SetCurveAllowed)
			r.Put("/call-targets/{address}", h.SetCallTargetAllowed)
			r.Put("/routers/{address}", h.SetRouterAllowed)
			r.Put("/fee/recipient", h.SetFeeRecipient)
			r.Put("/fee/multiplier", h.SetFeeMultiplier)
			r.Post("/fee/withdraw", h.WithdrawFees)
			r.Put("/owner", h.TransferOwnership)
		})

		if cfg.DevMode {
			r.Route("/devnet", func(r chi.Router) {
				r.Post("/tokens", h.RegisterToken)
				r.Post("/collections", h.RegisterCollection)
				r.Post("/collections/{address}/mint", h.MintNFTs)
				r.Post("/fund", h.Fund)
			})
		}
	})

	return r
}
