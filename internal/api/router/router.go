// Package router wires the HTTP route table and middleware chain.
package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/dvloznov/momo-tracker/internal/api/handlers"
	"github.com/dvloznov/momo-tracker/internal/api/middleware"
	"github.com/dvloznov/momo-tracker/internal/auth"
)

// Deps are the collaborators the router dispatches to.
type Deps struct {
	Gate         *auth.Gate
	Transactions *handlers.TransactionsHandler
	Health       *handlers.HealthHandler
	Log          zerolog.Logger
}

func endpointNotFound(w http.ResponseWriter, r *http.Request) {
	middleware.WriteError(w, http.StatusNotFound, "Endpoint not found")
}

// New builds the complete HTTP handler: routes plus middleware.
func New(d Deps) http.Handler {
	r := chi.NewRouter()

	// A known path with the wrong method is as unmatched as an unknown path.
	r.NotFound(endpointNotFound)
	r.MethodNotAllowed(endpointNotFound)

	r.Route("/transactions", func(r chi.Router) {
		r.Get("/", d.Transactions.ListTransactions)
		r.Post("/", d.Transactions.CreateTransaction)

		r.Get("/{id}", d.Transactions.GetTransaction)
		r.Put("/{id}", d.Transactions.UpdateTransaction)
		r.Delete("/{id}", d.Transactions.DeleteTransaction)
	})

	if d.Health != nil {
		r.Get("/health", d.Health.Health)
	}

	// Preflight is answered by CORS before the gate; everything else
	// must authenticate.
	return middleware.Recovery(d.Log)(
		middleware.RequestID(
			middleware.Logger(d.Log)(
				middleware.CORS(
					middleware.BasicAuth(d.Gate)(r),
				),
			),
		),
	)
}
