package api

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"

	"github.com/sheikh-saqib/marketplace-ledger-system/internal/interfaces"
	"github.com/sheikh-saqib/marketplace-ledger-system/internal/ledger"
	"github.com/sheikh-saqib/marketplace-ledger-system/internal/query"
)

// Server wires the ledger core and the query layer to the HTTP routes.
type Server struct {
	store  interfaces.MarketplaceStore
	ledger *ledger.Ledger
	query  *query.Service
	log    *logrus.Logger
}

func NewServer(store interfaces.MarketplaceStore, ledgerService *ledger.Ledger, queryService *query.Service, log *logrus.Logger) *Server {
	if log == nil {
		log = logrus.New()
	}
	return &Server{
		store:  store,
		ledger: ledgerService,
		query:  queryService,
		log:    log,
	}
}

// Router builds the route table. Everything except /health sits behind the
// profile-resolution middleware.
func (s *Server) Router() http.Handler {
	r := mux.NewRouter()

	r.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)

	authed := r.NewRoute().Subrouter()
	authed.Use(s.withProfile)
	authed.HandleFunc("/contracts/{id:[0-9]+}", s.handleGetContract).Methods(http.MethodGet)
	authed.HandleFunc("/contracts", s.handleListContracts).Methods(http.MethodGet)
	authed.HandleFunc("/jobs/unpaid", s.handleListUnpaidJobs).Methods(http.MethodGet)
	authed.HandleFunc("/jobs/{id:[0-9]+}/pay", s.handlePayJob).Methods(http.MethodPost)
	authed.HandleFunc("/balances/deposit/{userId:[0-9]+}", s.handleDeposit).Methods(http.MethodPost)
	authed.HandleFunc("/admin/best-profession", s.handleBestProfession).Methods(http.MethodGet)
	authed.HandleFunc("/admin/best-clients", s.handleBestClients).Methods(http.MethodGet)

	return r
}
