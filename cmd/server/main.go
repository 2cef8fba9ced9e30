package main

import (
	"context"
	"database/sql"
	"net/http"
	"time"

	_ "github.com/lib/pq"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/sheikh-saqib/marketplace-ledger-system/internal/api"
	"github.com/sheikh-saqib/marketplace-ledger-system/internal/config"
	"github.com/sheikh-saqib/marketplace-ledger-system/internal/events/kafka"
	"github.com/sheikh-saqib/marketplace-ledger-system/internal/interfaces"
	"github.com/sheikh-saqib/marketplace-ledger-system/internal/ledger"
	"github.com/sheikh-saqib/marketplace-ledger-system/internal/models"
	"github.com/sheikh-saqib/marketplace-ledger-system/internal/query"
	"github.com/sheikh-saqib/marketplace-ledger-system/internal/storage/memory"
	"github.com/sheikh-saqib/marketplace-ledger-system/internal/storage/postgres"
)

func main() {
	log := logrus.New()
	log.SetFormatter(&logrus.JSONFormatter{})

	cfg := config.Load()

	var store interfaces.MarketplaceStore
	switch cfg.Storage {
	case "postgres":
		db, err := sql.Open("postgres", cfg.DatabaseURL)
		if err != nil {
			log.WithError(err).Fatal("failed to open database")
		}
		defer db.Close()

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := db.PingContext(ctx); err != nil {
			log.WithError(err).Fatal("failed to reach database")
		}
		if err := postgres.Apply(ctx, db); err != nil {
			log.WithError(err).Fatal("failed to apply migrations")
		}
		store = postgres.NewStore(db)
	case "memory":
		memStore := memory.NewStore()
		seedDemoData(memStore)
		store = memStore
	default:
		log.WithField("storage", cfg.Storage).Fatal("unknown storage backend")
	}

	var publisher interfaces.EventPublisher
	if brokers := cfg.Brokers(); len(brokers) > 0 {
		kafkaPublisher := kafka.NewPublisher(brokers)
		defer kafkaPublisher.Close()
		publisher = kafkaPublisher
	}

	ledgerService := ledger.NewLedger(store, publisher, log)
	queryService := query.NewService(store)
	server := api.NewServer(store, ledgerService, queryService, log)

	addr := ":" + cfg.Port
	log.WithFields(logrus.Fields{"addr": addr, "storage": cfg.Storage}).Info("starting server")
	if err := http.ListenAndServe(addr, server.Router()); err != nil {
		log.WithError(err).Fatal("server stopped")
	}
}

// seedDemoData loads a small dataset so the memory backend is usable out of
// the box.
func seedDemoData(store *memory.Store) {
	now := time.Now().UTC()

	store.AddProfile(models.Profile{ID: 1, FirstName: "Harry", LastName: "Potter", Profession: "wizard", Balance: decimal.NewFromInt(1150), Type: models.ProfileTypeClient, CreatedAt: now})
	store.AddProfile(models.Profile{ID: 2, FirstName: "Mr", LastName: "Robot", Profession: "hacker", Balance: decimal.NewFromInt(231), Type: models.ProfileTypeClient, CreatedAt: now})
	store.AddProfile(models.Profile{ID: 5, FirstName: "Linus", LastName: "Torvalds", Profession: "programmer", Balance: decimal.NewFromInt(64), Type: models.ProfileTypeContractor, CreatedAt: now})
	store.AddProfile(models.Profile{ID: 6, FirstName: "Alan", LastName: "Turing", Profession: "programmer", Balance: decimal.NewFromInt(22), Type: models.ProfileTypeContractor, CreatedAt: now})

	store.AddContract(models.Contract{ID: 1, Terms: "bla bla bla", Status: models.ContractStatusTerminated, ClientID: 1, ContractorID: 5, CreatedAt: now})
	store.AddContract(models.Contract{ID: 2, Terms: "bla bla bla", Status: models.ContractStatusInProgress, ClientID: 1, ContractorID: 6, CreatedAt: now})
	store.AddContract(models.Contract{ID: 3, Terms: "bla bla bla", Status: models.ContractStatusInProgress, ClientID: 2, ContractorID: 5, CreatedAt: now})

	store.AddJob(models.Job{ID: 1, ContractID: 2, Description: "work", Price: decimal.NewFromInt(200), CreatedAt: now})
	store.AddJob(models.Job{ID: 2, ContractID: 2, Description: "work", Price: decimal.NewFromInt(201), CreatedAt: now})
	store.AddJob(models.Job{ID: 3, ContractID: 3, Description: "work", Price: decimal.NewFromInt(202), CreatedAt: now})
}
