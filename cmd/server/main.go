package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/vb-2003/rebase-ledger/internal/bridge"
	"github.com/vb-2003/rebase-ledger/internal/config"
	kafkaevents "github.com/vb-2003/rebase-ledger/internal/events/kafka"
	"github.com/vb-2003/rebase-ledger/internal/interfaces"
	"github.com/vb-2003/rebase-ledger/internal/ledger"
	"github.com/vb-2003/rebase-ledger/internal/models"
	kafkarelay "github.com/vb-2003/rebase-ledger/internal/relay/kafka"
	memoryrelay "github.com/vb-2003/rebase-ledger/internal/relay/memory"
	"github.com/vb-2003/rebase-ledger/internal/reserve"
	"github.com/vb-2003/rebase-ledger/internal/storage/memory"
	"github.com/vb-2003/rebase-ledger/internal/storage/postgres"
)

func main() {
	cfg := config.MustLoad()
	log := logrus.StandardLogger()
	ctx := context.Background()

	var store interfaces.AccountStore
	if cfg.DatabaseURL != "" {
		db, err := sql.Open("postgres", cfg.DatabaseURL)
		if err != nil {
			log.WithError(err).Fatal("open database")
		}
		pg := postgres.NewAccountStore(db)
		if err := pg.EnsureSchema(ctx); err != nil {
			log.WithError(err).Fatal("ensure schema")
		}
		store = pg
	} else {
		store = memory.NewAccountStore()
	}

	var ledgerOpts []ledger.Option
	if len(cfg.KafkaBrokers) > 0 {
		publisher := kafkaevents.NewPublisher(cfg.KafkaBrokers)
		defer publisher.Close()
		ledgerOpts = append(ledgerOpts, ledger.WithEventPublisher(publisher))
	}
	ledgerService := ledger.New(store, cfg.Owner, cfg.GlobalRate, ledgerOpts...)

	mover := reserve.NewMemoryMover()
	vault := reserve.New(ledgerService, mover, "vault")
	if err := ledgerService.GrantMintAndBurnRole(cfg.Owner, vault.Identity()); err != nil {
		log.WithError(err).Fatal("grant vault role")
	}

	var relay interfaces.Relay
	if len(cfg.KafkaBrokers) > 0 {
		producer := kafkarelay.NewProducer(cfg.KafkaBrokers)
		defer producer.Close()
		relay = producer
	} else {
		relay = memoryrelay.NewRelay()
	}
	pool := bridge.NewPool(cfg.ChainID, cfg.PoolAddress, ledgerService, relay, cfg.Owner, "pool")
	if err := ledgerService.GrantMintAndBurnRole(cfg.Owner, pool.Identity()); err != nil {
		log.WithError(err).Fatal("grant pool role")
	}

	if len(cfg.KafkaBrokers) > 0 {
		consumer := kafkarelay.NewConsumer(cfg.KafkaBrokers, cfg.ChainID, pool, log)
		defer consumer.Close()
		go func() {
			if err := consumer.Run(ctx); err != nil && ctx.Err() == nil {
				log.WithError(err).Error("relay consumer stopped")
			}
		}()
	}

	http.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok"}`))
	})

	http.HandleFunc("/deposit", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}

		var req struct {
			Account string          `json:"account"`
			Amount  decimal.Decimal `json:"amount"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid request body", http.StatusBadRequest)
			return
		}

		if err := vault.Deposit(r.Context(), req.Account, req.Amount); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		w.WriteHeader(http.StatusCreated)
		w.Write([]byte(`{"status":"deposited"}`))
	})

	http.HandleFunc("/redeem", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}

		var req struct {
			Account string `json:"account"`
			Amount  string `json:"amount"` // decimal or "all"
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid request body", http.StatusBadRequest)
			return
		}

		amount, err := parseAmount(req.Amount)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}

		payout, err := vault.Redeem(r.Context(), req.Account, amount)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(struct {
			Payout decimal.Decimal `json:"payout"`
		}{Payout: payout})
	})

	http.HandleFunc("/reserve/fund", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}

		var req struct {
			Amount decimal.Decimal `json:"amount"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid request body", http.StatusBadRequest)
			return
		}
		if !req.Amount.IsPositive() {
			http.Error(w, "amount must be positive", http.StatusBadRequest)
			return
		}

		mover.Fund(req.Amount)
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"funded"}`))
	})

	http.HandleFunc("/transfer", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}

		var req struct {
			FromAccount string `json:"from_account"`
			ToAccount   string `json:"to_account"`
			Amount      string `json:"amount"` // decimal or "all"
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid request body", http.StatusBadRequest)
			return
		}

		amount, err := parseAmount(req.Amount)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}

		if err := ledgerService.Transfer(r.Context(), req.FromAccount, req.ToAccount, amount); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"transferred"}`))
	})

	http.HandleFunc("/accounts/balance", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}

		accountID := r.URL.Query().Get("account_id")
		if accountID == "" {
			http.Error(w, "account_id is a mandatory field", http.StatusBadRequest)
			return
		}

		balance, err := ledgerService.BalanceOf(r.Context(), accountID)
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		principal, err := ledgerService.PrincipalBalanceOf(r.Context(), accountID)
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		rate, err := ledgerService.UserInterestRate(r.Context(), accountID)
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(struct {
			AccountID string          `json:"account_id"`
			Balance   decimal.Decimal `json:"balance"`
			Principal decimal.Decimal `json:"principal"`
			Rate      decimal.Decimal `json:"rate"`
		}{AccountID: accountID, Balance: balance, Principal: principal, Rate: rate})
	})

	http.HandleFunc("/rates", func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			w.Header().Set("Content-Type", "application/json")
			json.NewEncoder(w).Encode(struct {
				GlobalRate decimal.Decimal `json:"global_rate"`
			}{GlobalRate: ledgerService.InterestRate()})
		case http.MethodPost:
			var req struct {
				Rate decimal.Decimal `json:"rate"`
			}
			if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
				http.Error(w, "invalid request body", http.StatusBadRequest)
				return
			}
			if err := ledgerService.SetInterestRate(caller(r), req.Rate); err != nil {
				http.Error(w, err.Error(), http.StatusBadRequest)
				return
			}
			w.WriteHeader(http.StatusOK)
			w.Write([]byte(`{"status":"rate updated"}`))
		default:
			w.WriteHeader(http.StatusMethodNotAllowed)
		}
	})

	http.HandleFunc("/bridge/send", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}

		var req struct {
			Sender        string          `json:"sender"`
			Amount        decimal.Decimal `json:"amount"`
			RemoteChainID uint64          `json:"remote_chain_id"`
			Recipient     string          `json:"recipient"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid request body", http.StatusBadRequest)
			return
		}

		msg, err := pool.SendOutbound(r.Context(), req.Sender, req.Amount, req.RemoteChainID, req.Recipient)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(msg)
	})

	http.HandleFunc("/bridge/routes", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}

		var req struct {
			Removes []uint64             `json:"removes"`
			Adds    []models.RouteUpdate `json:"adds"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid request body", http.StatusBadRequest)
			return
		}

		if err := pool.ApplyRouteUpdates(caller(r), req.Removes, req.Adds); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"routes updated"}`))
	})

	log.WithField("addr", cfg.HTTPAddr).Info("starting server")
	log.Fatal(http.ListenAndServe(cfg.HTTPAddr, nil))
}

// caller extracts the caller identity for gated operations. Authentication
// proper is an external collaborator; the header just carries the identity.
func caller(r *http.Request) string {
	return r.Header.Get("X-Caller")
}

// parseAmount reads a decimal amount, with "all" meaning the entire balance.
func parseAmount(s string) (decimal.Decimal, error) {
	if strings.EqualFold(strings.TrimSpace(s), "all") {
		return ledger.EntireBalance, nil
	}
	return decimal.NewFromString(s)
}
