// Package api exposes the market, auction and vote-token operations over
// HTTP. Handlers validate and decode requests, call into the engine and map
// its errors onto the numbered error catalogue; asynchronous operations
// answer with the computation handle they were queued under.
package api

import (
	"fmt"
	"net/http"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.vocdoni.io/dvote/log"

	"github.com/veilmarket/veilmarket/engine"
	"github.com/veilmarket/veilmarket/storage"
	"github.com/veilmarket/veilmarket/types"
)

// ClusterInfo is the public key material clients need to encrypt inputs and
// pin the attestation trust anchor.
type ClusterInfo struct {
	SharedPubKey       types.HexBytes `json:"sharedPubKey"`
	AttestationAddress common.Address `json:"attestationAddress"`
}

// APIConfig type represents the configuration for the API HTTP server.
type APIConfig struct {
	Host    string
	Port    int
	Engine  *engine.Engine
	Cluster *ClusterInfo
}

// API type represents the API HTTP server.
type API struct {
	router  *chi.Mux
	engine  *engine.Engine
	storage *storage.Storage
	cluster *ClusterInfo
}

// New creates a new API instance with the given configuration and starts the
// HTTP server.
func New(conf *APIConfig) (*API, error) {
	if conf == nil {
		return nil, fmt.Errorf("missing API configuration")
	}
	if conf.Engine == nil {
		return nil, fmt.Errorf("missing engine instance")
	}
	a := &API{
		engine:  conf.Engine,
		storage: conf.Engine.Storage(),
		cluster: conf.Cluster,
	}
	a.initRouter()
	go func() {
		log.Infow("starting API server", "host", conf.Host, "port", conf.Port)
		if err := http.ListenAndServe(fmt.Sprintf("%s:%d", conf.Host, conf.Port), a.router); err != nil {
			log.Fatalf("failed to start the API server: %v", err)
		}
	}()
	return a, nil
}

// Router returns the chi router for testing purposes
func (a *API) Router() *chi.Mux {
	return a.router
}

// registerHandlers registers all the API handlers.
func (a *API) registerHandlers() {
	a.router.Get(PingEndpoint, func(w http.ResponseWriter, r *http.Request) {
		httpWriteOK(w)
	})
	a.router.Get(ClusterEndpoint, a.clusterInfo)

	a.router.Post(MarketsEndpoint, a.newMarket)
	a.router.Get(MarketsEndpoint, a.markets)
	a.router.Get(MarketEndpoint, a.market)
	a.router.Post(MarketOptionsEndpoint, a.addMarketOption)
	a.router.Get(MarketOptionsEndpoint, a.marketOptions)
	a.router.Post(MarketOpenEndpoint, a.openMarket)
	a.router.Post(MarketSelectEndpoint, a.selectMarketOption)
	a.router.Post(MarketSharesEndpoint, a.buyShares)
	a.router.Get(MarketShareEndpoint, a.share)
	a.router.Post(MarketRevealEndpoint, a.revealShare)
	a.router.Post(MarketTallyEndpoint, a.incrementTally)
	a.router.Get(MarketTalliesEndpoint, a.tallies)

	a.router.Post(AuctionsEndpoint, a.newAuction)
	a.router.Get(AuctionsEndpoint, a.auctions)
	a.router.Get(AuctionEndpoint, a.auction)
	a.router.Post(AuctionBidsEndpoint, a.placeBid)
	a.router.Post(AuctionCloseEndpoint, a.closeAuction)
	a.router.Post(AuctionResolveEndpoint, a.resolveAuction)

	a.router.Post(VoteTokensEndpoint, a.newVoteTokenAccount)
	a.router.Get(VoteTokenEndpoint, a.voteTokenAccount)
	a.router.Post(VoteTokensMintEndpoint, a.mintVoteTokens)
	a.router.Post(VoteTokensSellEndpoint, a.sellVoteTokens)
	a.router.Post(VoteTokensClaimEndpoint, a.claimPendingDeposit)

	a.router.Get(EventsEndpoint, a.events)
}

// initRouter creates the router with all the routes and middleware.
func (a *API) initRouter() {
	a.router = chi.NewRouter()
	a.router.Use(cors.New(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-CSRF-Token"},
		AllowCredentials: true,
		MaxAge:           300, // Maximum value not ignored by any of major browsers
	}).Handler)
	a.router.Use(middleware.Logger)
	a.router.Use(middleware.Recoverer)
	a.router.Use(middleware.Throttle(100))
	a.router.Use(middleware.ThrottleBacklog(5000, 40000, 60*time.Second))
	a.router.Use(middleware.Timeout(45 * time.Second))

	a.registerHandlers()
}

// clusterInfo returns the cluster key material.
// GET /cluster
func (a *API) clusterInfo(w http.ResponseWriter, _ *http.Request) {
	if a.cluster == nil {
		ErrResourceNotFound.With("no cluster configured").Write(w)
		return
	}
	httpWriteJSON(w, a.cluster)
}
