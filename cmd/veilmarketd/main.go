package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"go.vocdoni.io/dvote/db"
	"go.vocdoni.io/dvote/db/metadb"
	"go.vocdoni.io/dvote/log"

	"github.com/veilmarket/veilmarket/api"
	"github.com/veilmarket/veilmarket/engine"
	"github.com/veilmarket/veilmarket/mpc/cluster"
	"github.com/veilmarket/veilmarket/processor"
	"github.com/veilmarket/veilmarket/storage"
	"github.com/veilmarket/veilmarket/types"
)

func main() {
	host := flag.String("host", "0.0.0.0", "API host to bind")
	port := flag.Int("port", 8080, "API port")
	dataDir := flag.String("datadir", "./veilmarket-data", "data directory")
	logLevel := flag.String("loglevel", "info", "log level (debug, info, warn, error)")
	flag.Parse()
	log.Init(*logLevel, "stdout", nil)

	database, err := metadb.New(db.TypePebble, *dataDir)
	if err != nil {
		log.Fatalf("could not open database: %v", err)
	}
	stg := storage.New(database)
	defer stg.Close()

	clu, err := cluster.New(stg)
	if err != nil {
		log.Fatalf("could not create computation cluster: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	clu.Start(ctx)
	defer clu.Stop()

	ledger := engine.NewMemoryLedger()
	eng := engine.New(stg, clu, clu.AttestationAddress(), ledger)

	proc := processor.New(eng, clu)
	if err := proc.Start(ctx); err != nil {
		log.Fatalf("could not start result processor: %v", err)
	}
	defer func() {
		if err := proc.Stop(); err != nil {
			log.Warnw("failed to stop result processor", "error", err.Error())
		}
	}()

	sharedPub := clu.SharedPubKey()
	if _, err := api.New(&api.APIConfig{
		Host:   *host,
		Port:   *port,
		Engine: eng,
		Cluster: &api.ClusterInfo{
			SharedPubKey:       types.HexBytes(sharedPub[:]),
			AttestationAddress: clu.AttestationAddress(),
		},
	}); err != nil {
		log.Fatalf("could not start API: %v", err)
	}
	log.Infow("veilmarketd running", "datadir", *dataDir)

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig
	log.Info("shutting down")
}
