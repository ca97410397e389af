// Command weaverd serves the instrumentation engine over gRPC so build
// tools in other processes (or other languages) can request transforms
// without linking pkg/embed directly.
package main

import (
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/orchestrion-go/weaver/internal/config"
	"github.com/orchestrion-go/weaver/internal/orchestrator"
	"github.com/orchestrion-go/weaver/internal/rpc"
)

func main() {
	log.SetFlags(0)
	log.SetOutput(os.Stderr)

	addr := flag.String("addr", ":7443", "listen address for the TransformService")
	configPath := flag.String("config", "", "path to the instrumentation catalog YAML")
	flag.Parse()

	if *configPath == "" {
		log.Fatal("weaverd: -config is required")
	}

	data, err := os.ReadFile(*configPath)
	if err != nil {
		log.Fatalf("weaverd: reading config: %s", err)
	}
	cfg, err := config.Load(data)
	if err != nil {
		log.Fatalf("weaverd: loading config: %s", err)
	}

	srv, err := rpc.NewServer(orchestrator.New(cfg))
	if err != nil {
		log.Fatalf("weaverd: building server: %s", err)
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigCh
		log.Println("weaverd: shutting down")
		srv.GracefulStop()
	}()

	log.Printf("weaverd: listening on %s (engine %s)", *addr, config.Version)
	if err := srv.Serve(*addr); err != nil {
		log.Fatalf("weaverd: %s", err)
	}
}
