// cmd/provision-service/main.go
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"provisor/internal/provision"
	"provisor/internal/provisionapi"
	"provisor/internal/terraform"
	"provisor/pkg/config"
	"provisor/pkg/db"
	"provisor/pkg/logger"
	"provisor/pkg/tenants"
)

func main() {
	cfg := config.Load()
	log := logger.New(cfg.Env)
	defer log.Sync()

	stack, err := config.LoadStackProfile(cfg.StackProfilePath)
	if err != nil {
		log.Fatalw("stack profile", "err", err)
	}

	pool := db.MustConnect(cfg, log)
	var reg tenants.Registry
	if pool != nil {
		if err := tenants.EnsureSchema(context.Background(), pool); err != nil {
			log.Fatalw("schema", "err", err)
		}
		reg = tenants.NewPostgresRegistry(pool, log)
	} else {
		reg = tenants.NewMemoryRegistry(log)
	}

	status := provisionapi.NewStatusStore(db.MustRedis(cfg, log))
	runner := terraform.NewRunner(cfg.TerraformDir, log)
	runner.ProjectID = stack.ProjectID
	prov := provision.New(log, stack, runner)
	app := provisionapi.New(log, cfg, prov, reg, status)

	srv := &http.Server{Addr: cfg.HTTPAddr, Handler: app.Handler()}
	go func() {
		log.Infow("provision-service listening", "addr", cfg.HTTPAddr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalw("ListenAndServe", "err", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = srv.Shutdown(ctx)
	fmt.Println("provision-service stopped")
}
