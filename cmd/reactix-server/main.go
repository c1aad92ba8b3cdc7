// Package main runs the reactix HTTP service. Configuration comes from
// REACTIX_* environment variables.
package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/jfapp/reactix/internal/api"
	"github.com/jfapp/reactix/internal/app"
	"github.com/jfapp/reactix/internal/config"
)

func main() {
	var setToken, deleteToken bool
	flag.BoolVar(&setToken, "set-token", false, "read a leaderboard token from stdin and store it in the keyring")
	flag.BoolVar(&deleteToken, "delete-token", false, "remove the stored leaderboard token")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	if setToken || deleteToken {
		if err := manageToken(cfg, setToken); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		return
	}

	v := api.GetVersionInfo()
	log.Printf("Starting reactix %s (commit %s, Go %s)", v.EngineVersion, v.GitCommit, v.GoVersion)

	a, err := app.New(cfg)
	if err != nil {
		log.Fatalf("init failed: %v", err)
	}
	if err := a.Start(); err != nil {
		log.Fatalf("start failed: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	<-ctx.Done()

	log.Println("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := a.Shutdown(shutdownCtx); err != nil {
		log.Printf("shutdown error: %v", err)
	}
	log.Println("Exited normally")
}

func manageToken(cfg config.Config, set bool) error {
	creds := app.Credentials(cfg)

	if !set {
		if err := creds.DeleteToken(cfg.PlayerID); err != nil {
			return err
		}
		fmt.Printf("Removed leaderboard token for %s\n", cfg.PlayerID)
		return nil
	}

	fmt.Fprint(os.Stderr, "Leaderboard token: ")
	line, err := bufio.NewReader(os.Stdin).ReadString('\n')
	if err != nil && line == "" {
		return fmt.Errorf("read token: %w", err)
	}
	token := strings.TrimSpace(line)
	if token == "" {
		return fmt.Errorf("empty token")
	}
	if err := creds.SetToken(cfg.PlayerID, token); err != nil {
		return err
	}
	fmt.Printf("Stored leaderboard token for %s\n", cfg.PlayerID)
	return nil
}
