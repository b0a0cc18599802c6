// Command sheets-auth runs the OAuth consent flow once and stores the token
// the worker uses to export daily reports to Google Sheets.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"time"

	"golang.org/x/oauth2"

	"transferdash/internal/cli"
	"transferdash/internal/log"
	gsheet "transferdash/internal/sheets/google"
)

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger(os.Getenv("LOG_LEVEL")).WithComponent(log.ComponentSheets)

	cfg, err := gsheet.OAuthConfigFromEnv()
	if err != nil {
		logger.Error("Failed to load OAuth client", log.FieldError, err)
		os.Exit(1)
	}

	// The OAuth client must list this URI among its authorized redirects.
	redirectPort := os.Getenv("OAUTH_REDIRECT_PORT")
	if redirectPort == "" {
		redirectPort = "8085"
	}
	cfg.RedirectURL = "http://localhost:" + redirectPort + "/callback"

	codeCh := make(chan string, 1)
	mux := http.NewServeMux()
	mux.HandleFunc("/callback", func(w http.ResponseWriter, r *http.Request) {
		if errStr := r.URL.Query().Get("error"); errStr != "" {
			http.Error(w, "OAuth error: "+errStr, http.StatusBadRequest)
			return
		}
		fmt.Fprintln(w, "Puede cerrar esta ventana y volver a la terminal.")
		select {
		case codeCh <- r.URL.Query().Get("code"):
		default:
		}
	})
	srv := &http.Server{Addr: ":" + redirectPort, Handler: mux, ReadHeaderTimeout: 10 * time.Second}
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("Callback server error", log.FieldError, err)
		}
	}()
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctx)
	}()

	ctx, cancel := cli.GracefulShutdown(logger)
	defer cancel()

	fmt.Printf("Open this URL to authorize:\n%s\n", cfg.AuthCodeURL("state-token", oauth2.AccessTypeOffline))

	select {
	case code := <-codeCh:
		tok, err := cfg.Exchange(ctx, code)
		if err != nil {
			logger.Error("Token exchange failed", log.FieldError, err)
			os.Exit(1)
		}
		out := gsheet.TokenFile()
		if err := gsheet.SaveToken(out, tok); err != nil {
			logger.Error("Failed to save token", log.FieldError, err)
			os.Exit(1)
		}
		logger.Info("Token saved", "path", out)
	case <-time.After(5 * time.Minute):
		logger.Error("Authorization timed out")
		os.Exit(1)
	case <-ctx.Done():
		logger.Error("Interrupted")
		os.Exit(1)
	}
}
