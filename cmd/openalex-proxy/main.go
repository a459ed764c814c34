package main

import (
	"fmt"
	"net/http"
	"os"
	"strings"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"

	"github.com/b-vitamins/openalex-go/pkg/breaker"
	"github.com/b-vitamins/openalex-go/pkg/client"
	"github.com/b-vitamins/openalex-go/pkg/logging"
)

func main() {
	// Configuration from environment
	port := getEnv("PORT", "8080")
	baseURL := getEnv("OPENALEX_BASE_URL", client.DefaultBaseURL)
	userAgent := getEnv("USER_AGENT", "openalex-proxy/0.1.0 (mailto:ops@example.com)")
	logLevel := getEnv("LOG_LEVEL", "info")

	logging.Setup(logging.Config{Level: logging.LogLevel(logLevel)})

	cfg := client.DefaultConfig(userAgent)
	cfg.BaseURL = baseURL

	apiClient, err := client.New(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create API client")
	}
	defer apiClient.Close()

	http.HandleFunc("/health", healthHandler)
	http.HandleFunc("/ready", readyHandler(apiClient))
	http.Handle("/metrics", promhttp.Handler())
	http.HandleFunc("/api/", proxyHandler(apiClient))

	addr := ":" + port
	log.Info().
		Str("addr", addr).
		Str("base_url", baseURL).
		Str("user_agent", userAgent).
		Msg("Starting OpenAlex proxy server")

	if err := http.ListenAndServe(addr, nil); err != nil {
		log.Fatal().Err(err).Msg("Server failed")
	}
}

func healthHandler(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	fmt.Fprintf(w, "OK")
}

// readyHandler reports 503 while the circuit breaker is open, so load
// balancers stop routing traffic at a proxy that cannot reach the API.
func readyHandler(apiClient *client.Client) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if apiClient.BreakerState() == breaker.StateOpen {
			w.WriteHeader(http.StatusServiceUnavailable)
			fmt.Fprintf(w, "circuit open")
			return
		}
		w.WriteHeader(http.StatusOK)
		fmt.Fprintf(w, "OK")
	}
}

// proxyHandler forwards /api/<resource-path> through the resilient client.
// Example: /api/works/W2741809807 -> GET works/W2741809807 upstream.
func proxyHandler(apiClient *client.Client) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		path := strings.TrimPrefix(r.URL.Path, "/api/")
		if path == "" {
			http.Error(w, "missing resource path", http.StatusBadRequest)
			return
		}

		op := client.OpGet
		if !strings.Contains(path, "/") {
			op = client.OpList
			if r.URL.Query().Get("search") != "" {
				op = client.OpSearch
			}
		}

		resp, err := apiClient.Do(r.Context(), op, &client.Request{
			Path:   path,
			Params: r.URL.Query(),
		})
		if err != nil {
			writeUpstreamError(w, err)
			return
		}

		for key, values := range resp.Header {
			for _, value := range values {
				w.Header().Add(key, value)
			}
		}
		w.WriteHeader(resp.StatusCode)
		if _, err := w.Write(resp.Body); err != nil {
			log.Warn().Err(err).Str("path", path).Msg("Failed to write response")
		}
	}
}

// writeUpstreamError maps pipeline error classes to proxy status codes.
func writeUpstreamError(w http.ResponseWriter, err error) {
	status := http.StatusBadGateway
	switch client.ClassOf(err) {
	case client.ClassClient:
		status = http.StatusNotFound
	case client.ClassCircuitOpen, client.ClassBackpressure:
		status = http.StatusServiceUnavailable
	case client.ClassTimeout:
		status = http.StatusGatewayTimeout
	case client.ClassRateLimit:
		status = http.StatusTooManyRequests
	}
	http.Error(w, fmt.Sprintf("upstream request failed: %v", err), status)
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
