/*
Copyright © 2025 Seednode <seednode@seedno.de>
*/

package main

import (
	"errors"
	"fmt"
	"html"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/Seednode/herd/games/herd"
)

func logf(cfg *Config, format string, args ...any) {
	if !cfg.verbose {
		return
	}

	log.Printf("%s | "+format, append([]any{time.Now().Format(logDate)}, args...)...)
}

// drainErrors logs write failures reported by handlers.
func drainErrors(cfg *Config, errs <-chan error) {
	for err := range errs {
		logf(cfg, "ERROR: %v", err)
	}
}

func newPage(cfg *Config, title, body string) string {
	var htmlBody strings.Builder

	htmlBody.WriteString(`<!DOCTYPE html><html lang="en"><head>`)
	htmlBody.WriteString(fmt.Sprintf(`<link rel="stylesheet" href="%s/assets/herd.css">`, cfg.prefix))
	htmlBody.WriteString(fmt.Sprintf("<title>%s</title></head>", html.EscapeString(title)))
	htmlBody.WriteString(fmt.Sprintf("<body><main><p>%s</p><a href=\"%s/\">Back</a></main></body></html>", html.EscapeString(body), cfg.prefix))

	return htmlBody.String()
}

// statusFor maps game errors onto the HTTP status shown to players.
func statusFor(err error) int {
	switch {
	case errors.Is(err, herd.ErrUnknownPlayer), errors.Is(err, herd.ErrInvalidRounds):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func serveError(cfg *Config, w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	securityHeaders(cfg, w)
	w.WriteHeader(status)

	_, _ = w.Write([]byte(newPage(cfg, http.StatusText(status), message)))
}
