package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/gruppenwerk/outreach-cli/internal/model"
	"github.com/gruppenwerk/outreach-cli/internal/personalize"
	"github.com/gruppenwerk/outreach-cli/internal/rules"
	"github.com/gruppenwerk/outreach-cli/internal/segment"
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API for segmentation and icebreakers",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		rs, err := rules.Load(cfg.RulesPath)
		if err != nil {
			return eris.Wrap(err, "serve")
		}
		gen, err := personalize.NewGenerator(cfg.AI)
		if err != nil {
			return eris.Wrap(err, "serve")
		}
		p := personalize.New(gen, rs, cfg.AI)

		port := servePort
		if port == 0 {
			port = cfg.Server.Port
		}

		srv := &http.Server{
			Addr:              fmt.Sprintf(":%d", port),
			Handler:           newRouter(rs, p),
			ReadHeaderTimeout: 10 * time.Second,
		}

		// Graceful shutdown
		go func() {
			<-ctx.Done()
			zap.L().Info("shutting down server")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			_ = srv.Shutdown(shutdownCtx)
		}()

		zap.L().Info("starting server", zap.Int("port", port), zap.Bool("ai", p.UsesAI()))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return eris.Wrap(err, "server listen")
		}

		return nil
	},
}

type segmentRequest struct {
	Leads   []*model.Lead `json:"leads"`
	Company string        `json:"company,omitempty"`
}

type segmentResponse struct {
	Assignments []model.Assignment `json:"assignments"`
	Stats       *segment.Stats     `json:"stats"`
}

type icebreakerRequest struct {
	Assignment *model.Assignment `json:"assignment"`
}

type icebreakerResponse struct {
	Icebreaker string                      `json:"icebreaker"`
	Source     model.PersonalizationSource `json:"source"`
}

func newRouter(rs *rules.RuleSet, p *personalize.Personalizer) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(requestLogger)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"http://localhost:3000"},
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/api", func(r chi.Router) {
		r.Post("/segment", func(w http.ResponseWriter, req *http.Request) {
			var body segmentRequest
			if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
				writeError(w, http.StatusBadRequest, "invalid request body")
				return
			}
			for i, l := range body.Leads {
				if l == nil {
					writeError(w, http.StatusBadRequest, fmt.Sprintf("leads[%d] must be an object", i))
					return
				}
			}

			assignments, stats, err := segment.AssignAll(body.Leads, rs, body.Company)
			if err != nil {
				writeError(w, http.StatusBadRequest, err.Error())
				return
			}
			if assignments == nil {
				assignments = []model.Assignment{}
			}
			writeJSON(w, http.StatusOK, segmentResponse{Assignments: assignments, Stats: stats})
		})

		r.Post("/icebreaker", func(w http.ResponseWriter, req *http.Request) {
			var body icebreakerRequest
			if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
				writeError(w, http.StatusBadRequest, "invalid request body")
				return
			}
			if body.Assignment == nil || body.Assignment.Lead == nil || body.Assignment.Lead.Email == "" {
				writeError(w, http.StatusBadRequest, "assignment with lead email is required")
				return
			}

			res := p.Generate(req.Context(), *body.Assignment)
			writeJSON(w, http.StatusOK, icebreakerResponse{Icebreaker: res.Text, Source: res.Source})
		})
	})

	return r
}

func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		zap.L().Info("http request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Duration("duration", time.Since(start)),
			zap.String("request_id", middleware.GetReqID(r.Context())),
		)
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "server port (default from config)")
	rootCmd.AddCommand(serveCmd)
}
