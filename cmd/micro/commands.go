package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/born-ml/micro/internal/httpapi"
	"github.com/born-ml/micro/internal/metrics"
	"github.com/born-ml/micro/internal/wine"
	"github.com/born-ml/micro/onnx"
	"github.com/born-ml/micro/session"
)

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "micro %s\n", version)
		},
	}
}

func newInfoCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "info",
		Short: "Describe the model and its arena layout",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			data, err := a.modelBytes()
			if err != nil {
				return err
			}
			info, err := onnx.GetModelInfoBytes(data)
			if err != nil {
				return err
			}
			if missing := onnx.Unsupported(info); len(missing) > 0 {
				return fmt.Errorf("model uses unsupported operators: %s", strings.Join(missing, ", "))
			}
			sess, err := a.newSession(data, nil)
			if err != nil {
				return err
			}
			defer sess.Close()

			w := cmd.OutOrStdout()
			fmt.Fprintf(w, "fingerprint:  %s\n", info.FingerprintString())
			fmt.Fprintf(w, "size:         %d bytes\n", info.SizeBytes)
			fmt.Fprintf(w, "producer:     %s %s\n", info.ProducerName, info.ProducerVersion)
			fmt.Fprintf(w, "ir/opset:     %d/%d\n", info.IRVersion, info.OpsetVersion)
			fmt.Fprintf(w, "graph:        %s (%d nodes, %d weights)\n", info.GraphName, info.NodeCount, info.WeightCount)
			fmt.Fprintf(w, "ops:          %s\n", strings.Join(info.OpTypes, ", "))
			fmt.Fprintf(w, "input:        %s %v\n", strings.Join(info.InputNames, ", "), sess.InputShape())
			fmt.Fprintf(w, "output:       %s %v\n", strings.Join(info.OutputNames, ", "), sess.OutputShape())
			fmt.Fprintf(w, "arena:        %d / %d bytes\n", sess.ArenaUsed(), sess.ArenaSize())
			return nil
		},
	}
}

func newInferCmd(a *app) *cobra.Command {
	var raw, asJSON bool
	cmd := &cobra.Command{
		Use:   "infer <13 features>",
		Short: "Classify one feature vector",
		Example: "  micro infer --raw 14.23 1.71 2.43 15.6 127 2.8 3.06 0.28 2.29 5.64 1.04 3.92 1065\n" +
			"  micro infer -- 0.9 -0.5 ...\n" +
			"  echo '0.9 -0.5 ...' | micro infer -",
		Args: cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 1 && args[0] == "-" {
				b, err := io.ReadAll(cmd.InOrStdin())
				if err != nil {
					return fmt.Errorf("read features: %w", err)
				}
				args = strings.Fields(string(b))
			}
			features, err := parseFeatures(args, raw)
			if err != nil {
				return err
			}

			data, err := a.modelBytes()
			if err != nil {
				return err
			}
			sess, err := a.newSession(data, nil)
			if err != nil {
				return err
			}
			defer sess.Close()

			scores, err := sess.Infer(features)
			if err != nil {
				return fmt.Errorf("infer (status %d): %w", session.StatusCode(err), err)
			}

			w := cmd.OutOrStdout()
			if asJSON {
				return json.NewEncoder(w).Encode(httpapi.InferResponse{Scores: scores[:], Class: scores.ArgMax()})
			}
			fmt.Fprintf(w, "class:  %d\n", scores.ArgMax())
			parts := make([]string, len(scores))
			for i, v := range scores {
				parts[i] = strconv.FormatFloat(float64(v), 'f', 6, 32)
			}
			fmt.Fprintf(w, "scores: %s\n", strings.Join(parts, " "))
			return nil
		},
	}
	cmd.Flags().BoolVar(&raw, "raw", false, "Features are raw measurements; standardize them first")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the result as JSON")
	return cmd
}

// parseFeatures converts exactly FeatureCount numbers into model input.
func parseFeatures(args []string, raw bool) (session.Features, error) {
	var features session.Features
	if len(args) != session.FeatureCount {
		return features, fmt.Errorf("expected %d features, got %d", session.FeatureCount, len(args))
	}
	vals := make([]float64, len(args))
	for i, s := range args {
		v, err := strconv.ParseFloat(strings.TrimSuffix(s, ","), 64)
		if err != nil {
			return features, fmt.Errorf("feature %d: %w", i, err)
		}
		vals[i] = v
	}
	if raw {
		norm, err := wine.NormalizeSlice(vals)
		if err != nil {
			return features, err
		}
		return session.Features(norm), nil
	}
	for i, v := range vals {
		features[i] = float32(v)
	}
	return features, nil
}

func newExportCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "export <path>",
		Short: "Write the built-in wine model as ONNX",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data := wine.Model()
			if err := os.WriteFile(args[0], data, 0o644); err != nil { //nolint:gosec // model files are public
				return fmt.Errorf("write model: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "wrote %s (%d bytes, fingerprint %016x)\n", args[0], len(data), onnx.Fingerprint(data))
			return nil
		},
	}
}

func newServeCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the model over HTTP",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			data, err := a.modelBytes()
			if err != nil {
				return err
			}
			info, err := onnx.GetModelInfoBytes(data)
			if err != nil {
				return err
			}

			collectors := metrics.New()
			collectors.MustRegister(prometheus.DefaultRegisterer)

			sess, err := a.newSession(data, collectors)
			if err != nil {
				return err
			}
			defer sess.Close()

			mux := httpapi.NewMux(httpapi.NewSessionService(sess, info), httpapi.Options{
				CORSOrigins: a.cfg.CORSOrigins,
				Logger:      &a.logger,
				Metrics:     collectors,
			})
			srv := &http.Server{
				Addr:              a.cfg.Addr,
				Handler:           mux,
				ReadHeaderTimeout: 5 * time.Second,
			}

			errc := make(chan error, 1)
			go func() {
				a.logger.Info().Str("addr", a.cfg.Addr).Str("fingerprint", info.FingerprintString()).Msg("micro listening")
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					errc <- err
				}
				close(errc)
			}()

			// Graceful shutdown (Ctrl+C / SIGTERM)
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			select {
			case err := <-errc:
				return err
			case <-ctx.Done():
			}

			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := srv.Shutdown(shutdownCtx); err != nil {
				a.logger.Warn().Err(err).Msg("graceful shutdown error")
			}
			return nil
		},
	}
	cmd.Flags().String("addr", "", "HTTP listen address (defaults to :8080)")
	return cmd
}
