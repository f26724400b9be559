package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"math/rand"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"github.com/rollcall/rollcall/internal/domain/model"
)

// simulate enrolls synthetic identities against a running server and drives
// recognize/mark traffic at them. Useful for demos and smoke testing.
func newSimulateCommand() *cobra.Command {
	var (
		addr       string
		identities int
		marks      int
		dimension  int
		seed       int64
	)

	cmd := &cobra.Command{
		Use:   "simulate",
		Short: "Enroll synthetic identities and drive recognition traffic",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSimulate(cmd.Context(), simConfig{
				addr:       addr,
				identities: identities,
				marks:      marks,
				dimension:  dimension,
				seed:       seed,
			})
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "http://localhost:8080", "base URL of the running server")
	cmd.Flags().IntVar(&identities, "identities", 10, "number of synthetic identities to enroll")
	cmd.Flags().IntVar(&marks, "marks", 25, "number of mark attempts to drive")
	cmd.Flags().IntVar(&dimension, "dim", 128, "embedding dimension expected by the server")
	cmd.Flags().Int64Var(&seed, "seed", time.Now().UnixNano(), "random seed")
	return cmd
}

type simConfig struct {
	addr       string
	identities int
	marks      int
	dimension  int
	seed       int64
}

func runSimulate(ctx context.Context, cfg simConfig) error {
	rng := rand.New(rand.NewSource(cfg.seed))
	client := &http.Client{Timeout: 10 * time.Second}

	// Each identity gets a random base vector; enrollment and queries use
	// small jitters of it so recognitions land within tolerance.
	bases := make(map[string]model.Embedding, cfg.identities)
	for i := 0; i < cfg.identities; i++ {
		label := fmt.Sprintf("sim-%03d", i)
		bases[label] = randomEmbedding(rng, cfg.dimension)

		body := map[string]any{
			"label":      label,
			"embeddings": []model.Embedding{bases[label], jitter(rng, bases[label], 0.01)},
		}
		if err := postJSON(ctx, client, cfg.addr+"/identities", body, nil); err != nil {
			return fmt.Errorf("enroll %s: %w", label, err)
		}
	}

	labels := make([]string, 0, len(bases))
	for label := range bases {
		labels = append(labels, label)
	}

	success, duplicate := 0, 0
	for i := 0; i < cfg.marks; i++ {
		label := labels[rng.Intn(len(labels))]

		var rec struct {
			Result *struct {
				Label string `json:"label"`
			} `json:"result"`
		}
		query := map[string]any{"embedding": jitter(rng, bases[label], 0.01)}
		if err := postJSON(ctx, client, cfg.addr+"/recognize", query, &rec); err != nil {
			return fmt.Errorf("recognize: %w", err)
		}
		if rec.Result == nil || rec.Result.Label == "Unknown" {
			continue
		}

		var mark struct {
			Status string `json:"status"`
		}
		body := map[string]any{"label": rec.Result.Label}
		if err := postJSON(ctx, client, cfg.addr+"/attendance/mark", body, &mark); err != nil {
			return fmt.Errorf("mark %s: %w", rec.Result.Label, err)
		}
		switch mark.Status {
		case string(model.MarkSuccess):
			success++
		case string(model.MarkAlreadyMarked):
			duplicate++
		}
	}

	fmt.Printf("enrolled %d identities; %d marks (%d new, %d duplicate)\n",
		cfg.identities, cfg.marks, success, duplicate)
	return nil
}

func randomEmbedding(rng *rand.Rand, dim int) model.Embedding {
	out := make(model.Embedding, dim)
	for i := range out {
		out[i] = rng.Float64()
	}
	return out
}

func jitter(rng *rand.Rand, base model.Embedding, scale float64) model.Embedding {
	out := make(model.Embedding, len(base))
	for i, v := range base {
		out[i] = v + (rng.Float64()-0.5)*scale
	}
	return out
}

func postJSON(ctx context.Context, client *http.Client, url string, body, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		return fmt.Errorf("%s: unexpected status %d", url, resp.StatusCode)
	}
	if out != nil {
		return json.NewDecoder(resp.Body).Decode(out)
	}
	return nil
}
