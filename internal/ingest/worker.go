// Package ingest imports recipes from web pages, PDFs and pasted text
// through the SQLite job queue.
package ingest

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/kalambet/larder/internal/metrics"
	"github.com/kalambet/larder/internal/storage"
	"github.com/kalambet/larder/internal/tools"
)

// JobType is the queue type for recipe imports.
const JobType = "recipe_import"

// Import content kinds.
const (
	KindURL  = "url"
	KindHTML = "html"
	KindPDF  = "pdf"
	KindText = "text"
)

const maxFetchSize = 5 << 20 // 5MB

// ErrInvalidRequest wraps every validation failure returned by Enqueue.
var ErrInvalidRequest = errors.New("invalid import request")

// JobStore abstracts the job queue operations.
type JobStore interface {
	EnqueueJob(ctx context.Context, job storage.Job) (string, error)
	ClaimNextJob(ctx context.Context, types []string) (*storage.Job, error)
	CompleteJob(ctx context.Context, id string) error
	FailJob(ctx context.Context, id string, errMsg string) error
}

// RecipeSaver stores imported recipes.
type RecipeSaver interface {
	SaveRecipe(ctx context.Context, r storage.Recipe) (storage.Recipe, error)
}

// Request is the payload of one import job. Content is base64 for PDFs and
// raw text otherwise; URL imports leave it empty.
type Request struct {
	UserID  string   `json:"user_id"`
	Kind    string   `json:"kind"`
	URL     string   `json:"url,omitempty"`
	Content string   `json:"content,omitempty"`
	Name    string   `json:"name,omitempty"`
	Tags    []string `json:"tags,omitempty"`
}

// Validate checks the fields a job needs before it is queued.
func (r Request) Validate() error {
	if r.UserID == "" {
		return errors.New("user_id is required")
	}
	switch r.Kind {
	case KindURL:
		if !strings.HasPrefix(r.URL, "http://") && !strings.HasPrefix(r.URL, "https://") {
			return fmt.Errorf("url must be http or https, got %q", r.URL)
		}
	case KindHTML, KindPDF, KindText:
		if strings.TrimSpace(r.Content) == "" {
			return fmt.Errorf("content is required for %s imports", r.Kind)
		}
	default:
		return fmt.Errorf("unknown import kind %q", r.Kind)
	}
	return nil
}

// Enqueue validates req and queues it, returning the job id.
func Enqueue(ctx context.Context, store JobStore, req Request) (string, error) {
	if req.Kind == "" {
		req.Kind = KindText
		if req.URL != "" {
			req.Kind = KindURL
		}
	}
	if err := req.Validate(); err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	}
	payload, err := json.Marshal(req)
	if err != nil {
		return "", fmt.Errorf("encoding import request: %w", err)
	}
	return store.EnqueueJob(ctx, storage.Job{Type: JobType, PayloadJSON: string(payload)})
}

// Worker processes recipe_import jobs from the SQLite job queue.
type Worker struct {
	store   JobStore
	recipes RecipeSaver
	client  *http.Client
	poll    time.Duration
	logger  *slog.Logger
}

// NewWorker creates a Worker with the given dependencies.
// If pollInterval is <= 0, it defaults to 500ms. A nil client uses one with
// a 15s timeout.
func NewWorker(store JobStore, recipes RecipeSaver, client *http.Client, pollInterval time.Duration) *Worker {
	if pollInterval <= 0 {
		pollInterval = 500 * time.Millisecond
	}
	if client == nil {
		client = &http.Client{Timeout: 15 * time.Second}
	}
	return &Worker{
		store:   store,
		recipes: recipes,
		client:  client,
		poll:    pollInterval,
		logger:  slog.Default(),
	}
}

// Run polls for jobs until ctx is cancelled.
func (w *Worker) Run(ctx context.Context) {
	for {
		if ctx.Err() != nil {
			return
		}

		done, err := w.RunOnce(ctx)
		if err != nil {
			w.logger.Error("worker iteration failed", "error", err)
		}
		if done {
			continue
		}

		select {
		case <-ctx.Done():
			return
		case <-time.After(w.poll):
		}
	}
}

// RunOnce claims and processes a single recipe_import job.
// Returns true if a job was processed (regardless of success/failure).
func (w *Worker) RunOnce(ctx context.Context) (bool, error) {
	job, err := w.store.ClaimNextJob(ctx, []string{JobType})
	if err != nil {
		return false, fmt.Errorf("claiming job: %w", err)
	}
	if job == nil {
		return false, nil
	}

	rec, err := w.processJob(ctx, job)
	if err != nil {
		metrics.ImportJobs.WithLabelValues(storage.JobFailed).Inc()
		w.logger.Warn("import failed", "job_id", job.ID, "attempt", job.Attempts+1, "error", err)
		if failErr := w.store.FailJob(ctx, job.ID, err.Error()); failErr != nil {
			w.logger.Error("failed to mark job as failed", "job_id", job.ID, "error", failErr)
		}
		return true, nil
	}

	if err := w.store.CompleteJob(ctx, job.ID); err != nil {
		return true, fmt.Errorf("completing job %s: %w", job.ID, err)
	}
	metrics.ImportJobs.WithLabelValues(storage.JobCompleted).Inc()
	w.logger.Info("recipe imported", "job_id", job.ID, "recipe_id", rec.ID, "ingredients", len(rec.Ingredients))
	return true, nil
}

func (w *Worker) processJob(ctx context.Context, job *storage.Job) (storage.Recipe, error) {
	var req Request
	if err := json.Unmarshal([]byte(job.PayloadJSON), &req); err != nil {
		return storage.Recipe{}, fmt.Errorf("parsing payload: %w", err)
	}
	if err := req.Validate(); err != nil {
		return storage.Recipe{}, fmt.Errorf("invalid payload: %w", err)
	}

	doc, err := w.extract(ctx, req)
	if err != nil {
		return storage.Recipe{}, err
	}
	rec := Recipe(doc, req)
	if rec.Name == "" {
		return storage.Recipe{}, errors.New("no recipe title found")
	}
	if len(rec.Ingredients) == 0 {
		return storage.Recipe{}, fmt.Errorf("no ingredients found in %q", rec.Name)
	}
	saved, err := w.recipes.SaveRecipe(ctx, rec)
	if err != nil {
		return storage.Recipe{}, fmt.Errorf("saving recipe: %w", err)
	}
	return saved, nil
}

func (w *Worker) extract(ctx context.Context, req Request) (Document, error) {
	switch req.Kind {
	case KindURL:
		body, contentType, err := w.fetch(ctx, req.URL)
		if err != nil {
			return Document{}, err
		}
		if strings.Contains(contentType, "application/pdf") || strings.HasSuffix(strings.ToLower(req.URL), ".pdf") {
			return FromPDF(bytes.NewReader(body), int64(len(body)))
		}
		if strings.HasPrefix(contentType, "text/plain") {
			return FromText(string(body)), nil
		}
		return FromHTML(bytes.NewReader(body))
	case KindHTML:
		return FromHTML(strings.NewReader(req.Content))
	case KindPDF:
		data, err := base64.StdEncoding.DecodeString(req.Content)
		if err != nil {
			return Document{}, fmt.Errorf("decoding pdf content: %w", err)
		}
		return FromPDF(bytes.NewReader(data), int64(len(data)))
	default:
		return FromText(req.Content), nil
	}
}

func (w *Worker) fetch(ctx context.Context, url string) ([]byte, string, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, "", fmt.Errorf("invalid url: %w", err)
	}
	httpReq.Header.Set("Accept", "text/html,application/pdf,text/plain;q=0.9,*/*;q=0.5")
	resp, err := w.client.Do(httpReq)
	if err != nil {
		return nil, "", fmt.Errorf("fetching %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, "", fmt.Errorf("%s returned status %d", url, resp.StatusCode)
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxFetchSize))
	if err != nil {
		return nil, "", fmt.Errorf("reading %s: %w", url, err)
	}
	return body, resp.Header.Get("Content-Type"), nil
}

// Recipe converts an extracted document into a recipe owned by req.UserID.
// Ingredient lines go through the same parser as pasted text.
func Recipe(doc Document, req Request) storage.Recipe {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		name = strings.TrimSpace(doc.Title)
	}
	return storage.Recipe{
		UserID:       req.UserID,
		Name:         name,
		Instructions: doc.Instructions,
		Servings:     doc.Servings,
		Tags:         req.Tags,
		SourceURL:    req.URL,
		Ingredients:  tools.IngredientsFromText(strings.Join(doc.Ingredients, "\n")),
	}
}
