// internal/planstore/store.go
package planstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"

	"github.com/dsoriano-dev/webknow/api/schemas"
	"github.com/dsoriano-dev/webknow/internal/navgraph"
)

const createTableStmt = `
CREATE TABLE IF NOT EXISTS plans (
	id          TEXT PRIMARY KEY,
	title       TEXT NOT NULL,
	body        TEXT NOT NULL,
	task_id     TEXT NOT NULL,
	website_url TEXT NOT NULL DEFAULT '',
	created_at  TIMESTAMP NOT NULL,
	embedding   TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_plans_title ON plans(title);
`

// Store persists successful task plans in a local sqlite database and ranks
// them for retrieval by cosine distance over title embeddings. Titles are
// non-unique; every stored attempt keeps its own row.
type Store struct {
	db       *sql.DB
	embedder schemas.EmbeddingClient
	logger   *zap.Logger
}

// Stats summarizes the stored plan corpus.
type Stats struct {
	TotalPlans     int      `json:"total_plans"`
	UniqueTitles   int      `json:"unique_titles"`
	UniqueWebsites int      `json:"unique_websites"`
	Titles         []string `json:"titles"`
}

// Open opens (creating if needed) the plan database at path.
func Open(path string, embedder schemas.EmbeddingClient, logger *zap.Logger) (*Store, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, &StoreError{Kind: IOFailure, Err: fmt.Errorf("failed to open plan database %s: %w", path, err)}
	}
	if _, err := db.Exec(createTableStmt); err != nil {
		db.Close()
		return nil, &StoreError{Kind: IOFailure, Err: fmt.Errorf("failed to initialize plan schema: %w", err)}
	}
	return &Store{
		db:       db,
		embedder: embedder,
		logger:   logger.Named("planstore"),
	}, nil
}

// Close releases the underlying database handle.
func (s *Store) Close() error { return s.db.Close() }

// Store inserts each title/body pair as one plan row, embedding the title
// only. Insertion is best-effort bulk: one bad plan never blocks the rest.
// Returns true when at least one plan was stored (or the input was empty).
func (s *Store) Store(ctx context.Context, plans map[string]string, taskID, websiteURL string) (bool, error) {
	if len(plans) == 0 {
		s.logger.Warn("No plans to store")
		return true, nil
	}

	var stored int
	var lastErr error
	for title, body := range plans {
		if err := s.storeOne(ctx, title, body, taskID, websiteURL); err != nil {
			s.logger.Error("Failed to store plan", zap.String("title", title), zap.Error(err))
			lastErr = err
			continue
		}
		stored++
		s.logger.Info("Plan stored", zap.String("title", title))
	}

	if stored == 0 {
		return false, lastErr
	}
	if stored < len(plans) {
		s.logger.Warn("Stored only part of the plan batch",
			zap.Int("stored", stored), zap.Int("total", len(plans)))
	}
	return true, nil
}

func (s *Store) storeOne(ctx context.Context, title, body, taskID, websiteURL string) error {
	vector, err := s.embedder.Embed(ctx, title, schemas.EmbedDocument)
	if err != nil {
		return &StoreError{Kind: EmbeddingFailure, Err: err}
	}
	encoded, err := json.Marshal(vector)
	if err != nil {
		return &StoreError{Kind: EmbeddingFailure, Err: err}
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO plans (id, title, body, task_id, website_url, created_at, embedding) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		uuid.NewString(), title, body, taskID, websiteURL, time.Now().UTC(), string(encoded))
	if err != nil {
		return &StoreError{Kind: IOFailure, Err: err}
	}
	return nil
}

// FindSimilar embeds the query title and returns the topK stored plans by
// ascending cosine distance. No relevance threshold is applied; with fewer
// than topK rows, all are returned.
func (s *Store) FindSimilar(ctx context.Context, title string, topK int) ([]schemas.RankedPlan, error) {
	query, err := s.embedder.Embed(ctx, title, schemas.EmbedQuery)
	if err != nil {
		return nil, &StoreError{Kind: EmbeddingFailure, Err: err}
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, title, body, task_id, website_url, created_at, embedding FROM plans`)
	if err != nil {
		return nil, &StoreError{Kind: IOFailure, Err: err}
	}
	defer rows.Close()

	var ranked []schemas.RankedPlan
	for rows.Next() {
		var plan schemas.Plan
		var encoded string
		if err := rows.Scan(&plan.ID, &plan.TaskTitle, &plan.Body, &plan.TaskID, &plan.WebsiteURL, &plan.CreatedAt, &encoded); err != nil {
			return nil, &StoreError{Kind: IOFailure, Err: err}
		}
		var vector []float64
		if err := json.Unmarshal([]byte(encoded), &vector); err != nil {
			s.logger.Warn("Skipping plan with unreadable embedding", zap.String("id", plan.ID), zap.Error(err))
			continue
		}
		ranked = append(ranked, schemas.RankedPlan{
			Plan:     plan,
			Distance: cosineDistance(query, vector),
		})
	}
	if err := rows.Err(); err != nil {
		return nil, &StoreError{Kind: IOFailure, Err: err}
	}

	sort.SliceStable(ranked, func(i, j int) bool { return ranked[i].Distance < ranked[j].Distance })
	if topK > 0 && len(ranked) > topK {
		ranked = ranked[:topK]
	}

	s.logger.Info("Similar plans retrieved", zap.String("title", title), zap.Int("count", len(ranked)))
	return ranked, nil
}

// BuildContext renders ranked plans for prompt injection, in input order.
// Empty input yields an empty string, not a placeholder; the guide generator
// uses that to detect a no-knowledge situation.
func (s *Store) BuildContext(ranked []schemas.RankedPlan) string {
	if len(ranked) == 0 {
		return ""
	}

	out := "## The user found potential helpful guides for this task:\n\n"
	for i, rp := range ranked {
		out += fmt.Sprintf("### Guide %d: %s\n\n%s\n\n", i+1, rp.TaskTitle, rp.Body)
	}
	out += "If useful, use these previous successful plans as reference to improve your approach "
	return out
}

// ClearAll deletes every stored plan and returns the number removed.
func (s *Store) ClearAll(ctx context.Context) (int64, error) {
	return s.deleteWhere(ctx, `DELETE FROM plans`)
}

// DeleteByTitle removes all plans with the exact task title.
func (s *Store) DeleteByTitle(ctx context.Context, title string) (int64, error) {
	return s.deleteWhere(ctx, `DELETE FROM plans WHERE title = ?`, title)
}

// DeleteByDomain removes plans whose website resolves to the same domain key
// as the given URL.
func (s *Store) DeleteByDomain(ctx context.Context, websiteURL string) (int64, error) {
	key := navgraph.DomainKey(websiteURL)
	if key == "" {
		return 0, &StoreError{Kind: IOFailure, Err: fmt.Errorf("cannot derive domain key from %q", websiteURL)}
	}

	rows, err := s.db.QueryContext(ctx, `SELECT id, website_url FROM plans WHERE website_url != ''`)
	if err != nil {
		return 0, &StoreError{Kind: IOFailure, Err: err}
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id, site string
		if err := rows.Scan(&id, &site); err != nil {
			return 0, &StoreError{Kind: IOFailure, Err: err}
		}
		if navgraph.DomainKey(site) == key {
			ids = append(ids, id)
		}
	}
	if err := rows.Err(); err != nil {
		return 0, &StoreError{Kind: IOFailure, Err: err}
	}

	var deleted int64
	for _, id := range ids {
		n, err := s.deleteWhere(ctx, `DELETE FROM plans WHERE id = ?`, id)
		if err != nil {
			return deleted, err
		}
		deleted += n
	}
	s.logger.Info("Plans deleted by domain", zap.String("domain_key", key), zap.Int64("count", deleted))
	return deleted, nil
}

// ListAll returns every stored plan, newest first.
func (s *Store) ListAll(ctx context.Context) ([]schemas.Plan, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, title, body, task_id, website_url, created_at FROM plans ORDER BY created_at DESC`)
	if err != nil {
		return nil, &StoreError{Kind: IOFailure, Err: err}
	}
	defer rows.Close()

	var plans []schemas.Plan
	for rows.Next() {
		var plan schemas.Plan
		if err := rows.Scan(&plan.ID, &plan.TaskTitle, &plan.Body, &plan.TaskID, &plan.WebsiteURL, &plan.CreatedAt); err != nil {
			return nil, &StoreError{Kind: IOFailure, Err: err}
		}
		plans = append(plans, plan)
	}
	if err := rows.Err(); err != nil {
		return nil, &StoreError{Kind: IOFailure, Err: err}
	}
	return plans, nil
}

// Stats returns aggregate counts over the stored corpus.
func (s *Store) Stats(ctx context.Context) (*Stats, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT title, website_url FROM plans`)
	if err != nil {
		return nil, &StoreError{Kind: IOFailure, Err: err}
	}
	defer rows.Close()

	stats := &Stats{}
	titles := map[string]bool{}
	websites := map[string]bool{}
	for rows.Next() {
		var title, site string
		if err := rows.Scan(&title, &site); err != nil {
			return nil, &StoreError{Kind: IOFailure, Err: err}
		}
		stats.TotalPlans++
		if !titles[title] {
			titles[title] = true
			stats.Titles = append(stats.Titles, title)
		}
		if site != "" {
			websites[site] = true
		}
	}
	if err := rows.Err(); err != nil {
		return nil, &StoreError{Kind: IOFailure, Err: err}
	}

	stats.UniqueTitles = len(titles)
	stats.UniqueWebsites = len(websites)
	sort.Strings(stats.Titles)
	return stats, nil
}

func (s *Store) deleteWhere(ctx context.Context, stmt string, args ...any) (int64, error) {
	res, err := s.db.ExecContext(ctx, stmt, args...)
	if err != nil {
		return 0, &StoreError{Kind: IOFailure, Err: err}
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, &StoreError{Kind: IOFailure, Err: err}
	}
	return n, nil
}

// cosineDistance is 1 minus the cosine similarity of a and b. Mismatched
// lengths or zero vectors get distance 1 (orthogonal), ranking behind any
// genuinely similar plan.
func cosineDistance(a, b []float64) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 1
	}
	var dot, normA, normB float64
	for i := range a {
		dot += a[i] * b[i]
		normA += a[i] * a[i]
		normB += b[i] * b[i]
	}
	if normA == 0 || normB == 0 {
		return 1
	}
	return 1 - dot/(math.Sqrt(normA)*math.Sqrt(normB))
}
