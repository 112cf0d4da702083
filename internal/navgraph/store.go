// internal/navgraph/store.go
package navgraph

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/net/publicsuffix"

	"github.com/dsoriano-dev/webknow/api/schemas"
	"github.com/dsoriano-dev/webknow/internal/llmutil"
)

const (
	graphFileSuffix = "_graph.json"
	// maxContextChars caps each graph's contribution to a prompt context.
	maxContextChars = 10000

	// EmptyContextPlaceholder is injected when no graph is known for a site.
	EmptyContextPlaceholder = "No previous navigation patterns available for this website."

	truncationMarker = "...\n[Content truncated for brevity]"
)

// Record is one stored navigation graph with its file metadata. Content is
// the raw JSON text; prompt injection never re-serializes it.
type Record struct {
	Path       string
	Content    string
	ModTime    time.Time
	WebsiteURL string
}

// Store persists one navigation graph JSON file per website domain and
// consolidates repeat visits through an LLM merge.
type Store struct {
	dir    string
	llm    schemas.LLMClient
	fuzzy  bool
	logger *zap.Logger
}

// NewStore creates the store rooted at dir, creating it if needed. llm may be
// nil; merges then degrade to overwrite-with-new.
func NewStore(dir string, llm schemas.LLMClient, fuzzyLookup bool, logger *zap.Logger) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create navigation graph directory %s: %w", dir, err)
	}
	return &Store{
		dir:    dir,
		llm:    llm,
		fuzzy:  fuzzyLookup,
		logger: logger.Named("navgraph"),
	}, nil
}

// DomainKey derives the storage key for a website URL. The registrable
// domain is resolved against the public suffix list so multi-label suffixes
// key correctly (shop.amazon.co.uk -> "shop_amazon"). Unparseable input
// falls back to a string-splitting heuristic.
func DomainKey(rawURL string) string {
	host := hostOf(rawURL)
	host = strings.TrimPrefix(host, "www.")
	if host == "" {
		return ""
	}

	suffix, icann := publicsuffix.PublicSuffix(host)
	if icann && suffix != "" && suffix != host {
		trimmed := strings.TrimSuffix(host, "."+suffix)
		if trimmed != "" && trimmed != host {
			return strings.ReplaceAll(trimmed, ".", "_")
		}
	}

	return legacyDomainKey(host)
}

// legacyDomainKey is the historical heuristic: drop the last dot-separated
// label and join the rest with underscores. It misjudges multi-label public
// suffixes but matches keys produced by older data.
func legacyDomainKey(host string) string {
	parts := strings.Split(host, ".")
	if len(parts) > 1 {
		return strings.Join(parts[:len(parts)-1], "_")
	}
	return host
}

func hostOf(rawURL string) string {
	if u, err := url.Parse(rawURL); err == nil && u.Host != "" {
		return strings.ToLower(u.Hostname())
	}
	// Manual extraction for scheme-less or malformed input.
	s := strings.ToLower(rawURL)
	if i := strings.Index(s, "://"); i >= 0 {
		s = s[i+3:]
	}
	if i := strings.IndexAny(s, "/?#"); i >= 0 {
		s = s[:i]
	}
	if i := strings.Index(s, ":"); i >= 0 {
		s = s[:i]
	}
	s = strings.TrimSpace(s)
	// A hostname cannot contain whitespace; free text yields no key.
	if strings.ContainsAny(s, " \t") {
		return ""
	}
	return s
}

// Find returns the stored graph for a website, if one exists and is not
// older than maxAge. The second return value is false both for missing and
// stale graphs.
func (s *Store) Find(websiteURL string, maxAge time.Duration) (*Record, bool, error) {
	path, ok, err := s.findGraphFile(websiteURL)
	if err != nil || !ok {
		return nil, false, err
	}

	info, err := os.Stat(path)
	if err != nil {
		return nil, false, fmt.Errorf("failed to stat graph file %s: %w", path, err)
	}
	if maxAge > 0 && time.Since(info.ModTime()) > maxAge {
		s.logger.Info("Navigation graph found but too old",
			zap.String("file", filepath.Base(path)),
			zap.Time("mod_time", info.ModTime()))
		return nil, false, nil
	}

	content, err := os.ReadFile(path)
	if err != nil {
		return nil, false, fmt.Errorf("failed to read graph file %s: %w", path, err)
	}

	return &Record{
		Path:       path,
		Content:    string(content),
		ModTime:    info.ModTime(),
		WebsiteURL: websiteURL,
	}, true, nil
}

// findGraphFile resolves the graph file for a URL. Exact key match first;
// when fuzzy lookup is enabled, substring matching in both directions and
// then a first-segment match cover legacy keys.
func (s *Store) findGraphFile(websiteURL string) (string, bool, error) {
	key := DomainKey(websiteURL)
	if key == "" {
		return "", false, nil
	}

	exact := filepath.Join(s.dir, key+graphFileSuffix)
	if _, err := os.Stat(exact); err == nil {
		return exact, true, nil
	}

	if !s.fuzzy {
		return "", false, nil
	}

	entries, err := filepath.Glob(filepath.Join(s.dir, "*"+graphFileSuffix))
	if err != nil {
		return "", false, fmt.Errorf("failed to list graph files: %w", err)
	}

	for _, path := range entries {
		stem := strings.TrimSuffix(filepath.Base(path), graphFileSuffix)
		if strings.Contains(stem, key) || strings.Contains(key, stem) {
			s.logger.Debug("Navigation graph matched by substring",
				zap.String("key", key), zap.String("file", filepath.Base(path)))
			return path, true, nil
		}
	}

	mainSegment := key
	if i := strings.Index(key, "_"); i >= 0 {
		mainSegment = key[:i]
	}
	for _, path := range entries {
		stem := strings.TrimSuffix(filepath.Base(path), graphFileSuffix)
		if strings.Contains(stem, mainSegment) {
			s.logger.Debug("Navigation graph matched by first segment",
				zap.String("key", key), zap.String("file", filepath.Base(path)))
			return path, true, nil
		}
	}

	return "", false, nil
}

// Save persists a navigation graph fragment for a website. First sighting of
// a domain writes the fragment verbatim; a repeat sighting asks the LLM to
// merge old and new into one unified graph. When the merge fails or no LLM
// is configured, the new fragment overwrites the old graph; losing the old
// graph is preferred over blocking knowledge accumulation.
func (s *Store) Save(ctx context.Context, graphJSON, websiteURL string) error {
	key := DomainKey(websiteURL)
	if key == "" {
		return fmt.Errorf("cannot derive domain key from URL %q", websiteURL)
	}

	if !json.Valid([]byte(graphJSON)) {
		return fmt.Errorf("refusing to save invalid graph JSON for %s", websiteURL)
	}

	path := filepath.Join(s.dir, key+graphFileSuffix)
	existing, found, err := s.Find(websiteURL, 0)
	if err != nil {
		return err
	}

	content := graphJSON
	if found {
		merged, err := s.merge(ctx, existing.Content, graphJSON)
		if err != nil {
			var me *MergeError
			if errors.As(err, &me) {
				s.logger.Warn("Graph merge failed, overwriting with new graph",
					zap.String("domain_key", key), zap.Error(err))
			} else {
				return err
			}
		} else {
			content = merged
		}
		// Legacy fuzzy matches may live under a different key; keep them in
		// place instead of forking a second file for the same site.
		path = existing.Path
	}

	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		return fmt.Errorf("failed to write graph file %s: %w", path, err)
	}

	s.logger.Info("Navigation graph saved",
		zap.String("domain_key", key),
		zap.String("file", filepath.Base(path)),
		zap.Bool("merged", found))
	return nil
}

// merge asks the LLM to consolidate two graphs. The completion is scanned
// for a fenced JSON block first, then for a bare brace-delimited object.
func (s *Store) merge(ctx context.Context, existingJSON, newJSON string) (string, error) {
	if s.llm == nil {
		return "", &MergeError{Kind: LLMUnavailable}
	}

	userPrompt := fmt.Sprintf("Here are the navigation graphs to merge.\n\nGraph 1 (existing knowledge):\n```json\n%s\n```\n\nGraph 2 (new attempt):\n```json\n%s\n```", existingJSON, newJSON)

	completion, err := s.llm.Generate(ctx, schemas.GenerationRequest{
		SystemPrompt: mergeSystemPrompt,
		Messages:     []schemas.Message{{Text: userPrompt}},
		Tier:         schemas.TierFast,
	})
	if err != nil {
		return "", &MergeError{Kind: LLMUnavailable, Err: err}
	}

	block, ok := llmutil.FirstFencedJSON(completion)
	if !ok {
		block, ok = llmutil.LooseJSONObject(completion)
	}
	if !ok {
		return "", &MergeError{Kind: ExtractionFailed, Err: fmt.Errorf("no JSON object in merge completion")}
	}
	if !json.Valid([]byte(block)) {
		return "", &MergeError{Kind: ExtractionFailed, Err: fmt.Errorf("merge completion JSON does not parse")}
	}
	return block, nil
}

// BuildContext renders stored graphs for prompt injection. Each graph is
// capped at maxContextChars; an empty input yields a fixed placeholder so
// downstream prompts always have a navigation section.
func (s *Store) BuildContext(records []*Record, maxGraphs int) string {
	if len(records) == 0 {
		return EmptyContextPlaceholder
	}
	if maxGraphs > 0 && len(records) > maxGraphs {
		records = records[:maxGraphs]
	}

	parts := []string{"## Navigation graph of this website:\n"}
	for _, rec := range records {
		content := rec.Content
		if len(content) > maxContextChars {
			content = content[:maxContextChars] + truncationMarker
		}
		parts = append(parts, content)
	}
	return strings.Join(parts, "\n")
}
