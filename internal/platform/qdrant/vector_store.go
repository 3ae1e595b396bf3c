package qdrant

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/yungbote/docchat-backend/internal/platform/logger"
	"github.com/yungbote/docchat-backend/internal/platform/vectorstore"
)

const defaultRequestTimeout = 30 * time.Second

type store struct {
	cfg    Config
	http   *http.Client
	log    *logger.Logger
	points string
}

// NewVectorStore validates the config and bootstraps the collection: it is
// created with cosine distance when absent, and when present its vector size
// must match cfg.VectorDim so a changed embedding model fails at startup
// instead of corrupting the index.
func NewVectorStore(ctx context.Context, cfg Config, baseLog *logger.Logger) (vectorstore.VectorStore, error) {
	if baseLog == nil {
		return nil, fmt.Errorf("logger required")
	}
	if err := ValidateConfig(cfg); err != nil {
		return nil, err
	}
	s := &store{
		cfg:    cfg,
		http:   &http.Client{Timeout: defaultRequestTimeout},
		log:    baseLog.With("service", "QdrantVectorStore", "collection", cfg.Collection),
		points: fmt.Sprintf("/collections/%s/points", cfg.Collection),
	}
	if err := s.ensureCollection(ctx); err != nil {
		return nil, err
	}
	return s, nil
}

type collectionInfo struct {
	Config struct {
		Params struct {
			Vectors struct {
				Size     int    `json:"size"`
				Distance string `json:"distance"`
			} `json:"vectors"`
		} `json:"params"`
	} `json:"config"`
}

func (s *store) ensureCollection(ctx context.Context) error {
	const op = "ensure_collection"
	var info collectionInfo
	status, err := s.doJSON(ctx, op, http.MethodGet, "/collections/"+s.cfg.Collection, nil, &info)
	if err == nil && status == http.StatusOK {
		if got := info.Config.Params.Vectors.Size; got != s.cfg.VectorDim {
			return opErr(op, OperationErrorValidation,
				fmt.Sprintf("collection vector size %d does not match configured dimension %d", got, s.cfg.VectorDim), nil)
		}
		return nil
	}
	if err != nil {
		var oe *OperationError
		if !errors.As(err, &oe) || oe.StatusCode != http.StatusNotFound {
			return err
		}
	}

	body := map[string]any{
		"vectors": map[string]any{
			"size":     s.cfg.VectorDim,
			"distance": "Cosine",
		},
	}
	if _, err := s.doJSON(ctx, op, http.MethodPut, "/collections/"+s.cfg.Collection, body, nil); err != nil {
		return err
	}
	s.log.Info("created qdrant collection", "dim", s.cfg.VectorDim)
	return nil
}

func (s *store) Upsert(ctx context.Context, vectors []vectorstore.Vector) error {
	const op = "upsert_points"
	if len(vectors) == 0 {
		return nil
	}
	points := make([]map[string]any, 0, len(vectors))
	for _, v := range vectors {
		if v.ID == "" {
			return opErr(op, OperationErrorValidation, "vector id is required", nil)
		}
		if len(v.Values) != s.cfg.VectorDim {
			return opErr(op, OperationErrorValidation,
				fmt.Sprintf("vector %s dimension mismatch: expected=%d got=%d", v.ID, s.cfg.VectorDim, len(v.Values)), nil)
		}
		points = append(points, map[string]any{
			"id":      v.ID,
			"vector":  v.Values,
			"payload": v.Payload,
		})
	}
	body := map[string]any{"points": points}
	_, err := s.doJSON(ctx, op, http.MethodPut, s.points+"?wait=true", body, nil)
	return err
}

type searchHit struct {
	ID      string         `json:"id"`
	Score   float64        `json:"score"`
	Payload map[string]any `json:"payload"`
}

func (s *store) Query(ctx context.Context, q []float32, topK int, documentIDs []string) ([]vectorstore.Match, error) {
	const op = "search_points"
	if len(q) != s.cfg.VectorDim {
		return nil, opErr(op, OperationErrorValidation,
			fmt.Sprintf("query vector dimension mismatch: expected=%d got=%d", s.cfg.VectorDim, len(q)), nil)
	}
	if topK <= 0 {
		return nil, opErr(op, OperationErrorValidation, fmt.Sprintf("topK must be positive, got %d", topK), nil)
	}
	body := map[string]any{
		"vector":       q,
		"limit":        topK,
		"with_payload": true,
	}
	if len(documentIDs) > 0 {
		body["filter"] = documentFilter(documentIDs...)
	}
	var hits []searchHit
	if _, err := s.doJSON(ctx, op, http.MethodPost, s.points+"/search", body, &hits); err != nil {
		return nil, err
	}
	matches := make([]vectorstore.Match, 0, len(hits))
	for _, h := range hits {
		matches = append(matches, vectorstore.Match{ID: h.ID, Score: h.Score, Payload: h.Payload})
	}
	sortMatches(matches)
	return matches, nil
}

func (s *store) DeleteIDs(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	body := map[string]any{"points": ids}
	_, err := s.doJSON(ctx, "delete_points", http.MethodPost, s.points+"/delete?wait=true", body, nil)
	return err
}

func (s *store) DeleteByDocument(ctx context.Context, documentID string) error {
	body := map[string]any{"filter": documentFilter(documentID)}
	_, err := s.doJSON(ctx, "delete_points", http.MethodPost, s.points+"/delete?wait=true", body, nil)
	return err
}

type countResult struct {
	Count int `json:"count"`
}

func (s *store) CountByDocument(ctx context.Context, documentID string) (int, error) {
	body := map[string]any{
		"filter": documentFilter(documentID),
		"exact":  true,
	}
	var res countResult
	if _, err := s.doJSON(ctx, "count_points", http.MethodPost, s.points+"/count", body, &res); err != nil {
		return 0, err
	}
	return res.Count, nil
}

func (s *store) Count(ctx context.Context) (int, error) {
	body := map[string]any{"exact": true}
	var res countResult
	if _, err := s.doJSON(ctx, "count_points", http.MethodPost, s.points+"/count", body, &res); err != nil {
		return 0, err
	}
	return res.Count, nil
}

func documentFilter(documentIDs ...string) map[string]any {
	return map[string]any{
		"must": []map[string]any{
			{
				"key":   vectorstore.PayloadDocumentID,
				"match": map[string]any{"any": documentIDs},
			},
		},
	}
}

func sortMatches(matches []vectorstore.Match) {
	sort.SliceStable(matches, func(i, j int) bool {
		if matches[i].Score == matches[j].Score {
			return matches[i].ID < matches[j].ID
		}
		return matches[i].Score > matches[j].Score
	})
}

type envelope struct {
	Result json.RawMessage `json:"result"`
	Status json.RawMessage `json:"status"`
}

// doJSON issues one request and decodes the {result,status,time} envelope into
// out when out is non-nil. It returns the HTTP status so callers can branch on
// 404 during collection bootstrap.
func (s *store) doJSON(ctx context.Context, op, method, path string, in, out any) (int, error) {
	var payload io.Reader
	if in != nil {
		buf, err := json.Marshal(in)
		if err != nil {
			return 0, opErr(op, OperationErrorEncodeFailed, "", err)
		}
		payload = bytes.NewReader(buf)
	}
	req, err := http.NewRequestWithContext(ctx, method, strings.TrimRight(s.cfg.URL, "/")+path, payload)
	if err != nil {
		return 0, opErr(op, OperationErrorEncodeFailed, "", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if s.cfg.APIKey != "" {
		req.Header.Set("api-key", s.cfg.APIKey)
	}

	resp, err := s.http.Do(req)
	if err != nil {
		code := OperationErrorTransportFailed
		if errors.Is(err, context.DeadlineExceeded) {
			code = OperationErrorTimeout
		}
		return 0, opErr(op, code, "", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 16<<20))
	if err != nil {
		return resp.StatusCode, opErr(op, OperationErrorTransportFailed, "", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return resp.StatusCode, &OperationError{
			Code:       OperationErrorRequestFailed,
			Operation:  op,
			StatusCode: resp.StatusCode,
			Message:    truncate(string(raw), 512),
		}
	}
	if out != nil {
		var env envelope
		if err := json.Unmarshal(raw, &env); err != nil {
			return resp.StatusCode, opErr(op, OperationErrorDecodeFailed, "", err)
		}
		if err := json.Unmarshal(env.Result, out); err != nil {
			return resp.StatusCode, opErr(op, OperationErrorDecodeFailed, "", err)
		}
	}
	return resp.StatusCode, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
