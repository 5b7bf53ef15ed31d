package predict

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"golang.org/x/sync/errgroup"

	"github.com/go-sod/knn/internal/dataset"
	"github.com/go-sod/knn/internal/geom"
	"github.com/go-sod/knn/internal/httputil"
	"github.com/go-sod/knn/internal/logging"
	"github.com/go-sod/knn/internal/predictor"
	"github.com/go-sod/knn/internal/predictor/knn"
)

// request carries either one query or a batch. A missing dataset means the seed dataset.
type request struct {
	Dataset geom.Dataset `json:"dataset"`
	Query   *geom.Point  `json:"query"`
	Queries []geom.Point `json:"queries"`
	K       *int         `json:"k"`
	Metric  geom.Metric  `json:"metric"`
	P       *float64     `json:"p"`
}

type prediction struct {
	Query     geom.Point     `json:"query"`
	Label     *string        `json:"label"`
	Counts    map[string]int `json:"counts"`
	Neighbors []knn.Neighbor `json:"neighbors"`
}

type batchResponse struct {
	Predictions []prediction `json:"predictions"`
}

func newPrediction(p *knn.Prediction) prediction {
	out := prediction{Query: p.Query, Counts: map[string]int{}, Neighbors: p.Neighbors}
	if label, ok := p.Label(); ok {
		out.Label = &label
		out.Counts = p.Vote.Counts
	}
	return out
}

func NewHandler(cfg *Config, p *predictor.Predictor) (http.Handler, error) {
	if p == nil {
		return nil, errors.New("predict handler requires a predictor")
	}
	return &handler{
		cfg:       cfg,
		predictor: p,
	}, nil
}

type handler struct {
	predictor *predictor.Predictor
	cfg       *Config
}

func (h *handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var req request
	ctx, cancel := context.WithTimeout(r.Context(), h.cfg.RequestTimeout)
	defer cancel()
	logger := logging.FromContext(ctx)

	defer r.Body.Close()
	if !httputil.DecodeJSON(ctx, w, r, h.cfg.MaxBodyBytes, &req) {
		return
	}

	switch {
	case req.Query == nil && len(req.Queries) == 0:
		httputil.RespBadRequest(ctx, w, "one of query or queries is required")
		return
	case req.Query != nil && len(req.Queries) > 0:
		httputil.RespBadRequest(ctx, w, "query and queries are mutually exclusive")
		return
	case len(req.Queries) > h.cfg.MaxQueries:
		httputil.RespBadRequest(ctx, w, "queries is too large, max allowed len is %d", h.cfg.MaxQueries)
		return
	case len(req.Dataset) > h.cfg.MaxDatasetLen:
		httputil.RespBadRequest(ctx, w, "dataset is too large, max allowed len is %d", h.cfg.MaxDatasetLen)
		return
	}
	if req.Dataset == nil {
		req.Dataset = dataset.Seed()
	}
	overrides := predictor.Overrides{K: req.K, Metric: req.Metric, P: req.P}

	if req.Query != nil {
		result, err := h.predictor.Predict(ctx, *req.Query, req.Dataset, overrides)
		if err != nil {
			respPredictErr(ctx, w, err)
			return
		}
		httputil.RespJSON(ctx, w, http.StatusOK, newPrediction(result))
		return
	}

	results := make([]prediction, len(req.Queries))
	errGrp, gctx := errgroup.WithContext(ctx)
	for i, q := range req.Queries {
		i, q := i, q
		errGrp.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			result, err := h.predictor.Predict(gctx, q, req.Dataset, overrides)
			if err != nil {
				return fmt.Errorf("predict %v: %w", q, err)
			}
			results[i] = newPrediction(result)
			return nil
		})
	}
	if err := errGrp.Wait(); err != nil {
		respPredictErr(ctx, w, err)
		return
	}
	logger.Debugf("classified %d queries over %d points", len(results), req.Dataset.Len())
	httputil.RespJSON(ctx, w, http.StatusOK, batchResponse{Predictions: results})
}

func respPredictErr(ctx context.Context, w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, geom.ErrInvalidMetric):
		httputil.RespBadRequest(ctx, w, "%v", err)
	case errors.Is(err, context.DeadlineExceeded):
		httputil.RespError(w, http.StatusServiceUnavailable, "predict timed out")
	default:
		httputil.RespInternalError(ctx, w, "predict processing error, %v", err)
	}
}
