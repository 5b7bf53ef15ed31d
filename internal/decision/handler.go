// Package decision serves decision boundary grids over HTTP.
package decision

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"golang.org/x/time/rate"

	"github.com/go-sod/knn/internal/boundary"
	"github.com/go-sod/knn/internal/codec"
	"github.com/go-sod/knn/internal/dataset"
	"github.com/go-sod/knn/internal/geom"
	"github.com/go-sod/knn/internal/httputil"
	"github.com/go-sod/knn/internal/logging"
	"github.com/go-sod/knn/internal/predictor"
)

const (
	HeaderSession = "X-Knn-Session"
	HeaderID      = "X-Knn-Id"
	HeaderCached  = "X-Knn-Cached"
)

// request mirrors the boundary inputs. A missing dataset means the seed dataset, a missing
// session falls back to the session header and a missing show flag to Config.Show.
type request struct {
	Session  string           `json:"session"`
	Show     *bool            `json:"show"`
	Dataset  geom.Dataset     `json:"dataset"`
	K        *int             `json:"k"`
	Metric   geom.Metric      `json:"metric"`
	P        *float64         `json:"p"`
	Bounds   *boundary.Bounds `json:"bounds"`
	GridSize *int             `json:"gridSize"`
}

type response struct {
	ID         string             `json:"id"`
	Generation uint64             `json:"generation"`
	Cached     bool               `json:"cached"`
	Params     boundary.Params    `json:"params"`
	Bounds     boundary.Bounds    `json:"bounds"`
	Size       int                `json:"size"`
	Cells      []boundary.Cell    `json:"cells"`
	Shares     map[string]float64 `json:"shares"`
}

func NewHandler(cfg *Config, p *predictor.Predictor) (http.Handler, error) {
	if p == nil {
		return nil, errors.New("boundary handler requires a predictor")
	}
	limit := rate.Inf
	if cfg.RateLimit > 0 {
		limit = rate.Limit(cfg.RateLimit)
	}
	return &handler{
		cfg:       cfg,
		predictor: p,
		limiter:   rate.NewLimiter(limit, cfg.RateBurst),
	}, nil
}

type handler struct {
	cfg       *Config
	predictor *predictor.Predictor
	limiter   *rate.Limiter
}

func (h *handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var req request
	ctx, cancel := context.WithTimeout(r.Context(), h.cfg.RequestTimeout)
	defer cancel()
	logger := logging.FromContext(ctx)

	if !h.limiter.Allow() {
		logger.Debugf("boundary request rate limited")
		w.Header().Set("Retry-After", "1")
		httputil.RespError(w, http.StatusTooManyRequests, "too many boundary requests")
		return
	}

	defer r.Body.Close()
	if !httputil.DecodeJSON(ctx, w, r, h.cfg.MaxBodyBytes, &req) {
		return
	}

	if len(req.Dataset) > h.cfg.MaxDatasetLen {
		httputil.RespBadRequest(ctx, w, "dataset is too large, max allowed len is %d", h.cfg.MaxDatasetLen)
		return
	}
	if req.GridSize != nil && *req.GridSize > h.cfg.MaxGridSize {
		httputil.RespBadRequest(ctx, w, "gridSize is too large, max allowed is %d", h.cfg.MaxGridSize)
		return
	}
	if req.Dataset == nil {
		req.Dataset = dataset.Seed()
	}
	if req.Session == "" {
		req.Session = r.Header.Get(HeaderSession)
	}
	show := h.cfg.Show
	if req.Show != nil {
		show = *req.Show
	}

	result, err := h.predictor.Boundary(ctx, req.Session, req.Dataset, predictor.Overrides{
		K:        req.K,
		Metric:   req.Metric,
		P:        req.P,
		GridSize: req.GridSize,
		Bounds:   req.Bounds,
		Hide:     !show,
	})
	if err != nil {
		respBoundaryErr(ctx, w, err)
		return
	}

	w.Header().Set(HeaderID, result.ID.String())
	w.Header().Set(HeaderCached, strconv.FormatBool(result.Cached))
	if strings.Contains(r.Header.Get("Accept"), codec.ContentTypeXDR) {
		w.Header().Set("Content-Type", codec.ContentTypeXDR)
		w.WriteHeader(http.StatusOK)
		if err := codec.MarshalXDR(w, result.Grid); err != nil {
			logger.Errorf("write xdr grid %s: %v", result.ID, err)
		}
		return
	}

	cells := result.Grid.Cells()
	if cells == nil {
		cells = []boundary.Cell{}
	}
	httputil.RespJSON(ctx, w, http.StatusOK, response{
		ID:         result.ID.String(),
		Generation: result.Generation,
		Cached:     result.Cached,
		Params:     result.Params,
		Bounds:     result.Bounds,
		Size:       result.Grid.Size(),
		Cells:      cells,
		Shares:     result.Grid.Shares(),
	})
}

func respBoundaryErr(ctx context.Context, w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, geom.ErrInvalidMetric),
		errors.Is(err, boundary.ErrInvalidGridSize),
		errors.Is(err, boundary.ErrInvalidBounds):
		httputil.RespBadRequest(ctx, w, "%v", err)
	case errors.Is(err, boundary.ErrSuperseded):
		logging.FromContext(ctx).Debugf("boundary request superseded")
		httputil.RespError(w, http.StatusConflict, "%v", err)
	case errors.Is(err, context.DeadlineExceeded):
		httputil.RespError(w, http.StatusServiceUnavailable, "boundary computation timed out")
	case errors.Is(err, context.Canceled):
		logging.FromContext(ctx).Debugf("boundary request cancelled by client")
	default:
		httputil.RespInternalError(ctx, w, "boundary processing error, %v", err)
	}
}
