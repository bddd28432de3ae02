// reconcile.go — сборка страницы учётных записей с клиентским исключением.
// Remote Account Source не умеет исключать записи и считает total до исключения,
// поэтому страница запрашивается с увеличенным размером и при нехватке
// дозаполняется последующими страницами (не более MaxBackfills).
package service

import (
	"context"
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/bigkaa/clinic-console/internal/clinicapi"
	"github.com/bigkaa/clinic-console/internal/domain/model"
)

const (
	// MaxBackfills — максимум дополнительных запросов страниц за один вызов Fetch.
	MaxBackfills = 3
	// fallbackSurvivorRatio — доля выживших, если не просмотрено ни одной записи.
	fallbackSurvivorRatio = 0.7
)

// Prometheus-метрики сборки страниц.
var (
	reconcileRemoteFetches = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "cc_reconcile_remote_fetches",
		Help:    "Количество запросов к clinic API на одну сборку страницы.",
		Buckets: []float64{1, 2, 3, 4},
	})
	reconcileUnderfilledTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "cc_reconcile_underfilled_total",
		Help: "Количество страниц, собранных с числом записей меньше запрошенного.",
	})
)

// AccountSource — постраничный источник учётных записей.
// Реализуется *clinicapi.Client.
type AccountSource interface {
	ListAccounts(ctx context.Context, p clinicapi.ListParams) (*clinicapi.AccountList, error)
}

// Fetcher собирает страницу без исключённых записей.
// Не хранит состояния между вызовами.
type Fetcher struct {
	source AccountSource
	logger *slog.Logger
}

// NewFetcher создаёт Fetcher.
func NewFetcher(source AccountSource, logger *slog.Logger) *Fetcher {
	return &Fetcher{
		source: source,
		logger: logger.With(slog.String("component", "reconcile")),
	}
}

// InflatedSize возвращает увеличенный размер запроса: ceil(pageSize × 1.5).
func InflatedSize(pageSize int) int {
	return (pageSize*3 + 1) / 2
}

// EstimateTotal пересчитывает total с учётом доли выживших записей:
// floor(remoteTotal × survivors / examined), при examined = 0 — доля 0.7.
func EstimateTotal(remoteTotal, survivors, examined int) int {
	if remoteTotal <= 0 {
		return 0
	}
	if examined == 0 {
		return int(float64(remoteTotal) * fallbackSurvivorRatio)
	}
	return remoteTotal * survivors / examined
}

// Fetch запрашивает страницу q.Page, отбрасывает исключённые записи и при нехватке
// последовательно дозапрашивает следующие страницы.
// Ошибка транспорта возвращается без повторов.
func (f *Fetcher) Fetch(ctx context.Context, q model.Query, exclude model.Exclusion) (model.Page, error) {
	if exclude == nil {
		exclude = model.ExcludeNone()
	}
	pageSize := max(q.PageSize, 1)
	page := max(q.Page, 1)
	inflated := InflatedSize(pageSize)

	params := clinicapi.ListParams{
		Role:     q.Role,
		Keyword:  q.Keyword,
		Page:     page,
		PageSize: inflated,
	}

	requests := 0
	defer func() { reconcileRemoteFetches.Observe(float64(requests)) }()

	var (
		survivors   []model.Account
		examined    int
		remoteTotal int
	)
	accept := func(items []model.Account) {
		examined += len(items)
		for _, acc := range items {
			if !exclude(acc) {
				survivors = append(survivors, acc)
			}
		}
	}

	requests++
	first, err := f.source.ListAccounts(ctx, params)
	if err != nil {
		return model.Page{}, err
	}
	remoteTotal = first.Total
	accept(first.Items)

	last := page
	for backfills := 0; len(first.Items) > 0 &&
		len(survivors) < pageSize &&
		last*inflated < remoteTotal &&
		backfills < MaxBackfills; backfills++ {

		last++
		params.Page = last

		requests++
		next, err := f.source.ListAccounts(ctx, params)
		if err != nil {
			return model.Page{}, err
		}
		if len(next.Items) == 0 {
			break
		}
		accept(next.Items)
	}

	total := EstimateTotal(remoteTotal, len(survivors), examined)
	items := survivors
	if len(items) > pageSize {
		items = items[:pageSize:pageSize]
	}
	if len(items) < pageSize {
		reconcileUnderfilledTotal.Inc()
	}

	f.logger.Debug("Страница собрана",
		slog.Int("page", page),
		slog.Int("page_size", pageSize),
		slog.Int("requests", requests),
		slog.Int("examined", examined),
		slog.Int("survivors", len(survivors)),
		slog.Int("remote_total", remoteTotal),
		slog.Int("estimated_total", total),
	)

	return model.Page{
		Items:       items,
		Total:       total,
		HasNextPage: len(items) == pageSize && page*pageSize < total,
	}, nil
}
