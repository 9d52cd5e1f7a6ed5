package http

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"

	apierrors "github.com/Pittuba/dash-mercado/internal/errors"
	api "github.com/Pittuba/dash-mercado/pkg/contracts/api/v1"
)

// queryInt reads an optional integer parameter; absent means 0
func queryInt(q url.Values, name string) (int, error) {
	raw := strings.TrimSpace(q.Get(name))
	if raw == "" {
		return 0, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, apierrors.ErrValidation(name, fmt.Sprintf("%s must be a valid integer", name))
	}
	return v, nil
}

// queryInts accepts both repeated parameters and comma separated lists
func queryInts(q url.Values, name string) ([]int, error) {
	var out []int
	for _, raw := range q[name] {
		for _, part := range strings.Split(raw, ",") {
			part = strings.TrimSpace(part)
			if part == "" {
				continue
			}
			v, err := strconv.Atoi(part)
			if err != nil {
				return nil, apierrors.ErrValidation(name, fmt.Sprintf("%s must be a list of integers", name))
			}
			out = append(out, v)
		}
	}
	return out, nil
}

func queryString(q url.Values, name string) string {
	return strings.TrimSpace(q.Get(name))
}

func periodQuery(q url.Values) (api.PeriodRequest, error) {
	year, err := queryInt(q, "year")
	if err != nil {
		return api.PeriodRequest{}, err
	}
	month, err := queryInt(q, "month")
	if err != nil {
		return api.PeriodRequest{}, err
	}
	return api.PeriodRequest{Year: year, Month: month}, nil
}

func returnsQuery(q url.Values) (api.ReturnsRequest, error) {
	p, err := periodQuery(q)
	if err != nil {
		return api.ReturnsRequest{}, err
	}
	window, err := queryInt(q, "window")
	if err != nil {
		return api.ReturnsRequest{}, err
	}
	return api.ReturnsRequest{PeriodRequest: p, Category: queryString(q, "category"), Window: window}, nil
}

func riskQuery(q url.Values) (api.RiskRequest, error) {
	p, err := periodQuery(q)
	if err != nil {
		return api.RiskRequest{}, err
	}
	return api.RiskRequest{PeriodRequest: p, Category: queryString(q, "category")}, nil
}

func ratesQuery(q url.Values) (api.RatesRequest, error) {
	p, err := periodQuery(q)
	if err != nil {
		return api.RatesRequest{}, err
	}
	window, err := queryInt(q, "window")
	if err != nil {
		return api.RatesRequest{}, err
	}
	maturities, err := queryInts(q, "maturity")
	if err != nil {
		return api.RatesRequest{}, err
	}
	return api.RatesRequest{
		PeriodRequest: p,
		Window:        window,
		Type:          queryString(q, "type"),
		Maturity:      maturities,
	}, nil
}

func rankingQuery(q url.Values) (api.RankingRequest, error) {
	p, err := periodQuery(q)
	if err != nil {
		return api.RankingRequest{}, err
	}
	n, err := queryInt(q, "n")
	if err != nil {
		return api.RankingRequest{}, err
	}
	return api.RankingRequest{PeriodRequest: p, N: n, Side: strings.ToLower(queryString(q, "side"))}, nil
}

func reportQuery(q url.Values) (api.ReportRequest, error) {
	p, err := periodQuery(q)
	if err != nil {
		return api.ReportRequest{}, err
	}
	window, err := queryInt(q, "window")
	if err != nil {
		return api.ReportRequest{}, err
	}
	return api.ReportRequest{
		PeriodRequest: p,
		Category:      queryString(q, "category"),
		Window:        window,
		Format:        strings.ToLower(queryString(q, "format")),
	}, nil
}

// wantsCSV reports whether the caller asked for a CSV download
func wantsCSV(q url.Values) bool {
	return strings.EqualFold(queryString(q, "format"), "csv")
}
