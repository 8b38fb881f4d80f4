package app

import (
	"sort"
	"time"

	"ratings_dashboard/internal/domain"
)

// monthIndex numbers calendar months consecutively so ranges can be walked with ++.
func monthIndex(t time.Time) int {
	t = t.UTC()
	return t.Year()*12 + int(t.Month()) - 1
}

func monthAt(idx int) time.Time {
	return time.Date(idx/12, time.Month(idx%12+1), 1, 0, 0, 0, 0, time.UTC)
}

type bucketKey struct {
	brand string
	month int
}

// MonthlyAverage groups reviews by (brand, calendar month) and averages their ratings.
// Rows without a brand have no group and are ignored. An empty dataset is a caller
// error and yields domain.ErrEmptyDataset.
func MonthlyAverage(ds domain.Dataset) (domain.MonthlyAggregate, error) {
	buckets := make(map[bucketKey][]float64)
	for _, r := range ds.Reviews {
		if r.Brand == "" {
			continue
		}
		k := bucketKey{brand: r.Brand, month: monthIndex(r.Date)}
		buckets[k] = append(buckets[k], r.Rating)
	}
	if len(buckets) == 0 {
		return domain.MonthlyAggregate{}, domain.ErrEmptyDataset
	}

	rows := make([]domain.MonthlyAverage, 0, len(buckets))
	for k, ratings := range buckets {
		// summed in sorted order so the mean does not depend on row order
		sort.Float64s(ratings)
		var sum float64
		for _, v := range ratings {
			sum += v
		}
		rows = append(rows, domain.MonthlyAverage{
			Brand:   k.brand,
			Month:   monthAt(k.month),
			Average: sum / float64(len(ratings)),
			Count:   len(ratings),
		})
	}
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].Brand != rows[j].Brand {
			return rows[i].Brand < rows[j].Brand
		}
		return rows[i].Month.Before(rows[j].Month)
	})
	return domain.MonthlyAggregate{Rows: rows}, nil
}

// Densify spreads every brand over the global month range of the aggregate and
// forward-fills gaps. Months before a brand's first observation stay nil.
func Densify(agg domain.MonthlyAggregate) (domain.MonthlySeries, error) {
	if len(agg.Rows) == 0 {
		return domain.MonthlySeries{}, domain.ErrEmptyDataset
	}

	lo, hi := monthIndex(agg.Rows[0].Month), monthIndex(agg.Rows[0].Month)
	byBrand := make(map[string]map[int]float64)
	for _, row := range agg.Rows {
		m := monthIndex(row.Month)
		if m < lo {
			lo = m
		}
		if m > hi {
			hi = m
		}
		if byBrand[row.Brand] == nil {
			byBrand[row.Brand] = make(map[int]float64)
		}
		byBrand[row.Brand][m] = row.Average
	}

	brands := make([]string, 0, len(byBrand))
	for b := range byBrand {
		brands = append(brands, b)
	}
	sort.Strings(brands)

	months := make([]time.Time, 0, hi-lo+1)
	for m := lo; m <= hi; m++ {
		months = append(months, monthAt(m))
	}

	points := make([]domain.SeriesPoint, 0, len(months)*len(brands))
	for _, b := range brands {
		var last *float64
		for i, month := range months {
			if v, ok := byBrand[b][lo+i]; ok {
				last = &v
			}
			p := domain.SeriesPoint{Month: month, Brand: b}
			if last != nil {
				v := *last
				p.AverageRating = &v
			}
			points = append(points, p)
		}
	}

	return domain.MonthlySeries{Months: months, Brands: brands, Points: points}, nil
}
