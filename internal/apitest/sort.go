package apitest

import (
	"sort"

	"github.com/tuningstudio/tuning/pkg/domain"
)

func sortProducts(ps []domain.Product) {
	sort.Slice(ps, func(i, j int) bool { return ps[i].ID < ps[j].ID })
}
