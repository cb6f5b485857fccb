package database

import (
	"strings"

	sq "github.com/Masterminds/squirrel"
	"github.com/shopspring/decimal"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

// Sort orders accepted by list endpoints.
const (
	SortRecent  = "recent"
	SortPopular = "popular"
	SortValue   = "value"
)

// ArticleFilter selects a page of published articles
type ArticleFilter struct {
	Page     int
	Limit    int
	Category string
	Search   string
	Sort     string
}

func (f ArticleFilter) withDefaults() ArticleFilter {
	f.Page, f.Limit = ClampPage(f.Page, f.Limit)
	if f.Sort != SortPopular {
		f.Sort = SortRecent
	}
	return f
}

// ContractFilter selects a page of contracts
type ContractFilter struct {
	Page     int
	Limit    int
	Category string
	Agency   string
	Search   string
	Sort     string
	MinValue *decimal.Decimal
}

func (f ContractFilter) withDefaults() ContractFilter {
	f.Page, f.Limit = ClampPage(f.Page, f.Limit)
	if f.Sort != SortValue {
		f.Sort = SortRecent
	}
	return f
}

// ClampPage applies the default and maximum page size.
func ClampPage(page, limit int) (int, int) {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = defaultPageSize
	}
	if limit > maxPageSize {
		limit = maxPageSize
	}
	return page, limit
}

func likePattern(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return "%" + r.Replace(strings.TrimSpace(s)) + "%"
}

func articleWhere(b sq.SelectBuilder, f ArticleFilter) sq.SelectBuilder {
	b = b.Where(sq.Eq{"status": StatusPublished})
	if f.Category != "" {
		b = b.Where(sq.Eq{"category": f.Category})
	}
	if strings.TrimSpace(f.Search) != "" {
		p := likePattern(f.Search)
		b = b.Where(sq.Or{sq.ILike{"title": p}, sq.ILike{"summary": p}})
	}
	return b
}

func articleCountQuery(f ArticleFilter) sq.SelectBuilder {
	return articleWhere(psql.Select("COUNT(*)").From("articles"), f)
}

func articleListQuery(f ArticleFilter) sq.SelectBuilder {
	b := articleWhere(psql.Select(articleColumns).From("articles"), f)
	if f.Sort == SortPopular {
		b = b.OrderBy("view_count DESC", "published_at DESC")
	} else {
		b = b.OrderBy("published_at DESC")
	}
	return b.Limit(uint64(f.Limit)).Offset(uint64((f.Page - 1) * f.Limit))
}

func contractWhere(b sq.SelectBuilder, f ContractFilter) sq.SelectBuilder {
	if f.Category != "" {
		b = b.Where(sq.Eq{"category": f.Category})
	}
	if f.Agency != "" {
		b = b.Where(sq.ILike{"agency": likePattern(f.Agency)})
	}
	if strings.TrimSpace(f.Search) != "" {
		p := likePattern(f.Search)
		b = b.Where(sq.Or{sq.ILike{"title": p}, sq.ILike{"description": p}, sq.ILike{"company": p}})
	}
	if f.MinValue != nil {
		b = b.Where("value >= ?::numeric", f.MinValue.String())
	}
	return b
}

func contractCountQuery(f ContractFilter) sq.SelectBuilder {
	return contractWhere(psql.Select("COUNT(*)").From("contracts"), f)
}

func contractListQuery(f ContractFilter) sq.SelectBuilder {
	b := contractWhere(psql.Select(contractColumns).From("contracts"), f)
	if f.Sort == SortValue {
		b = b.OrderBy("value DESC", "award_date DESC NULLS LAST")
	} else {
		b = b.OrderBy("award_date DESC NULLS LAST", "id DESC")
	}
	return b.Limit(uint64(f.Limit)).Offset(uint64((f.Page - 1) * f.Limit))
}
