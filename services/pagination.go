package services

import "gorm.io/gorm"

// Page selects one page of a list read. Number starts at 1.
type Page struct {
	Number int
	Size   int
}

func (p Page) normalized() Page {
	if p.Number < 1 {
		p.Number = 1
	}
	if p.Size < 1 {
		p.Size = 15
	}
	return p
}

func (p Page) Offset() int {
	p = p.normalized()
	return (p.Number - 1) * p.Size
}

type PageResult[T any] struct {
	Items []T
	Total int64
	Page  Page
}

// Pages is the number of pages needed for Total rows, at least 1.
func (r PageResult[T]) Pages() int {
	size := int64(r.Page.normalized().Size)
	if r.Total == 0 {
		return 1
	}
	return int((r.Total + size - 1) / size)
}

func (r PageResult[T]) HasNext() bool { return r.Page.normalized().Number < r.Pages() }

func (r PageResult[T]) HasPrevious() bool { return r.Page.normalized().Number > 1 }

// paginate counts the rows matched by query and loads the requested page
// into a PageResult. load adds ordering and preloads to the page read only.
func paginate[T any](query *gorm.DB, page Page, load func(*gorm.DB) *gorm.DB) (PageResult[T], error) {
	page = page.normalized()
	result := PageResult[T]{Page: page, Items: []T{}}
	if err := query.Session(&gorm.Session{}).Count(&result.Total).Error; err != nil {
		return result, err
	}
	find := query.Session(&gorm.Session{})
	if load != nil {
		find = load(find)
	}
	if err := find.Offset(page.Offset()).Limit(page.Size).Find(&result.Items).Error; err != nil {
		return result, err
	}
	return result, nil
}
