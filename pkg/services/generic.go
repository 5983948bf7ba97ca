package services

import (
	"context"
	"net/url"
	"reflect"
	"strconv"

	sq "github.com/Masterminds/squirrel"
	"github.com/yaacov/tree-search-language/pkg/tsl"
	sqlFilter "github.com/yaacov/tree-search-language/pkg/walkers/sql"

	"github.com/infractl/infractl/pkg/dao"
	"github.com/infractl/infractl/pkg/db"
	"github.com/infractl/infractl/pkg/errors"
)

const (
	defaultPageSize = 100
	maxPageSize     = 500
)

// ListArguments are the standard list query parameters: paging plus an
// optional TSL search expression and order-by list.
type ListArguments struct {
	Page    int
	Size    int
	Search  string
	OrderBy []string
}

// NewListArguments decodes list arguments from URL query parameters.
func NewListArguments(params url.Values) *ListArguments {
	args := &ListArguments{
		Page:   1,
		Size:   defaultPageSize,
		Search: params.Get("search"),
	}
	if page, err := strconv.Atoi(params.Get("page")); err == nil && page > 0 {
		args.Page = page
	}
	if size, err := strconv.Atoi(params.Get("size")); err == nil && size > 0 {
		args.Size = size
	}
	if args.Size > maxPageSize {
		args.Size = maxPageSize
	}
	if orderBy, ok := params["orderBy"]; ok {
		args.OrderBy = orderBy
	}
	return args
}

// PagingMeta describes one page of a list response.
type PagingMeta struct {
	Page  int   `json:"page"`
	Size  int   `json:"size"`
	Total int64 `json:"total"`
}

// GenericService lists any registered model with search, order-by, and paging.
type GenericService interface {
	// List loads one page of rows into list, which must be a pointer to a
	// slice of models.
	List(ctx context.Context, args *ListArguments, list interface{}) (*PagingMeta, *errors.ServiceError)
}

func NewGenericService(genericDao dao.GenericDao) GenericService {
	return &sqlGenericService{genericDao: genericDao}
}

var _ GenericService = &sqlGenericService{}

type sqlGenericService struct {
	genericDao dao.GenericDao
}

// Columns a search expression may not reference, by model name. JSONB
// documents are excluded; conditions are queried through conditions.<Type>
// terms instead.
var disallowedSearchFields = map[string]map[string]string{
	"Resource": {
		"spec":       "disallowed",
		"outputs":    "disallowed",
		"finalizers": "disallowed",
		"conditions": "disallowed",
	},
	"ResourceType": {
		"schema":   "disallowed",
		"metadata": "disallowed",
	},
	"AdmissionWebhook": {
		"operations": "disallowed",
	},
	"ReconciliationHistory": {},
}

type listContext struct {
	args             *ListArguments
	modelName        string
	disallowedFields *map[string]string
	pagingMeta       *PagingMeta
}

// newListContext resolves the model behind the list target and the search
// restrictions that apply to it.
func (s *sqlGenericService) newListContext(
	ctx context.Context, args *ListArguments, list interface{},
) (*listContext, interface{}, *errors.ServiceError) {
	t := reflect.TypeOf(list)
	if t.Kind() != reflect.Ptr || t.Elem().Kind() != reflect.Slice {
		return nil, nil, errors.GeneralError("list target must be a pointer to a slice")
	}
	elem := t.Elem().Elem()
	for elem.Kind() == reflect.Ptr {
		elem = elem.Elem()
	}
	modelName := elem.Name()

	disallowed, ok := disallowedSearchFields[modelName]
	if !ok {
		disallowed = map[string]string{}
	}

	if args == nil {
		args = &ListArguments{Page: 1, Size: defaultPageSize}
	}

	return &listContext{
		args:             args,
		modelName:        modelName,
		disallowedFields: &disallowed,
		pagingMeta:       &PagingMeta{Page: args.Page, Size: args.Size},
	}, reflect.New(elem).Interface(), nil
}

// buildSearch translates the search expression into a squirrel filter.
func (s *sqlGenericService) buildSearch(listCtx *listContext, d *dao.GenericInstanceDao) (sq.Sqlizer, *errors.ServiceError) {
	search := listCtx.args.Search
	if search == "" {
		return nil, nil
	}

	tslTree, err := tsl.ParseTSL(search)
	if err != nil {
		return nil, errors.BadRequest("Failed to parse search query: %s", search)
	}

	// Condition terms need JSONB operators the TSL SQL walker cannot emit;
	// extract them before the generic walk.
	tslTree, conditionExprs, serviceErr := db.ExtractConditionQueries(tslTree)
	if serviceErr != nil {
		return nil, serviceErr
	}

	tslTree, serviceErr = db.FieldNameWalk(tslTree, *listCtx.disallowedFields)
	if serviceErr != nil {
		return nil, serviceErr
	}

	sqlizer, serviceErr := s.treeWalkForSqlizer(listCtx, tslTree)
	if serviceErr != nil {
		return nil, serviceErr
	}

	if len(conditionExprs) == 0 {
		return sqlizer, nil
	}
	combined := sq.And{sqlizer}
	for _, expr := range conditionExprs {
		combined = append(combined, expr)
	}
	return combined, nil
}

// treeWalkForSqlizer converts a checked TSL tree into a squirrel filter.
func (s *sqlGenericService) treeWalkForSqlizer(listCtx *listContext, tslTree tsl.Node) (sq.Sqlizer, *errors.ServiceError) {
	sqlizer, err := sqlFilter.Walk(tslTree)
	if err != nil {
		return nil, errors.BadRequest("Failed to build search query for %s: %s", listCtx.modelName, err)
	}
	return sqlizer, nil
}

func (s *sqlGenericService) buildOrderBy(listCtx *listContext) ([]string, *errors.ServiceError) {
	if len(listCtx.args.OrderBy) == 0 {
		return []string{"id asc"}, nil
	}
	return db.ArgsToOrderBy(listCtx.args.OrderBy, *listCtx.disallowedFields)
}

func (s *sqlGenericService) List(ctx context.Context, args *ListArguments, list interface{}) (*PagingMeta, *errors.ServiceError) {
	listCtx, model, serviceErr := s.newListContext(ctx, args, list)
	if serviceErr != nil {
		return nil, serviceErr
	}

	d := s.genericDao.GetInstanceDao(ctx, model)

	where, serviceErr := s.buildSearch(listCtx, &d)
	if serviceErr != nil {
		return nil, serviceErr
	}

	orderBy, serviceErr := s.buildOrderBy(listCtx)
	if serviceErr != nil {
		return nil, serviceErr
	}

	total, err := d.Count(where)
	if err != nil {
		return nil, errors.GeneralError("Unable to count %s records: %s", listCtx.modelName, err)
	}
	listCtx.pagingMeta.Total = total

	offset := (listCtx.args.Page - 1) * listCtx.args.Size
	if err := d.Fetch(where, orderBy, offset, listCtx.args.Size, list); err != nil {
		return nil, errors.GeneralError("Unable to list %s records: %s", listCtx.modelName, err)
	}

	return listCtx.pagingMeta, nil
}
