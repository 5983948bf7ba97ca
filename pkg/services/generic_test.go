package services

import (
	"context"
	"testing"

	"github.com/onsi/gomega/types"
	"github.com/yaacov/tree-search-language/pkg/tsl"

	"github.com/infractl/infractl/pkg/api"
	"github.com/infractl/infractl/pkg/dao"
	"github.com/infractl/infractl/pkg/db"
	dbmocks "github.com/infractl/infractl/pkg/db/mocks"
	"github.com/infractl/infractl/pkg/errors"

	. "github.com/onsi/gomega"
)

func TestSQLTranslation(t *testing.T) {
	RegisterTestingT(t)
	var dbFactory db.SessionFactory = dbmocks.NewMockSessionFactory()
	defer dbFactory.Close() //nolint:errcheck

	g := dao.NewGenericDao(&dbFactory)
	genericService := sqlGenericService{genericDao: g}

	// ill-formatted search or disallowed fields should be rejected
	tests := []map[string]interface{}{
		{
			"search": "garbage",
			"error":  "infractl-21: Failed to parse search query: garbage",
		},
		{
			"search": "spec = '{}'",
			"error":  "infractl-21: spec is not a valid field name",
		},
		{
			"search": "finalizers in ('a')",
			"error":  "infractl-21: finalizers is not a valid field name",
		},
	}
	for _, test := range tests {
		var list []api.Resource
		search := test["search"].(string)
		errorMsg := test["error"].(string)
		listCtx, model, serviceErr := genericService.newListContext(context.Background(), &ListArguments{Search: search}, &list)
		Expect(serviceErr).To(BeNil())
		d := g.GetInstanceDao(context.Background(), model)
		_, serviceErr = genericService.buildSearch(listCtx, &d)
		Expect(serviceErr).ToNot(BeNil())
		Expect(serviceErr.Code).To(Equal(errors.ErrorBadRequest))
		Expect(serviceErr.Error()).To(Equal(errorMsg))
	}

	// tests for sql parsing
	tests = []map[string]interface{}{
		{
			"search": "name in ('primary-bucket')",
			"sql":    "name IN (?)",
			"values": ConsistOf("primary-bucket"),
		},
		{
			"search": "status = 'failed'",
			"sql":    "status = ?",
			"values": ConsistOf("failed"),
		},
		{
			"search": "resource_type_name = 'gcs-bucket'",
			"sql":    "resource_type_name = ?",
			"values": ConsistOf("gcs-bucket"),
		},
		{
			"search": "last_reconcile_time < '2026-01-01T00:00:00Z'",
			"sql":    "last_reconcile_time < ?",
			"values": ConsistOf("2026-01-01T00:00:00Z"),
		},
		{
			"search": "id = '42'",
			"sql":    "id = ?",
			"values": ConsistOf("42"),
		},
	}
	for _, test := range tests {
		var list []api.Resource
		search := test["search"].(string)
		sqlReal := test["sql"].(string)
		valuesReal := test["values"].(types.GomegaMatcher)
		listCtx, _, serviceErr := genericService.newListContext(context.Background(), &ListArguments{Search: search}, &list)
		Expect(serviceErr).To(BeNil())
		tslTree, err := tsl.ParseTSL(search)
		Expect(err).ToNot(HaveOccurred())
		// Field name checking must happen before converting to a sqlizer
		tslTree, serviceErr = db.FieldNameWalk(tslTree, *listCtx.disallowedFields)
		Expect(serviceErr).To(BeNil())
		sqlizer, serviceErr := genericService.treeWalkForSqlizer(listCtx, tslTree)
		Expect(serviceErr).To(BeNil())
		sql, values, err := sqlizer.ToSql()
		Expect(err).ToNot(HaveOccurred())
		Expect(sql).To(Equal(sqlReal))
		Expect(values).To(valuesReal)
	}
}

func TestConditionSearchTranslation(t *testing.T) {
	RegisterTestingT(t)

	tslTree, err := tsl.ParseTSL("conditions.Ready = 'True'")
	Expect(err).ToNot(HaveOccurred())

	_, conditionExprs, serviceErr := db.ExtractConditionQueries(tslTree)
	Expect(serviceErr).To(BeNil())
	Expect(conditionExprs).To(HaveLen(1))

	sql, values, err := conditionExprs[0].ToSql()
	Expect(err).ToNot(HaveOccurred())
	Expect(sql).To(Equal("jsonb_path_query_first(conditions, ?::jsonpath) ->> 'status' = ?"))
	Expect(values).To(ConsistOf(`$[*] ? (@.type == "Ready")`, "True"))
}

func TestConditionSearchRejectsBadInput(t *testing.T) {
	RegisterTestingT(t)

	for _, search := range []string{
		"conditions.ready = 'True'",
		"conditions.Ready = 'maybe'",
		"conditions.Ready > 'True'",
	} {
		tslTree, err := tsl.ParseTSL(search)
		Expect(err).ToNot(HaveOccurred())
		_, _, serviceErr := db.ExtractConditionQueries(tslTree)
		Expect(serviceErr).ToNot(BeNil(), "search %q should be rejected", search)
		Expect(serviceErr.Code).To(Equal(errors.ErrorBadRequest))
	}
}
