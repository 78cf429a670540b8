//go:build integration

package integration

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/sqlconv/sqlconv/internal/domain/conversion"
	"github.com/sqlconv/sqlconv/internal/platform/db"
	"github.com/sqlconv/sqlconv/internal/platform/sqlexpr"
)

func TestMigrations_Idempotent(t *testing.T) {
	ctx := context.Background()
	m := db.NewMigrator(globalPool, db.Migrations())

	applied, err := m.Up(ctx)
	if err != nil {
		t.Fatalf("second Up: %v", err)
	}
	if applied != 0 {
		t.Errorf("second Up applied %d migrations, want 0", applied)
	}

	statuses, err := m.Status(ctx)
	if err != nil {
		t.Fatalf("Status: %v", err)
	}
	for _, s := range statuses {
		if !s.Applied || s.AppliedAt == nil {
			t.Errorf("migration %d (%s) not applied", s.Version, s.Name)
		}
	}
}

func TestRecordRepoPG_CreateAndGet(t *testing.T) {
	ctx := context.Background()
	truncateHistory(t, ctx)
	repo := conversion.NewRecordRepoPG(globalPool)

	rec := &conversion.Record{
		Expression: "a = 1",
		Result:     json.RawMessage(`{"conditions":[{"field":"a"}]}`),
		LeafCount:  1,
		UserID:     "analyst-1",
	}
	if err := repo.Create(ctx, rec); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if rec.ID == uuid.Nil {
		t.Fatal("expected ID to be assigned")
	}

	got, err := repo.GetByID(ctx, rec.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if got.Expression != "a = 1" || got.UserID != "analyst-1" || got.LeafCount != 1 {
		t.Errorf("got %+v", got)
	}
	if !got.Succeeded() {
		t.Error("expected a successful record")
	}
	var result map[string]interface{}
	if err := json.Unmarshal(got.Result, &result); err != nil {
		t.Fatalf("stored result is not JSON: %v", err)
	}
	if _, ok := result["conditions"]; !ok {
		t.Errorf("result = %s", got.Result)
	}
}

func TestRecordRepoPG_GetMissing(t *testing.T) {
	repo := conversion.NewRecordRepoPG(globalPool)
	if _, err := repo.GetByID(context.Background(), uuid.New()); !errors.Is(err, conversion.ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestRecordRepoPG_ListFilters(t *testing.T) {
	ctx := context.Background()
	truncateHistory(t, ctx)
	repo := conversion.NewRecordRepoPG(globalPool)

	base := time.Now().UTC().Add(-time.Minute)
	seed := []*conversion.Record{
		{Expression: "a = 1", Result: json.RawMessage(`{}`), LeafCount: 1, CreatedAt: base},
		{Expression: "(a = 1", ErrorCode: string(sqlexpr.CodeUnmatchedParenthesis), ErrorMessage: "brackets", CreatedAt: base.Add(time.Second)},
		{Expression: "FOO(a) = 1", ErrorCode: string(sqlexpr.CodeUnsupportedFunction), ErrorMessage: "FOO", CreatedAt: base.Add(2 * time.Second)},
	}
	for _, rec := range seed {
		if err := repo.Create(ctx, rec); err != nil {
			t.Fatalf("Create: %v", err)
		}
	}

	all, total, err := repo.List(ctx, conversion.ListFilter{}, 10, 0)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if total != 3 || len(all) != 3 {
		t.Fatalf("total = %d, len = %d, want 3", total, len(all))
	}
	if all[0].Expression != "FOO(a) = 1" {
		t.Errorf("expected newest first, got %q", all[0].Expression)
	}

	failed, total, err := repo.List(ctx, conversion.ListFilter{Outcome: conversion.OutcomeFailed}, 10, 0)
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if total != 2 || len(failed) != 2 {
		t.Errorf("failed total = %d, want 2", total)
	}

	ok, total, err := repo.List(ctx, conversion.ListFilter{Outcome: conversion.OutcomeSucceeded}, 10, 0)
	if err != nil {
		t.Fatalf("List succeeded: %v", err)
	}
	if total != 1 || len(ok) != 1 || ok[0].Result == nil {
		t.Errorf("succeeded = %+v", ok)
	}

	byCode, total, err := repo.List(ctx, conversion.ListFilter{ErrorCode: string(sqlexpr.CodeUnsupportedFunction)}, 10, 0)
	if err != nil {
		t.Fatalf("List by code: %v", err)
	}
	if total != 1 || byCode[0].ErrorMessage != "FOO" {
		t.Errorf("by code = %+v", byCode)
	}

	page, total, err := repo.List(ctx, conversion.ListFilter{}, 1, 1)
	if err != nil {
		t.Fatalf("List page: %v", err)
	}
	if total != 3 || len(page) != 1 || page[0].Expression != "(a = 1" {
		t.Errorf("page = %+v, total %d", page, total)
	}
}

func TestService_RecordsToPostgres(t *testing.T) {
	ctx := context.Background()
	truncateHistory(t, ctx)

	conv := sqlexpr.NewConverter(sqlexpr.DefaultFunctionTable())
	svc := conversion.NewService(conv, conversion.NewRecordRepoPG(globalPool), zerolog.Nop())

	if _, err := svc.Convert(ctx, "TRIM(name) = 'x' OR age > 30"); err != nil {
		t.Fatalf("Convert: %v", err)
	}
	if _, err := svc.Convert(ctx, "OR a = 1"); err == nil {
		t.Fatal("expected expression error")
	}

	items, total, err := svc.List(ctx, conversion.ListFilter{}, 10, 0)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if total != 2 {
		t.Fatalf("total = %d, want 2", total)
	}
	var leaves int
	for _, it := range items {
		leaves += it.LeafCount
	}
	if leaves != 2 {
		t.Errorf("leaf count sum = %d, want 2", leaves)
	}
}
