package executor

import (
	"context"
	"testing"

	"github.com/google/go-cmp/cmp"
	schema "github.com/hnql/hnql/internal/schema"
)

// Pattern: Result comparison
func TestOrdering_FieldOutput_Order_Result(t *testing.T) {
	sch := &schema.Schema{
		QueryType: "Query",
		Types: map[string]*schema.Type{
			"Query": {
				Name: "Query",
				Kind: schema.TypeKindObject,
				Fields: []*schema.Field{
					{Name: "a", Type: schema.NamedType("String"), Async: false},
					{Name: "b", Type: schema.NamedType("String"), Async: true},
					{Name: "c", Type: schema.NamedType("String"), Async: false},
				},
			},
			"String": {Name: "String", Kind: schema.TypeKindScalar},
		},
	}
	rt := NewMockRuntime(map[string]MockResolver{
		"Query.a": NewMockValueResolver("A"),
		"Query.b": NewMockValueResolver("B"),
		"Query.c": NewMockValueResolver("C"),
	})
	exec := NewExecutor(rt, sch)
	doc := mustParseQuery(t, "{ a b c }")

	gotRes := exec.ExecuteRequest(context.Background(), doc, "", nil, nil)
	gotCalls := rt.GetCalls()

	wantRes := &ExecutionResult{Data: map[string]any{"a": "A", "b": "B", "c": "C"}, Errors: []GraphQLError{}}
	if diff := cmp.Diff(wantRes, gotRes); diff != "" {
		t.Fatalf("ExecutionResult mismatch (-want +got):\n%s", diff)
	}

	wantCalls := []Call{
		{Kind: "sync", ObjectType: "Query", Field: "a", Source: nil, Args: map[string]any{}, BatchID: 0},
		{Kind: "sync", ObjectType: "Query", Field: "c", Source: nil, Args: map[string]any{}, BatchID: 0},
		{Kind: "async", ObjectType: "Query", Field: "b", Source: nil, Args: map[string]any{}, BatchID: 1},
	}
	if diff := cmp.Diff(wantCalls, gotCalls); diff != "" {
		t.Fatalf("Runtime calls mismatch (-want +got):\n%s", diff)
	}
}

// Pattern: Result comparison
func TestOrdering_OneBatchPerDepth_Result(t *testing.T) {
	// Two async root fields share batch 1; their async children share batch 2.
	sch := &schema.Schema{
		QueryType: "Query",
		Types: map[string]*schema.Type{
			"Query": {
				Name: "Query",
				Kind: schema.TypeKindObject,
				Fields: []*schema.Field{
					{Name: "left", Type: schema.NamedType("Node"), Async: true},
					{Name: "right", Type: schema.NamedType("Node"), Async: true},
				},
			},
			"Node": {
				Name: "Node",
				Kind: schema.TypeKindObject,
				Fields: []*schema.Field{
					{Name: "id", Type: schema.NamedType("String"), Async: false},
					{Name: "child", Type: schema.NamedType("Node"), Async: true},
				},
			},
			"String": {Name: "String", Kind: schema.TypeKindScalar},
		},
	}
	rt := NewMockRuntime(map[string]MockResolver{
		"Query.left":  NewMockValueResolver(map[string]any{"id": "L"}),
		"Query.right": NewMockValueResolver(map[string]any{"id": "R"}),
		"Node.id": func(ctx context.Context, src any, args map[string]any) (any, error) {
			return src.(map[string]any)["id"], nil
		},
		"Node.child": NewMockValueResolver(map[string]any{"id": "C"}),
	})
	exec := NewExecutor(rt, sch)
	doc := mustParseQuery(t, "{ left { id child { id } } right { id child { id } } }")

	gotRes := exec.ExecuteRequest(context.Background(), doc, "", nil, nil)

	wantRes := &ExecutionResult{
		Data: map[string]any{
			"left":  map[string]any{"id": "L", "child": map[string]any{"id": "C"}},
			"right": map[string]any{"id": "R", "child": map[string]any{"id": "C"}},
		},
		Errors: []GraphQLError{},
	}
	if diff := cmp.Diff(wantRes, gotRes); diff != "" {
		t.Fatalf("ExecutionResult mismatch (-want +got):\n%s", diff)
	}

	batches := map[int]int{}
	for _, c := range rt.GetCalls() {
		if c.Kind == CallKindAsync {
			batches[c.BatchID]++
		}
	}
	want := map[int]int{1: 2, 2: 2}
	if diff := cmp.Diff(want, batches); diff != "" {
		t.Fatalf("batch grouping mismatch (-want +got):\n%s", diff)
	}
}

// Pattern: Result comparison
func TestOrdering_Alias_ResponseNames_Result(t *testing.T) {
	sch := &schema.Schema{
		QueryType: "Query",
		Types: map[string]*schema.Type{
			"Query": {
				Name: "Query",
				Kind: schema.TypeKindObject,
				Fields: []*schema.Field{
					{Name: "a", Type: schema.NamedType("String"), Async: true},
				},
			},
			"String": {Name: "String", Kind: schema.TypeKindScalar},
		},
	}
	rt := NewMockRuntime(map[string]MockResolver{
		"Query.a": NewMockValueResolver("A"),
	})
	exec := NewExecutor(rt, sch)
	doc := mustParseQuery(t, "{ first: a second: a }")

	gotRes := exec.ExecuteRequest(context.Background(), doc, "", nil, nil)

	wantRes := &ExecutionResult{Data: map[string]any{"first": "A", "second": "A"}, Errors: []GraphQLError{}}
	if diff := cmp.Diff(wantRes, gotRes); diff != "" {
		t.Fatalf("ExecutionResult mismatch (-want +got):\n%s", diff)
	}
}

// Pattern: Result comparison
func TestOrdering_FragmentMerge_DuplicateFields_Result(t *testing.T) {
	sch := &schema.Schema{
		QueryType: "Query",
		Types: map[string]*schema.Type{
			"Query":  {Name: "Query", Kind: schema.TypeKindObject, Fields: []*schema.Field{{Name: "obj", Type: schema.NamedType("Obj")}}},
			"Obj":    {Name: "Obj", Kind: schema.TypeKindObject, Fields: []*schema.Field{{Name: "a", Type: schema.NamedType("Sub")}}},
			"Sub":    {Name: "Sub", Kind: schema.TypeKindObject, Fields: []*schema.Field{{Name: "x", Type: schema.NamedType("String")}, {Name: "y", Type: schema.NamedType("String")}}},
			"String": {Name: "String", Kind: schema.TypeKindScalar},
		},
	}
	rt := NewMockRuntime(map[string]MockResolver{
		"Query.obj": NewMockValueResolver(map[string]any{}),
		"Obj.a":     NewMockValueResolver(map[string]any{}),
		"Sub.x":     NewMockValueResolver("X"),
		"Sub.y":     NewMockValueResolver("Y"),
	})
	exec := NewExecutor(rt, sch)
	doc := mustParseQuery(t, "{ obj { a { x } a { y } } }")

	gotRes := exec.ExecuteRequest(context.Background(), doc, "", nil, nil)
	gotCalls := rt.GetCalls()

	wantRes := &ExecutionResult{Data: map[string]any{"obj": map[string]any{"a": map[string]any{"x": "X", "y": "Y"}}}, Errors: []GraphQLError{}}
	if diff := cmp.Diff(wantRes, gotRes); diff != "" {
		t.Fatalf("ExecutionResult mismatch (-want +got):\n%s", diff)
	}

	wantCalls := []Call{
		{Kind: "sync", ObjectType: "Query", Field: "obj", Source: nil, Args: map[string]any{}, BatchID: 0},
		{Kind: "sync", ObjectType: "Obj", Field: "a", Source: map[string]any{}, Args: map[string]any{}, BatchID: 0},
		{Kind: "sync", ObjectType: "Sub", Field: "x", Source: map[string]any{}, Args: map[string]any{}, BatchID: 0},
		{Kind: "sync", ObjectType: "Sub", Field: "y", Source: map[string]any{}, Args: map[string]any{}, BatchID: 0},
	}
	if diff := cmp.Diff(wantCalls, gotCalls); diff != "" {
		t.Fatalf("Runtime calls mismatch (-want +got):\n%s", diff)
	}
}

// Pattern: Call log comparison
func TestOrdering_SelectedFields_PassedToBatch(t *testing.T) {
	sch := &schema.Schema{
		QueryType: "Query",
		Types: map[string]*schema.Type{
			"Query": {Name: "Query", Kind: schema.TypeKindObject, Fields: []*schema.Field{
				{Name: "author", Type: schema.NamedType("Person"), Async: true},
			}},
			"Person": {Name: "Person", Kind: schema.TypeKindObject, Fields: []*schema.Field{
				{Name: "id", Type: schema.NamedType("String")},
				{Name: "username", Type: schema.NamedType("String")},
				{Name: "karma", Type: schema.NamedType("Int")},
			}},
			"String": {Name: "String", Kind: schema.TypeKindScalar},
			"Int":    {Name: "Int", Kind: schema.TypeKindScalar},
		},
	}
	rt := NewMockRuntime(map[string]MockResolver{
		"Query.author":    NewMockValueResolver(map[string]any{"id": "u", "username": "u"}),
		"Person.id":       func(ctx context.Context, src any, args map[string]any) (any, error) { return src.(map[string]any)["id"], nil },
		"Person.username": func(ctx context.Context, src any, args map[string]any) (any, error) { return src.(map[string]any)["username"], nil },
	})
	exec := NewExecutor(rt, sch)
	doc := mustParseQuery(t, "{ author { id username __typename } }")

	exec.ExecuteRequest(context.Background(), doc, "", nil, nil)

	var selected []string
	for _, c := range rt.GetCalls() {
		if c.Kind == CallKindAsync && c.Field == "author" {
			selected = c.Selected
		}
	}
	want := []string{"id", "username", "__typename"}
	if diff := cmp.Diff(want, selected); diff != "" {
		t.Fatalf("Selected mismatch (-want +got):\n%s", diff)
	}
}
